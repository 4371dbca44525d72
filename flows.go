// Package flows implements normalizing flows over point
// configurations whose densities are invariant under rigid
// motions (rotations and translations) of the underlying
// Euclidean space.
//
// A flow composes an invariant base distribution with a
// sequence of equivariant bijectors, so that the change of
// variables preserves invariance layer by layer.
package flows

import (
	"math/rand"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/sgd"
)

// A Distribution is a density over Configs which can be
// sampled from and evaluated.
type Distribution interface {
	// Sample draws a configuration using the given source
	// of randomness.
	Sample(r *rand.Rand) *Config

	// LogProb returns the log-density of a configuration.
	LogProb(c *Config) float64
}

// A Bijector is an invertible transformation between
// configurations of identical shape.
//
// Forward and Inverse each return the transformed
// configuration together with the log absolute determinant
// of the Jacobian of the map that was applied, so the two
// log-determinants negate each other at corresponding
// points.
type Bijector interface {
	Forward(c *Config) (*Config, float64, error)
	Inverse(c *Config) (*Config, float64, error)
}

// learnerParameters returns the parameters of each object
// which implements sgd.Learner.
func learnerParameters(objs ...interface{}) []*autofunc.Variable {
	var res []*autofunc.Variable
	for _, obj := range objs {
		if l, ok := obj.(sgd.Learner); ok {
			res = append(res, l.Parameters()...)
		}
	}
	return res
}
