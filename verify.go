package flows

import (
	"fmt"
	"math"
	"math/rand"
)

// A ConfigGen draws random configurations for property
// checks.
type ConfigGen func(r *rand.Rand) *Config

// GaussianConfigGen returns a generator which fills every
// coordinate of a configuration of the given shape with
// independent standard Gaussians.
func GaussianConfigGen(dims, points, channels int) ConfigGen {
	return func(r *rand.Rand) *Config {
		res := NewConfig(dims, points, channels)
		for _, vecs := range res.Channels {
			for _, v := range vecs {
				for i := range v {
					v[i] = r.NormFloat64()
				}
			}
		}
		return res
	}
}

// CheckInvariant verifies that fn gives the same value
// before and after random rigid motions of random
// configurations. It returns a descriptive error for the
// first violation beyond the tolerance.
func CheckInvariant(r *rand.Rand, fn func(*Config) (float64, error), gen ConfigGen,
	trials int, tol float64) error {
	for trial := 0; trial < trials; trial++ {
		cfg := gen(r)
		motion := RandomMotion(r, cfg.Dims)
		orig, err := fn(cfg)
		if err != nil {
			return fmt.Errorf("trial %d: %w", trial, err)
		}
		moved, err := fn(motion.Apply(cfg))
		if err != nil {
			return fmt.Errorf("trial %d (moved): %w", trial, err)
		}
		if diff := math.Abs(orig - moved); diff > tol || math.IsNaN(diff) {
			return fmt.Errorf("trial %d: invariance violated: %v before motion, %v after (diff %v)",
				trial, orig, moved, diff)
		}
	}
	return nil
}

// CheckEquivariant verifies that fn commutes with random
// rigid motions: transforming a moved configuration must
// match moving the transformed configuration.
func CheckEquivariant(r *rand.Rand, fn func(*Config) (*Config, error), gen ConfigGen,
	trials int, tol float64) error {
	for trial := 0; trial < trials; trial++ {
		cfg := gen(r)
		motion := RandomMotion(r, cfg.Dims)
		out, err := fn(cfg)
		if err != nil {
			return fmt.Errorf("trial %d: %w", trial, err)
		}
		movedOut, err := fn(motion.Apply(cfg))
		if err != nil {
			return fmt.Errorf("trial %d (moved): %w", trial, err)
		}
		if diff := configMaxDiff(motion.Apply(out), movedOut); diff > tol || math.IsNaN(diff) {
			return fmt.Errorf("trial %d: equivariance violated by %v", trial, diff)
		}
	}
	return nil
}

// CheckInverse verifies both round trips of a bijector:
// forward then inverse and inverse then forward must
// reproduce the input within the tolerance.
func CheckInverse(r *rand.Rand, b Bijector, gen ConfigGen, trials int, tol float64) error {
	for trial := 0; trial < trials; trial++ {
		cfg := gen(r)

		fwd, _, err := b.Forward(cfg)
		if err != nil {
			return fmt.Errorf("trial %d: forward: %w", trial, err)
		}
		back, _, err := b.Inverse(fwd)
		if err != nil {
			return fmt.Errorf("trial %d: inverse: %w", trial, err)
		}
		if diff := configMaxDiff(cfg, back); diff > tol || math.IsNaN(diff) {
			return fmt.Errorf("trial %d: forward-inverse round trip off by %v", trial, diff)
		}

		inv, _, err := b.Inverse(cfg)
		if err != nil {
			return fmt.Errorf("trial %d: inverse: %w", trial, err)
		}
		restored, _, err := b.Forward(inv)
		if err != nil {
			return fmt.Errorf("trial %d: forward: %w", trial, err)
		}
		if diff := configMaxDiff(cfg, restored); diff > tol || math.IsNaN(diff) {
			return fmt.Errorf("trial %d: inverse-forward round trip off by %v", trial, diff)
		}
	}
	return nil
}

// CheckLogDet verifies that a bijector's forward log
// Jacobian determinant is the negative of its inverse log
// determinant at corresponding points.
func CheckLogDet(r *rand.Rand, b Bijector, gen ConfigGen, trials int, tol float64) error {
	for trial := 0; trial < trials; trial++ {
		cfg := gen(r)
		fwd, fwdDet, err := b.Forward(cfg)
		if err != nil {
			return fmt.Errorf("trial %d: forward: %w", trial, err)
		}
		_, invDet, err := b.Inverse(fwd)
		if err != nil {
			return fmt.Errorf("trial %d: inverse: %w", trial, err)
		}
		if diff := math.Abs(fwdDet + invDet); diff > tol || math.IsNaN(diff) {
			return fmt.Errorf("trial %d: log-determinants do not negate: %v forward, %v inverse",
				trial, fwdDet, invDet)
		}
	}
	return nil
}

// configMaxDiff returns the largest absolute coordinate
// difference between two configurations of equal shape.
func configMaxDiff(a, b *Config) float64 {
	b.assertShape(a.Dims, a.NumPoints(), a.NumChannels())
	var res float64
	for ch, vecs := range a.Channels {
		for i, v := range vecs {
			for j, x := range v {
				res = math.Max(res, math.Abs(x-b.Channels[ch][i][j]))
			}
		}
	}
	return res
}
