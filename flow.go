package flows

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/serializer"
)

func init() {
	var f Flow
	serializer.RegisterTypedDeserializer(f.SerializerType(), DeserializeFlow)
}

// A Flow is a distribution built by pushing an invariant
// base distribution through an ordered sequence of
// equivariant bijectors.
//
// Sampling applies the bijectors in order; log-density
// evaluation applies the inverses in reverse order and
// accumulates their log Jacobian determinants. If every
// bijector is equivariant and the base is invariant, the
// composed log-density is invariant to rigid motions.
type Flow struct {
	Base      *BaseDist
	Bijectors []Bijector
}

// DeserializeFlow deserializes a Flow.
func DeserializeFlow(d []byte) (*Flow, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) < 1 {
		return nil, errors.New("invalid Flow slice")
	}
	base, ok := slice[0].(*BaseDist)
	if !ok {
		return nil, errors.New("invalid Flow slice")
	}
	res := &Flow{Base: base}
	for _, s := range slice[1:] {
		b, ok := s.(Bijector)
		if !ok {
			return nil, errors.New("invalid Flow slice")
		}
		res.Bijectors = append(res.Bijectors, b)
	}
	return res, nil
}

// Sample draws a configuration from the flow.
func (f *Flow) Sample(r *rand.Rand) (*Config, error) {
	cfg, _, err := f.SampleAndLogProb(r)
	return cfg, err
}

// SampleBatch draws n independent configurations.
func (f *Flow) SampleBatch(r *rand.Rand, n int) ([]*Config, error) {
	res := make([]*Config, n)
	for i := range res {
		var err error
		if res[i], err = f.Sample(r); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// SampleAndLogProb draws a configuration along with its
// log-density, reusing the log-determinants accumulated
// during the forward pass.
func (f *Flow) SampleAndLogProb(r *rand.Rand) (*Config, float64, error) {
	cfg := f.Base.Sample(r)
	logProb := f.Base.LogProb(cfg)
	for i, b := range f.Bijectors {
		var logDet float64
		var err error
		if cfg, logDet, err = b.Forward(cfg); err != nil {
			return nil, 0, fmt.Errorf("bijector %d: %w", i, err)
		}
		logProb -= logDet
	}
	return cfg, logProb, nil
}

// LogProb returns the log-density of a configuration by
// pulling it back through the inverse bijectors.
func (f *Flow) LogProb(cfg *Config) (float64, error) {
	var logDetSum float64
	for i := len(f.Bijectors) - 1; i >= 0; i-- {
		var logDet float64
		var err error
		if cfg, logDet, err = f.Bijectors[i].Inverse(cfg); err != nil {
			return 0, fmt.Errorf("bijector %d: %w", i, err)
		}
		logDetSum += logDet
	}
	return f.Base.LogProb(cfg) + logDetSum, nil
}

// LogProbBatch evaluates the log-density of every
// configuration in a batch.
func (f *Flow) LogProbBatch(cfgs []*Config) ([]float64, error) {
	res := make([]float64, len(cfgs))
	for i, cfg := range cfgs {
		var err error
		if res[i], err = f.LogProb(cfg); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Parameters returns the learnable parameters of every
// bijector which exposes them, so the flow can be trained
// by an external optimizer.
func (f *Flow) Parameters() []*autofunc.Variable {
	objs := make([]interface{}, len(f.Bijectors))
	for i, b := range f.Bijectors {
		objs[i] = b
	}
	return learnerParameters(objs...)
}

// SerializerType returns the unique ID used to serialize
// Flows with the serializer package.
func (f *Flow) SerializerType() string {
	return "github.com/amelie-iska/se3-augmented-coupling-flows.Flow"
}

// Serialize serializes the base distribution and every
// bijector. It fails if a bijector is not a
// serializer.Serializer.
func (f *Flow) Serialize() ([]byte, error) {
	slice := []serializer.Serializer{f.Base}
	for _, b := range f.Bijectors {
		s, ok := b.(serializer.Serializer)
		if !ok {
			return nil, fmt.Errorf("bijector is not a Serializer: %T", b)
		}
		slice = append(slice, s)
	}
	return serializer.SerializeSlice(slice)
}
