package flows

import (
	"errors"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/serializer"
)

func init() {
	var c CoupledShift
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCoupledShift)
}

// CoupledShift is a volume-preserving coupling bijector.
//
// One channel of the configuration conditions the
// transform and passes through unchanged; every other
// channel is shifted by the conditioning channel's message
// field. Because the field rotates with the configuration
// and ignores translations, the whole step is equivariant
// to rigid motions, and because it is purely additive its
// log Jacobian determinant is identically zero.
type CoupledShift struct {
	Dims        int
	CondChannel int
	Field       *MessageField
}

// NewCoupledShift creates a shift bijector conditioned on
// the given channel, with a zeroed message field so the
// new bijector is the identity.
func NewCoupledShift(dims, condChannel, hidden int) *CoupledShift {
	return &CoupledShift{
		Dims:        dims,
		CondChannel: condChannel,
		Field:       NewMessageField(dims, hidden),
	}
}

// DeserializeCoupledShift deserializes a CoupledShift.
func DeserializeCoupledShift(d []byte) (*CoupledShift, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 3 {
		return nil, errors.New("invalid CoupledShift slice")
	}
	dims, ok1 := slice[0].(serializer.Int)
	cond, ok2 := slice[1].(serializer.Int)
	field, ok3 := slice[2].(*MessageField)
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.New("invalid CoupledShift slice")
	}
	return &CoupledShift{Dims: int(dims), CondChannel: int(cond), Field: field}, nil
}

// Forward shifts every non-conditioning channel by the
// conditioning channel's field.
func (c *CoupledShift) Forward(cfg *Config) (*Config, float64, error) {
	return c.apply(cfg, 1)
}

// Inverse undoes Forward.
func (c *CoupledShift) Inverse(cfg *Config) (*Config, float64, error) {
	return c.apply(cfg, -1)
}

// Randomize randomizes the message field, moving the
// bijector away from the identity. The transform stays
// exactly invertible regardless of the field.
func (c *CoupledShift) Randomize() {
	c.Field.Randomize()
}

// Parameters returns the learnable parameters of the
// message field.
func (c *CoupledShift) Parameters() []*autofunc.Variable {
	return c.Field.Parameters()
}

// SerializerType returns the unique ID used to serialize
// CoupledShifts with the serializer package.
func (c *CoupledShift) SerializerType() string {
	return "github.com/amelie-iska/se3-augmented-coupling-flows.CoupledShift"
}

// Serialize serializes the CoupledShift.
func (c *CoupledShift) Serialize() ([]byte, error) {
	return serializer.SerializeSlice([]serializer.Serializer{
		serializer.Int(c.Dims),
		serializer.Int(c.CondChannel),
		c.Field,
	})
}

func (c *CoupledShift) apply(cfg *Config, sign float64) (*Config, float64, error) {
	if cfg.Dims != c.Dims {
		panic("configuration dimensionality mismatch")
	}
	if c.CondChannel < 0 || c.CondChannel >= cfg.NumChannels() {
		panic("conditioning channel out of range")
	}
	shift := c.Field.Eval(cfg.Channels[c.CondChannel])
	res := cfg.Copy()
	for ch, vecs := range res.Channels {
		if ch == c.CondChannel {
			continue
		}
		for i, v := range vecs {
			v.Add(shift[i].Copy().Scale(sign))
		}
	}
	return res, 0, nil
}
