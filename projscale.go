package flows

import (
	"errors"
	"math"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
)

// ErrDegenerateBasis is returned by ProjectedAffine when
// the equivariant reference directions are too close to
// zero (or to each other) to span a projection basis.
var ErrDegenerateBasis = errors.New("projection basis is degenerate")

// basisEpsilon is the smallest reference-direction norm
// accepted when building a projection basis. Shorter
// directions leave the projected subspace undefined, so
// they are reported as errors rather than normalized.
const basisEpsilon = 1e-9

// defaultParamScale damps raw network outputs before they
// are used as log-scales and shifts. Without damping, a
// randomly initialized network can produce scales large
// enough for the projection round trip to lose precision.
const defaultParamScale = 0.1

func init() {
	var p ProjectedAffine
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializeProjectedAffine)
}

// ProjectedAffine is a coupling bijector which applies an
// elementwise affine transform in a projected frame
// derived equivariantly from the conditioning channel.
//
// The frame's origin is the conditioning channel's mean
// and its axes come from the channel's message fields, so
// coordinates in the frame are invariant to rigid motions
// of the configuration. Each non-conditioning channel is
// mapped into the frame, scaled and shifted there using
// per-point parameters computed from invariant frame
// coordinates, and mapped back out.
//
// All computation is in float64; raw network outputs are
// multiplied by ParamScale before use (see
// defaultParamScale). Scales are parameterized as
// exp(log-scale), so they can never reach zero and the
// inverse never divides by zero.
type ProjectedAffine struct {
	Dims        int
	CondChannel int

	// RefField and RefField2 produce the frame axes. They
	// are never zero-initialized: a zero field has no
	// direction to offer and would make the basis
	// degenerate.
	RefField  *MessageField
	RefField2 *MessageField

	// ScaleNet maps a point's frame coordinates to its
	// log-scales and shifts (Dims of each).
	ScaleNet   neuralnet.Network
	ParamScale float64
}

// NewProjectedAffine creates a projected affine bijector
// conditioned on the given channel. The scale network's
// output layer is zeroed, so the new bijector is the
// identity. Only two and three dimensions are supported.
func NewProjectedAffine(dims, condChannel, hidden int) *ProjectedAffine {
	if dims != 2 && dims != 3 {
		panic("projected affine bijectors require 2 or 3 dimensions")
	}
	ref := NewMessageField(dims, hidden)
	ref.Randomize()
	ref2 := NewMessageField(dims, hidden)
	ref2.Randomize()
	scaleNet := neuralnet.Network{
		&neuralnet.DenseLayer{InputCount: dims, OutputCount: hidden},
		&neuralnet.HyperbolicTangent{},
		&neuralnet.DenseLayer{InputCount: hidden, OutputCount: 2 * dims},
	}
	scaleNet.Randomize()
	zeroOutputLayer(scaleNet)
	return &ProjectedAffine{
		Dims:        dims,
		CondChannel: condChannel,
		RefField:    ref,
		RefField2:   ref2,
		ScaleNet:    scaleNet,
		ParamScale:  defaultParamScale,
	}
}

// DeserializeProjectedAffine deserializes a ProjectedAffine.
func DeserializeProjectedAffine(d []byte) (*ProjectedAffine, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 6 {
		return nil, errors.New("invalid ProjectedAffine slice")
	}
	dims, ok1 := slice[0].(serializer.Int)
	cond, ok2 := slice[1].(serializer.Int)
	ref, ok3 := slice[2].(*MessageField)
	ref2, ok4 := slice[3].(*MessageField)
	scaleNet, ok5 := slice[4].(neuralnet.Network)
	paramScale, ok6 := slice[5].(serializer.Float64)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, errors.New("invalid ProjectedAffine slice")
	}
	return &ProjectedAffine{
		Dims:        int(dims),
		CondChannel: int(cond),
		RefField:    ref,
		RefField2:   ref2,
		ScaleNet:    scaleNet,
		ParamScale:  float64(paramScale),
	}, nil
}

// Forward applies the affine transform in the projected
// frame, returning the result and the log determinant of
// the Jacobian (the sum of every applied log-scale).
func (p *ProjectedAffine) Forward(cfg *Config) (*Config, float64, error) {
	return p.apply(cfg, true)
}

// Inverse undoes Forward, returning the negated log
// determinant.
func (p *ProjectedAffine) Inverse(cfg *Config) (*Config, float64, error) {
	return p.apply(cfg, false)
}

// Randomize randomizes the scale network, moving the
// bijector away from the identity. ParamScale keeps the
// resulting scales and shifts small.
func (p *ProjectedAffine) Randomize() {
	p.ScaleNet.Randomize()
}

// Parameters returns the learnable parameters of every
// internal network.
func (p *ProjectedAffine) Parameters() []*autofunc.Variable {
	res := p.RefField.Parameters()
	res = append(res, p.RefField2.Parameters()...)
	res = append(res, p.ScaleNet.Parameters()...)
	return res
}

// SerializerType returns the unique ID used to serialize
// ProjectedAffines with the serializer package.
func (p *ProjectedAffine) SerializerType() string {
	return "github.com/amelie-iska/se3-augmented-coupling-flows.ProjectedAffine"
}

// Serialize serializes the ProjectedAffine.
func (p *ProjectedAffine) Serialize() ([]byte, error) {
	return serializer.SerializeSlice([]serializer.Serializer{
		serializer.Int(p.Dims),
		serializer.Int(p.CondChannel),
		p.RefField,
		p.RefField2,
		p.ScaleNet,
		serializer.Float64(p.ParamScale),
	})
}

func (p *ProjectedAffine) apply(cfg *Config, forward bool) (*Config, float64, error) {
	if cfg.Dims != p.Dims {
		panic("configuration dimensionality mismatch")
	}
	if p.CondChannel < 0 || p.CondChannel >= cfg.NumChannels() {
		panic("conditioning channel out of range")
	}

	cond := cfg.Channels[p.CondChannel]
	basis, origin, err := p.frame(cond)
	if err != nil {
		return nil, 0, err
	}
	basisT := matTranspose(basis)
	logScale, shift := p.affineParams(basisT, origin, cond)

	res := cfg.Copy()
	var logDet float64
	for ch, vecs := range res.Channels {
		if ch == p.CondChannel {
			continue
		}
		for i, v := range vecs {
			proj := matVec(basisT, v.Copy().Add(origin.Copy().Scale(-1)))
			for j := range proj {
				if forward {
					proj[j] = proj[j]*math.Exp(logScale[i][j]) + shift[i][j]
					logDet += logScale[i][j]
				} else {
					proj[j] = (proj[j] - shift[i][j]) * math.Exp(-logScale[i][j])
					logDet -= logScale[i][j]
				}
			}
			copy(v, matVec(basis, proj).Add(origin))
		}
	}
	return res, logDet, nil
}

// frame builds the orthonormal projection basis and origin
// from the conditioning channel. The basis columns rotate
// with the configuration and the origin translates with
// it, so frame coordinates are invariant.
func (p *ProjectedAffine) frame(cond []linalg.Vector) (*linalg.Matrix, linalg.Vector, error) {
	origin := make(linalg.Vector, p.Dims)
	for _, u := range cond {
		origin.Add(u)
	}
	origin.Scale(1 / float64(len(cond)))

	axis1 := p.RefField.MeanVector(cond)
	norm := math.Sqrt(axis1.Dot(axis1))
	if norm < basisEpsilon {
		return nil, nil, ErrDegenerateBasis
	}
	axis1.Scale(1 / norm)

	var cols []linalg.Vector
	if p.Dims == 2 {
		cols = []linalg.Vector{axis1, {-axis1[1], axis1[0]}}
	} else {
		axis2 := p.RefField2.MeanVector(cond)
		axis2.Add(axis1.Copy().Scale(-axis2.Dot(axis1)))
		norm2 := math.Sqrt(axis2.Dot(axis2))
		if norm2 < basisEpsilon {
			return nil, nil, ErrDegenerateBasis
		}
		axis2.Scale(1 / norm2)
		cols = []linalg.Vector{axis1, axis2, crossVec(axis1, axis2)}
	}

	basis := &linalg.Matrix{Rows: p.Dims, Cols: p.Dims, Data: make([]float64, p.Dims*p.Dims)}
	for j, col := range cols {
		for i, x := range col {
			basis.Data[i*p.Dims+j] = x
		}
	}
	return basis, origin, nil
}

// affineParams computes per-point log-scales and shifts
// from the conditioning channel's frame coordinates.
func (p *ProjectedAffine) affineParams(basisT *linalg.Matrix, origin linalg.Vector,
	cond []linalg.Vector) (logScale, shift []linalg.Vector) {
	logScale = make([]linalg.Vector, len(cond))
	shift = make([]linalg.Vector, len(cond))
	for i, u := range cond {
		proj := matVec(basisT, u.Copy().Add(origin.Copy().Scale(-1)))
		out := evalNet(p.ScaleNet, proj)
		logScale[i] = out[:p.Dims].Copy().Scale(p.ParamScale)
		shift[i] = out[p.Dims:].Copy().Scale(p.ParamScale)
	}
	return
}

func crossVec(a, b linalg.Vector) linalg.Vector {
	return linalg.Vector{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
