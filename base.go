package flows

import (
	"errors"
	"math"
	"math/rand"

	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
)

func init() {
	var b BaseDist
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBaseDist)
}

// A BaseDist is a distribution over configurations whose
// log-density is invariant under rigid motions.
//
// Positions follow an isotropic Gaussian restricted to the
// subspace of configurations with zero centre of gravity.
// Each augmented channel is conditionally Gaussian around
// its point's position with standard deviation AuxScale.
type BaseDist struct {
	Dims     int
	Points   int
	Channels int
	AuxScale float64
}

// NewBaseDist creates a base distribution over
// configurations of the given shape with unit augmentation
// scale.
//
// The channel count includes the position channel, so it
// is one more than the number of augmented coordinates per
// point.
func NewBaseDist(dims, points, channels int) *BaseDist {
	if dims <= 0 || points <= 0 || channels <= 0 {
		panic("dimensions, points, and channels must be positive")
	}
	return &BaseDist{Dims: dims, Points: points, Channels: channels, AuxScale: 1}
}

// DeserializeBaseDist deserializes a BaseDist.
func DeserializeBaseDist(d []byte) (*BaseDist, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 4 {
		return nil, errors.New("invalid BaseDist slice")
	}
	dims, ok1 := slice[0].(serializer.Int)
	points, ok2 := slice[1].(serializer.Int)
	channels, ok3 := slice[2].(serializer.Int)
	scale, ok4 := slice[3].(serializer.Float64)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errors.New("invalid BaseDist slice")
	}
	return &BaseDist{
		Dims:     int(dims),
		Points:   int(points),
		Channels: int(channels),
		AuxScale: float64(scale),
	}, nil
}

// Sample draws a configuration from the distribution.
func (b *BaseDist) Sample(r *rand.Rand) *Config {
	res := NewConfig(b.Dims, b.Points, b.Channels)

	positions := res.Channels[0]
	mean := make(linalg.Vector, b.Dims)
	for _, pos := range positions {
		for j := range pos {
			pos[j] = r.NormFloat64()
		}
		mean.Add(pos)
	}
	mean.Scale(1 / float64(b.Points))
	for _, pos := range positions {
		pos.Add(mean.Copy().Scale(-1))
	}

	for _, vecs := range res.Channels[1:] {
		for i, v := range vecs {
			for j := range v {
				v[j] = positions[i][j] + r.NormFloat64()*b.AuxScale
			}
		}
	}

	return res
}

// SampleBatch draws n independent configurations.
func (b *BaseDist) SampleBatch(r *rand.Rand, n int) []*Config {
	res := make([]*Config, n)
	for i := range res {
		res[i] = b.Sample(r)
	}
	return res
}

// LogProb returns the log-density of a configuration.
//
// The position term is evaluated on the centred
// configuration with (Points-1)*Dims degrees of freedom,
// which makes the result independent of translations; the
// augmented terms depend only on differences from the
// positions, and every norm involved is rotation
// invariant.
func (b *BaseDist) LogProb(c *Config) float64 {
	c.assertShape(b.Dims, b.Points, b.Channels)

	positions := c.Channels[0]
	mean := make(linalg.Vector, b.Dims)
	for _, pos := range positions {
		mean.Add(pos)
	}
	mean.Scale(1 / float64(b.Points))

	var sqSum float64
	for _, pos := range positions {
		centered := pos.Copy().Add(mean.Copy().Scale(-1))
		sqSum += centered.Dot(centered)
	}
	dof := float64((b.Points - 1) * b.Dims)
	res := -0.5*sqSum - 0.5*dof*math.Log(2*math.Pi)

	variance := b.AuxScale * b.AuxScale
	auxDof := float64(b.Points * b.Dims)
	for _, vecs := range c.Channels[1:] {
		var auxSq float64
		for i, v := range vecs {
			diff := v.Copy().Add(positions[i].Copy().Scale(-1))
			auxSq += diff.Dot(diff)
		}
		res += -0.5*auxSq/variance - 0.5*auxDof*math.Log(2*math.Pi*variance)
	}

	return res
}

// SerializerType returns the unique ID used to serialize
// BaseDists with the serializer package.
func (b *BaseDist) SerializerType() string {
	return "github.com/amelie-iska/se3-augmented-coupling-flows.BaseDist"
}

// Serialize serializes the BaseDist.
func (b *BaseDist) Serialize() ([]byte, error) {
	return serializer.SerializeSlice([]serializer.Serializer{
		serializer.Int(b.Dims),
		serializer.Int(b.Points),
		serializer.Int(b.Channels),
		serializer.Float64(b.AuxScale),
	})
}
