package flows

import (
	"errors"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/neuralnet"
)

func init() {
	var m MessageField
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeMessageField)
}

// A MessageField computes a vector field over a point set
// which is equivariant to rotations and invariant to
// translations.
//
// The field at point i is
//
//	sum over j != i of phi(|p_i - p_j|^2) * (p_i - p_j)
//
// where phi is a learned network of the invariant squared
// distance. Since the field is built from relative
// positions weighted by invariant scalars, rotating and
// translating the points rotates (but never translates)
// the field.
type MessageField struct {
	Dims int
	Net  neuralnet.Network
}

// NewMessageField creates a field whose weight network has
// one hidden hyperbolic tangent layer of the given size.
// The hidden layer is randomized and the output layer is
// zeroed, so the new field is identically zero.
func NewMessageField(dims, hidden int) *MessageField {
	net := neuralnet.Network{
		&neuralnet.DenseLayer{InputCount: 1, OutputCount: hidden},
		&neuralnet.HyperbolicTangent{},
		&neuralnet.DenseLayer{InputCount: hidden, OutputCount: 1},
	}
	net.Randomize()
	res := &MessageField{Dims: dims, Net: net}
	res.Zero()
	return res
}

// DeserializeMessageField deserializes a MessageField.
func DeserializeMessageField(d []byte) (*MessageField, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 2 {
		return nil, errors.New("invalid MessageField slice")
	}
	dims, ok1 := slice[0].(serializer.Int)
	net, ok2 := slice[1].(neuralnet.Network)
	if !ok1 || !ok2 {
		return nil, errors.New("invalid MessageField slice")
	}
	return &MessageField{Dims: int(dims), Net: net}, nil
}

// Eval evaluates the field at every point of a point set.
func (m *MessageField) Eval(points []linalg.Vector) []linalg.Vector {
	res := make([]linalg.Vector, len(points))
	for i, p := range points {
		field := make(linalg.Vector, m.Dims)
		for j, q := range points {
			if i == j {
				continue
			}
			diff := p.Copy().Add(q.Copy().Scale(-1))
			field.Add(diff.Scale(m.weight(diff.Dot(diff))))
		}
		res[i] = field
	}
	return res
}

// MeanVector returns the average of the field over a point
// set, an equivariant direction usable as a reference
// axis.
func (m *MessageField) MeanVector(points []linalg.Vector) linalg.Vector {
	res := make(linalg.Vector, m.Dims)
	for _, v := range m.Eval(points) {
		res.Add(v)
	}
	return res.Scale(1 / float64(len(points)))
}

// Zero zeroes the output layer of the weight network,
// making the field identically zero.
func (m *MessageField) Zero() {
	zeroOutputLayer(m.Net)
}

// Randomize randomizes every layer of the weight network.
func (m *MessageField) Randomize() {
	m.Net.Randomize()
}

// Parameters returns the learnable parameters of the
// weight network.
func (m *MessageField) Parameters() []*autofunc.Variable {
	return m.Net.Parameters()
}

// SerializerType returns the unique ID used to serialize
// MessageFields with the serializer package.
func (m *MessageField) SerializerType() string {
	return "github.com/amelie-iska/se3-augmented-coupling-flows.MessageField"
}

// Serialize serializes the MessageField.
func (m *MessageField) Serialize() ([]byte, error) {
	return serializer.SerializeSlice([]serializer.Serializer{
		serializer.Int(m.Dims),
		m.Net,
	})
}

func (m *MessageField) weight(sqDist float64) float64 {
	in := &autofunc.Variable{Vector: linalg.Vector{sqDist}}
	return m.Net.Apply(in).Output()[0]
}

// zeroOutputLayer zeroes the parameters of a network's
// final dense layer.
func zeroOutputLayer(net neuralnet.Network) {
	layer := net[len(net)-1].(*neuralnet.DenseLayer)
	for _, p := range layer.Parameters() {
		for i := range p.Vector {
			p.Vector[i] = 0
		}
	}
}

// evalNet applies a network to a plain vector.
func evalNet(net neuralnet.Network, in linalg.Vector) linalg.Vector {
	return net.Apply(&autofunc.Variable{Vector: in}).Output()
}
