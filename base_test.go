package flows

import (
	"math"
	"testing"

	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
)

func TestBaseDistSampleShape(t *testing.T) {
	r := testRand()
	dist := NewBaseDist(testDims, testPoints, testChannels)
	sample := dist.Sample(r)
	sample.assertShape(testDims, testPoints, testChannels)

	mean := make(linalg.Vector, testDims)
	for _, pos := range sample.Positions() {
		mean.Add(pos)
	}
	for _, x := range mean {
		if math.Abs(x) > 1e-10 {
			t.Error("sampled positions are not centred")
		}
	}

	batch := dist.SampleBatch(r, 13)
	if len(batch) != 13 {
		t.Errorf("expected 13 samples but got %d", len(batch))
	}
}

func TestBaseDistInvariance(t *testing.T) {
	r := testRand()
	dist := NewBaseDist(testDims, testPoints, testChannels)
	logProb := func(c *Config) (float64, error) {
		return dist.LogProb(c), nil
	}
	gen := GaussianConfigGen(testDims, testPoints, testChannels)
	if err := CheckInvariant(r, logProb, gen, 50, 1e-9); err != nil {
		t.Error(err)
	}
}

func TestBaseDistInvariance3D(t *testing.T) {
	r := testRand()
	dist := NewBaseDist(3, 5, 4)
	dist.AuxScale = 0.7
	logProb := func(c *Config) (float64, error) {
		return dist.LogProb(c), nil
	}
	if err := CheckInvariant(r, logProb, GaussianConfigGen(3, 5, 4), 50, 1e-9); err != nil {
		t.Error(err)
	}
}

func TestBaseDistLogProbConsistency(t *testing.T) {
	// A wider augmentation scale must lower the density of
	// samples drawn near the positions.
	r := testRand()
	narrow := NewBaseDist(testDims, testPoints, testChannels)
	wide := NewBaseDist(testDims, testPoints, testChannels)
	wide.AuxScale = 10

	cfg := narrow.Sample(r)
	if narrow.LogProb(cfg) <= wide.LogProb(cfg) {
		t.Error("narrow distribution should dominate near the positions")
	}
}

func TestBaseDistShapeMismatch(t *testing.T) {
	r := testRand()
	dist := NewBaseDist(testDims, testPoints, testChannels)
	cfg := GaussianConfigGen(testDims, testPoints+1, testChannels)(r)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for shape mismatch")
		}
	}()
	dist.LogProb(cfg)
}

func TestBaseDistSerialize(t *testing.T) {
	dist := NewBaseDist(3, 7, 2)
	dist.AuxScale = 0.25
	data, err := serializer.SerializeWithType(dist)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := serializer.DeserializeWithType(data)
	if err != nil {
		t.Fatal(err)
	}
	dist1, ok := restored.(*BaseDist)
	if !ok {
		t.Fatalf("unexpected type: %T", restored)
	}
	if *dist1 != *dist {
		t.Errorf("expected %v but got %v", dist, dist1)
	}
}
