package flows

import (
	"math"
	"math/rand"
	"testing"
)

const (
	testDims     = 2
	testPoints   = 8
	testChannels = 2

	testHidden = 6
	testTrials = 10

	benchmarkPoints = 32
	benchmarkLayers = 4
)

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(1337))
}

func vectorsClose(d1, d2 []float64, tol float64) bool {
	if len(d1) != len(d2) {
		return false
	}
	for i, x := range d1 {
		if math.Abs(x-d2[i]) > tol || math.IsNaN(x) {
			return false
		}
	}
	return true
}

func configsClose(c1, c2 *Config, tol float64) bool {
	if c1.Dims != c2.Dims || c1.NumPoints() != c2.NumPoints() ||
		c1.NumChannels() != c2.NumChannels() {
		return false
	}
	return configMaxDiff(c1, c2) <= tol
}

// testFlow builds a flow of alternating shift and
// projected affine layers over the standard test shape.
func testFlow(layers int, randomized bool) *Flow {
	res := &Flow{Base: NewBaseDist(testDims, testPoints, testChannels)}
	for i := 0; i < layers; i++ {
		cond := i % testChannels
		if i%2 == 0 {
			b := NewCoupledShift(testDims, cond, testHidden)
			if randomized {
				b.Randomize()
			}
			res.Bijectors = append(res.Bijectors, b)
		} else {
			b := NewProjectedAffine(testDims, cond, testHidden)
			if randomized {
				b.Randomize()
			}
			res.Bijectors = append(res.Bijectors, b)
		}
	}
	return res
}

func mustForward(t *testing.T, b Bijector, c *Config) (*Config, float64) {
	t.Helper()
	res, logDet, err := b.Forward(c)
	if err != nil {
		t.Fatal(err)
	}
	return res, logDet
}
