package flows

import (
	"math"
	"testing"
)

func TestRandomMotionRotation(t *testing.T) {
	r := testRand()
	for _, dims := range []int{2, 3, 5} {
		for trial := 0; trial < testTrials; trial++ {
			rot := RandomMotion(r, dims).Rotation
			rotT := matTranspose(rot)
			product := matMul(rotT, rot)
			for i := 0; i < dims; i++ {
				for j := 0; j < dims; j++ {
					expected := 0.0
					if i == j {
						expected = 1
					}
					if math.Abs(product.Data[i*dims+j]-expected) > 1e-9 {
						t.Fatalf("dims %d: rotation is not orthogonal", dims)
					}
				}
			}
			if matDeterminantSign(rot) != 1 {
				t.Fatalf("dims %d: rotation is not proper", dims)
			}
		}
	}
}

func TestMotionComposeInverse(t *testing.T) {
	r := testRand()
	gen := GaussianConfigGen(testDims, testPoints, testChannels)
	for trial := 0; trial < testTrials; trial++ {
		cfg := gen(r)
		m1 := RandomMotion(r, testDims)
		m2 := RandomMotion(r, testDims)

		composed := m2.Compose(m1).Apply(cfg)
		sequential := m2.Apply(m1.Apply(cfg))
		if !configsClose(composed, sequential, 1e-10) {
			t.Error("composition does not match sequential application")
		}

		identity := m1.Inverse().Apply(m1.Apply(cfg))
		if !configsClose(identity, cfg, 1e-10) {
			t.Error("inverse motion does not undo motion")
		}
	}
}

func TestIdentityMotion(t *testing.T) {
	r := testRand()
	cfg := GaussianConfigGen(testDims, testPoints, testChannels)(r)
	if !configsClose(IdentityMotion(testDims).Apply(cfg), cfg, 0) {
		t.Error("identity motion changed the configuration")
	}
}

func TestMotionShapeMismatch(t *testing.T) {
	r := testRand()
	cfg := GaussianConfigGen(3, testPoints, testChannels)(r)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched dimensionality")
		}
	}()
	RandomMotion(r, 2).Apply(cfg)
}
