package flows

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/autofunc/functest"
	"github.com/unixpickle/num-analysis/linalg"
)

func randomPoints(r *rand.Rand, dims, count int) []linalg.Vector {
	res := make([]linalg.Vector, count)
	for i := range res {
		res[i] = make(linalg.Vector, dims)
		for j := range res[i] {
			res[i][j] = r.NormFloat64()
		}
	}
	return res
}

func TestMessageFieldZeroInit(t *testing.T) {
	r := testRand()
	field := NewMessageField(testDims, testHidden)
	for _, v := range field.Eval(randomPoints(r, testDims, testPoints)) {
		for _, x := range v {
			if x != 0 {
				t.Fatal("zero-initialized field is not zero")
			}
		}
	}
}

func TestMessageFieldEquivariance(t *testing.T) {
	r := testRand()
	for _, dims := range []int{2, 3} {
		field := NewMessageField(dims, testHidden)
		field.Randomize()
		for trial := 0; trial < testTrials; trial++ {
			points := randomPoints(r, dims, testPoints)
			motion := RandomMotion(r, dims)

			moved := make([]linalg.Vector, len(points))
			for i, p := range points {
				moved[i] = matVec(motion.Rotation, p).Add(motion.Translation)
			}

			fieldOut := field.Eval(points)
			movedOut := field.Eval(moved)
			for i, v := range fieldOut {
				// The field rotates with the points but must
				// ignore the translation.
				rotated := matVec(motion.Rotation, v)
				if !vectorsClose(rotated, movedOut[i], 1e-9) {
					t.Fatalf("dims %d: field is not equivariant", dims)
				}
			}
		}
	}
}

func TestMessageFieldPermutationEquivariance(t *testing.T) {
	r := testRand()
	field := NewMessageField(testDims, testHidden)
	field.Randomize()
	points := randomPoints(r, testDims, testPoints)

	perm := r.Perm(len(points))
	permuted := make([]linalg.Vector, len(points))
	for i, j := range perm {
		permuted[i] = points[j]
	}

	fieldOut := field.Eval(points)
	permutedOut := field.Eval(permuted)
	for i, j := range perm {
		if !vectorsClose(permutedOut[i], fieldOut[j], 1e-11) {
			t.Fatal("field does not commute with permutations")
		}
	}
}

func TestMessageFieldGradients(t *testing.T) {
	field := NewMessageField(testDims, testHidden)
	field.Randomize()
	inVar := &autofunc.Variable{Vector: linalg.Vector{1.5}}
	vars := append([]*autofunc.Variable{inVar}, field.Parameters()...)
	test := functest.FuncChecker{
		F:     field.Net,
		Vars:  vars,
		Input: inVar,
	}
	test.FullCheck(t)
}
