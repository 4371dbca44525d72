package flows

import (
	"math"
	"math/rand"

	"github.com/unixpickle/num-analysis/linalg"
)

// A Motion is a rigid motion of R^d: a proper rotation
// followed by a translation.
type Motion struct {
	Rotation    *linalg.Matrix
	Translation linalg.Vector
}

// IdentityMotion returns the neutral rigid motion in the
// given number of dimensions.
func IdentityMotion(dims int) *Motion {
	rot := &linalg.Matrix{Rows: dims, Cols: dims, Data: make([]float64, dims*dims)}
	for i := 0; i < dims; i++ {
		rot.Data[i*dims+i] = 1
	}
	return &Motion{Rotation: rot, Translation: make(linalg.Vector, dims)}
}

// RandomMotion draws a random rigid motion for property
// testing: a uniform proper rotation (determinant +1) and
// a Gaussian translation.
//
// In two dimensions the rotation is a uniform angle; in
// higher dimensions a Gaussian matrix is orthonormalized
// and sign-fixed.
func RandomMotion(r *rand.Rand, dims int) *Motion {
	trans := make(linalg.Vector, dims)
	for i := range trans {
		trans[i] = r.NormFloat64()
	}
	if dims == 2 {
		theta := r.Float64() * 2 * math.Pi
		rot := &linalg.Matrix{
			Rows: 2,
			Cols: 2,
			Data: []float64{
				math.Cos(theta), -math.Sin(theta),
				math.Sin(theta), math.Cos(theta),
			},
		}
		return &Motion{Rotation: rot, Translation: trans}
	}
	return &Motion{Rotation: randomRotation(r, dims), Translation: trans}
}

// Apply applies the motion to every coordinate of a
// configuration, position and augmented channels alike.
func (m *Motion) Apply(c *Config) *Config {
	if m.Rotation.Rows != c.Dims {
		panic("motion dimensionality mismatch")
	}
	res := &Config{Dims: c.Dims, Channels: make([][]linalg.Vector, len(c.Channels))}
	for ch, vecs := range c.Channels {
		res.Channels[ch] = make([]linalg.Vector, len(vecs))
		for i, v := range vecs {
			res.Channels[ch][i] = matVec(m.Rotation, v).Add(m.Translation)
		}
	}
	return res
}

// Compose returns the motion equivalent to applying m1
// first and then m.
func (m *Motion) Compose(m1 *Motion) *Motion {
	return &Motion{
		Rotation:    matMul(m.Rotation, m1.Rotation),
		Translation: matVec(m.Rotation, m1.Translation).Add(m.Translation.Copy()),
	}
}

// Inverse returns the inverse rigid motion.
func (m *Motion) Inverse() *Motion {
	rotT := matTranspose(m.Rotation)
	return &Motion{
		Rotation:    rotT,
		Translation: matVec(rotT, m.Translation).Scale(-1),
	}
}

// randomRotation orthonormalizes a Gaussian matrix with
// Gram-Schmidt and flips one axis if needed so that the
// determinant is +1.
func randomRotation(r *rand.Rand, dims int) *linalg.Matrix {
	cols := make([]linalg.Vector, dims)
	for {
		for i := range cols {
			cols[i] = make(linalg.Vector, dims)
			for j := range cols[i] {
				cols[i][j] = r.NormFloat64()
			}
		}
		if orthonormalize(cols) {
			break
		}
	}
	rot := &linalg.Matrix{Rows: dims, Cols: dims, Data: make([]float64, dims*dims)}
	for j, col := range cols {
		for i, x := range col {
			rot.Data[i*dims+j] = x
		}
	}
	if matDeterminantSign(rot) < 0 {
		for i := 0; i < dims; i++ {
			rot.Data[i*dims] *= -1
		}
	}
	return rot
}

// orthonormalize runs Gram-Schmidt in place, failing if
// the vectors are close to linearly dependent.
func orthonormalize(cols []linalg.Vector) bool {
	for i, col := range cols {
		for _, prev := range cols[:i] {
			col.Add(prev.Copy().Scale(-col.Dot(prev)))
		}
		norm := math.Sqrt(col.Dot(col))
		if norm < 1e-8 {
			return false
		}
		col.Scale(1 / norm)
	}
	return true
}

func matVec(m *linalg.Matrix, v linalg.Vector) linalg.Vector {
	res := make(linalg.Vector, m.Rows)
	for i := 0; i < m.Rows; i++ {
		var sum float64
		for j := 0; j < m.Cols; j++ {
			sum += m.Data[i*m.Cols+j] * v[j]
		}
		res[i] = sum
	}
	return res
}

func matMul(m1, m2 *linalg.Matrix) *linalg.Matrix {
	res := &linalg.Matrix{Rows: m1.Rows, Cols: m2.Cols, Data: make([]float64, m1.Rows*m2.Cols)}
	for i := 0; i < m1.Rows; i++ {
		for k := 0; k < m1.Cols; k++ {
			x := m1.Data[i*m1.Cols+k]
			for j := 0; j < m2.Cols; j++ {
				res.Data[i*res.Cols+j] += x * m2.Data[k*m2.Cols+j]
			}
		}
	}
	return res
}

func matTranspose(m *linalg.Matrix) *linalg.Matrix {
	res := &linalg.Matrix{Rows: m.Cols, Cols: m.Rows, Data: make([]float64, len(m.Data))}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			res.Data[j*res.Cols+i] = m.Data[i*m.Cols+j]
		}
	}
	return res
}

// matDeterminantSign computes the sign of the determinant
// by Gaussian elimination with partial pivoting.
func matDeterminantSign(m *linalg.Matrix) float64 {
	n := m.Rows
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	sign := 1.0
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(data[row*n+col]) > math.Abs(data[pivot*n+col]) {
				pivot = row
			}
		}
		if data[pivot*n+col] == 0 {
			return 0
		}
		if pivot != col {
			for j := 0; j < n; j++ {
				data[pivot*n+j], data[col*n+j] = data[col*n+j], data[pivot*n+j]
			}
			sign = -sign
		}
		if data[col*n+col] < 0 {
			sign = -sign
		}
		for row := col + 1; row < n; row++ {
			factor := data[row*n+col] / data[col*n+col]
			for j := col; j < n; j++ {
				data[row*n+j] -= factor * data[col*n+j]
			}
		}
	}
	return sign
}
