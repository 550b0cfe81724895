package eskf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the relative asymmetry accepted by AsSymDense before it errors.
const symmetryTolerance = 1e-9

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	return ScaledIdentity(n, 1)
}

// ScaledIdentity returns an identity matrix time a scaling factor of the provided size.
func ScaledIdentity(n int, s float64) *mat.SymDense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j += n + 1 {
		vals[j] = s
	}
	return mat.NewSymDense(n, vals)
}

// IsNil returns whether the provided matrix only has zero values
func IsNil(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// IsFinite returns whether the provided matrix only has finite values.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// AsSymDense returns the symmetric part (M+M')/2 of the provided square matrix.
// Floating point drift is absorbed, but an asymmetry larger than
// symmetryTolerance relative to the largest entry is reported as an error.
func AsSymDense(m mat.Matrix) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("eskf: matrix must be square")
	}
	scale := 1.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			scale = math.Max(scale, math.Abs(m.At(i, j)))
		}
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			mij, mji := m.At(i, j), m.At(j, i)
			if math.Abs(mij-mji) > symmetryTolerance*scale {
				return nil, fmt.Errorf("eskf: matrix is not symmetric at (%d,%d): %g != %g", i, j, mij, mji)
			}
			sym.SetSym(i, j, 0.5*(mij+mji))
		}
	}
	return sym, nil
}

// IsPSD returns whether the symmetric matrix has no eigenvalue below -tol.
func IsPSD(m mat.Symmetric, tol float64) bool {
	if !IsFinite(m) {
		return false
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(m, false); !ok {
		return false
	}
	for _, λ := range eig.Values(nil) {
		if λ < -tol {
			return false
		}
	}
	return true
}

// BlockDiag assembles the provided square blocks along the diagonal of a new matrix.
func BlockDiag(blocks ...mat.Matrix) *mat.Dense {
	n := 0
	for _, b := range blocks {
		r, _ := b.Dims()
		n += r
	}
	M := mat.NewDense(n, n, nil)
	offset := 0
	for _, b := range blocks {
		r, c := b.Dims()
		setBlock(M, offset, offset, b)
		offset += max(r, c)
	}
	return M
}

// setBlock copies b into dst with its upper left corner at (i, j).
func setBlock(dst *mat.Dense, i, j int, b mat.Matrix) {
	r, c := b.Dims()
	for k := 0; k < r; k++ {
		for l := 0; l < c; l++ {
			dst.Set(i+k, j+l, b.At(k, l))
		}
	}
}

// block returns a copy of the r×c sub-matrix of m starting at (i, j).
func block(m mat.Matrix, i, j, r, c int) *mat.Dense {
	b := mat.NewDense(r, c, nil)
	for k := 0; k < r; k++ {
		for l := 0; l < c; l++ {
			b.Set(k, l, m.At(i+k, j+l))
		}
	}
	return b
}

// vec3 returns the three elements of v starting at i.
func vec3(v mat.Vector, i int) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.AtVec(i), v.AtVec(i + 1), v.AtVec(i + 2)})
}

// setVec copies src into dst starting at i.
func setVec(dst *mat.VecDense, i int, src mat.Vector) {
	for k := 0; k < src.Len(); k++ {
		dst.SetVec(i+k, src.AtVec(k))
	}
}
