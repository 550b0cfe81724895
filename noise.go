package eskf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise generates the additive noise of a simulated sensor.
type Noise interface {
	Sample() *mat.VecDense     // Returns a noise sample
	Covariance() mat.Symmetric // Returns the noise covariance matrix
	String() string            // Stringer interface implementation
}

// Noiseless is noiseless and implements the Noise interface.
type Noiseless struct {
	R mat.Symmetric
}

// NewNoiseless creates a noiseless sensor which still reports R as its covariance.
func NewNoiseless(R mat.Symmetric) *Noiseless {
	return &Noiseless{R}
}

// Sample returns a zero vector of the correct size.
func (n Noiseless) Sample() *mat.VecDense {
	return mat.NewVecDense(n.R.SymmetricDim(), nil)
}

// Covariance implements the Noise interface.
func (n Noiseless) Covariance() mat.Symmetric {
	return n.R
}

// String implements the Stringer interface.
func (n Noiseless) String() string {
	return fmt.Sprintf("Noiseless{\nR=%v}\n", mat.Formatted(n.R, mat.Prefix("  ")))
}

// AWGN implements the Noise interface and generates an additive white Gaussian noise.
type AWGN struct {
	R    mat.Symmetric
	L    *mat.Dense // R = L*L', one column per direction of non-zero variance
	dist *distmv.Normal
}

// NewAWGN creates new zero mean AWGN of covariance R. R only needs to be
// positive semi-definite: samples have no component along its null space.
func NewAWGN(R mat.Symmetric) (*AWGN, error) {
	n := R.SymmetricDim()
	var eig mat.EigenSym
	if !IsFinite(R) || !eig.Factorize(R, true) {
		return nil, errors.New("eskf: noise covariance cannot be factorized")
	}
	λ := eig.Values(nil)
	λmax := 0.0
	for _, v := range λ {
		λmax = math.Max(λmax, v)
	}
	var kept []int
	for i, v := range λ {
		if v < -1e-9*λmax || (λmax == 0 && v < 0) {
			return nil, fmt.Errorf("eskf: noise covariance is not positive semi-definite (λ=%g)", v)
		}
		if v > 1e-12*λmax {
			kept = append(kept, i)
		}
	}
	awgn := &AWGN{R: R}
	if len(kept) == 0 {
		return awgn, nil
	}
	var V mat.Dense
	eig.VectorsTo(&V)
	awgn.L = mat.NewDense(n, len(kept), nil)
	for j, i := range kept {
		s := math.Sqrt(λ[i])
		for r := 0; r < n; r++ {
			awgn.L.Set(r, j, s*V.At(r, i))
		}
	}
	dist, ok := distmv.NewNormal(make([]float64, len(kept)), Identity(len(kept)), nil)
	if !ok {
		return nil, errors.New("eskf: unit normal distribution could not be created")
	}
	awgn.dist = dist
	return awgn, nil
}

// Covariance implements the Noise interface.
func (n AWGN) Covariance() mat.Symmetric {
	return n.R
}

// Sample implements the Noise interface.
func (n AWGN) Sample() *mat.VecDense {
	s := mat.NewVecDense(n.R.SymmetricDim(), nil)
	if n.dist == nil {
		return s
	}
	_, k := n.L.Dims()
	s.MulVec(n.L, mat.NewVecDense(k, n.dist.Rand(nil)))
	return s
}

// String implements the Stringer interface.
func (n AWGN) String() string {
	return fmt.Sprintf("AWGN{\nR=%v}\n", mat.Formatted(n.R, mat.Prefix("  ")))
}
