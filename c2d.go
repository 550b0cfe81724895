package eskf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxVanLoanNorm is the largest 1-norm of the scaled Van Loan matrix that is
// exponentiated. Beyond it the -A*Δt block grows like exp(‖A‖Δt) and the
// discrete process noise loses its significant digits; reduce Δt instead.
const MaxVanLoanNorm = 100

// VanLoan computes the discrete transition matrix F and process noise Q of the
// continuous time system ẋ = A*x + Γ*w, E[ww'] = W, sampled at Δt, from
// the exponential of the block matrix [[-A, ΓWΓ'],[0, A']]*Δt.
// It returns ErrAliasing when Δt violates the Nyquist criterion of A.
func VanLoan(A, Γ, W mat.Matrix, Δt float64) (*mat.Dense, *mat.SymDense, error) {
	return vanLoan(A, Γ, W, Δt, true)
}

func vanLoan(A, Γ, W mat.Matrix, Δt float64, checkAliasing bool) (*mat.Dense, *mat.SymDense, error) {
	if !(Δt > 0) {
		return nil, nil, fmt.Errorf("%w: Δt=%g", ErrNonPositiveStep, Δt)
	}
	if err := checkMatDims(A, A, "A", "A", rows2cols); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(A, Γ, "A", "Γ", rows2rows); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(Γ, W, "Γ", "W", cols2rows); err != nil {
		return nil, nil, err
	}

	if checkAliasing {
		var λ mat.Eigen
		if ok := λ.Factorize(A, mat.EigenNone); !ok {
			return nil, nil, fmt.Errorf("%w: eigen decomposition of A failed", ErrNumerical)
		}
		λmaxImag := 0.0
		for _, λ := range λ.Values(nil) {
			λmaxImag = math.Max(λmaxImag, math.Abs(imag(λ)))
		}
		if 2*λmaxImag*Δt >= math.Pi {
			return nil, nil, fmt.Errorf("%w with Δt=%f (|Im λ|max=%f)", ErrAliasing, Δt, λmaxImag)
		}
	}

	// Compute F and Q.
	var ΓW, ΓWΓ, Ap mat.Dense
	ΓW.Mul(Γ, W)
	ΓWΓ.Mul(&ΓW, Γ.T())
	ΓWΓ.Scale(Δt, &ΓWΓ)
	Ap.Scale(Δt, A)
	n, _ := A.Dims()
	M := mat.NewDense(2*n, 2*n, nil)

	// Populate M
	var negAp mat.Dense
	negAp.Scale(-1, &Ap)
	setBlock(M, 0, 0, &negAp)
	setBlock(M, 0, n, &ΓWΓ)
	setBlock(M, n, n, Ap.T())
	if norm := mat.Norm(M, 1); norm > MaxVanLoanNorm || math.IsNaN(norm) {
		return nil, nil, fmt.Errorf("%w: ‖M‖₁=%g", ErrIllConditioned, norm)
	}

	// Compute exponential
	var expM mat.Dense
	expM.Exp(M)
	if !IsFinite(&expM) {
		return nil, nil, fmt.Errorf("%w: Van Loan exponential", ErrNumerical)
	}

	// Extract F transpose (and F^-1*Q) knowing it has the same size as A.
	F := mat.DenseCopyOf(block(&expM, n, n, n, n).T())
	F1Q := block(&expM, 0, n, n, n)
	var Q mat.Dense
	Q.Mul(F, F1Q)
	QSym, err := AsSymDense(&Q)
	if err != nil {
		return nil, nil, fmt.Errorf("eskf: discrete process noise: %w", err)
	}
	return F, QSym, nil
}

// DiscreteErrorMatrix returns the discrete error state transition Ad and
// process noise covariance GQGD over Ts, linearized about the nominal state
// and the rectified measurements. The rates are held constant over Ts, where
// the exponential is exact however far the vehicle turns, so no aliasing check
// is made; only the conditioning of the Van Loan matrix is.
func (e *Estimator) DiscreteErrorMatrix(x mat.Vector, acc, gyro mat.Vector, Ts float64) (*mat.Dense, *mat.SymDense, error) {
	A := e.ErrorDynamics(x, acc, gyro)
	G := NoiseInput(x)
	return vanLoan(A, G, e.d, Ts, false)
}
