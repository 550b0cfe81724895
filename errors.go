package eskf

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidNoise is returned when a noise covariance is not symmetric positive semi-definite.
	ErrInvalidNoise = errors.New("eskf: noise covariance must be symmetric positive semi-definite")
	// ErrInvalidDecay is returned when a bias inverse time constant is negative or not finite.
	ErrInvalidDecay = errors.New("eskf: bias inverse time constant must be finite and non-negative")
	// ErrInvalidCorrection is returned when a sensor correction matrix is not a finite 3x3 matrix.
	ErrInvalidCorrection = errors.New("eskf: sensor correction must be a finite 3x3 matrix")
	// ErrNonPositiveStep is returned when the time step is not strictly positive.
	ErrNonPositiveStep = errors.New("eskf: time step must be positive")
	// ErrSingularInnovation is returned when the innovation covariance cannot be inverted.
	ErrSingularInnovation = errors.New("eskf: innovation covariance is not positive definite")
	// ErrAliasing is returned when the time step violates the Nyquist criterion of the error dynamics.
	ErrAliasing = errors.New("eskf: Nyquist sampling criterion not fulfilled")
	// ErrIllConditioned is returned when the Van Loan matrix is too large to exponentiate accurately.
	ErrIllConditioned = errors.New("eskf: Van Loan matrix is ill-conditioned")
	// ErrNumerical is returned when a computation produced NaN or Inf.
	ErrNumerical = errors.New("eskf: non-finite value")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "eskf: dimensions must agree: "
	rows2cols DimensionAgreement = iota + 1
	cols2rows
	cols2cols
	rows2rows
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement. Returns an error if not.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case rows2cols:
		if r1 != c2 {
			return fmt.Errorf("%s%s(%dx...) %s(...x%d)", dimErrMsg, name1, r1, name2, c2)
		}
	case cols2rows:
		if c1 != r2 {
			return fmt.Errorf("%s%s(...x%d) %s(%dx...)", dimErrMsg, name1, c1, name2, r2)
		}
	case cols2cols:
		if c1 != c2 {
			return fmt.Errorf("%s%s(...x%d) %s(...x%d)", dimErrMsg, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return fmt.Errorf("%s%s(%dx...) %s(%dx...)", dimErrMsg, name1, r1, name2, r2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return fmt.Errorf("%s%s(%dx%d) %s(%dx%d)", dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}

// checkShape returns an error if m is not r×c.
func checkShape(m mat.Matrix, name string, r, c int) error {
	return checkMatDims(m, mat.NewDense(r, c, nil), name, fmt.Sprintf("(%dx%d)", r, c), rowsAndcols)
}

// checkState validates the nominal state and covariance shapes shared by every operation.
func checkState(x mat.Vector, P mat.Symmetric) error {
	if x.Len() != NominalSize {
		return fmt.Errorf("%sx(%d) expected (%d)", dimErrMsg, x.Len(), NominalSize)
	}
	return checkShape(P, "P", ErrorSize, ErrorSize)
}
