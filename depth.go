package eskf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DepthInnovation predicts a pressure derived depth measurement z, i.e. the
// world frame down position, with noise variance R (1x1).
func DepthInnovation(x mat.Vector, P mat.Symmetric, z float64, R mat.Symmetric) (Innovation, error) {
	if err := checkState(x, P); err != nil {
		return Innovation{}, err
	}
	if err := checkShape(R, "R", 1, 1); err != nil {
		return Innovation{}, err
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return Innovation{}, fmt.Errorf("%w: depth measurement %g", ErrNumerical, z)
	}
	Hx := mat.NewDense(1, NominalSize, nil)
	Hx.Set(0, DepthIdx, 1)
	var H mat.Dense
	H.Mul(Hx, ErrorStateJacobian(QuaternionAt(x, QuatIdx)))

	S, err := innovationCovariance(P, &H, R)
	if err != nil {
		return Innovation{}, err
	}
	return Innovation{
		H:          &H,
		Residual:   mat.NewVecDense(1, []float64{z - x.AtVec(DepthIdx)}),
		Covariance: S,
	}, nil
}

// UpdateDepth corrects the nominal state and covariance with a depth
// measurement z of noise variance R (1x1). The returned estimate holds the
// injected state and covariance; x and P are left untouched.
func (e *Estimator) UpdateDepth(x mat.Vector, P mat.Symmetric, z float64, R mat.Symmetric) (Estimate, error) {
	innov, err := DepthInnovation(x, P, z, R)
	if err != nil {
		return Estimate{}, err
	}
	return correct(x, P, innov)
}
