package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Innovation is the prediction of a measurement against the nominal state.
type Innovation struct {
	H          *mat.Dense    // measurement Jacobian with respect to the error state (m×15)
	Residual   *mat.VecDense // z - h(x)
	Covariance *mat.SymDense // H*P*H' + R
}

// innovationCovariance returns H*P*H' + R.
func innovationCovariance(P mat.Symmetric, H mat.Matrix, R mat.Symmetric) (*mat.SymDense, error) {
	if err := checkMatDims(H, P, "H", "P", cols2rows); err != nil {
		return nil, err
	}
	if err := checkMatDims(H, R, "H", "R", rows2rows); err != nil {
		return nil, err
	}
	if !IsFinite(R) {
		return nil, fmt.Errorf("%w: measurement noise", ErrNumerical)
	}
	var PHt, S mat.Dense
	PHt.Mul(P, H.T())
	S.Mul(H, &PHt)
	S.Add(&S, R)
	return AsSymDense(&S)
}

// correct computes the Kalman gain K = P*H'*S⁻¹ of the innovation, the error
// state δx = K*ν and the covariance (I - K*H)*P, and injects them.
func correct(x mat.Vector, P mat.Symmetric, innov Innovation) (Estimate, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(innov.Covariance); !ok {
		return Estimate{}, fmt.Errorf("%w:\n%v", ErrSingularInnovation, mat.Formatted(innov.Covariance, mat.Prefix(" ")))
	}
	// S*K' = H*P since both P and S are symmetric.
	var HP, Kt mat.Dense
	HP.Mul(innov.H, P)
	if err := chol.SolveTo(&Kt, &HP); err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}
	K := mat.DenseCopyOf(Kt.T())

	var δx mat.VecDense
	δx.MulVec(K, innov.Residual)

	var KH, IKH, PUpd mat.Dense
	KH.Mul(K, innov.H)
	IKH.Sub(Identity(ErrorSize), &KH)
	PUpd.Mul(&IKH, P)
	PUpdSym, err := AsSymDense(&PUpd)
	if err != nil {
		return Estimate{}, err
	}

	var SInvν mat.VecDense
	if err := chol.SolveVecTo(&SInvν, innov.Residual); err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}
	nis := mat.Dot(innov.Residual, &SInvν)

	xInj, PInj, err := Inject(x, &δx, PUpdSym)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		state:      xInj,
		covar:      PInj,
		innovation: innov.Residual,
		innovCovar: innov.Covariance,
		gain:       K,
		nis:        nis,
	}, nil
}
