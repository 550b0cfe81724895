package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Rectify applies the scale and misalignment corrections to the raw IMU
// samples and removes the corrected biases of the nominal state:
// Sa*acc - Sa*b_a and Sg*gyro - Sg*b_g.
func (e *Estimator) Rectify(x mat.Vector, acc, gyro mat.Vector) (accRect, gyroRect *mat.VecDense) {
	rectify := func(S mat.Matrix, meas mat.Vector, biasIdx int) *mat.VecDense {
		var corrected, bias mat.VecDense
		corrected.MulVec(S, meas)
		bias.MulVec(S, vec3(x, biasIdx))
		corrected.SubVec(&corrected, &bias)
		return &corrected
	}
	return rectify(e.sa, acc, AccBiasIdx), rectify(e.sg, gyro, GyroBiasIdx)
}

// PredictCovariance returns Ad*P*Ad' + GQGD.
func PredictCovariance(P mat.Symmetric, Ad mat.Matrix, GQGD mat.Symmetric) (*mat.SymDense, error) {
	if err := checkMatDims(Ad, P, "Ad", "P", rows2cols); err != nil {
		return nil, err
	}
	if err := checkMatDims(GQGD, P, "GQGD", "P", rowsAndcols); err != nil {
		return nil, err
	}
	var AdP, AdPAdt mat.Dense
	AdP.Mul(Ad, P)
	AdPAdt.Mul(&AdP, Ad.T())
	AdPAdt.Add(&AdPAdt, GQGD)
	if !IsFinite(&AdPAdt) {
		return nil, fmt.Errorf("%w: covariance prediction", ErrNumerical)
	}
	return AsSymDense(&AdPAdt)
}

// Predict propagates the nominal state and the error covariance over Ts
// given the raw accelerometer and gyroscope samples. Neither x nor P is
// modified: on error the caller keeps its previous state.
func (e *Estimator) Predict(x mat.Vector, P mat.Symmetric, acc, gyro mat.Vector, Ts float64) (Estimate, error) {
	if !(Ts > 0) {
		return Estimate{}, fmt.Errorf("%w: Ts=%g", ErrNonPositiveStep, Ts)
	}
	if err := checkState(x, P); err != nil {
		return Estimate{}, err
	}
	if acc.Len() != 3 || gyro.Len() != 3 {
		return Estimate{}, fmt.Errorf("%sacc(%d) gyro(%d) expected (3)", dimErrMsg, acc.Len(), gyro.Len())
	}
	accRect, gyroRect := e.Rectify(x, acc, gyro)

	xNext, err := e.PredictNominal(x, accRect, gyroRect, Ts)
	if err != nil {
		return Estimate{}, err
	}
	Ad, GQGD, err := e.DiscreteErrorMatrix(x, accRect, gyroRect, Ts)
	if err != nil {
		return Estimate{}, err
	}
	PNext, err := PredictCovariance(P, Ad, GQGD)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{state: xNext, covar: PNext}, nil
}
