package eskf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PredictNominal integrates the nominal state over Ts given the rectified
// specific force and angular rate (both in body frame).
//
//	p' = p + Ts*v + Ts²/2*(R*f + g)
//	v' = v + Ts*(R*f + g)
//	q' = q ⊗ exp(Ts*ω), normalized
//	b' = exp(-p_b*Ts)*b
//
// The input state is not modified.
func (e *Estimator) PredictNominal(x mat.Vector, acc, gyro mat.Vector, Ts float64) (*mat.VecDense, error) {
	if !(Ts > 0) {
		return nil, fmt.Errorf("%w: Ts=%g", ErrNonPositiveStep, Ts)
	}
	if x.Len() != NominalSize || acc.Len() != 3 || gyro.Len() != 3 {
		return nil, fmt.Errorf("%sx(%d) acc(%d) gyro(%d)", dimErrMsg, x.Len(), acc.Len(), gyro.Len())
	}
	q := QuaternionAt(x, QuatIdx)
	position := vec3(x, PosIdx)
	velocity := vec3(x, VelIdx)

	// World frame acceleration.
	var a mat.VecDense
	a.MulVec(RotationMatrix(q), acc)
	a.AddVec(&a, e.gravity)

	var nextPos, nextVel mat.VecDense
	nextPos.AddScaledVec(position, Ts, velocity)
	nextPos.AddScaledVec(&nextPos, 0.5*Ts*Ts, &a)
	nextVel.AddScaledVec(velocity, Ts, &a)

	var θ mat.VecDense
	θ.ScaleVec(Ts, gyro)
	nextQ := HamiltonProduct(q, FromRotationVector(&θ)).Unit()

	var accBias, gyroBias mat.VecDense
	accBias.ScaleVec(math.Exp(-e.pAccBias*Ts), vec3(x, AccBiasIdx))
	gyroBias.ScaleVec(math.Exp(-e.pGyroBias*Ts), vec3(x, GyroBiasIdx))

	next := NewNominalState(&nextPos, &nextVel, nextQ, &accBias, &gyroBias)
	if !IsFinite(next) {
		return nil, fmt.Errorf("%w: nominal prediction", ErrNumerical)
	}
	return next, nil
}
