package eskf

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// DVLJacobianStep is the step of the central differences in DVLQuaternionJacobian.
const DVLJacobianStep = 1e-9

// DVLQuaternionJacobian returns the 3x4 derivative of the body frame velocity
// R(q)'*v with respect to the components of q.
//
// The derivative of R(c)*v is estimated by central differences at the world
// to body quaternion c = q*, and its vector columns change sign because
// ∂c/∂q = diag(1, -1, -1, -1). Differentiating R(q)*v at q instead yields
// the same matrix without that sign change, which is not the Jacobian of
// R(q)'*v.
func DVLQuaternionJacobian(q Quaternion, v mat.Vector) *mat.Dense {
	Hq := mat.NewDense(3, 4, nil)
	rotate := func(y, c []float64) {
		var r mat.VecDense
		r.MulVec(RotationMatrix(Quaternion{c[0], c[1], c[2], c[3]}), v)
		for i := range y {
			y[i] = r.AtVec(i)
		}
	}
	fd.Jacobian(Hq, rotate, q.Conj().Slice(), &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    DVLJacobianStep,
	})
	for i := 0; i < 3; i++ {
		for j := 1; j < 4; j++ {
			Hq.Set(i, j, -Hq.At(i, j))
		}
	}
	return Hq
}

// DVLInnovation predicts a body frame velocity measurement z (3) with noise
// covariance R (3x3) from the world frame velocity and attitude of x.
func DVLInnovation(x mat.Vector, P mat.Symmetric, z mat.Vector, R mat.Symmetric) (Innovation, error) {
	if err := checkState(x, P); err != nil {
		return Innovation{}, err
	}
	if err := checkShape(z, "z", 3, 1); err != nil {
		return Innovation{}, err
	}
	if err := checkShape(R, "R", 3, 3); err != nil {
		return Innovation{}, err
	}
	q := QuaternionAt(x, QuatIdx)
	velocity := vec3(x, VelIdx)
	worldToBody := RotationMatrix(q).T()

	Hx := mat.NewDense(3, NominalSize, nil)
	setBlock(Hx, 0, VelIdx, worldToBody)
	setBlock(Hx, 0, QuatIdx, DVLQuaternionJacobian(q, velocity))
	var H mat.Dense
	H.Mul(Hx, ErrorStateJacobian(q))

	var ν mat.VecDense
	ν.MulVec(worldToBody, velocity)
	ν.SubVec(z, &ν)
	if !IsFinite(&ν) {
		return Innovation{}, ErrNumerical
	}

	S, err := innovationCovariance(P, &H, R)
	if err != nil {
		return Innovation{}, err
	}
	return Innovation{H: &H, Residual: &ν, Covariance: S}, nil
}

// UpdateDVL corrects the nominal state and covariance with a DVL body frame
// velocity z (3) of noise covariance R (3x3). The returned estimate holds the
// injected state and covariance; x and P are left untouched.
func (e *Estimator) UpdateDVL(x mat.Vector, P mat.Symmetric, z mat.Vector, R mat.Symmetric) (Estimate, error) {
	innov, err := DVLInnovation(x, P, z, R)
	if err != nil {
		return Estimate{}, err
	}
	return correct(x, P, innov)
}
