package eskf

import "gonum.org/v1/gonum/mat"

// QuaternionErrorJacobian returns the 4x3 derivative of q ⊗ (1, δθ/2) with
// respect to the attitude error δθ at δθ = 0, i.e. half of
//
//	| -ε1 -ε2 -ε3 |
//	|  η  -ε3  ε2 |
//	|  ε3  η  -ε1 |
//	| -ε2  ε1  η  |
//
// Measurement Jacobians built on a Q without the ½ factor have attitude
// columns twice those obtained here.
func QuaternionErrorJacobian(q Quaternion) *mat.Dense {
	Q := mat.NewDense(4, 3, []float64{
		-q.X, -q.Y, -q.Z,
		q.W, -q.Z, q.Y,
		q.Z, q.W, -q.X,
		-q.Y, q.X, q.W,
	})
	Q.Scale(0.5, Q)
	return Q
}

// ErrorStateJacobian returns the 16x15 derivative of the nominal state with
// respect to the error state. It is the identity on position, velocity and
// biases and QuaternionErrorJacobian on the attitude. Right multiplying a
// measurement Jacobian taken with respect to the nominal state maps it
// into the error state.
func ErrorStateJacobian(q Quaternion) *mat.Dense {
	X := mat.NewDense(NominalSize, ErrorSize, nil)
	setBlock(X, PosIdx, ErrPosIdx, Identity(6))
	setBlock(X, QuatIdx, ErrAttIdx, QuaternionErrorJacobian(q))
	setBlock(X, AccBiasIdx, ErrAccBias, Identity(6))
	return X
}
