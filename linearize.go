package eskf

import "gonum.org/v1/gonum/mat"

// ErrorDynamics returns the continuous time error state matrix A (15x15)
// linearized about the nominal state and the rectified measurements.
//
//	δṗ = δv
//	δv̇ = -R[f]×δθ - R*Sa*δb_a
//	δθ̇ = -[ω]×δθ - Sg*δb_g
//	δḃ_a = -p_a*δb_a
//	δḃ_g = -p_g*δb_g
func (e *Estimator) ErrorDynamics(x mat.Vector, acc, gyro mat.Vector) *mat.Dense {
	A := mat.NewDense(ErrorSize, ErrorSize, nil)
	R := RotationMatrix(QuaternionAt(x, QuatIdx))

	var RSf, RSa, Sg mat.Dense
	RSf.Mul(R, Skew(acc))
	RSf.Scale(-1, &RSf)
	RSa.Mul(R, e.sa)
	RSa.Scale(-1, &RSa)
	Sg.Scale(-1, e.sg)
	var Sω mat.Dense
	Sω.Scale(-1, Skew(gyro))

	setBlock(A, ErrPosIdx, ErrVelIdx, Identity(3))
	setBlock(A, ErrVelIdx, ErrAttIdx, &RSf)
	setBlock(A, ErrVelIdx, ErrAccBias, &RSa)
	setBlock(A, ErrAttIdx, ErrAttIdx, &Sω)
	setBlock(A, ErrAttIdx, ErrGyroBias, &Sg)
	setBlock(A, ErrAccBias, ErrAccBias, ScaledIdentity(3, -e.pAccBias))
	setBlock(A, ErrGyroBias, ErrGyroBias, ScaledIdentity(3, -e.pGyroBias))
	return A
}

// NoiseInput returns the matrix G (15x12) mapping the accelerometer,
// gyroscope, accelerometer bias and gyroscope bias noises into the error state.
func NoiseInput(x mat.Vector) *mat.Dense {
	G := mat.NewDense(ErrorSize, NoiseSize, nil)
	var R mat.Dense
	R.Scale(-1, RotationMatrix(QuaternionAt(x, QuatIdx)))
	setBlock(G, ErrVelIdx, 0, &R)
	setBlock(G, ErrAttIdx, 3, ScaledIdentity(3, -1))
	setBlock(G, ErrAccBias, 6, Identity(3))
	setBlock(G, ErrGyroBias, 9, Identity(3))
	return G
}
