package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Inject folds the error state δx (15) into the nominal state and resets the
// covariance. Position, velocity and biases are corrected additively, the
// attitude multiplicatively with q ⊗ (1, δθ/2), normalized. The covariance
// becomes G*P*G' with G the identity except for I - [δθ/2]× on the attitude block.
func Inject(x mat.Vector, δx mat.Vector, P mat.Symmetric) (*mat.VecDense, *mat.SymDense, error) {
	if err := checkState(x, P); err != nil {
		return nil, nil, err
	}
	if δx.Len() != ErrorSize {
		return nil, nil, fmt.Errorf("%sδx(%d) expected (%d)", dimErrMsg, δx.Len(), ErrorSize)
	}
	if !IsFinite(δx) {
		return nil, nil, fmt.Errorf("%w: error state", ErrNumerical)
	}

	additive := func(nomIdx, errIdx int) *mat.VecDense {
		var v mat.VecDense
		v.AddVec(vec3(x, nomIdx), vec3(δx, errIdx))
		return &v
	}
	δθ := vec3(δx, ErrAttIdx)
	half := Quaternion{1, δθ.AtVec(0) / 2, δθ.AtVec(1) / 2, δθ.AtVec(2) / 2}
	q := HamiltonProduct(QuaternionAt(x, QuatIdx), half).Unit()
	xInj := NewNominalState(
		additive(PosIdx, ErrPosIdx),
		additive(VelIdx, ErrVelIdx),
		q,
		additive(AccBiasIdx, ErrAccBias),
		additive(GyroBiasIdx, ErrGyroBias),
	)

	var halfθ, Gatt mat.Dense
	halfθ.Scale(0.5, Skew(δθ))
	Gatt.Sub(Identity(3), &halfθ)
	G := mat.DenseCopyOf(Identity(ErrorSize))
	setBlock(G, ErrAttIdx, ErrAttIdx, &Gatt)
	var GP, GPGt mat.Dense
	GP.Mul(G, P)
	GPGt.Mul(&GP, G.T())
	PInj, err := AsSymDense(&GPGt)
	if err != nil {
		return nil, nil, err
	}
	return xInj, PInj, nil
}
