package eskf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Layout of the nominal state x.
const (
	NominalSize = 16
	PosIdx      = 0
	VelIdx      = 3
	QuatIdx     = 6
	AccBiasIdx  = 10
	GyroBiasIdx = 13
	DepthIdx    = PosIdx + 2
	ErrorSize   = 15
	NoiseSize   = 12
	ErrPosIdx   = 0
	ErrVelIdx   = 3
	ErrAttIdx   = 6
	ErrAccBias  = 9
	ErrGyroBias = 12
)

// NewNominalState assembles a 16 element nominal state from its parts.
// Nil parts are zero, except the attitude which must always be given.
func NewNominalState(position, velocity mat.Vector, attitude Quaternion, accBias, gyroBias mat.Vector) *mat.VecDense {
	x := mat.NewVecDense(NominalSize, nil)
	parts := map[int]mat.Vector{
		PosIdx:      position,
		VelIdx:      velocity,
		QuatIdx:     mat.NewVecDense(4, attitude.Slice()),
		AccBiasIdx:  accBias,
		GyroBiasIdx: gyroBias,
	}
	for i, part := range parts {
		if part != nil {
			setVec(x, i, part)
		}
	}
	return x
}

// Estimate is returned from Predict and every Update.
// The innovation related fields are nil after a prediction.
type Estimate struct {
	state      *mat.VecDense
	covar      *mat.SymDense
	innovation *mat.VecDense
	innovCovar *mat.SymDense
	gain       *mat.Dense
	nis        float64
}

// State returns the nominal state (16).
func (e Estimate) State() *mat.VecDense {
	return e.state
}

// Covariance returns the error state covariance (15x15).
func (e Estimate) Covariance() *mat.SymDense {
	return e.covar
}

// Innovation returns z - h(x) of the update, nil after a prediction.
func (e Estimate) Innovation() *mat.VecDense {
	return e.innovation
}

// InnovationCovariance returns H*P*H' + R of the update, nil after a prediction.
func (e Estimate) InnovationCovariance() *mat.SymDense {
	return e.innovCovar
}

// Gain returns the Kalman gain of the update, nil after a prediction.
func (e Estimate) Gain() *mat.Dense {
	return e.gain
}

// NIS returns the normalized innovation squared ν'S⁻¹ν of the update.
func (e Estimate) NIS() float64 {
	return e.nis
}

// Attitude returns the attitude quaternion of the nominal state.
func (e Estimate) Attitude() Quaternion {
	return QuaternionAt(e.state, QuatIdx)
}

// IsWithinNσ returns whether the provided error state is within the N*σ bounds of the covariance.
func (e Estimate) IsWithinNσ(δx mat.Vector, N float64) bool {
	for i := 0; i < ErrorSize; i++ {
		nσ := N * math.Sqrt(e.covar.At(i, i))
		if math.Abs(δx.AtVec(i)) > nσ {
			return false
		}
	}
	return true
}

func (e Estimate) String() string {
	state := mat.Formatted(e.state.T(), mat.Prefix("  "))
	covar := mat.Formatted(e.covar, mat.Prefix("  "))
	if e.innovation == nil {
		return fmt.Sprintf("{\nx=%v\nP=%v\n}", state, covar)
	}
	innov := mat.Formatted(e.innovation.T(), mat.Prefix("  "))
	gain := mat.Formatted(e.gain, mat.Prefix("  "))
	return fmt.Sprintf("{\nx=%v\nP=%v\nK=%v\ni=%v\nnis=%f\n}", state, covar, gain, innov, e.nis)
}
