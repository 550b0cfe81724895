package eskf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GroundTruth computes the error of estimates from a known sequence of true nominal states.
type GroundTruth struct {
	states []*mat.VecDense
}

// NewGroundTruth initializes a new ground truth from the true nominal states, one per step.
func NewGroundTruth(states []*mat.VecDense) *GroundTruth {
	return &GroundTruth{states}
}

// Len returns the number of true states.
func (t *GroundTruth) Len() int {
	return len(t.states)
}

// State returns the true nominal state at step k.
func (t *GroundTruth) State(k int) *mat.VecDense {
	return t.states[k]
}

// Error returns the error state δx such that injecting it into the
// estimated state of step k yields the true state.
func (t *GroundTruth) Error(k int, est Estimate) (*mat.VecDense, error) {
	if k < 0 || k >= len(t.states) {
		return nil, fmt.Errorf("eskf: no ground truth for step %d (have %d)", k, len(t.states))
	}
	return StateError(est.State(), t.states[k])
}

// StateError returns the error state between an estimated and a true nominal
// state. Position, velocity and biases are differences, the attitude error is
// the rotation vector of q_est* ⊗ q_true taken the short way around.
func StateError(xEst, xTrue mat.Vector) (*mat.VecDense, error) {
	if xEst.Len() != NominalSize || xTrue.Len() != NominalSize {
		return nil, fmt.Errorf("%sestimate(%d) truth(%d) expected (%d)", dimErrMsg, xEst.Len(), xTrue.Len(), NominalSize)
	}
	δx := mat.NewVecDense(ErrorSize, nil)
	for _, idx := range [][2]int{{PosIdx, ErrPosIdx}, {VelIdx, ErrVelIdx}, {AccBiasIdx, ErrAccBias}, {GyroBiasIdx, ErrGyroBias}} {
		var diff mat.VecDense
		diff.SubVec(vec3(xTrue, idx[0]), vec3(xEst, idx[0]))
		setVec(δx, idx[1], &diff)
	}
	δq := HamiltonProduct(QuaternionAt(xEst, QuatIdx).Conj(), QuaternionAt(xTrue, QuatIdx))
	setVec(δx, ErrAttIdx, δq.RotationVector())
	return δx, nil
}
