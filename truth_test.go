package eskf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStateErrorInvertsInjection(t *testing.T) {
	q := Quaternion{0.9, 0.1, -0.3, 0.2}.Unit()
	x := NewNominalState(
		mat.NewVecDense(3, []float64{1, 2, 3}),
		mat.NewVecDense(3, []float64{0.5, -0.5, 0.1}),
		q,
		mat.NewVecDense(3, []float64{0.01, 0.02, 0.03}),
		mat.NewVecDense(3, []float64{-1e-3, 2e-3, 0}))
	δx := mat.NewVecDense(ErrorSize, []float64{
		0.1, -0.2, 0.3,
		0.01, 0.02, -0.03,
		1e-3, -2e-3, 5e-4,
		1e-4, 0, -1e-4,
		1e-5, 1e-5, -1e-5,
	})
	xTrue, _, err := Inject(x, δx, Identity(ErrorSize))
	require.NoError(t, err)
	got, err := StateError(x, xTrue)
	require.NoError(t, err)
	// The injection uses the first order quaternion, hence the residual.
	if !mat.EqualApprox(got, δx, 1e-8) {
		t.Fatalf("StateError=%v\nexpected %v", mat.Formatted(got.T()), mat.Formatted(δx.T()))
	}
}

func TestStateErrorSign(t *testing.T) {
	q := Quaternion{0.6, 0.0, 0.8, 0.0}
	x := NewNominalState(nil, nil, q, nil, nil)
	// -q is the same rotation.
	xNeg := NewNominalState(nil, nil, Quaternion{-q.W, -q.X, -q.Y, -q.Z}, nil, nil)
	δx, err := StateError(x, xNeg)
	require.NoError(t, err)
	assert.True(t, IsNil(δx), "%v", mat.Formatted(δx.T()))
}

func TestGroundTruthError(t *testing.T) {
	truth := NewGroundTruth([]*mat.VecDense{
		NewNominalState(mat.NewVecDense(3, []float64{1, 1, 1}), nil, IdentityQuaternion, nil, nil),
		NewNominalState(mat.NewVecDense(3, []float64{2, 2, 2}), nil, IdentityQuaternion, nil, nil),
	})
	assert.Equal(t, 2, truth.Len())
	est := Estimate{state: NewNominalState(mat.NewVecDense(3, []float64{1, 1, 1}), nil, IdentityQuaternion, nil, nil), covar: Identity(ErrorSize)}
	for k, exp := range []float64{0, 1} {
		δx, err := truth.Error(k, est)
		require.NoError(t, err)
		assert.Equal(t, []float64{exp, exp, exp}, vec3(δx, ErrPosIdx).RawVector().Data, "k=%d", k)
		assert.True(t, IsNil(block(δx, ErrVelIdx, 0, ErrorSize-ErrVelIdx, 1)))
	}
	_, err := truth.Error(2, est)
	assert.Error(t, err)
	_, err = StateError(mat.NewVecDense(3, nil), truth.State(0))
	assert.Error(t, err)
}
