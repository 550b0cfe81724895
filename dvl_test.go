package eskf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDVLInnovationIdentityAttitude(t *testing.T) {
	v := mat.NewVecDense(3, []float64{0.7, -0.3, 0.12})
	x := NewNominalState(nil, v, IdentityQuaternion, nil, nil)
	z := mat.NewVecDense(3, []float64{0.75, -0.2, 0.1})
	innov, err := DVLInnovation(x, Identity(ErrorSize), z, ScaledIdentity(3, 0.01))
	require.NoError(t, err)
	var exp mat.VecDense
	exp.SubVec(z, v)
	if !mat.Equal(innov.Residual, &exp) {
		t.Fatalf("innovation %v != z - v", mat.Formatted(innov.Residual.T()))
	}
}

// measureDVL returns the body frame velocity of the nominal state.
func measureDVL(t *testing.T, x mat.Vector) *mat.VecDense {
	innov, err := DVLInnovation(x, Identity(ErrorSize), mat.NewVecDense(3, nil), Identity(3))
	require.NoError(t, err)
	var h mat.VecDense
	h.ScaleVec(-1, innov.Residual)
	return &h
}

func TestDVLJacobianMatchesPerturbation(t *testing.T) {
	q := Quaternion{0.8, -0.3, 0.4, 0.2}.Unit()
	x := NewNominalState(mat.NewVecDense(3, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{1.5, -0.5, 0.25}), q, nil, nil)
	innov, err := DVLInnovation(x, Identity(ErrorSize), mat.NewVecDense(3, nil), Identity(3))
	require.NoError(t, err)

	δx := mat.NewVecDense(ErrorSize, []float64{
		1e-6, -2e-6, 1e-6,
		3e-6, 1e-6, -2e-6,
		2e-6, -1e-6, 3e-6,
		1e-6, 1e-6, 1e-6,
		-1e-6, 2e-6, 1e-6,
	})
	xPert, _, err := Inject(x, δx, Identity(ErrorSize))
	require.NoError(t, err)
	var diff, Hδx mat.VecDense
	diff.SubVec(measureDVL(t, xPert), measureDVL(t, x))
	Hδx.MulVec(innov.H, δx)
	if !mat.EqualApprox(&diff, &Hδx, 1e-10) {
		t.Fatalf("h(x⊕δx)-h(x)=%v\nH*δx=%v", mat.Formatted(diff.T()), mat.Formatted(Hδx.T()))
	}
	// The DVL does not observe position nor biases.
	if !IsNil(block(innov.H, 0, ErrPosIdx, 3, 3)) || !IsNil(block(innov.H, 0, ErrAccBias, 3, 6)) {
		t.Fatalf("unexpected dependencies in H\n%v", mat.Formatted(innov.H))
	}
}

func TestDVLAttitudeJacobian(t *testing.T) {
	// Rotating by δθ in the body frame gives h = (I - [δθ]×)R'v, so the
	// attitude columns of H are [R'v]×.
	q := Quaternion{0.6, 0.5, -0.3, 0.2}.Unit()
	v := mat.NewVecDense(3, []float64{0.8, -0.4, 0.3})
	x := NewNominalState(nil, v, q, nil, nil)
	innov, err := DVLInnovation(x, Identity(ErrorSize), mat.NewVecDense(3, nil), Identity(3))
	require.NoError(t, err)
	var vb mat.VecDense
	vb.MulVec(RotationMatrix(q).T(), v)
	if got := block(innov.H, 0, ErrAttIdx, 3, 3); !mat.EqualApprox(got, Skew(&vb), 1e-6) {
		t.Fatalf("attitude columns %v\nexpected %v", mat.Formatted(got), mat.Formatted(Skew(&vb)))
	}
}

func TestDVLQuaternionJacobian(t *testing.T) {
	// About the identity, R(q)'v ≈ v - 2[ε]×v so ∂/∂ε = 2[v]× and ∂/∂η = 0.
	v := mat.NewVecDense(3, []float64{1, -2, 0.5})
	Hq := DVLQuaternionJacobian(IdentityQuaternion, v)
	var exp mat.Dense
	exp.Scale(2, Skew(v))
	assert.InDeltaSlice(t, []float64{0, 0, 0}, mat.Col(nil, 0, Hq), 1e-6)
	if !mat.EqualApprox(block(Hq, 0, 1, 3, 3), &exp, 1e-6) {
		t.Fatalf("Hq=%v", mat.Formatted(Hq))
	}
}

func TestUpdateDVL(t *testing.T) {
	e := testEstimator(t)
	x := NewNominalState(nil, nil, IdentityQuaternion, nil, nil)
	est, err := e.UpdateDVL(x, Identity(ErrorSize), mat.NewVecDense(3, []float64{1, 0, -1}), Identity(3))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0, -0.5}, vec3(est.State(), VelIdx).RawVector().Data, 1e-9)
	assert.InDelta(t, 0.5, est.Covariance().At(ErrVelIdx, ErrVelIdx), 1e-9)
	assert.InDelta(t, 1, est.Covariance().At(ErrPosIdx, ErrPosIdx), 1e-12)
	assert.InDelta(t, 1, est.Attitude().Norm(), 1e-12)
	assert.True(t, IsPSD(est.Covariance(), 1e-12))
}

func TestUpdateDVLRotated(t *testing.T) {
	e := testEstimator(t)
	q := FromRotationVector(mat.NewVecDense(3, []float64{0.1, -0.2, 1.2}))
	vTrue := mat.NewVecDense(3, []float64{1, 0.5, 0.2})
	x := NewNominalState(nil, mat.NewVecDense(3, []float64{0.5, 0, 0}), q, nil, nil)
	P0 := ScaledIdentity(ErrorSize, 1)
	for i := ErrAttIdx; i < ErrAttIdx+3; i++ {
		P0.SetSym(i, i, 1e-6)
	}
	var P mat.Symmetric = P0
	var z mat.VecDense
	z.MulVec(RotationMatrix(q).T(), vTrue)
	R := ScaledIdentity(3, 1e-4)
	for k := 0; k < 20; k++ {
		est, err := e.UpdateDVL(x, P, &z, R)
		require.NoError(t, err)
		x, P = est.State(), est.Covariance()
		require.True(t, IsPSD(P, 1e-12), "k=%d", k)
		require.InDelta(t, 1, est.Attitude().Norm(), 1e-9)
	}
	assert.InDeltaSlice(t, z.RawVector().Data, measureDVL(t, x).RawVector().Data, 1e-3)
}

func TestUpdateDVLErrors(t *testing.T) {
	e := testEstimator(t)
	x := NewNominalState(nil, nil, IdentityQuaternion, nil, nil)
	z := mat.NewVecDense(3, nil)
	_, err := e.UpdateDVL(x, mat.NewSymDense(ErrorSize, nil), z, mat.NewSymDense(3, nil))
	assert.True(t, errors.Is(err, ErrSingularInnovation), "%v", err)
	_, err = e.UpdateDVL(x, Identity(ErrorSize), mat.NewVecDense(2, nil), Identity(3))
	assert.Error(t, err)
	_, err = e.UpdateDVL(x, Identity(ErrorSize), z, Identity(1))
	assert.Error(t, err)
}
