package eskf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestIdentity(t *testing.T) {
	n := 3
	i33 := Identity(n)
	if r, c := i33.Dims(); r != n || r != c {
		t.Fatalf("i33 has dimensions (%dx%d)", r, c)
	}
	for i := 0; i < n; i++ {
		if i33.At(i, i) != 1 {
			t.Fatalf("i33(%d,%d) != 1", i, i)
		}
		for j := 0; j < n; j++ {
			if i != j && i33.At(i, j) != 0 {
				t.Fatalf("i33(%d,%d) != 0", i, j)
			}
		}
	}
	if ScaledIdentity(2, 3).At(1, 1) != 3 {
		t.Fatal("ScaledIdentity is not scaled")
	}
}

func TestIsNilIsFinite(t *testing.T) {
	assert.True(t, IsNil(mat.NewDense(2, 3, nil)))
	assert.False(t, IsNil(Identity(2)))
	assert.True(t, IsFinite(Identity(2)))
	assert.False(t, IsFinite(mat.NewVecDense(2, []float64{0, math.NaN()})))
	assert.False(t, IsFinite(mat.NewVecDense(2, []float64{math.Inf(-1), 0})))
}

func TestAsSymDense(t *testing.T) {
	sym, err := AsSymDense(mat.NewDense(2, 2, []float64{1, 2, 2 + 1e-12, 3}))
	require.NoError(t, err)
	assert.InDelta(t, 2+0.5e-12, sym.At(1, 0), 1e-15)
	assert.Equal(t, sym.At(0, 1), sym.At(1, 0))

	_, err = AsSymDense(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	assert.Error(t, err)
	_, err = AsSymDense(mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestIsPSD(t *testing.T) {
	assert.True(t, IsPSD(Identity(3), 0))
	assert.True(t, IsPSD(mat.NewSymDense(2, nil), 0))
	assert.True(t, IsPSD(mat.NewSymDense(2, []float64{1, 1, 1, 1}), 1e-12))
	assert.False(t, IsPSD(mat.NewSymDense(2, []float64{1, 2, 2, 1}), 1e-12))
	assert.False(t, IsPSD(mat.NewSymDense(1, []float64{math.NaN()}), 1e-12))
}

func TestBlockDiag(t *testing.T) {
	M := BlockDiag(Identity(2), mat.NewDense(1, 1, []float64{5}), ScaledIdentity(2, 3))
	exp := mat.NewDense(5, 5, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 5, 0, 0,
		0, 0, 0, 3, 0,
		0, 0, 0, 0, 3,
	})
	if !mat.Equal(M, exp) {
		t.Fatalf("BlockDiag=%v", mat.Formatted(M))
	}
	if !mat.Equal(block(M, 3, 3, 2, 2), ScaledIdentity(2, 3)) {
		t.Fatal("block did not extract the last block")
	}
}
