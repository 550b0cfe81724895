package eskf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NEES returns the normalized estimation error squared δx'P⁻¹δx.
func NEES(δx mat.Vector, P mat.Symmetric) (float64, error) {
	if δx.Len() != P.SymmetricDim() {
		return 0, fmt.Errorf("%sδx(%d) P(%d)", dimErrMsg, δx.Len(), P.SymmetricDim())
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(P); !ok {
		return 0, errors.New("eskf: covariance is not positive definite")
	}
	var PInvδx mat.VecDense
	if err := chol.SolveVecTo(&PInvδx, δx); err != nil {
		return 0, err
	}
	return mat.Dot(δx, &PInvδx), nil
}

// NewChiSquare computes the per step means of the NEES and of the NIS over
// the Monte Carlo runs. The NIS is that of the last update of the step, and
// its mean is NaN at the steps without any update.
// Returns NEESmeans, NISmeans and an error if applicable.
func NewChiSquare(runs MonteCarloRuns, withNEES, withNIS bool) ([]float64, []float64, error) {
	if !withNEES && !withNIS {
		return nil, nil, errors.New("eskf: chi square requires either NEES or NIS or both")
	}
	var NEESmeans, NISmeans []float64
	if withNEES {
		NEESmeans = make([]float64, runs.steps)
	}
	if withNIS {
		NISmeans = make([]float64, runs.steps)
	}
	for k := 0; k < runs.steps; k++ {
		var NEESsamples, NISsamples []float64
		for rNo, run := range runs.Runs {
			est := run.Estimates[k]
			if withNEES {
				nees, err := NEES(run.Errors[k], est.Covariance())
				if err != nil {
					return nil, nil, fmt.Errorf("run %d step %d: %w", rNo, k, err)
				}
				NEESsamples = append(NEESsamples, nees)
			}
			if withNIS && est.Innovation() != nil {
				NISsamples = append(NISsamples, est.NIS())
			}
		}
		if withNEES {
			NEESmeans[k] = stat.Mean(NEESsamples, nil)
		}
		if withNIS {
			NISmeans[k] = math.NaN()
			if len(NISsamples) > 0 {
				NISmeans[k] = stat.Mean(NISsamples, nil)
			}
		}
	}
	return NEESmeans, NISmeans, nil
}

// ChiSquareBounds returns the two sided acceptance interval, at the given
// confidence, of the mean over runs of a chi square statistic with dof
// degrees of freedom: the sum over the runs has runs*dof degrees of freedom.
func ChiSquareBounds(dof, runs int, confidence float64) (lo, hi float64, err error) {
	if dof < 1 || runs < 1 || !(confidence > 0 && confidence < 1) {
		return 0, 0, fmt.Errorf("eskf: invalid chi square parameters dof=%d runs=%d confidence=%g", dof, runs, confidence)
	}
	χ2 := distuv.ChiSquared{K: float64(dof * runs)}
	α := (1 - confidence) / 2
	n := float64(runs)
	return χ2.Quantile(α) / n, χ2.Quantile(1-α) / n, nil
}
