package eskf

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloRuns stores the Monte Carlo runs of a dive.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// MonteCarloRun stores the estimates of one run and their error with respect to its truth.
type MonteCarloRun struct {
	Estimates []Estimate
	Errors    []*mat.VecDense
}

// NewMonteCarloRuns simulates the dive the requested number of times and
// filters each one from the estimate x0, P0. The true initial state of every
// run is x0 with an error drawn from P0, which must be positive semi-definite.
func NewMonteCarloRuns(samples int, d Dive, e *Estimator, x0 mat.Vector, P0 mat.Symmetric) (MonteCarloRuns, error) {
	if samples < 1 {
		return MonteCarloRuns{}, fmt.Errorf("eskf: at least one Monte Carlo run is required, got %d", samples)
	}
	initErr, err := NewAWGN(P0)
	if err != nil {
		return MonteCarloRuns{}, fmt.Errorf("eskf: initial covariance: %w", err)
	}
	runs := make([]MonteCarloRun, samples)
	for r := range runs {
		xTrue0, _, err := Inject(x0, initErr.Sample(), P0)
		if err != nil {
			return MonteCarloRuns{}, err
		}
		truth, meas, err := d.Simulate(e, xTrue0)
		if err != nil {
			return MonteCarloRuns{}, fmt.Errorf("run %d: %w", r, err)
		}
		ests, err := d.Filter(e, x0, P0, meas)
		if err != nil {
			return MonteCarloRuns{}, fmt.Errorf("run %d: %w", r, err)
		}
		run := MonteCarloRun{Estimates: ests, Errors: make([]*mat.VecDense, len(ests))}
		for k, est := range ests {
			if run.Errors[k], err = truth.Error(k+1, est); err != nil {
				return MonteCarloRuns{}, err
			}
		}
		runs[r] = run
	}
	return MonteCarloRuns{samples, d.Steps, runs}, nil
}

// errorSamples gathers the i-th error state component of every run at the given step.
func (mc MonteCarloRuns) errorSamples(step int) [][]float64 {
	samples := make([][]float64, ErrorSize)
	for i := range samples {
		samples[i] = make([]float64, len(mc.Runs))
	}
	for r, run := range mc.Runs {
		for i := 0; i < ErrorSize; i++ {
			samples[i][r] = run.Errors[step].AtVec(i)
		}
	}
	return samples
}

// Mean returns the mean error state of all the runs for the given time step.
func (mc MonteCarloRuns) Mean(step int) []float64 {
	means := make([]float64, ErrorSize)
	for i, s := range mc.errorSamples(step) {
		means[i] = stat.Mean(s, nil)
	}
	return means
}

// StdDev returns the standard deviation of the error state of all the runs for the given time step.
func (mc MonteCarloRuns) StdDev(step int) []float64 {
	devs := make([]float64, ErrorSize)
	for i, s := range mc.errorSamples(step) {
		devs[i] = stat.StdDev(s, nil)
	}
	return devs
}

// AsCSV is used as a CSV serializer of the error states, one file per
// component. Each line is a step with the error of every run followed by
// their mean and standard deviation.
func (mc MonteCarloRuns) AsCSV(headers []string) ([]string, error) {
	if len(headers) != ErrorSize {
		return nil, fmt.Errorf("eskf: expected %d headers, got %d", ErrorSize, len(headers))
	}
	means := make([][]float64, mc.steps)
	devs := make([][]float64, mc.steps)
	for k := 0; k < mc.steps; k++ {
		means[k], devs[k] = mc.Mean(k), mc.StdDev(k)
	}
	rtn := make([]string, ErrorSize)
	for i, header := range headers {
		lines := make([]string, mc.steps+1)
		cols := make([]string, 0, mc.runs+2)
		for rNo := 0; rNo < mc.runs; rNo++ {
			cols = append(cols, fmt.Sprintf("%s-%d", header, rNo))
		}
		lines[0] = strings.Join(append(cols, header+"-mean", header+"-stddev"), ",")
		for k := 0; k < mc.steps; k++ {
			cols = cols[:0]
			for _, run := range mc.Runs {
				cols = append(cols, fmt.Sprintf("%f", run.Errors[k].AtVec(i)))
			}
			cols = append(cols, fmt.Sprintf("%f", means[k][i]), fmt.Sprintf("%f", devs[k][i]))
			lines[k+1] = strings.Join(cols, ",")
		}
		rtn[i] = strings.Join(lines, "\n")
	}
	return rtn, nil
}
