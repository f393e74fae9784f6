package ensemble

import (
	"math"
	"time"

	"github.com/YuminosukeSato/gridcv/pkg/log"
)

// CallbackEnv is the state handed to training callbacks after every
// boosting round.
type CallbackEnv struct {
	Iteration    int
	Elapsed      time.Duration
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback is invoked after every boosting round. Returning an error aborts
// training; setting env.StopTraining ends it early without error.
type Callback func(env *CallbackEnv) error

// Evaluation result keys.
const (
	EvalTrainRMSE = "train_rmse"
	EvalValidRMSE = "valid_rmse"
)

// RecordEvaluation appends every evaluation result to history.
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// LogEvaluation logs the evaluation results every period rounds.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period != 0 {
			return nil
		}
		fields := []any{log.IterationKey, env.Iteration}
		for _, name := range []string{EvalTrainRMSE, EvalValidRMSE} {
			if v, ok := env.EvalResults[name]; ok {
				fields = append(fields, "metrics."+name, v)
			}
		}
		logger.Debug("Boosting round finished", fields...)
		return nil
	}
}

// EarlyStoppingCallback stops training when metric has not decreased for
// rounds consecutive rounds. The best iteration is written to *best.
func EarlyStoppingCallback(rounds int, metric string, best *int) Callback {
	bestScore := math.Inf(1)
	noImprove := 0
	return func(env *CallbackEnv) error {
		value, ok := env.EvalResults[metric]
		if !ok {
			return nil
		}
		if value < bestScore {
			bestScore = value
			if best != nil {
				*best = env.Iteration
			}
			noImprove = 0
			return nil
		}
		noImprove++
		if noImprove >= rounds {
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList runs callbacks in order against a shared environment.
type CallbackList struct {
	callbacks []Callback
	env       *CallbackEnv
	start     time.Time
}

// NewCallbackList creates a callback list.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{
		callbacks: callbacks,
		env:       &CallbackEnv{EvalResults: map[string]float64{}},
		start:     time.Now(),
	}
}

// AfterIteration runs every callback for the finished round.
func (cl *CallbackList) AfterIteration(iteration int, evalResults map[string]float64) error {
	cl.env.Iteration = iteration
	cl.env.Elapsed = time.Since(cl.start)
	cl.env.EvalResults = evalResults
	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
	}
	return nil
}

// ShouldStop reports whether a callback requested early termination.
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}
