package model_selection

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/core/parallel"
	"github.com/YuminosukeSato/gridcv/metrics"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/pkg/log"
)

// Record is the aggregated cross-validation error of one grid point.
// TrainRMSE and ValidRMSE are means over the folds that succeeded; they are
// NaN when the point is Unavailable.
type Record struct {
	Point       model.Params
	Index       int
	TrainRMSE   float64
	ValidRMSE   float64
	FoldsOK     int
	FoldsFailed int
	Unavailable bool
}

// SearchResult holds one Record per grid point, in enumeration order, and
// every unit failure in (point, fold) order.
type SearchResult struct {
	Model      string
	ParamNames []string
	Records    []Record
	Failures   []*errors.FitFailure
}

// Available returns the records that have at least one successful fold.
func (r *SearchResult) Available() []Record {
	out := make([]Record, 0, len(r.Records))
	for _, rec := range r.Records {
		if !rec.Unavailable {
			out = append(out, rec)
		}
	}
	return out
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers bounds the number of units fitted at once. n <= 0 means
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.workers = n }
}

// WithLogger sets the evaluator's logger.
func WithLogger(l log.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithProgress registers a callback invoked after each finished unit.
// Calls are serialized.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Evaluator) { e.progress = fn }
}

// WithAbortOnFailure makes the first unit failure cancel the run and be
// returned from Evaluate instead of being recorded.
func WithAbortOnFailure(abort bool) Option {
	return func(e *Evaluator) { e.abortOnFailure = abort }
}

// Evaluator runs a grid of hyper-parameter points against a fold assignment.
type Evaluator struct {
	workers        int
	logger         log.Logger
	progress       func(done, total int)
	abortOnFailure bool
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("model_selection")
	}
	return e
}

// foldData is the materialized train/validation split of one fold.
// It is shared read-only by every unit on that fold.
type foldData struct {
	trainX *mat.Dense
	trainY *mat.VecDense
	validX *mat.Dense
	validY *mat.VecDense
}

type unitResult struct {
	trainRMSE float64
	validRMSE float64
	err       error
}

// Evaluate fits fitter once per (point, fold) unit and aggregates RMSE per
// point. Every fit starts from scratch on the fold's training split.
//
// Configuration problems (malformed grid, unknown parameter, fold assignment
// not matching the data, a fold with an empty split) are returned before any
// fitting. A cancelled ctx stops scheduling new units and the context error is
// returned once the running units have drained.
func (e *Evaluator) Evaluate(ctx context.Context, data *Dataset, folds FoldAssignment, grid *Grid, fitter model.ModelFitter) (*SearchResult, error) {
	if data.Len() == 0 {
		return nil, errors.NewModelError("Evaluate", "empty data", errors.ErrEmptyData)
	}
	if folds.Len() != data.Len() {
		return nil, errors.NewInvalidConfigurationErrorf("Evaluate", "fold assignment covers %d samples, dataset has %d", folds.Len(), data.Len())
	}
	if err := grid.ValidateFor(fitter); err != nil {
		return nil, err
	}

	k := folds.K()
	splits := make([]foldData, k)
	for f := 0; f < k; f++ {
		train, valid := folds.Split(f)
		if len(train) == 0 {
			return nil, errors.NewDegenerateFoldError(f, "training")
		}
		if len(valid) == 0 {
			return nil, errors.NewDegenerateFoldError(f, "validation")
		}
		s := &splits[f]
		s.trainX, s.trainY = data.Subset(train)
		s.validX, s.validY = data.Subset(valid)
	}

	points := grid.Points()
	total := len(points) * k
	logger := e.logger.With(log.ModelNameKey, fitter.Name(), log.OperationKey, log.OperationEvaluate)
	logger.Info("Grid evaluation started",
		log.GridPointsKey, len(points),
		log.FoldsKey, k,
		log.SamplesKey, data.Len(),
		log.FeaturesKey, data.Features(),
		log.WorkersKey, e.workers,
	)
	start := time.Now()

	// slots[p][f] is written by exactly one unit.
	slots := make([][]unitResult, len(points))
	for p := range slots {
		slots[p] = make([]unitResult, k)
	}

	var progressMu sync.Mutex
	done := 0

	pool := parallel.NewPool(ctx, e.workers)
	for p := range points {
		for f := 0; f < k; f++ {
			if pool.Context().Err() != nil {
				break
			}
			pool.Go(func(uctx context.Context) error {
				res := e.runUnit(uctx, fitter, points[p], p, f, &splits[f])
				slots[p][f] = res

				if e.progress != nil {
					progressMu.Lock()
					done++
					e.progress(done, total)
					progressMu.Unlock()
				}

				if res.err == nil {
					return nil
				}
				if uctx.Err() != nil {
					return uctx.Err()
				}
				logger.Warn("Fit failed; fold excluded from aggregate",
					log.PointKey, points[p].String(),
					log.PointIndexKey, p,
					log.FoldKey, f,
					"error", res.err,
				)
				if e.abortOnFailure {
					return res.err
				}
				return nil
			})
		}
	}
	if err := pool.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "grid evaluation cancelled")
		}
		return nil, err
	}

	result := &SearchResult{
		Model:      fitter.Name(),
		ParamNames: grid.Names(),
		Records:    make([]Record, len(points)),
	}
	unavailable := 0
	for p, point := range points {
		rec := Record{Point: point, Index: p}
		var trainSum, validSum float64
		for f := 0; f < k; f++ {
			u := slots[p][f]
			if u.err != nil {
				rec.FoldsFailed++
				result.Failures = append(result.Failures, u.err.(*errors.FitFailure))
				continue
			}
			rec.FoldsOK++
			trainSum += u.trainRMSE
			validSum += u.validRMSE
		}
		if rec.FoldsOK == 0 {
			rec.Unavailable = true
			rec.TrainRMSE = math.NaN()
			rec.ValidRMSE = math.NaN()
			unavailable++
		} else {
			rec.TrainRMSE = trainSum / float64(rec.FoldsOK)
			rec.ValidRMSE = validSum / float64(rec.FoldsOK)
		}
		result.Records[p] = rec
	}

	logger.Info("Grid evaluation finished",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.FailedUnitsKey, len(result.Failures),
		log.UnavailableKey, unavailable,
	)
	return result, nil
}

// runUnit fits and scores one (point, fold) unit. Any error, panic or
// non-finite prediction is returned as a *errors.FitFailure.
func (e *Evaluator) runUnit(ctx context.Context, fitter model.ModelFitter, point model.Params, p, f int, s *foldData) unitResult {
	var res unitResult
	err := errors.SafeExecute(fitter.Name()+".Fit", func() error {
		m, err := fitter.Fit(ctx, s.trainX, s.trainY, point)
		if err != nil {
			return err
		}
		res.trainRMSE, err = score(fitter.Name()+".Predict(train)", m, s.trainX, s.trainY)
		if err != nil {
			return err
		}
		res.validRMSE, err = score(fitter.Name()+".Predict(valid)", m, s.validX, s.validY)
		return err
	})
	if err != nil {
		return unitResult{err: errors.NewFitFailure(point.String(), p, f, err)}
	}
	e.logger.Debug("Unit finished",
		log.ModelNameKey, fitter.Name(),
		log.PointIndexKey, p,
		log.FoldKey, f,
		log.TrainRMSEKey, res.trainRMSE,
		log.ValidRMSEKey, res.validRMSE,
	)
	return res
}

func score(op string, m model.PredictModel, X *mat.Dense, y *mat.VecDense) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	if err := errors.CheckVector(op, pred); err != nil {
		return 0, err
	}
	return metrics.RMSE(y, pred)
}
