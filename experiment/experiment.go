// Package experiment runs a configured cross-validated grid search end to
// end: load data, evaluate every model's grid, select, refit, predict and
// write the result files.
package experiment

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/config"
	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/dataset"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/pkg/log"
	"github.com/YuminosukeSato/gridcv/report"
	"github.com/YuminosukeSato/gridcv/sklearn/fitters"
	"github.com/YuminosukeSato/gridcv/sklearn/model_selection"
)

// Output file names. Per-model files are prefixed with the model name.
const (
	SummaryFile     = "summary.csv"
	ComparisonFile  = "comparison.png"
	GridSuffix      = "_grid.csv"
	CurveSuffix     = "_curve.csv"
	CurvePlotSuffix = "_curve.png"
	PredictSuffix   = "_predictions.csv"
)

// ModelSummary is the outcome of one configured model.
type ModelSummary struct {
	Name string
	Kind string

	// Result holds every grid record and unit failure.
	Result *model_selection.SearchResult

	// Best is the selected record; meaningful only when Selected is true.
	Best     model_selection.Record
	Selected bool

	// Err is set when the model was skipped: no available grid point, or
	// the refit of the selected point failed.
	Err error

	Curve *model.Curve
	Files []string
}

// FailedUnits returns the number of (point, fold) units that failed.
func (m *ModelSummary) FailedUnits() int {
	if m.Result == nil {
		return 0
	}
	return len(m.Result.Failures)
}

// Summary is the outcome of a run.
type Summary struct {
	RunID    string
	Samples  int
	Features int
	Folds    int
	Models   []*ModelSummary
	Files    []string
	Duration time.Duration
}

// Run executes cfg. Configuration and input errors abort the run; a model
// whose grid yields no available point is logged, recorded in the Summary
// and skipped.
func Run(ctx context.Context, cfg *config.Config, logger log.Logger) (*Summary, error) {
	if logger == nil {
		logger = log.GetLoggerWithName("experiment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()[:8]
	logger = logger.With(log.RunIDKey, runID)
	start := time.Now()

	opts := cfg.DatasetOptions()
	data, err := dataset.Load(cfg.TrainFeatures, cfg.TrainLabels, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Training data loaded",
		log.PathKey, cfg.TrainFeatures,
		log.SamplesKey, data.Len(),
		log.FeaturesKey, data.Features(),
	)

	var test *mat.Dense
	if cfg.TestFeatures != "" {
		test, _, err = dataset.ReadMatrixFile(cfg.TestFeatures, opts)
		if err != nil {
			return nil, err
		}
		if _, c := test.Dims(); c != data.Features() {
			return nil, errors.NewDimensionError("experiment.Run(test features)", data.Features(), c, 1)
		}
	}

	folds, err := model_selection.AssignFolds(data.Len(), cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("Folds assigned", log.FoldsKey, cfg.Folds, "sizes", folds.Sizes())

	summary := &Summary{
		RunID:    runID,
		Samples:  data.Len(),
		Features: data.Features(),
		Folds:    cfg.Folds,
	}
	for _, m := range cfg.Models {
		ms, err := runModel(ctx, cfg, m, data, folds, test, logger.With(log.ModelNameKey, m.Name))
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", m.Name)
		}
		summary.Models = append(summary.Models, ms)
	}

	if err := writeSummaryFiles(cfg.OutputDir, summary, logger); err != nil {
		return nil, err
	}
	summary.Duration = time.Since(start)
	logger.Info("Run finished",
		log.DurationMsKey, summary.Duration.Milliseconds(),
		"output_dir", cfg.OutputDir,
	)
	return summary, nil
}

func runModel(ctx context.Context, cfg *config.Config, m config.Model, data *model_selection.Dataset, folds model_selection.FoldAssignment, test *mat.Dense, logger log.Logger) (*ModelSummary, error) {
	fitter, grid, err := m.Build()
	if err != nil {
		return nil, err
	}
	ms := &ModelSummary{Name: m.Name, Kind: m.Kind}

	step := max(1, grid.Len()*folds.K()/10)
	ev := model_selection.NewEvaluator(
		model_selection.WithWorkers(cfg.Workers),
		model_selection.WithLogger(logger),
		model_selection.WithAbortOnFailure(cfg.AbortOnFailure),
		model_selection.WithProgress(func(done, total int) {
			if done%step == 0 || done == total {
				logger.Debug("Grid progress", "done", done, "total", total)
			}
		}),
	)
	res, err := ev.Evaluate(ctx, data, folds, grid, fitter)
	if err != nil {
		return nil, err
	}
	res.Model = m.Name
	ms.Result = res

	gridPath := filepath.Join(cfg.OutputDir, m.Name+GridSuffix)
	if err := dataset.WriteFile(gridPath, func(w io.Writer) error {
		return dataset.WriteResultTable(w, res)
	}); err != nil {
		return nil, err
	}
	ms.Files = append(ms.Files, gridPath)

	if n := len(res.Failures); n > 0 {
		logger.Warn("Grid finished with failed units",
			log.FailedUnitsKey, n,
			"first_error", res.Failures[0].Cause,
		)
	}

	best, err := model_selection.Select(res.Records)
	if err != nil {
		ms.Err = err
		logger.Warn("No grid point succeeded; model skipped",
			log.GridPointsKey, grid.Len(),
			log.FailedUnitsKey, len(res.Failures),
		)
		return ms, nil
	}
	ms.Best, ms.Selected = best, true
	logger.Info("Best point selected",
		log.OperationKey, log.OperationSelect,
		log.PointKey, best.Point.String(),
		log.TrainRMSEKey, best.TrainRMSE,
		log.ValidRMSEKey, best.ValidRMSE,
	)

	fitted, err := refit(ctx, fitter, cfg.Workers, data, best.Point)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		ms.Err = err
		logger.Error("Refit failed; model skipped", "error", err, log.PhaseKey, log.PhaseRefit)
		return ms, nil
	}

	if cr, ok := fitted.(model.CurveReporter); ok {
		curve := cr.Curve()
		if len(curve.Values) > 0 {
			ms.Curve = &curve
			files, err := writeCurve(cfg.OutputDir, m.Name, curve, logger)
			if err != nil {
				return nil, err
			}
			ms.Files = append(ms.Files, files...)
		}
	}

	if test != nil {
		pred, err := fitted.Predict(test)
		if err != nil {
			return nil, errors.Wrap(err, "predict test features")
		}
		path := filepath.Join(cfg.OutputDir, m.Name+PredictSuffix)
		if err := dataset.WriteFile(path, func(w io.Writer) error {
			return dataset.WritePredictions(w, pred)
		}); err != nil {
			return nil, err
		}
		ms.Files = append(ms.Files, path)
		logger.Info("Predictions written", log.PhaseKey, log.PhaseInference, log.PathKey, path, log.SamplesKey, pred.Len())
	}
	return ms, nil
}

// refit fits the selected point on every training sample. Forests grow
// their trees on the run's workers since no other unit is running.
func refit(ctx context.Context, fitter model.ModelFitter, workers int, data *model_selection.Dataset, point model.Params) (model.PredictModel, error) {
	if rf, ok := fitter.(fitters.RandomForestFitter); ok {
		rf.NJobs = workers
		fitter = rf
	}
	var fitted model.PredictModel
	err := errors.SafeExecute(fitter.Name()+".Fit(refit)", func() error {
		var err error
		fitted, err = fitter.Fit(ctx, data.X, data.Y, point)
		return err
	})
	return fitted, err
}

func writeCurve(dir, name string, curve model.Curve, logger log.Logger) ([]string, error) {
	csvPath := filepath.Join(dir, name+CurveSuffix)
	if err := dataset.WriteFile(csvPath, func(w io.Writer) error {
		return dataset.WriteCurve(w, curve)
	}); err != nil {
		return nil, err
	}
	files := []string{csvPath}

	pngPath := filepath.Join(dir, name+CurvePlotSuffix)
	if err := report.CurvePNG(pngPath, curve, name+" "+curve.Name); err != nil {
		logger.Warn("Curve plot skipped", log.PathKey, pngPath, "error", err)
		return files, nil
	}
	return append(files, pngPath), nil
}
