// Package fitters binds hyper-parameter points to the model families.
//
// Each fitter decodes the parameters it understands from a model.Params,
// rejects any other name, and fits a fresh model on every call, so a single
// fitter value can be shared by concurrent grid-search units.
package fitters

import (
	"context"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/sklearn/ensemble"
	"github.com/YuminosukeSato/gridcv/sklearn/linear_model"
)

// Model kinds accepted by New.
const (
	KindElasticNet       = "elasticnet"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "xgboost"
	KindLinearRegression = "linear_regression"
)

var aliases = map[string]string{
	"elastic_net":       KindElasticNet,
	"glmnet":            KindElasticNet,
	"randomforest":      KindRandomForest,
	"rf":                KindRandomForest,
	"gbt":               KindGradientBoosting,
	"gradient_boosting": KindGradientBoosting,
	"ols":               KindLinearRegression,
	"lm":                KindLinearRegression,
}

// New returns the fitter registered for kind.
func New(kind string) (model.ModelFitter, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if canonical, ok := aliases[k]; ok {
		k = canonical
	}
	switch k {
	case KindElasticNet:
		return ElasticNetFitter{}, nil
	case KindRandomForest:
		return RandomForestFitter{NJobs: 1}, nil
	case KindGradientBoosting:
		return GradientBoostedTreeFitter{}, nil
	case KindLinearRegression:
		return LinearRegressionFitter{}, nil
	}
	return nil, errors.NewInvalidConfigurationErrorf("fitters.New", "unknown model kind %q (known: %s)", kind, strings.Join(Kinds(), ", "))
}

// Kinds lists the canonical model kinds.
func Kinds() []string {
	kinds := []string{KindElasticNet, KindRandomForest, KindGradientBoosting, KindLinearRegression}
	sort.Strings(kinds)
	return kinds
}

// checkNames rejects parameters the fitter does not know.
func checkNames(fitter string, p model.Params, known []string) error {
	for _, name := range p.Names() {
		if !slices.Contains(known, name) {
			return errors.NewInvalidConfigurationErrorf(fitter, "unknown parameter %q (accepted: %s)", name, strings.Join(known, ", "))
		}
	}
	return nil
}

// decoder collects the first error of a sequence of typed lookups.
type decoder struct {
	p   model.Params
	err error
}

func (d *decoder) getFloat(name string, def float64) float64 {
	v, err := d.p.Float(name, def)
	if err != nil && d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) getInt(name string, def int) int {
	v, err := d.p.Int(name, def)
	if err != nil && d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) getBool(name string, def bool) bool {
	v, err := d.p.Bool(name, def)
	if err != nil && d.err == nil {
		d.err = err
	}
	return v
}

// ElasticNetFitter fits linear_model.ElasticNet.
//
// Parameters: alpha (mixing in [0,1], default 1), lambda (default 1),
// max_iter (1000), tol (1e-6), standardize (true), path_length (20).
type ElasticNetFitter struct{}

var elasticNetParams = []string{"alpha", "lambda", "max_iter", "tol", "standardize", "path_length"}

func (ElasticNetFitter) Name() string         { return "ElasticNet" }
func (ElasticNetFitter) ParamNames() []string { return slices.Clone(elasticNetParams) }

func (f ElasticNetFitter) Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense, p model.Params) (model.PredictModel, error) {
	if err := checkNames(f.Name(), p, elasticNetParams); err != nil {
		return nil, err
	}
	d := decoder{p: p}
	enet := linear_model.NewElasticNet(
		linear_model.WithAlpha(d.getFloat("alpha", 1)),
		linear_model.WithLambda(d.getFloat("lambda", 1)),
		linear_model.WithMaxIter(d.getInt("max_iter", 1000)),
		linear_model.WithTol(d.getFloat("tol", 1e-6)),
		linear_model.WithStandardize(d.getBool("standardize", true)),
		linear_model.WithPathLength(d.getInt("path_length", 20)),
	)
	if d.err != nil {
		return nil, d.err
	}
	if err := enet.FitContext(ctx, X, y); err != nil {
		return nil, err
	}
	return enet, nil
}

// RandomForestFitter fits ensemble.RandomForestRegressor.
//
// Parameters: n_trees (500), max_features (0 = P/3), min_samples_leaf (5),
// max_depth (0 = unlimited), seed (0). NJobs bounds the goroutines growing
// trees inside one fit.
type RandomForestFitter struct {
	NJobs int
}

var randomForestParams = []string{"n_trees", "max_features", "min_samples_leaf", "max_depth", "seed"}

func (RandomForestFitter) Name() string         { return "RandomForest" }
func (RandomForestFitter) ParamNames() []string { return slices.Clone(randomForestParams) }

func (f RandomForestFitter) Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense, p model.Params) (model.PredictModel, error) {
	if err := checkNames(f.Name(), p, randomForestParams); err != nil {
		return nil, err
	}
	d := decoder{p: p}
	nTrees := d.getInt("n_trees", 500)
	maxFeatures := d.getInt("max_features", 0)
	minLeaf := d.getInt("min_samples_leaf", 5)
	maxDepth := d.getInt("max_depth", 0)
	seed := d.getInt("seed", 0)
	if d.err != nil {
		return nil, d.err
	}
	if seed < 0 {
		return nil, errors.NewValidationError("seed", "must be >= 0", seed)
	}

	rf := ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(nTrees),
		ensemble.WithMaxFeatures(maxFeatures),
		ensemble.WithMinSamplesLeaf(minLeaf),
		ensemble.WithMaxDepth(maxDepth),
		ensemble.WithRandomState(uint64(seed)),
		ensemble.WithNJobs(f.NJobs),
	)
	if err := rf.FitContext(ctx, X, y); err != nil {
		return nil, err
	}
	return rf, nil
}

// GradientBoostedTreeFitter fits ensemble.GradientBoostingRegressor.
//
// Parameters: n_rounds (100), eta (0.3), max_depth (6), subsample (1),
// colsample (1), lambda (1), gamma (0), min_child_weight (1), seed (0).
type GradientBoostedTreeFitter struct{}

var gradientBoostingParams = []string{"n_rounds", "eta", "max_depth", "subsample", "colsample", "lambda", "gamma", "min_child_weight", "seed"}

func (GradientBoostedTreeFitter) Name() string         { return "XGBoost" }
func (GradientBoostedTreeFitter) ParamNames() []string { return slices.Clone(gradientBoostingParams) }

func (f GradientBoostedTreeFitter) Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense, p model.Params) (model.PredictModel, error) {
	if err := checkNames(f.Name(), p, gradientBoostingParams); err != nil {
		return nil, err
	}
	d := decoder{p: p}
	opts := []ensemble.GradientBoostingOption{
		ensemble.WithNRounds(d.getInt("n_rounds", 100)),
		ensemble.WithEta(d.getFloat("eta", 0.3)),
		ensemble.WithTreeDepth(d.getInt("max_depth", 6)),
		ensemble.WithSubsample(d.getFloat("subsample", 1)),
		ensemble.WithColsample(d.getFloat("colsample", 1)),
		ensemble.WithL2(d.getFloat("lambda", 1)),
		ensemble.WithGamma(d.getFloat("gamma", 0)),
		ensemble.WithMinChildWeight(d.getFloat("min_child_weight", 1)),
	}
	seed := d.getInt("seed", 0)
	if d.err != nil {
		return nil, d.err
	}
	if seed < 0 {
		return nil, errors.NewValidationError("seed", "must be >= 0", seed)
	}
	gb := ensemble.NewGradientBoostingRegressor(append(opts, ensemble.WithSeed(uint64(seed)))...)
	if err := gb.FitContext(ctx, X, y); err != nil {
		return nil, err
	}
	return gb, nil
}

// LinearRegressionFitter fits an unpenalized least squares model. It takes
// one parameter, fit_intercept (true), and serves as a baseline.
type LinearRegressionFitter struct{}

var linearRegressionParams = []string{"fit_intercept"}

func (LinearRegressionFitter) Name() string         { return "LinearRegression" }
func (LinearRegressionFitter) ParamNames() []string { return slices.Clone(linearRegressionParams) }

func (f LinearRegressionFitter) Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense, p model.Params) (model.PredictModel, error) {
	if err := checkNames(f.Name(), p, linearRegressionParams); err != nil {
		return nil, err
	}
	d := decoder{p: p}
	intercept := d.getBool("fit_intercept", true)
	if d.err != nil {
		return nil, d.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lr := linear_model.NewLinearRegression(linear_model.WithLRFitIntercept(intercept))
	if err := lr.Fit(X, y); err != nil {
		return nil, err
	}
	return lr, nil
}
