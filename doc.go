// Package gridcv compares regression model families with k-fold
// cross-validated grid search.
//
// gridcv loads a numeric dataset, evaluates every hyper-parameter point of
// each configured model on every fold, picks the point with the lowest mean
// validation RMSE, refits it on all training samples and writes result
// tables, prediction tables and convergence curves.
//
// # Quick Start
//
// Library use:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/gridcv/sklearn/fitters"
//	    "github.com/YuminosukeSato/gridcv/sklearn/model_selection"
//	)
//
//	func main() {
//	    data, _ := model_selection.NewDataset(X, y)
//	    folds, err := model_selection.AssignFolds(data.Len(), 5, 3)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    grid, _ := model_selection.NewGrid(
//	        model_selection.GridParam{Name: "alpha", Values: []interface{}{0.0, 1.0}},
//	        model_selection.GridParam{Name: "lambda", Values: []interface{}{1.0, 0.1}},
//	    )
//	    fitter, _ := fitters.New(fitters.KindElasticNet)
//
//	    res, err := model_selection.NewEvaluator().Evaluate(context.Background(), data, folds, grid, fitter)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    best, err := model_selection.Select(res.Records)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(best.Point, best.ValidRMSE)
//	}
//
// Command line use:
//
//	gridcv run --config experiment.yaml --workers 8 --out results/
//	gridcv select --results results/glmnet_grid.csv
//
// # Packages
//
//   - sklearn/model_selection: fold assignment, parameter grids, the grid evaluator and selection
//   - sklearn/fitters: ElasticNet, random forest and gradient-boosted tree fitters for grid points
//   - sklearn/linear_model: ElasticNet (coordinate descent) and least squares
//   - sklearn/tree: gradient/hessian regression trees
//   - sklearn/ensemble: RandomForestRegressor, GradientBoostingRegressor
//   - metrics: MSE, RMSE, MAE, R²
//   - preprocessing: StandardScaler
//   - dataset: delimited input tables and output tables
//   - report: PNG charts of curves and model comparisons
//   - config: YAML experiment files
//   - experiment: end-to-end runs
//   - core/model: fitter and model interfaces, hyper-parameter points
//   - core/parallel: bounded worker pools
//   - pkg/errors, pkg/log: error kinds and structured logging
//
// # Reproducibility
//
// Fold assignment and every model family are seeded. Results for a fixed
// seed do not depend on the number of workers.
package gridcv
