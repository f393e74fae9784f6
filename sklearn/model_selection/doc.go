/*
Package model_selection implements k-fold cross-validated grid search.

The pieces compose in a fixed order:

	folds, err := model_selection.AssignFolds(data.Len(), 5, seed)
	grid, err := model_selection.NewGrid(
		model_selection.GridParam{Name: "alpha", Values: []interface{}{0.0, 0.5, 1.0}},
		model_selection.GridParam{Name: "lambda", Values: []interface{}{1.0, 0.1, 0.01}},
	)
	res, err := model_selection.NewEvaluator(model_selection.WithWorkers(8)).
		Evaluate(ctx, data, folds, grid, fitter)
	best, err := model_selection.Select(res.Records)

AssignFolds is the fold partitioner: a seeded, balanced assignment of sample
indices to k folds. The Evaluator fits one model per (grid point, fold) unit on
a bounded worker pool and aggregates mean training and validation RMSE over the
folds that succeeded. A unit that fails is recorded as a FitFailure and left out
of its point's aggregate; a point whose every fold failed is marked
Unavailable. Select picks the available point with the lowest mean validation
RMSE, breaking exact ties in favour of the point enumerated first.
*/
package model_selection
