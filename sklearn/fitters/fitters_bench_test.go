package fitters

import (
	"context"
	"fmt"
	"testing"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/pkg/log"
	"github.com/YuminosukeSato/gridcv/sklearn/model_selection"
)

// benchmarkGrid は fitter ごとのベンチマーク用グリッド
func benchmarkGrid(b *testing.B, kind string) (model.ModelFitter, *model_selection.Grid) {
	b.Helper()
	var params []model_selection.GridParam
	switch kind {
	case KindElasticNet:
		params = []model_selection.GridParam{
			{Name: "alpha", Values: []interface{}{0.0, 0.5, 1.0}},
			{Name: "lambda", Values: []interface{}{0.1, 0.01}},
		}
	case KindRandomForest:
		params = []model_selection.GridParam{
			{Name: "n_trees", Values: []interface{}{20}},
			{Name: "max_features", Values: []interface{}{2, 4}},
		}
	case KindGradientBoosting:
		params = []model_selection.GridParam{
			{Name: "n_rounds", Values: []interface{}{20}},
			{Name: "eta", Values: []interface{}{0.1, 0.3}},
			{Name: "max_depth", Values: []interface{}{3}},
		}
	}
	fitter, err := New(kind)
	if err != nil {
		b.Fatal(err)
	}
	grid, err := model_selection.NewGrid(params...)
	if err != nil {
		b.Fatal(err)
	}
	return fitter, grid
}

// BenchmarkGridSearch は worker 数ごとのグリッド評価を計測する
func BenchmarkGridSearch(b *testing.B) {
	X, y := sample(500, 10, 42)
	data, err := model_selection.NewDataset(X, y)
	if err != nil {
		b.Fatal(err)
	}
	folds, err := model_selection.AssignFolds(data.Len(), 5, 42)
	if err != nil {
		b.Fatal(err)
	}
	quiet, _ := log.NewTestLogger(log.LevelError)

	for _, kind := range []string{KindElasticNet, KindRandomForest, KindGradientBoosting} {
		fitter, grid := benchmarkGrid(b, kind)
		for _, workers := range []int{1, 4} {
			b.Run(fmt.Sprintf("%s_workers%d", kind, workers), func(b *testing.B) {
				ev := model_selection.NewEvaluator(
					model_selection.WithWorkers(workers),
					model_selection.WithLogger(quiet),
				)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := ev.Evaluate(context.Background(), data, folds, grid, fitter); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
