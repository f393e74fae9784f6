package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// ModelFitter は学習能力を表すインターフェース。
// 各モデル族（ElasticNet、RandomForest、勾配ブースティング木）はこれを実装し、
// 与えられたハイパーパラメータ点で毎回ゼロから学習したモデルを返す。
type ModelFitter interface {
	// Name はモデル族の名前を返す（結果テーブルのファイル名などに使われる）
	Name() string

	// ParamNames は受け付けるハイパーパラメータ名を返す
	ParamNames() []string

	// Fit は訓練データでモデルを学習させる
	Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense, params Params) (PredictModel, error)
}

// PredictModel は学習済みモデルのインターフェース
type PredictModel interface {
	// Predict は入力データに対する予測ベクトルを返す
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Curve は学習中に記録された反復ごとの値（損失など）
type Curve struct {
	Name   string
	Values []float64
}

// CurveReporter は収束曲線を公開できるモデルのインターフェース
type CurveReporter interface {
	Curve() Curve
}
