// Package log defines standard attribute keys for grid-search operations.
//
// Keys follow a hierarchical naming convention ("model.name", "cv.fold") so
// that log lines from different packages can be filtered consistently.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model family. Examples: "ElasticNet", "RandomForest"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "evaluate", "select"
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase: "training", "validation", "refit", "inference"
	PhaseKey = "ml.phase"

	// RunIDKey identifies one experiment run.
	RunIDKey = "run.id"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// PathKey records an input or output file path.
	PathKey = "data.path"
)

// Cross-validation and grid search
const (
	// FoldsKey records the fold count k.
	FoldsKey = "cv.folds"

	// FoldKey records the fold id of a work unit.
	FoldKey = "cv.fold"

	// PointKey records a hyper-parameter point in its canonical string form.
	PointKey = "cv.point"

	// PointIndexKey records the enumeration index of a grid point.
	PointIndexKey = "cv.point_index"

	// GridPointsKey records the number of grid points.
	GridPointsKey = "cv.grid_points"

	// WorkersKey records the worker pool size.
	WorkersKey = "cv.workers"

	// FailedUnitsKey records how many (point, fold) units failed.
	FailedUnitsKey = "cv.failed_units"

	// UnavailableKey records how many grid points had no successful fold.
	UnavailableKey = "cv.unavailable_points"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// TrainRMSEKey records the mean training RMSE.
	TrainRMSEKey = "metrics.train_rmse"

	// ValidRMSEKey records the mean validation RMSE.
	ValidRMSEKey = "metrics.valid_rmse"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"

	// LossKey records loss value during training.
	LossKey = "metrics.loss"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEvaluate = "evaluate"
	OperationSelect   = "select"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseRefit      = "refit"
	PhaseInference  = "inference"
)
