// Package log defines standard attribute keys for the LightGBM bindings.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "native.op") so that log lines can be filtered by category.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the kind of object being logged about.
	// Examples: "booster", "dataset"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "load", "eval"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// DataFormKey names the source form of a dataset: "file", "matrix", "frame".
	DataFormKey = "data.form"

	// DatasetIndexKey is the evaluation index of a dataset (0 = train).
	DatasetIndexKey = "data.index"

	// ValidSetsKey is the number of attached validation datasets.
	ValidSetsKey = "data.valid_sets"
)

// Training and Evaluation
const (
	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"

	// BudgetKey records the configured iteration budget.
	BudgetKey = "training.budget"

	// FinishedKey records whether the native engine reported early termination.
	FinishedKey = "training.finished"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MetricKey names an evaluation metric.
	MetricKey = "eval.metric"

	// ScoreKey records an evaluation score.
	ScoreKey = "eval.score"

	// OutputsKey records the number of outputs per row of a prediction.
	OutputsKey = "preds.outputs"
)

// Native Call Context
const (
	// NativeOpKey names the native entry point, e.g. "LGBM_BoosterCreate".
	NativeOpKey = "native.op"

	// HandleKindKey is "dataset" or "booster".
	HandleKindKey = "native.handle_kind"
)

// Error Context
const (
	// ErrorKey holds the error message.
	ErrorKey = "error"

	// ErrorKindKey categorizes the error by taxonomy kind.
	ErrorKindKey = "error.kind"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationLoad    = "load"
	OperationEval    = "eval"
	OperationClose   = "close"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
