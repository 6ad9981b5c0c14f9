package lightgbm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/capi/capitest"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// fitModel trains a binary model with one validation set on engine.
func fitModel(t *testing.T, b Builder, params map[string]any) *Model {
	t.Helper()
	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows()[1:], []float32{0, 0, 1, 1})).
		AddParams(params)
	require.NoError(t, err)
	model, err := ready.Fit()
	require.NoError(t, err)
	t.Cleanup(func() { _ = model.Close() })
	return model
}

func TestPredictMulticlassReshape(t *testing.T) {
	_, b := newEngine(t)
	ready, err := b.AddTrainData(FromMatrix(trainRows(), []float32{0, 1, 2, 1, 0})).
		AddParams(map[string]any{"num_iterations": 3, "objective": "multiclass", "num_class": 3})
	require.NoError(t, err)
	model, err := ready.Fit()
	require.NoError(t, err)
	defer model.Close()

	k, err := model.NumClasses()
	require.NoError(t, err)
	assert.Equal(t, 3, k)

	preds, err := model.Predict(trainRows()[:2])
	require.NoError(t, err)
	require.Len(t, preds, 2, "one slice per row")
	for _, row := range preds {
		require.Len(t, row, 3)
		assert.InDelta(t, 1.0, row[0]+row[1]+row[2], 1e-9)
	}

	dense, err := model.PredictDense(mat.NewDense(2, 4, []float64{
		0.1, 1.0, 0.0, 2.0,
		0.2, 0.9, 0.1, 1.5,
	}))
	require.NoError(t, err)
	r, c := dense.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.InDelta(t, preds[0][1], dense.At(0, 1), 1e-12)
}

func TestPredictValidation(t *testing.T) {
	engine, b := newEngine(t)
	model := fitModel(t, b, binaryParams())

	_, err := model.Predict(nil)
	assert.Equal(t, errors.KindDimension, errors.KindOf(err))

	_, err = model.Predict([][]float64{{1, 2, 3, 4}, {1}})
	assert.Equal(t, errors.KindDimension, errors.KindOf(err))

	calls := len(engine.Calls())
	_, err = model.Predict([][]float64{{1, 2, 3}})
	assert.Equal(t, errors.KindDimension, errors.KindOf(err))
	assert.Equal(t, []string{capi.OpBoosterGetNumFeature}, engine.Calls()[calls:])

	_, err = model.PredictWithParams(trainRows(), "num_threads=1\x00")
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))

	_, err = model.PredictDense(&mat.Dense{})
	assert.Equal(t, errors.KindDimension, errors.KindOf(err))
}

func TestPredictWithParamsPassesThrough(t *testing.T) {
	_, b := newEngine(t)
	model := fitModel(t, b, binaryParams())

	preds, err := model.PredictWithParams(trainRows(), "num_threads=1")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Len(t, preds[0], 5)

	_, err = model.PredictWithParams(trainRows(), "not-a-parameter")
	assert.Equal(t, errors.KindNative, errors.KindOf(err))
}

func TestPredictOutputLengthMismatch(t *testing.T) {
	engine, b := newEngine(t)
	model := fitModel(t, b, binaryParams())
	engine.SkewPredictLen(-1)

	_, err := model.Predict(trainRows())
	assert.Equal(t, errors.KindProtocolViolation, errors.KindOf(err))
}

func TestEvalResultForDataset(t *testing.T) {
	_, b := newEngine(t)
	params := binaryParams()
	params["metric"] = []string{"auc", "binary_logloss"}
	model := fitModel(t, b, params)

	names, err := model.EvalNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"auc", "binary_logloss"}, names)
	assert.Equal(t, 1, model.NumValidSets())

	for idx := 0; idx <= model.NumValidSets(); idx++ {
		results, err := model.EvalResultForDataset(idx)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "auc", results[0].MetricName)
		assert.Equal(t, "binary_logloss", results[1].MetricName)
		assert.Greater(t, results[1].Score, 0.0)
	}
}

func TestEvalRangeErrorMakesNoNativeCall(t *testing.T) {
	engine, b := newEngine(t)
	model := fitModel(t, b, binaryParams())

	for _, idx := range []int{-1, 2, 100} {
		before := len(engine.Calls())
		_, err := model.EvalResultForDataset(idx)
		require.Error(t, err)
		assert.Equal(t, errors.KindRange, errors.KindOf(err))
		assert.Len(t, engine.Calls(), before)
	}

	var rangeErr *errors.RangeError
	_, err := model.EvalResultForDataset(2)
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 1, rangeErr.Max)
}

func TestEvalEngineInconsistencies(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*capitest.Engine)
		want  errors.Kind
	}{
		{"name count differs from eval count", func(e *capitest.Engine) { e.SkewEvalNames(1) }, errors.KindProtocolViolation},
		{"names are not UTF-8", func(e *capitest.Engine) { e.CorruptEvalNames() }, errors.KindEncoding},
		{"score count differs", func(e *capitest.Engine) { e.SkewEvalScores(-1) }, errors.KindNative},
		{"native failure", func(e *capitest.Engine) { e.FailOn(capi.OpBoosterGetEval, "eval failed") }, errors.KindNative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, b := newEngine(t)
			model := fitModel(t, b, binaryParams())
			tt.setup(engine)

			_, err := model.EvalResultForDataset(0)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.KindOf(err))
		})
	}
}

func TestEvalWithoutMetrics(t *testing.T) {
	_, b := newEngine(t)
	params := binaryParams()
	params["metric"] = "None"
	model := fitModel(t, b, params)

	results, err := model.EvalResultForDataset(1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineFinishedStopsTraining(t *testing.T) {
	engine, b := newEngine(t)
	engine.FinishAfter(2)

	params := binaryParams()
	params["num_iterations"] = 10
	model := fitModel(t, b, params)

	assert.Equal(t, 2, model.Iterations())
	assert.Equal(t, 3, engine.CallCount(capi.OpBoosterUpdateOneIter))
}

func TestZeroIterationBudget(t *testing.T) {
	engine, b := newEngine(t)
	params := binaryParams()
	params["num_iterations"] = 0
	model := fitModel(t, b, params)

	assert.Zero(t, model.Iterations())
	assert.Zero(t, engine.CallCount(capi.OpBoosterUpdateOneIter))
}

func TestCallbacks(t *testing.T) {
	engine := capitest.NewEngine()
	logger, _ := log.NewTestLogger(log.LevelDebug)

	var history EvalHistory
	calls := 0
	stopAtThird := func(env *CallbackEnv) error {
		calls++
		if env.Iteration == 2 {
			env.StopTraining = true
		}
		return nil
	}
	b := NewBuilder(
		WithSurface(engine),
		WithLogger(logger),
		WithCallbacks(RecordEvaluation(&history), LogEvaluation(logger, 1), stopAtThird),
	)
	params := binaryParams()
	params["num_iterations"] = 10
	model := fitModel(t, b, params)

	assert.Equal(t, 3, model.Iterations())
	assert.Equal(t, 3, calls)
	require.Contains(t, history, 0)
	require.Contains(t, history, 1)
	assert.Len(t, history[0]["auc"], 3)
	assert.Len(t, history[1]["auc"], 3)
	assert.True(t, logger.ContainsField(log.MetricKey, "auc"))
}

func TestCallbackErrorAbortsFit(t *testing.T) {
	engine, b := newEngine(t)
	boom := errors.New("boom")
	b = NewBuilder(WithSurface(engine), WithCallbacks(func(*CallbackEnv) error { return boom }))

	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).AddParams(binaryParams())
	require.NoError(t, err)
	_, err = ready.Fit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestEarlyStopping(t *testing.T) {
	_, b := newEngine(t)
	// The training AUC is already perfect after the first iteration, so it
	// cannot improve for two more rounds.
	b = NewBuilder(WithSurface(b.s.surface), WithLogger(b.s.logger), WithCallbacks(EarlyStopping(2, 0, "auc")))
	params := binaryParams()
	params["num_iterations"] = 50
	model := fitModel(t, b, params)

	assert.Equal(t, 3, model.Iterations())
}

func TestEarlyStoppingUnknownMetric(t *testing.T) {
	engine, _ := newEngine(t)
	b := NewBuilder(WithSurface(engine), WithCallbacks(EarlyStopping(2, 0, "l2")))

	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).AddParams(binaryParams())
	require.NoError(t, err)
	_, err = ready.Fit()
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestTimeLimit(t *testing.T) {
	_, b := newEngine(t)
	b = NewBuilder(WithSurface(b.s.surface), WithCallbacks(TimeLimit(-time.Second)))
	params := binaryParams()
	params["num_iterations"] = 10
	model := fitModel(t, b, params)

	assert.Equal(t, 1, model.Iterations())
}

func TestEarlyStoppingRestartsPerFit(t *testing.T) {
	engine, _ := newEngine(t)
	b := NewBuilder(WithSurface(engine), WithCallbacks(EarlyStopping(3, 0, "binary_logloss")))
	params := binaryParams()
	params["num_iterations"] = 20
	params["metric"] = "binary_logloss"

	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).AddParams(params)
	require.NoError(t, err)
	dup := ready.Duplicate()

	first, err := ready.Fit()
	require.NoError(t, err)
	defer first.Close()
	second, err := dup.Fit()
	require.NoError(t, err)
	defer second.Close()
	again, err := ready.Fit()
	require.NoError(t, err)
	defer again.Close()

	assert.Greater(t, first.Iterations(), 3)
	assert.Equal(t, first.Iterations(), second.Iterations())
	assert.Equal(t, first.Iterations(), again.Iterations())
}
