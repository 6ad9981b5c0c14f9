package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/capi/capitest"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

func TestFitAndPredictBinary(t *testing.T) {
	_, b := newEngine(t)

	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).AddParams(binaryParams())
	require.NoError(t, err)

	model, err := ready.Fit()
	require.NoError(t, err)
	defer model.Close()

	assert.Equal(t, 5, model.Iterations())

	preds, err := model.Predict([][]float64{
		{0.1, 1.0, 0.0, 2.0},
		{0.5, 0.5, 0.5, 0.5},
		{1.0, 0.0, 0.9, 0.1},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	require.Len(t, preds[0], 3)
	assert.Less(t, preds[0][0], preds[0][2])

	results, err := model.EvalResultForDataset(0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "auc", results[0].MetricName)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestBuilderOrderDoesNotMatter(t *testing.T) {
	_, b := newEngine(t)

	withParams, err := b.AddParams(binaryParams())
	require.NoError(t, err)
	model, err := withParams.AddTrainData(FromMatrix(trainRows(), trainLabels())).Fit()
	require.NoError(t, err)
	require.NoError(t, model.Close())
}

func TestBuilderTransitionsDoNotMutateReceiver(t *testing.T) {
	b := NewBuilder()
	withData := b.AddTrainData(FromMatrix(trainRows(), trainLabels()))
	assert.Nil(t, b.s.train)

	a := withData.AddValData(FromMatrix(trainRows(), trainLabels()))
	assert.Empty(t, withData.s.valid)
	assert.Len(t, a.s.valid, 1)
}

func TestBuilderAddParamsError(t *testing.T) {
	b := NewBuilder().AddTrainData(FromMatrix(trainRows(), trainLabels()))
	_, err := b.AddParams(map[string]any{"objective": "binary"})
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestZeroReadyBuilder(t *testing.T) {
	_, err := ReadyBuilder{}.Fit()
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestDuplicate(t *testing.T) {
	engine, b := newEngine(t)

	rows := trainRows()
	ready, err := b.AddTrainData(FromMatrix(rows, trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels())).
		AddParams(binaryParams())
	require.NoError(t, err)

	dup := ready.Duplicate()
	rows[0][0] = 42
	assert.Equal(t, 0.1, dup.s.train.rows[0][0], "duplicate owns its data")
	assert.NotSame(t, ready.s.valid[0], dup.s.valid[0])
	assert.Equal(t, ready.Params().String(), dup.Params().String())

	m1, err := ready.Fit()
	require.NoError(t, err)
	m2, err := dup.Fit()
	require.NoError(t, err)
	assert.Equal(t, 2, engine.LiveBoosters())

	require.NoError(t, m1.Close())
	require.NoError(t, m2.Close())
}

func TestDuplicateWithDifferentParams(t *testing.T) {
	engine, b := newEngine(t)
	withData := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels()))
	dup := withData.Duplicate()

	slow := map[string]any{"num_iterations": 5, "objective": "binary", "metric": "binary_logloss", "learning_rate": 0.05}
	fast := map[string]any{"num_iterations": 5, "objective": "binary", "metric": "binary_logloss", "learning_rate": 0.5}
	readySlow, err := withData.AddParams(slow)
	require.NoError(t, err)
	readyFast, err := dup.AddParams(fast)
	require.NoError(t, err)

	m1, err := readySlow.Fit()
	require.NoError(t, err)
	defer m1.Close()
	m2, err := readyFast.Fit()
	require.NoError(t, err)
	defer m2.Close()

	score := func(m *Model, idx int) float64 {
		t.Helper()
		results, err := m.EvalResultForDataset(idx)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "binary_logloss", results[0].MetricName)
		return results[0].Score
	}
	assert.NotEqual(t, score(m1, 0), score(m2, 0), "different learning rates give different models")
	assert.Less(t, score(m2, 0), score(m1, 0))
	// Validation data equals training data, so both are scored alike.
	assert.InDelta(t, score(m1, 0), score(m1, 1), 1e-9)
	assert.InDelta(t, score(m2, 0), score(m2, 1), 1e-9)

	for _, m := range []*Model{m1, m2} {
		require.Len(t, m.valid, 1)
		assert.Equal(t, m.train.handle, engine.Reference(m.valid[0].handle))
	}
	assert.NotEqual(t, m1.train.handle, m2.train.handle)
}

func TestFitAttachesEachValidationSetAfterBoosterCreate(t *testing.T) {
	engine, b := newEngine(t)
	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels())).
		AddParams(binaryParams())
	require.NoError(t, err)

	model, err := ready.Fit()
	require.NoError(t, err)
	defer model.Close()

	assert.Equal(t, []string{
		capi.OpDatasetCreateFromMat, capi.OpDatasetSetField,
		capi.OpBoosterCreate,
		capi.OpDatasetCreateFromMat, capi.OpDatasetSetField, capi.OpBoosterAddValidData,
		capi.OpDatasetCreateFromMat, capi.OpDatasetSetField, capi.OpBoosterAddValidData,
	}, engine.Calls()[:9])
}

func TestDuplicateEveryState(t *testing.T) {
	ds := FromMatrix(trainRows(), trainLabels())

	b := NewBuilder().Duplicate()
	withData := b.AddTrainData(ds).Duplicate()
	assert.NotSame(t, ds, withData.s.train)

	withParams, err := NewBuilder().AddParams(binaryParams())
	require.NoError(t, err)
	dup := withParams.Duplicate()
	assert.NotSame(t, withParams.s.params, dup.s.params)
}

func TestFitCleansUpOnEveryFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *capitest.Engine)
		valid *Dataset
	}{
		{
			name:  "create training dataset",
			setup: func(e *capitest.Engine) { e.FailOn(capi.OpDatasetCreateFromMat, "out of memory") },
		},
		{
			name:  "set training labels",
			setup: func(e *capitest.Engine) { e.FailOn(capi.OpDatasetSetField, "bad labels") },
		},
		{
			name:  "validation data shape",
			valid: FromMatrix(trainRows(), []float32{0}),
		},
		{
			name:  "validation data features",
			valid: FromMatrix([][]float64{{1, 2}, {3, 4}}, []float32{0, 1}),
		},
		{
			name:  "create booster",
			setup: func(e *capitest.Engine) { e.FailOn(capi.OpBoosterCreate, "Unknown objective") },
		},
		{
			name:  "attach validation data",
			setup: func(e *capitest.Engine) { e.FailOn(capi.OpBoosterAddValidData, "cannot add") },
		},
		{
			name:  "train",
			setup: func(e *capitest.Engine) { e.FailOn(capi.OpBoosterUpdateOneIter, "numerical failure") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, b := newEngine(t)
			if tt.setup != nil {
				tt.setup(engine)
			}
			valid := tt.valid
			if valid == nil {
				valid = FromMatrix(trainRows(), trainLabels())
			}
			ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).
				AddValData(FromMatrix(trainRows(), trainLabels())).
				AddValData(valid).
				AddParams(binaryParams())
			require.NoError(t, err)

			model, err := ready.Fit()
			require.Error(t, err)
			assert.Nil(t, model)
			// newEngine's cleanup asserts that nothing leaked.
		})
	}
}

func TestFitReleasesHandlesOnProtocolViolation(t *testing.T) {
	engine, b := newEngine(t)
	engine.SetStatus(capi.OpBoosterUpdateOneIter, 3)

	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).AddParams(binaryParams())
	require.NoError(t, err)

	err = errors.SafeExecute("fit", func() error {
		_, err := ready.Fit()
		return err
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindProtocolViolation, errors.KindOf(err))
}

func TestRepeatedFitCloseCycles(t *testing.T) {
	engine, b := newEngine(t)
	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels())).
		AddParams(binaryParams())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		model, err := ready.Fit()
		require.NoError(t, err)
		require.NoError(t, model.Close())
		require.NoError(t, model.Close())
	}
	assert.Equal(t, 20, engine.CallCount(capi.OpBoosterFree))
	assert.Equal(t, 40, engine.CallCount(capi.OpDatasetFree))
}

func TestCloseOrder(t *testing.T) {
	engine, b := newEngine(t)
	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels())).
		AddValData(FromMatrix(trainRows(), trainLabels())).
		AddParams(binaryParams())
	require.NoError(t, err)

	model, err := ready.Fit()
	require.NoError(t, err)
	before := len(engine.Calls())
	require.NoError(t, model.Close())

	assert.Equal(t, []string{
		capi.OpBoosterFree,
		capi.OpDatasetFree,
		capi.OpDatasetFree,
		capi.OpDatasetFree,
	}, engine.Calls()[before:])

	_, err = model.Predict(trainRows())
	assert.True(t, errors.Is(err, errors.ErrClosed))
}

func TestFitPredict(t *testing.T) {
	_, b := newEngine(t)
	ready, err := b.AddTrainData(FromMatrix(trainRows(), trainLabels())).AddParams(binaryParams())
	require.NoError(t, err)

	model, preds, err := ready.FitPredict(trainRows())
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Len(t, preds[0], 5)
	require.NoError(t, model.Close())

	model, preds, err = ready.FitPredict([][]float64{{1, 2}})
	assert.Equal(t, errors.KindDimension, errors.KindOf(err))
	assert.Nil(t, model)
	assert.Nil(t, preds)
}

func TestFitLogs(t *testing.T) {
	engine := capitest.NewEngine()
	logger, _ := log.NewTestLogger(log.LevelDebug)

	ready, err := NewBuilder(WithSurface(engine), WithLogger(logger)).
		AddTrainData(FromMatrix(trainRows(), trainLabels())).
		AddParams(binaryParams())
	require.NoError(t, err)
	model, err := ready.Fit()
	require.NoError(t, err)
	require.NoError(t, model.Close())

	assert.True(t, logger.ContainsMessage("training started"))
	assert.True(t, logger.ContainsMessage("training finished"))
	assert.True(t, logger.ContainsField(log.BudgetKey, float64(5)))
}
