package capi_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/capi/capitest"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

func TestCheck(t *testing.T) {
	engine := capitest.NewEngine()
	engine.FailOn(capi.OpBoosterCreate, "Unknown objective type name: poisson2")
	var h capi.Handle
	status := engine.BoosterCreate(capi.NullHandle, "objective=poisson2", &h)

	t.Run("success", func(t *testing.T) {
		assert.NoError(t, capi.Check(engine, capi.OpDatasetFree, 0))
	})

	t.Run("native failure carries last error", func(t *testing.T) {
		err := capi.Check(engine, capi.OpBoosterCreate, status)
		require.Error(t, err)

		var nativeErr *errors.NativeError
		require.True(t, errors.As(err, &nativeErr))
		assert.Equal(t, capi.OpBoosterCreate, nativeErr.Op)
		assert.Equal(t, "Unknown objective type name: poisson2", nativeErr.Message)
	})

	t.Run("unexpected status panics", func(t *testing.T) {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			assert.Equal(t, errors.KindProtocolViolation, errors.KindOf(err))
			assert.Contains(t, err.Error(), "unexpected return value '2', expected 0 or -1")
		}()
		_ = capi.Check(engine, capi.OpDatasetFree, 2)
	})
}

func TestCheckString(t *testing.T) {
	assert.NoError(t, capi.CheckString("filename", "train.csv"))

	err := capi.CheckString("filename", "train\x00.csv")
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestSetDefault(t *testing.T) {
	engine := capitest.NewEngine()
	prev := capi.SetDefault(engine)
	defer capi.SetDefault(prev)

	assert.Same(t, engine, capi.Default())
}

func TestInstrumented(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine := capitest.NewEngine()
	s := capi.Instrument(engine, reg)
	assert.Same(t, engine, s.Unwrap())

	var ds capi.Handle
	require.Equal(t, 0, s.DatasetCreateFromMat([]float64{1, 2, 3, 4}, 2, 2, true, "", capi.NullHandle, &ds))
	require.Equal(t, 0, s.DatasetSetField(ds, "label", []float32{0, 1}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.LiveHandles.WithLabelValues(capi.KindDataset)))

	var b capi.Handle
	require.Equal(t, 0, s.BoosterCreate(ds, "objective=binary", &b))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.LiveHandles.WithLabelValues(capi.KindBooster)))

	assert.Equal(t, -1, s.BoosterAddValidData(b, capi.Handle(999)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Calls.WithLabelValues(capi.OpBoosterAddValidData, "error")))

	require.Equal(t, 0, s.BoosterFree(b))
	require.Equal(t, 0, s.DatasetFree(ds))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.LiveHandles.WithLabelValues(capi.KindDataset)))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.LiveHandles.WithLabelValues(capi.KindBooster)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Calls.WithLabelValues(capi.OpBoosterFree, "ok")))
	assert.Positive(t, testutil.CollectAndCount(s.Duration))
}
