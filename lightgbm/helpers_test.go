package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YuminosukeSato/golgbm/capi/capitest"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

func trainRows() [][]float64 {
	return [][]float64{
		{0.1, 1.0, 0.0, 2.0},
		{0.2, 0.9, 0.1, 1.5},
		{0.3, 1.1, 0.2, 1.0},
		{0.9, 0.1, 0.8, 0.2},
		{1.0, 0.0, 0.9, 0.1},
	}
}

func trainLabels() []float32 { return []float32{0, 0, 0, 1, 1} }

func binaryParams() map[string]any {
	return map[string]any{"num_iterations": 5, "objective": "binary", "metric": "auc"}
}

// newEngine returns an engine and a builder wired to it. The test fails if
// any handle is still alive or any misuse was detected when it ends.
func newEngine(t *testing.T) (*capitest.Engine, Builder) {
	t.Helper()
	engine := capitest.NewEngine()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	t.Cleanup(func() {
		assert.Zero(t, engine.LiveHandles(), "live native handles at end of test")
		assert.Empty(t, engine.Violations())
	})
	return engine, NewBuilder(WithSurface(engine), WithLogger(logger))
}
