package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/golgbm/internal/runstore"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

const trainCSV = `a,b,y
0.1,1.0,0
0.2,0.9,0
0.3,1.1,0
0.4,0.8,0
2.1,0.1,1
2.2,0.3,1
2.4,0.2,1
2.3,0.0,1
`

const testCSV = `a,b,y
0.2,1.0,0
2.2,0.1,1
`

func writeRun(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{"train.csv": trainCSV, "test.csv": testCSV} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	conf := fmt.Sprintf(`
name: toy
train: {csv: %[1]s/train.csv, label: y}
valid:
  - {csv: %[1]s/test.csv, label: y}
predict: {csv: %[1]s/test.csv, label: y}
params:
  objective: binary
  num_iterations: 8
  learning_rate: 0.5
  metric: [auc, binary_logloss]
log_level: error
output:
  plot: %[1]s/curve.png
  history: %[1]s/runs.db
  predictions: %[1]s/pred.csv
  metrics: %[1]s/metrics.prom
%[2]s`, dir, extra)
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))
	return dir, path
}

func TestRunMemoryEngine(t *testing.T) {
	dir, path := writeRun(t, "")

	var out bytes.Buffer
	require.NoError(t, run(args{Config: path, Engine: "memory"}, &out))

	assert.Contains(t, out.String(), "toy: 8 iterations")
	assert.Contains(t, out.String(), "valid_1")
	assert.Contains(t, out.String(), "auc")

	pred, err := os.ReadFile(filepath.Join(dir, "pred.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(pred)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "prediction", lines[0])

	for _, name := range []string{"curve.png", "metrics.prom"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
	prom, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "lightgbm_native_calls_total")

	store, err := runstore.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "toy", runs[0].Name)
	assert.Equal(t, 8, runs[0].Iterations)
	assert.Empty(t, runs[0].Error)
	assert.Contains(t, runs[0].Scores, "train")
	assert.Contains(t, runs[0].Params, "objective=binary")
}

func TestRunRecordsFailure(t *testing.T) {
	dir, path := writeRun(t, "early_stopping: {rounds: 1, dataset: 1, metric: l1}\n")

	var out bytes.Buffer
	err := run(args{Config: path, Engine: "memory"}, &out)
	require.Error(t, err)

	var list bytes.Buffer
	require.NoError(t, listRuns(&list, filepath.Join(dir, "runs.db"), 5))
	assert.Contains(t, list.String(), "failed:")
}

func TestRunRejectsUnknownEngine(t *testing.T) {
	_, path := writeRun(t, "")
	err := run(args{Config: path, Engine: "gpu"}, &bytes.Buffer{})

	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "engine", cfgErr.ParamName)
}

func TestListRunsNeedsHistory(t *testing.T) {
	assert.Error(t, listRuns(&bytes.Buffer{}, "", 1))
}
