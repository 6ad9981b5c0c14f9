package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

const sample = `
name: churn
train:
  csv: train.csv
  label: y
valid:
  - file: valid.tsv
predict:
  csv: test.csv
  label: y
params:
  objective: binary
  num_iterations: 20
  learning_rate: 0.05
  metric: [auc, binary_logloss]
early_stopping:
  rounds: 3
  dataset: 1
  metric: auc
output:
  plot: curve.png
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "churn", c.Name)
	assert.Equal(t, DataSource{CSV: "train.csv", Label: "y"}, c.Train)
	require.Len(t, c.Valid, 1)
	assert.Equal(t, "valid.tsv", c.Valid[0].File)
	assert.Equal(t, 20, c.Params["num_iterations"])
	assert.Equal(t, 0.05, c.Params["learning_rate"])
	assert.Equal(t, []any{"auc", "binary_logloss"}, c.Params["metric"])
	assert.Equal(t, EarlyStopping{Rounds: 3, Dataset: 1, Metric: "auc"}, c.EarlyStopping)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 10, c.LogPeriod)
	assert.Equal(t, "curve.png", c.Output.Plot)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvPlot, "other.png")
	t.Setenv(EnvHistoryDB, "runs.db")

	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "other.png", c.Output.Plot)
	assert.Equal(t, "runs.db", c.Output.History)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		param string
	}{
		{"no train", "params: {num_iterations: 1}", "train"},
		{"both sources", "train: {file: a, csv: b, label: y}\nparams: {num_iterations: 1}", "train"},
		{"csv without label", "train: {csv: a.csv}\nparams: {num_iterations: 1}", "train.label"},
		{"bad valid", "train: {file: a}\nvalid: [{}]\nparams: {num_iterations: 1}", "valid[0]"},
		{"predict file", "train: {file: a}\npredict: {file: b}\nparams: {num_iterations: 1}", "predict.csv"},
		{"no params", "train: {file: a}", "params"},
		{"negative period", "train: {file: a}\nparams: {num_iterations: 1}\nlog_period: -1", "log_period"},
		{"early stopping without metric", "train: {file: a}\nparams: {num_iterations: 1}\nearly_stopping: {rounds: 2}", "early_stopping.metric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *errors.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.param, cfgErr.ParamName)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv(EnvConfig, path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "churn", c.Name)
}

func TestLoadMissing(t *testing.T) {
	t.Setenv(EnvConfig, "")
	_, err := Load("")
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDataSourceDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,y\n1,2,0\n3,4,1\n"), 0o600))

	d, err := DataSource{CSV: path, Label: "y"}.Dataset()
	require.NoError(t, err)
	assert.Equal(t, "frame", d.Source())

	d, err = DataSource{File: path}.Dataset()
	require.NoError(t, err)
	assert.Equal(t, "file", d.Source())

	_, err = DataSource{CSV: filepath.Join(dir, "missing.csv"), Label: "y"}.Dataset()
	assert.Error(t, err)
}

func TestDataSourceFeaturesDropsLabel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,y\n1,2,0\n3,4.5,1\n"), 0o600))

	x, err := DataSource{CSV: path, Label: "y"}.Features()
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 3, 4.5}), x))

	x, err = DataSource{CSV: path, Label: "label"}.Features()
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 3, []float64{1, 2, 0, 3, 4.5, 1}), x))
}

func TestDataSourceFeaturesRejectsBadCells(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		param string
	}{
		{"text column", "a,b,y\n1,x,0\n3,z,1\n", "b"},
		{"empty cell", "a,b,y\n1,,0\n3,4,1\n", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := DataSource{CSV: path, Label: "y"}.Features()
			require.Error(t, err)
			var cfgErr *errors.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.param, cfgErr.ParamName)
		})
	}
}
