// Package cfg loads the run configuration of the lgbm-train command from a
// YAML file, with overrides from the environment and an optional .env file.
package cfg

import (
	"os"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/joho/godotenv"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/golgbm/lightgbm"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

// Environment variables that override the file.
const (
	EnvConfig    = "LGBM_CONFIG"
	EnvLogLevel  = "LGBM_LOG_LEVEL"
	EnvHistoryDB = "LGBM_HISTORY_DB"
	EnvPlot      = "LGBM_PLOT"
	EnvMetrics   = "LGBM_METRICS"
)

// DataSource names a dataset either as a file read by the engine itself or
// as a CSV file with a header row and a label column.
type DataSource struct {
	File  string `yaml:"file"`
	CSV   string `yaml:"csv"`
	Label string `yaml:"label"`
}

// EarlyStopping configures the early stopping callback. Rounds of zero
// disables it.
type EarlyStopping struct {
	Rounds  int    `yaml:"rounds"`
	Dataset int    `yaml:"dataset"`
	Metric  string `yaml:"metric"`
}

// Output lists optional artifacts of a run.
type Output struct {
	Plot        string `yaml:"plot"`
	History     string `yaml:"history"`
	Predictions string `yaml:"predictions"`
	// Metrics dumps the native call counters in Prometheus text format.
	Metrics string `yaml:"metrics"`
}

// Config is one training run.
type Config struct {
	Name          string         `yaml:"name"`
	Train         DataSource     `yaml:"train"`
	Valid         []DataSource   `yaml:"valid"`
	Predict       *DataSource    `yaml:"predict"`
	Params        map[string]any `yaml:"params"`
	LogPeriod     int            `yaml:"log_period"`
	EarlyStopping EarlyStopping  `yaml:"early_stopping"`
	Output        Output         `yaml:"output"`
	LogLevel      string         `yaml:"log_level"`
}

// Load reads the configuration at path. A .env file in the working directory
// is loaded first if present; environment variables win over the file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "loading .env")
	}
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return Config{}, errors.NewConfigError("config", "no configuration file given", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config file %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration and applies environment
// overrides.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "parsing config file")
	}

	c.LogLevel = getEnvOrDefault(EnvLogLevel, c.LogLevel)
	c.Output.History = getEnvOrDefault(EnvHistoryDB, c.Output.History)
	c.Output.Plot = getEnvOrDefault(EnvPlot, c.Output.Plot)
	c.Output.Metrics = getEnvOrDefault(EnvMetrics, c.Output.Metrics)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPeriod == 0 {
		c.LogPeriod = 10
	}

	return c, c.Validate()
}

// Validate checks that every data source is usable and parameters are set.
func (c Config) Validate() error {
	if err := c.Train.validate("train"); err != nil {
		return err
	}
	for i, v := range c.Valid {
		if err := v.validate("valid[" + strconv.Itoa(i) + "]"); err != nil {
			return err
		}
	}
	if c.Predict != nil {
		if c.Predict.CSV == "" {
			return errors.NewConfigError("predict.csv", "prediction input must be a CSV file", nil)
		}
	}
	if len(c.Params) == 0 {
		return errors.NewConfigError("params", "training parameters are required", nil)
	}
	if c.LogPeriod < 0 {
		return errors.NewConfigError("log_period", "must not be negative", c.LogPeriod)
	}
	if c.EarlyStopping.Rounds < 0 {
		return errors.NewConfigError("early_stopping.rounds", "must not be negative", c.EarlyStopping.Rounds)
	}
	if c.EarlyStopping.Rounds > 0 && c.EarlyStopping.Metric == "" {
		return errors.NewConfigError("early_stopping.metric", "required when early stopping is enabled", nil)
	}
	return nil
}

func (d DataSource) validate(name string) error {
	switch {
	case d.File != "" && d.CSV != "":
		return errors.NewConfigError(name, "set either file or csv, not both", nil)
	case d.File == "" && d.CSV == "":
		return errors.NewConfigError(name, "either file or csv is required", nil)
	case d.CSV != "" && d.Label == "":
		return errors.NewConfigError(name+".label", "label column is required for csv data", nil)
	}
	return nil
}

// Dataset describes d for the bindings. CSV files are read into a frame here;
// files given as "file" are read by the engine during Fit.
func (d DataSource) Dataset() (*lightgbm.Dataset, error) {
	if d.File != "" {
		return lightgbm.FromFile(d.File), nil
	}
	df, err := ReadFrame(d.CSV)
	if err != nil {
		return nil, err
	}
	return lightgbm.FromFrame(df, d.Label), nil
}

// Features reads d as a prediction input matrix. The label column, when
// named and present, is dropped.
func (d DataSource) Features() (*mat.Dense, error) {
	df, err := ReadFrame(d.CSV)
	if err != nil {
		return nil, err
	}
	if d.Label != "" {
		for _, n := range df.Names() {
			if n == d.Label {
				df = df.Drop(d.Label)
				break
			}
		}
	}
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dropping label column")
	}
	return lightgbm.FrameFeatures(df)
}

// ReadFrame reads a CSV file with a header row.
func ReadFrame(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true))
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "reading %s", path)
	}
	return df, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
