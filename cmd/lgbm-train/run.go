package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/capi/capitest"
	"github.com/YuminosukeSato/golgbm/internal/cfg"
	"github.com/YuminosukeSato/golgbm/internal/report"
	"github.com/YuminosukeSato/golgbm/internal/runstore"
	"github.com/YuminosukeSato/golgbm/lightgbm"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

func surfaceFor(engine string) (capi.Surface, error) {
	switch engine {
	case "", "native":
		return capi.Native(), nil
	case "memory":
		return capitest.NewEngine(), nil
	default:
		return nil, errors.NewConfigError("engine", "must be native or memory", engine)
	}
}

func run(a args, out io.Writer) (err error) {
	c, err := cfg.Load(a.Config)
	if err != nil {
		return err
	}
	if a.LogLevel != "" {
		c.LogLevel = a.LogLevel
	}
	if a.History != "" {
		c.Output.History = a.History
	}
	if err := log.Setup(c.LogLevel, os.Stderr); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("lgbm-train")

	surface, err := surfaceFor(a.Engine)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	instrumented := capi.Instrument(surface, reg)

	rec := runstore.NewRun(c.Name)
	if c.Output.History != "" {
		store, openErr := runstore.Open(c.Output.History)
		if openErr != nil {
			return openErr
		}
		defer func() {
			rec.Duration = time.Since(rec.StartedAt)
			if err != nil {
				rec.Error = err.Error()
			}
			err = errors.CombineErrors(err, store.Put(rec))
			err = errors.CombineErrors(err, store.Close())
			if err == nil {
				fmt.Fprintf(out, "run %s recorded in %s\n", rec.ID, c.Output.History)
			}
		}()
	}

	var history lightgbm.EvalHistory
	callbacks := []lightgbm.Callback{
		lightgbm.RecordEvaluation(&history),
		lightgbm.LogEvaluation(logger, c.LogPeriod),
	}
	if c.EarlyStopping.Rounds > 0 {
		callbacks = append(callbacks,
			lightgbm.EarlyStopping(c.EarlyStopping.Rounds, c.EarlyStopping.Dataset, c.EarlyStopping.Metric))
	}

	builder, err := newBuilder(c, instrumented, logger, callbacks)
	if err != nil {
		return err
	}
	rec.Params = builder.Params().String()

	model, err := builder.Fit()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, model.Close())
	}()

	rec.Iterations = model.Iterations()
	if rec.NumClasses, err = model.NumClasses(); err != nil {
		return err
	}
	if rec.Scores, err = finalScores(model); err != nil {
		return err
	}
	printScores(out, c.Name, model.Iterations(), model.NumValidSets(), rec.Scores)

	if c.Predict != nil {
		if err := writePredictions(model, *c.Predict, c.Output.Predictions, out); err != nil {
			return err
		}
	}
	if c.Output.Plot != "" {
		if err := report.SaveLearningCurve(c.Output.Plot, c.Name, history); err != nil {
			return err
		}
		logger.Info("learning curve saved", "path", c.Output.Plot)
	}
	if c.Output.Metrics != "" {
		if err := prometheus.WriteToTextfile(c.Output.Metrics, reg); err != nil {
			return errors.Wrap(err, "writing native call metrics")
		}
	}
	return nil
}

func newBuilder(c cfg.Config, s capi.Surface, logger log.Logger, callbacks []lightgbm.Callback) (lightgbm.ReadyBuilder, error) {
	train, err := c.Train.Dataset()
	if err != nil {
		return lightgbm.ReadyBuilder{}, err
	}
	b, err := lightgbm.NewBuilder(
		lightgbm.WithSurface(s),
		lightgbm.WithLogger(logger),
		lightgbm.WithCallbacks(callbacks...),
	).AddTrainData(train).AddParams(c.Params)
	if err != nil {
		return lightgbm.ReadyBuilder{}, err
	}
	for _, v := range c.Valid {
		d, err := v.Dataset()
		if err != nil {
			return lightgbm.ReadyBuilder{}, err
		}
		b = b.AddValData(d)
	}
	return b, nil
}

func finalScores(m *lightgbm.Model) (map[string]map[string]float64, error) {
	scores := make(map[string]map[string]float64)
	for idx := 0; idx <= m.NumValidSets(); idx++ {
		results, err := m.EvalResultForDataset(idx)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			continue
		}
		byMetric := make(map[string]float64, len(results))
		for _, r := range results {
			byMetric[r.MetricName] = r.Score
		}
		scores[report.DatasetLabel(idx)] = byMetric
	}
	return scores, nil
}

func printScores(out io.Writer, name string, iterations, validSets int, scores map[string]map[string]float64) {
	fmt.Fprintf(out, "%s: %d iterations\n", name, iterations)
	for idx := 0; idx <= validSets; idx++ {
		label := report.DatasetLabel(idx)
		byMetric := scores[label]
		metrics := make([]string, 0, len(byMetric))
		for metric := range byMetric {
			metrics = append(metrics, metric)
		}
		sort.Strings(metrics)
		for _, metric := range metrics {
			fmt.Fprintf(out, "  %-8s %-16s %.6f\n", label, metric, byMetric[metric])
		}
	}
}

// writePredictions writes one column per model output to path, or to out
// when path is empty.
func writePredictions(m *lightgbm.Model, src cfg.DataSource, path string, out io.Writer) error {
	x, err := src.Features()
	if err != nil {
		return err
	}
	preds, err := m.PredictDense(x)
	if err != nil {
		return err
	}

	_, k := preds.Dims()
	cols := make([]series.Series, k)
	for j := range cols {
		name := "prediction"
		if k > 1 {
			name = "class_" + strconv.Itoa(j)
		}
		cols[j] = series.New(mat.Col(nil, j, preds), series.Float, name)
	}
	df := dataframe.New(cols...)

	if path == "" {
		return df.WriteCSV(out)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func listRuns(out io.Writer, path string, limit int) error {
	if path == "" {
		return errors.NewConfigError("history", "no run history database given", nil)
	}
	store, err := runstore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(out, "%s  %s  %-16s %4d iter  %s\n",
			r.StartedAt.Format(time.RFC3339), r.ID, r.Name, r.Iterations, status)
	}
	return nil
}
