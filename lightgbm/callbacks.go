package lightgbm

import (
	"math"
	"time"

	"github.com/YuminosukeSato/golgbm/metrics"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// CallbackEnv is passed to callbacks after every completed iteration.
type CallbackEnv struct {
	Model     *Model
	Iteration int // zero based
	Budget    int
	Elapsed   time.Duration

	// StopTraining ends training after the current iteration when set.
	StopTraining bool
}

// Callback runs after every training iteration. A returned error aborts Fit.
type Callback func(env *CallbackEnv) error

// EvalHistory holds recorded scores by dataset index, then metric name.
type EvalHistory map[int]map[string][]float64

// RecordEvaluation appends the scores of every dataset to history after
// each iteration.
func RecordEvaluation(history *EvalHistory) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(EvalHistory)
		}
		for idx := 0; idx <= env.Model.NumValidSets(); idx++ {
			results, err := env.Model.EvalResultForDataset(idx)
			if err != nil {
				return err
			}
			if (*history)[idx] == nil {
				(*history)[idx] = make(map[string][]float64)
			}
			for _, r := range results {
				(*history)[idx][r.MetricName] = append((*history)[idx][r.MetricName], r.Score)
			}
		}
		return nil
	}
}

// LogEvaluation logs the scores of every dataset every period iterations.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if (env.Iteration+1)%period != 0 {
			return nil
		}
		for idx := 0; idx <= env.Model.NumValidSets(); idx++ {
			results, err := env.Model.EvalResultForDataset(idx)
			if err != nil {
				return err
			}
			for _, r := range results {
				logger.Info("evaluation",
					log.IterationKey, env.Iteration+1,
					log.DatasetIndexKey, idx,
					log.MetricKey, r.MetricName,
					log.ScoreKey, r.Score,
				)
			}
		}
		return nil
	}
}

// EarlyStopping stops training when metric on dataset index has not
// improved for rounds iterations. The direction comes from the metric: auc
// is maximized, everything else minimized. The tracked best score restarts
// with every Fit.
func EarlyStopping(rounds, index int, metric string) Callback {
	higher := metrics.HigherIsBetter(metric)
	var (
		best  float64
		stale int
	)
	return func(env *CallbackEnv) error {
		if env.Iteration == 0 {
			best, stale = math.Inf(1), 0
			if higher {
				best = math.Inf(-1)
			}
		}
		results, err := env.Model.EvalResultForDataset(index)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.MetricName != metric {
				continue
			}
			if (higher && r.Score > best) || (!higher && r.Score < best) {
				best = r.Score
				stale = 0
			} else {
				stale++
			}
			if stale >= rounds {
				env.StopTraining = true
			}
			return nil
		}
		return errors.NewConfigError("metric", "not reported for this dataset", metric)
	}
}

// TimeLimit stops training once it has run for longer than d.
func TimeLimit(d time.Duration) Callback {
	return func(env *CallbackEnv) error {
		if env.Elapsed > d {
			env.StopTraining = true
		}
		return nil
	}
}
