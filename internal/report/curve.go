// Package report renders training artifacts of the lgbm-train command.
package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/golgbm/lightgbm"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

// CurveSize is the edge length of the saved image.
const CurveSize = 6 * vg.Inch

// LearningCurve builds one line per (dataset, metric) pair of history, with
// the iteration on the x axis. Dataset 0 is labelled "train", validation set
// i is labelled "valid_i".
func LearningCurve(title string, history lightgbm.EvalHistory) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.NewConfigError("history", "no evaluation results recorded", nil)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "score"
	p.Legend.Top = true

	n := 0
	for _, idx := range sortedKeys(history) {
		byMetric := history[idx]
		names := make([]string, 0, len(byMetric))
		for name := range byMetric {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			scores := byMetric[name]
			pts := make(plotter.XYs, len(scores))
			for i, s := range scores {
				pts[i] = plotter.XY{X: float64(i + 1), Y: s}
			}
			l, err := plotter.NewLine(pts)
			if err != nil {
				return nil, errors.Wrapf(err, "plotting %s", name)
			}
			l.Color = plotutil.Color(n)
			l.Dashes = plotutil.Dashes(idx)
			l.Width = vg.Points(1.5)
			p.Add(l)
			p.Legend.Add(fmt.Sprintf("%s %s", DatasetLabel(idx), name), l)
			n++
		}
	}
	if n == 0 {
		return nil, errors.NewConfigError("history", "no evaluation results recorded", nil)
	}
	return p, nil
}

// SaveLearningCurve writes the learning curve to path. The image format
// follows the file extension.
func SaveLearningCurve(path, title string, history lightgbm.EvalHistory) error {
	p, err := LearningCurve(title, history)
	if err != nil {
		return err
	}
	if err := p.Save(CurveSize, CurveSize*2/3, path); err != nil {
		return errors.Wrapf(err, "saving learning curve to %s", path)
	}
	return nil
}

// DatasetLabel names evaluation dataset idx.
func DatasetLabel(idx int) string {
	if idx == 0 {
		return "train"
	}
	return fmt.Sprintf("valid_%d", idx)
}

func sortedKeys(h lightgbm.EvalHistory) []int {
	keys := make([]int, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
