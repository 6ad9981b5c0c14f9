package lightgbm

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

// frameToMatrix splits df into a row-major feature matrix and a label
// vector. Features keep the frame's column order. Null cells, non-numeric
// columns and a missing label column are errors.
func frameToMatrix(df dataframe.DataFrame, label string) (*mat.Dense, []float32, error) {
	const op = "frameToMatrix"

	if df.Err != nil {
		return nil, nil, errors.Wrap(df.Err, "dataframe")
	}
	names := df.Names()
	found := false
	for _, n := range names {
		if n == label {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, errors.NewConfigError("label", "column not found in frame", label)
	}

	rows, cols := df.Nrow(), len(names)-1
	if err := checkInt32(op, rows, cols); err != nil {
		return nil, nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, nil, errors.NewDimensionError(op, rows, cols, "frame has no rows or no feature columns")
	}

	y, err := numericColumn(df.Col(label))
	if err != nil {
		return nil, nil, err
	}
	labels := make([]float32, rows)
	for i, v := range y {
		labels[i] = float32(v)
	}

	x := mat.NewDense(rows, cols, nil)
	j := 0
	for _, n := range names {
		if n == label {
			continue
		}
		col, err := numericColumn(df.Col(n))
		if err != nil {
			return nil, nil, err
		}
		x.SetCol(j, col)
		j++
	}
	return x, labels, nil
}

// FrameFeatures converts every column of df into a row-major feature matrix
// for prediction. Columns are checked like the feature columns of FromFrame.
func FrameFeatures(df dataframe.DataFrame) (*mat.Dense, error) {
	const op = "FrameFeatures"

	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataframe")
	}
	rows, cols := df.Nrow(), df.Ncol()
	if err := checkInt32(op, rows, cols); err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, errors.NewDimensionError(op, rows, cols, "frame has no rows or no feature columns")
	}

	x := mat.NewDense(rows, cols, nil)
	for j, n := range df.Names() {
		col, err := numericColumn(df.Col(n))
		if err != nil {
			return nil, err
		}
		x.SetCol(j, col)
	}
	return x, nil
}

func numericColumn(s series.Series) ([]float64, error) {
	if s.Err != nil {
		return nil, errors.Wrap(s.Err, "dataframe column")
	}
	switch s.Type() {
	case series.Float, series.Int, series.Bool:
	default:
		return nil, errors.NewConfigError(s.Name, "column is not numeric", string(s.Type()))
	}
	for i, na := range s.IsNaN() {
		if na {
			return nil, errors.NewConfigError(s.Name, fmt.Sprintf("null value in row %d", i), nil)
		}
	}
	values := s.Float()
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, errors.NewConfigError(s.Name, fmt.Sprintf("null value in row %d", i), nil)
		}
	}
	return values, nil
}
