package lightgbm

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

type sourceKind int

const (
	sourceFile sourceKind = iota
	sourceMatrix
	sourceDense
	sourceFrame
)

func (k sourceKind) String() string {
	switch k {
	case sourceFile:
		return "file"
	case sourceMatrix:
		return "matrix"
	case sourceDense:
		return "dense"
	case sourceFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Dataset describes training or validation data that has not been handed to
// the native engine yet. It is immutable; Load materializes it.
type Dataset struct {
	kind sourceKind

	path string

	rows   [][]float64
	dense  mat.Matrix
	labels []float32

	frame    dataframe.DataFrame
	labelCol string

	// params is passed to the dataset constructors of the engine. Reserved;
	// always empty for now.
	params string
}

// FromFile describes a dataset stored in a file the native engine can read
// (CSV, TSV or LibSVM, label in the first column).
func FromFile(path string) *Dataset {
	return &Dataset{kind: sourceFile, path: path}
}

// FromMatrix describes a dataset given as rows of features and one label per
// row. The slices are retained, not copied; callers must not modify them
// afterwards.
func FromMatrix(x [][]float64, labels []float32) *Dataset {
	return &Dataset{kind: sourceMatrix, rows: x, labels: labels}
}

// FromDense describes a dataset held in a gonum matrix. The matrix is
// retained, not copied.
func FromDense(x mat.Matrix, labels []float32) *Dataset {
	return &Dataset{kind: sourceDense, dense: x, labels: labels}
}

// FromFrame describes a dataset held in a gota DataFrame. The column named
// label holds the labels and every other column is a feature, in frame order.
func FromFrame(df dataframe.DataFrame, label string) *Dataset {
	return &Dataset{kind: sourceFrame, frame: df, labelCol: label}
}

// Source returns "file", "matrix", "dense" or "frame".
func (d *Dataset) Source() string { return d.kind.String() }

// clone returns a deep copy of d.
func (d *Dataset) clone() *Dataset {
	if d == nil {
		return nil
	}
	c := *d
	if d.rows != nil {
		c.rows = make([][]float64, len(d.rows))
		for i, r := range d.rows {
			c.rows[i] = append([]float64(nil), r...)
		}
	}
	if d.dense != nil {
		c.dense = mat.DenseCopyOf(d.dense)
	}
	if d.labels != nil {
		c.labels = append([]float32(nil), d.labels...)
	}
	if d.kind == sourceFrame {
		c.frame = d.frame.Copy()
	}
	return &c
}

// Load hands the dataset to the native engine through s. When reference is
// not nil the new dataset reuses its feature binning; reference must stay
// open for as long as the returned dataset is in use.
func (d *Dataset) Load(s capi.Surface, reference *LoadedDataset) (*LoadedDataset, error) {
	if d == nil {
		return nil, errors.NewConfigError("dataset", "nil dataset", nil)
	}
	if s == nil {
		s = capi.Default()
	}
	ref := capi.NullHandle
	if reference != nil {
		if !reference.Valid() {
			return nil, errors.Wrap(errors.ErrClosed, "reference dataset")
		}
		ref = reference.handle
	}
	if err := capi.CheckString("dataset params", d.params); err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("lightgbm.dataset")

	var (
		ld  *LoadedDataset
		err error
	)
	switch d.kind {
	case sourceFile:
		ld, err = d.loadFile(s, ref)
	case sourceMatrix:
		var x *mat.Dense
		x, err = denseFromRows("Dataset.Load", d.rows)
		if err == nil {
			ld, err = loadMatrix(s, x, d.labels, d.params, ref)
		}
	case sourceDense:
		if d.dense == nil {
			return nil, errors.NewDimensionError("Dataset.Load", 0, 0, "nil matrix")
		}
		ld, err = loadMatrix(s, d.dense, d.labels, d.params, ref)
	case sourceFrame:
		var x *mat.Dense
		var labels []float32
		x, labels, err = frameToMatrix(d.frame, d.labelCol)
		if err == nil {
			ld, err = loadMatrix(s, x, labels, d.params, ref)
		}
	default:
		err = errors.NewConfigError("dataset", "unknown source form", int(d.kind))
	}
	if err != nil {
		logger.Error("dataset load failed", err,
			log.OperationKey, log.OperationLoad,
			log.DataFormKey, d.kind.String(),
		)
		return nil, err
	}

	ld.reference = reference
	logger.Debug("dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.DataFormKey, d.kind.String(),
		log.SamplesKey, ld.rows,
		log.FeaturesKey, ld.cols,
	)
	return ld, nil
}

func (d *Dataset) loadFile(s capi.Surface, ref capi.Handle) (*LoadedDataset, error) {
	if d.path == "" {
		return nil, errors.NewConfigError("filename", "empty dataset path", nil)
	}
	if err := capi.CheckString("filename", d.path); err != nil {
		return nil, err
	}
	var h capi.Handle
	if err := capi.Check(s, capi.OpDatasetCreateFromFile, s.DatasetCreateFromFile(d.path, d.params, ref, &h)); err != nil {
		return nil, errors.Wrapf(err, "loading %s", d.path)
	}
	return newLoadedDataset(s, h, 0, 0), nil
}

// checkInt32 rejects shapes the C API cannot express.
func checkInt32(op string, rows, cols int) error {
	if rows > math.MaxInt32 || cols > math.MaxInt32 {
		return errors.NewDimensionError(op, rows, cols,
			fmt.Sprintf("received dataset of size %dx%d, but at most %dx%d is supported",
				rows, cols, math.MaxInt32, math.MaxInt32))
	}
	return nil
}

// loadMatrix creates a dataset from x and attaches labels. If attaching the
// labels fails the freshly created handle is freed again.
func loadMatrix(s capi.Surface, x mat.Matrix, labels []float32, params string, ref capi.Handle) (*LoadedDataset, error) {
	const op = "Dataset.Load"

	rows, cols := x.Dims()
	if err := checkInt32(op, rows, cols); err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, errors.NewDimensionError(op, rows, cols, "empty matrix")
	}
	if len(labels) != rows {
		return nil, errors.NewDimensionError(op, rows, cols,
			fmt.Sprintf("got %d labels for %d rows", len(labels), rows))
	}

	data := flattenDense(x)
	var h capi.Handle
	status := s.DatasetCreateFromMat(data, int32(rows), int32(cols), true, params, ref, &h)
	if err := capi.Check(s, capi.OpDatasetCreateFromMat, status); err != nil {
		return nil, err
	}

	if err := capi.Check(s, capi.OpDatasetSetField, s.DatasetSetField(h, "label", labels)); err != nil {
		if freeErr := capi.Check(s, capi.OpDatasetFree, s.DatasetFree(h)); freeErr != nil {
			err = errors.CombineErrors(err, freeErr)
		}
		return nil, err
	}
	return newLoadedDataset(s, h, rows, cols), nil
}

// denseFromRows validates that x is non-empty and rectangular and copies it
// into a row-major matrix.
func denseFromRows(op string, x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, errors.NewDimensionError(op, 0, 0, "empty matrix")
	}
	cols := len(x[0])
	if err := checkInt32(op, len(x), cols); err != nil {
		return nil, err
	}
	if cols == 0 {
		return nil, errors.NewDimensionError(op, len(x), 0, "empty rows")
	}
	data := make([]float64, 0, len(x)*cols)
	for i, row := range x {
		if len(row) != cols {
			return nil, errors.NewDimensionError(op, len(x), cols,
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), cols))
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(x), cols, data), nil
}

// flattenDense returns x in row-major order. A *mat.Dense without padding is
// returned without copying.
func flattenDense(x mat.Matrix) []float64 {
	rows, cols := x.Dims()
	if d, ok := x.(*mat.Dense); ok {
		raw := d.RawMatrix()
		if raw.Stride == cols {
			return raw.Data[:rows*cols]
		}
	}
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, x.At(i, j))
		}
	}
	return data
}
