package lightgbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// Predict returns the model's predictions for the rows of x.
//
// When the model has more than one output per row (multiclass), the result
// has one slice per row holding that row's outputs. Otherwise the result
// holds a single slice with one prediction per row.
func (m *Model) Predict(x [][]float64) ([][]float64, error) {
	return m.PredictWithParams(x, "")
}

// PredictWithParams is Predict with an extra LightGBM prediction parameter
// string, passed to the engine unchanged.
func (m *Model) PredictWithParams(x [][]float64, params string) ([][]float64, error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}
	dense, err := denseFromRows("Model.Predict", x)
	if err != nil {
		return nil, err
	}
	flat, k, err := m.predict(dense, params)
	if err != nil {
		return nil, err
	}
	rows := len(x)
	if k == 1 {
		return [][]float64{flat}, nil
	}
	out := make([][]float64, rows)
	for i := range out {
		out[i] = flat[i*k : (i+1)*k : (i+1)*k]
	}
	return out, nil
}

// PredictDense returns a rows×outputs matrix of predictions for x.
func (m *Model) PredictDense(x mat.Matrix) (*mat.Dense, error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, errors.NewDimensionError("Model.PredictDense", 0, 0, "nil matrix")
	}
	rows, cols := x.Dims()
	if err := checkInt32("Model.PredictDense", rows, cols); err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, errors.NewDimensionError("Model.PredictDense", rows, cols, "empty matrix")
	}
	flat, k, err := m.predict(x, "")
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, k, flat), nil
}

// predict runs the native prediction for a validated, non-empty matrix and
// returns the flat row-major output and the number of outputs per row.
func (m *Model) predict(x mat.Matrix, params string) ([]float64, int, error) {
	if err := capi.CheckString("predict params", params); err != nil {
		return nil, 0, err
	}
	rows, cols := x.Dims()

	features, err := m.NumFeature()
	if err != nil {
		return nil, 0, err
	}
	if cols != features {
		return nil, 0, errors.NewDimensionError("Model.Predict", rows, cols,
			fmt.Sprintf("model was trained on %d features", features))
	}
	k, err := m.NumClasses()
	if err != nil {
		return nil, 0, err
	}

	out := make([]float64, rows*k)
	var outLen int64
	status := m.surface.BoosterPredictForMat(m.handle, flattenDense(x), int32(rows), int32(cols), true,
		capi.PredictNormal, 0, -1, params, &outLen, out)
	if err := capi.Check(m.surface, capi.OpBoosterPredictForMat, status); err != nil {
		return nil, 0, err
	}
	if outLen != int64(rows*k) {
		return nil, 0, errors.NewProtocolViolation(capi.OpBoosterPredictForMat,
			fmt.Sprintf("engine wrote %d values, expected %d rows x %d outputs", outLen, rows, k))
	}

	m.logger.Debug("prediction done",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.SamplesKey, rows,
		log.OutputsKey, k,
	)
	return out, k, nil
}
