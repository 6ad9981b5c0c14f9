package lightgbm

import (
	"runtime"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// LoadedDataset owns a native dataset handle.
type LoadedDataset struct {
	surface capi.Surface
	handle  capi.Handle
	rows    int
	cols    int

	// reference keeps the binning reference reachable so that it is
	// finalized after this dataset.
	reference *LoadedDataset
}

func newLoadedDataset(s capi.Surface, h capi.Handle, rows, cols int) *LoadedDataset {
	ld := &LoadedDataset{surface: s, handle: h, rows: rows, cols: cols}
	runtime.SetFinalizer(ld, (*LoadedDataset).finalize)
	return ld
}

// Valid reports whether the dataset still owns a live handle.
func (ld *LoadedDataset) Valid() bool {
	return ld != nil && ld.handle != capi.NullHandle
}

// NumData returns the number of rows, or 0 when the dataset was read from a
// file by the engine.
func (ld *LoadedDataset) NumData() int { return ld.rows }

// NumFeature returns the number of feature columns, or 0 when the dataset was
// read from a file by the engine.
func (ld *LoadedDataset) NumFeature() int { return ld.cols }

// Close frees the native dataset. Calling Close more than once is a no-op.
// A dataset used as reference by another open dataset, or attached to an
// open Model, must not be closed first.
func (ld *LoadedDataset) Close() error {
	if !ld.Valid() {
		return nil
	}
	h := ld.handle
	ld.handle = capi.NullHandle
	ld.reference = nil
	runtime.SetFinalizer(ld, nil)
	return capi.Check(ld.surface, capi.OpDatasetFree, ld.surface.DatasetFree(h))
}

func (ld *LoadedDataset) finalize() {
	if err := ld.Close(); err != nil {
		log.GetLoggerWithName("lightgbm.dataset").Error("releasing leaked dataset failed", err,
			log.HandleKindKey, capi.KindDataset,
		)
	}
}
