// Package capi is the fixed call surface of the native LightGBM engine.
//
// Surface mirrors the subset of LightGBM's c_api.h used by the bindings one
// function per method. Every method returns the engine's integer status and
// writes results through out-parameters, exactly as the C functions do;
// Check turns a status into an error. Nothing in this package owns handles:
// ownership lives in package lightgbm.
package capi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

// Handle is an opaque reference to a native dataset or booster. The zero
// value is the null handle.
type Handle uintptr

// NullHandle is passed where the C API accepts a NULL reference.
const NullHandle Handle = 0

// Element types understood by the C API (C_API_DTYPE_*).
const (
	DTypeFloat32 = 0
	DTypeFloat64 = 1
	DTypeInt32   = 2
	DTypeInt64   = 3
)

// Prediction types (C_API_PREDICT_*).
const (
	PredictNormal    = 0
	PredictRawScore  = 1
	PredictLeafIndex = 2
	PredictContrib   = 3
)

// Native entry point names, used in errors, logs and metric labels.
const (
	OpGetLastError          = "LGBM_GetLastError"
	OpDatasetCreateFromFile = "LGBM_DatasetCreateFromFile"
	OpDatasetCreateFromMat  = "LGBM_DatasetCreateFromMat"
	OpDatasetSetField       = "LGBM_DatasetSetField"
	OpDatasetFree           = "LGBM_DatasetFree"
	OpBoosterCreate         = "LGBM_BoosterCreate"
	OpBoosterAddValidData   = "LGBM_BoosterAddValidData"
	OpBoosterUpdateOneIter  = "LGBM_BoosterUpdateOneIter"
	OpBoosterPredictForMat  = "LGBM_BoosterPredictForMat"
	OpBoosterGetNumClasses  = "LGBM_BoosterGetNumClasses"
	OpBoosterGetNumFeature  = "LGBM_BoosterGetNumFeature"
	OpBoosterGetEvalCounts  = "LGBM_BoosterGetEvalCounts"
	OpBoosterGetEvalNames   = "LGBM_BoosterGetEvalNames"
	OpBoosterGetEval        = "LGBM_BoosterGetEval"
	OpBoosterFree           = "LGBM_BoosterFree"
)

// Surface is the fixed native call surface.
//
// Implementations are not required to be safe for concurrent use against the
// same handle; callers serialize access per handle.
type Surface interface {
	// GetLastError returns the diagnostic of the most recent failed call.
	GetLastError() string

	DatasetCreateFromFile(filename, parameters string, reference Handle, out *Handle) int
	// DatasetCreateFromMat reads nrow*ncol float64 values from data.
	DatasetCreateFromMat(data []float64, nrow, ncol int32, isRowMajor bool, parameters string, reference Handle, out *Handle) int
	// DatasetSetField passes len(data) float32 elements.
	DatasetSetField(handle Handle, field string, data []float32) int
	DatasetFree(handle Handle) int

	BoosterCreate(train Handle, parameters string, out *Handle) int
	BoosterAddValidData(booster, valid Handle) int
	// BoosterUpdateOneIter sets *isFinished to 1 when the engine cannot
	// improve the model any further.
	BoosterUpdateOneIter(booster Handle, isFinished *int32) int
	// BoosterPredictForMat writes *outLen values into outResult, which the
	// caller sizes in advance.
	BoosterPredictForMat(booster Handle, data []float64, nrow, ncol int32, isRowMajor bool,
		predictType, startIteration, numIteration int32, parameter string,
		outLen *int64, outResult []float64) int
	BoosterGetNumClasses(booster Handle, out *int32) int
	BoosterGetNumFeature(booster Handle, out *int32) int
	BoosterGetEvalCounts(booster Handle, out *int32) int
	// BoosterGetEvalNames fills up to length buffers of bufferLen bytes each
	// with NUL-terminated metric names. *outLen receives the number of names
	// and *outBufferLen the buffer size needed for the longest one, so a call
	// with length 0 is a size query.
	BoosterGetEvalNames(booster Handle, length int32, outLen *int32, bufferLen int, outBufferLen *int, outStrs [][]byte) int
	// BoosterGetEval writes one score per metric for dataset dataIdx
	// (0 = training data, i = i-th validation set).
	BoosterGetEval(booster Handle, dataIdx int32, outLen *int32, outResults []float64) int
	BoosterFree(booster Handle) int
}

var (
	defaultMu      sync.RWMutex
	defaultSurface Surface
)

// Default returns the process-wide surface: the native engine unless
// replaced with SetDefault.
func Default() Surface {
	defaultMu.RLock()
	s := defaultSurface
	defaultMu.RUnlock()
	if s != nil {
		return s
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSurface == nil {
		defaultSurface = Native()
	}
	return defaultSurface
}

// SetDefault replaces the process-wide surface and returns the previous one.
func SetDefault(s Surface) Surface {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultSurface
	defaultSurface = s
	return prev
}

// Check interprets a native status. 0 is success and -1 is a failure whose
// diagnostic is read with GetLastError. Any other value means the engine broke
// its contract, and Check panics with a *errors.ProtocolViolationError.
func Check(s Surface, op string, status int) error {
	switch status {
	case 0:
		return nil
	case -1:
		return errors.NewNativeError(op, s.GetLastError())
	default:
		panic(errors.NewProtocolViolation(op, fmt.Sprintf("unexpected return value '%d', expected 0 or -1", status)))
	}
}

// CheckString rejects strings that cannot cross the C boundary.
func CheckString(name, value string) error {
	if strings.IndexByte(value, 0) >= 0 {
		return errors.NewConfigError(name, "NUL byte found within string", value)
	}
	return nil
}
