//go:build !lightgbm

package capi

// unavailableMessage is reported by every call when the binary was built
// without the native engine.
const unavailableMessage = "native LightGBM engine is not linked into this binary; rebuild with -tags lightgbm"

// unavailable fails every call with status -1.
type unavailable struct{}

// Native returns a surface that fails every call, because this build does not
// link lib_lightgbm.
func Native() Surface { return unavailable{} }

func (unavailable) GetLastError() string { return unavailableMessage }

func (unavailable) DatasetCreateFromFile(string, string, Handle, *Handle) int { return -1 }

func (unavailable) DatasetCreateFromMat([]float64, int32, int32, bool, string, Handle, *Handle) int {
	return -1
}

func (unavailable) DatasetSetField(Handle, string, []float32) int { return -1 }

func (unavailable) DatasetFree(Handle) int { return -1 }

func (unavailable) BoosterCreate(Handle, string, *Handle) int { return -1 }

func (unavailable) BoosterAddValidData(Handle, Handle) int { return -1 }

func (unavailable) BoosterUpdateOneIter(Handle, *int32) int { return -1 }

func (unavailable) BoosterPredictForMat(Handle, []float64, int32, int32, bool, int32, int32, int32, string, *int64, []float64) int {
	return -1
}

func (unavailable) BoosterGetNumClasses(Handle, *int32) int { return -1 }

func (unavailable) BoosterGetNumFeature(Handle, *int32) int { return -1 }

func (unavailable) BoosterGetEvalCounts(Handle, *int32) int { return -1 }

func (unavailable) BoosterGetEvalNames(Handle, int32, *int32, int, *int, [][]byte) int { return -1 }

func (unavailable) BoosterGetEval(Handle, int32, *int32, []float64) int { return -1 }

func (unavailable) BoosterFree(Handle) int { return -1 }
