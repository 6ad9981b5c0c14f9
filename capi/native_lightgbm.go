//go:build lightgbm

package capi

/*
#cgo LDFLAGS: -l_lightgbm
#cgo CFLAGS: -I/usr/local/include

#include <stdlib.h>
#include <LightGBM/c_api.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// nativeSurface calls into lib_lightgbm. Raw C pointers stay in a registry
// keyed by Handle so that no pointer is ever rebuilt from an integer, and a
// handle that was already freed is rejected before it reaches C.
type nativeSurface struct {
	mu       sync.Mutex
	next     Handle
	ptrs     map[Handle]unsafe.Pointer
	localErr string
}

var (
	nativeOnce sync.Once
	nativeInst *nativeSurface
)

// Native returns the surface bound to lib_lightgbm.
func Native() Surface {
	nativeOnce.Do(func() {
		nativeInst = &nativeSurface{ptrs: make(map[Handle]unsafe.Pointer)}
	})
	return nativeInst
}

func (n *nativeSurface) register(p unsafe.Pointer) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	n.ptrs[n.next] = p
	return n.next
}

func (n *nativeSurface) lookup(h Handle) (unsafe.Pointer, bool) {
	if h == NullHandle {
		return nil, true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.ptrs[h]
	return p, ok
}

func (n *nativeSurface) forget(h Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.ptrs, h)
}

func (n *nativeSurface) fail(format string, args ...interface{}) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.localErr = fmt.Sprintf(format, args...)
	return -1
}

func (n *nativeSurface) live(h Handle) (unsafe.Pointer, int) {
	p, ok := n.lookup(h)
	if !ok || p == nil {
		return nil, n.fail("unknown or released handle %d", h)
	}
	return p, 0
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (n *nativeSurface) GetLastError() string {
	n.mu.Lock()
	if msg := n.localErr; msg != "" {
		n.localErr = ""
		n.mu.Unlock()
		return msg
	}
	n.mu.Unlock()
	return C.GoString(C.LGBM_GetLastError())
}

func (n *nativeSurface) DatasetCreateFromFile(filename, parameters string, reference Handle, out *Handle) int {
	ref, ok := n.lookup(reference)
	if !ok {
		return n.fail("unknown reference dataset handle %d", reference)
	}
	cFilename := C.CString(filename)
	defer C.free(unsafe.Pointer(cFilename))
	cParams := C.CString(parameters)
	defer C.free(unsafe.Pointer(cParams))

	var handle C.DatasetHandle
	ret := C.LGBM_DatasetCreateFromFile(cFilename, cParams, C.DatasetHandle(ref), &handle)
	if ret == 0 {
		*out = n.register(unsafe.Pointer(handle))
	}
	return int(ret)
}

func (n *nativeSurface) DatasetCreateFromMat(data []float64, nrow, ncol int32, isRowMajor bool, parameters string, reference Handle, out *Handle) int {
	if len(data) == 0 {
		return n.fail("empty data buffer")
	}
	ref, ok := n.lookup(reference)
	if !ok {
		return n.fail("unknown reference dataset handle %d", reference)
	}
	cParams := C.CString(parameters)
	defer C.free(unsafe.Pointer(cParams))

	var handle C.DatasetHandle
	ret := C.LGBM_DatasetCreateFromMat(
		unsafe.Pointer(&data[0]),
		C.C_API_DTYPE_FLOAT64,
		C.int32_t(nrow),
		C.int32_t(ncol),
		cBool(isRowMajor),
		cParams,
		C.DatasetHandle(ref),
		&handle,
	)
	if ret == 0 {
		*out = n.register(unsafe.Pointer(handle))
	}
	return int(ret)
}

func (n *nativeSurface) DatasetSetField(handle Handle, field string, data []float32) int {
	p, st := n.live(handle)
	if st != 0 {
		return st
	}
	if len(data) == 0 {
		return n.fail("empty field buffer for %q", field)
	}
	cField := C.CString(field)
	defer C.free(unsafe.Pointer(cField))

	return int(C.LGBM_DatasetSetField(
		C.DatasetHandle(p),
		cField,
		unsafe.Pointer(&data[0]),
		C.int(len(data)),
		C.C_API_DTYPE_FLOAT32,
	))
}

func (n *nativeSurface) DatasetFree(handle Handle) int {
	p, st := n.live(handle)
	if st != 0 {
		return st
	}
	ret := C.LGBM_DatasetFree(C.DatasetHandle(p))
	if ret == 0 {
		n.forget(handle)
	}
	return int(ret)
}

func (n *nativeSurface) BoosterCreate(train Handle, parameters string, out *Handle) int {
	p, st := n.live(train)
	if st != 0 {
		return st
	}
	cParams := C.CString(parameters)
	defer C.free(unsafe.Pointer(cParams))

	var handle C.BoosterHandle
	ret := C.LGBM_BoosterCreate(C.DatasetHandle(p), cParams, &handle)
	if ret == 0 {
		*out = n.register(unsafe.Pointer(handle))
	}
	return int(ret)
}

func (n *nativeSurface) BoosterAddValidData(booster, valid Handle) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	v, st := n.live(valid)
	if st != 0 {
		return st
	}
	return int(C.LGBM_BoosterAddValidData(C.BoosterHandle(b), C.DatasetHandle(v)))
}

func (n *nativeSurface) BoosterUpdateOneIter(booster Handle, isFinished *int32) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	var finished C.int
	ret := C.LGBM_BoosterUpdateOneIter(C.BoosterHandle(b), &finished)
	*isFinished = int32(finished)
	return int(ret)
}

func (n *nativeSurface) BoosterPredictForMat(booster Handle, data []float64, nrow, ncol int32, isRowMajor bool,
	predictType, startIteration, numIteration int32, parameter string,
	outLen *int64, outResult []float64) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	if len(data) == 0 || len(outResult) == 0 {
		return n.fail("empty prediction buffer")
	}
	cParam := C.CString(parameter)
	defer C.free(unsafe.Pointer(cParam))

	var cOutLen C.int64_t
	ret := C.LGBM_BoosterPredictForMat(
		C.BoosterHandle(b),
		unsafe.Pointer(&data[0]),
		C.C_API_DTYPE_FLOAT64,
		C.int32_t(nrow),
		C.int32_t(ncol),
		cBool(isRowMajor),
		C.int(predictType),
		C.int(startIteration),
		C.int(numIteration),
		cParam,
		&cOutLen,
		(*C.double)(unsafe.Pointer(&outResult[0])),
	)
	*outLen = int64(cOutLen)
	return int(ret)
}

func (n *nativeSurface) BoosterGetNumClasses(booster Handle, out *int32) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	var v C.int
	ret := C.LGBM_BoosterGetNumClasses(C.BoosterHandle(b), &v)
	*out = int32(v)
	return int(ret)
}

func (n *nativeSurface) BoosterGetNumFeature(booster Handle, out *int32) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	var v C.int
	ret := C.LGBM_BoosterGetNumFeature(C.BoosterHandle(b), &v)
	*out = int32(v)
	return int(ret)
}

func (n *nativeSurface) BoosterGetEvalCounts(booster Handle, out *int32) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	var v C.int
	ret := C.LGBM_BoosterGetEvalCounts(C.BoosterHandle(b), &v)
	*out = int32(v)
	return int(ret)
}

func (n *nativeSurface) BoosterGetEvalNames(booster Handle, length int32, outLen *int32, bufferLen int, outBufferLen *int, outStrs [][]byte) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}

	// The engine writes into C memory; Go buffers are filled afterwards.
	var arr **C.char
	var bufs []*C.char
	if length > 0 && bufferLen > 0 {
		arr = (**C.char)(C.malloc(C.size_t(length) * C.size_t(unsafe.Sizeof(uintptr(0)))))
		defer C.free(unsafe.Pointer(arr))
		bufs = unsafe.Slice(arr, int(length))
		for i := range bufs {
			bufs[i] = (*C.char)(C.calloc(C.size_t(bufferLen), 1))
			defer C.free(unsafe.Pointer(bufs[i]))
		}
	}

	var cOutLen C.int
	var cOutBufferLen C.size_t
	ret := C.LGBM_BoosterGetEvalNames(C.BoosterHandle(b), C.int(length), &cOutLen, C.size_t(bufferLen), &cOutBufferLen, arr)
	*outLen = int32(cOutLen)
	*outBufferLen = int(cOutBufferLen)
	if ret != 0 {
		return int(ret)
	}
	for i := 0; i < len(bufs) && i < len(outStrs); i++ {
		copy(outStrs[i], C.GoBytes(unsafe.Pointer(bufs[i]), C.int(bufferLen)))
	}
	return 0
}

func (n *nativeSurface) BoosterGetEval(booster Handle, dataIdx int32, outLen *int32, outResults []float64) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	var res *C.double
	if len(outResults) > 0 {
		res = (*C.double)(unsafe.Pointer(&outResults[0]))
	}
	var cOutLen C.int
	ret := C.LGBM_BoosterGetEval(C.BoosterHandle(b), C.int(dataIdx), &cOutLen, res)
	*outLen = int32(cOutLen)
	return int(ret)
}

func (n *nativeSurface) BoosterFree(booster Handle) int {
	b, st := n.live(booster)
	if st != 0 {
		return st
	}
	ret := C.LGBM_BoosterFree(C.BoosterHandle(b))
	if ret == 0 {
		n.forget(booster)
	}
	return int(ret)
}
