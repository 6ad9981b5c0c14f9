package capi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handle kinds used as the "kind" label of the live handle gauge.
const (
	KindDataset = "dataset"
	KindBooster = "booster"
)

// Instrumented wraps a Surface and records Prometheus metrics for every
// native call. It is a Surface itself and can be passed wherever one is
// expected.
type Instrumented struct {
	inner Surface

	Calls       *prometheus.CounterVec   // native calls by op and outcome
	Duration    *prometheus.HistogramVec // native call latency by op
	LiveHandles *prometheus.GaugeVec     // handles created and not yet freed, by kind
}

// Instrument wraps s and registers its metrics with reg. A nil reg uses the
// default Prometheus registerer.
func Instrument(s Surface, reg prometheus.Registerer) *Instrumented {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Instrumented{
		inner: s,
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lightgbm_native_calls_total",
			Help: "Total number of native LightGBM calls by operation and outcome",
		}, []string{"op", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lightgbm_native_call_duration_seconds",
			Help:    "Latency of native LightGBM calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		LiveHandles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lightgbm_live_handles",
			Help: "Number of native handles created and not yet freed",
		}, []string{"kind"}),
	}
}

// Unwrap returns the wrapped surface.
func (m *Instrumented) Unwrap() Surface { return m.inner }

func (m *Instrumented) observe(op string, start time.Time, status int) int {
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	switch status {
	case 0:
	case -1:
		outcome = "error"
	default:
		outcome = "protocol_violation"
	}
	m.Calls.WithLabelValues(op, outcome).Inc()
	return status
}

func (m *Instrumented) created(kind string, status int) {
	if status == 0 {
		m.LiveHandles.WithLabelValues(kind).Inc()
	}
}

func (m *Instrumented) freed(kind string, status int) {
	if status == 0 {
		m.LiveHandles.WithLabelValues(kind).Dec()
	}
}

func (m *Instrumented) GetLastError() string {
	return m.inner.GetLastError()
}

func (m *Instrumented) DatasetCreateFromFile(filename, parameters string, reference Handle, out *Handle) int {
	start := time.Now()
	st := m.inner.DatasetCreateFromFile(filename, parameters, reference, out)
	m.created(KindDataset, st)
	return m.observe(OpDatasetCreateFromFile, start, st)
}

func (m *Instrumented) DatasetCreateFromMat(data []float64, nrow, ncol int32, isRowMajor bool, parameters string, reference Handle, out *Handle) int {
	start := time.Now()
	st := m.inner.DatasetCreateFromMat(data, nrow, ncol, isRowMajor, parameters, reference, out)
	m.created(KindDataset, st)
	return m.observe(OpDatasetCreateFromMat, start, st)
}

func (m *Instrumented) DatasetSetField(handle Handle, field string, data []float32) int {
	start := time.Now()
	return m.observe(OpDatasetSetField, start, m.inner.DatasetSetField(handle, field, data))
}

func (m *Instrumented) DatasetFree(handle Handle) int {
	start := time.Now()
	st := m.inner.DatasetFree(handle)
	m.freed(KindDataset, st)
	return m.observe(OpDatasetFree, start, st)
}

func (m *Instrumented) BoosterCreate(train Handle, parameters string, out *Handle) int {
	start := time.Now()
	st := m.inner.BoosterCreate(train, parameters, out)
	m.created(KindBooster, st)
	return m.observe(OpBoosterCreate, start, st)
}

func (m *Instrumented) BoosterAddValidData(booster, valid Handle) int {
	start := time.Now()
	return m.observe(OpBoosterAddValidData, start, m.inner.BoosterAddValidData(booster, valid))
}

func (m *Instrumented) BoosterUpdateOneIter(booster Handle, isFinished *int32) int {
	start := time.Now()
	return m.observe(OpBoosterUpdateOneIter, start, m.inner.BoosterUpdateOneIter(booster, isFinished))
}

func (m *Instrumented) BoosterPredictForMat(booster Handle, data []float64, nrow, ncol int32, isRowMajor bool,
	predictType, startIteration, numIteration int32, parameter string,
	outLen *int64, outResult []float64) int {
	start := time.Now()
	st := m.inner.BoosterPredictForMat(booster, data, nrow, ncol, isRowMajor,
		predictType, startIteration, numIteration, parameter, outLen, outResult)
	return m.observe(OpBoosterPredictForMat, start, st)
}

func (m *Instrumented) BoosterGetNumClasses(booster Handle, out *int32) int {
	start := time.Now()
	return m.observe(OpBoosterGetNumClasses, start, m.inner.BoosterGetNumClasses(booster, out))
}

func (m *Instrumented) BoosterGetNumFeature(booster Handle, out *int32) int {
	start := time.Now()
	return m.observe(OpBoosterGetNumFeature, start, m.inner.BoosterGetNumFeature(booster, out))
}

func (m *Instrumented) BoosterGetEvalCounts(booster Handle, out *int32) int {
	start := time.Now()
	return m.observe(OpBoosterGetEvalCounts, start, m.inner.BoosterGetEvalCounts(booster, out))
}

func (m *Instrumented) BoosterGetEvalNames(booster Handle, length int32, outLen *int32, bufferLen int, outBufferLen *int, outStrs [][]byte) int {
	start := time.Now()
	st := m.inner.BoosterGetEvalNames(booster, length, outLen, bufferLen, outBufferLen, outStrs)
	return m.observe(OpBoosterGetEvalNames, start, st)
}

func (m *Instrumented) BoosterGetEval(booster Handle, dataIdx int32, outLen *int32, outResults []float64) int {
	start := time.Now()
	return m.observe(OpBoosterGetEval, start, m.inner.BoosterGetEval(booster, dataIdx, outLen, outResults))
}

func (m *Instrumented) BoosterFree(booster Handle) int {
	start := time.Now()
	st := m.inner.BoosterFree(booster)
	m.freed(KindBooster, st)
	return m.observe(OpBoosterFree, start, st)
}

var _ Surface = (*Instrumented)(nil)
