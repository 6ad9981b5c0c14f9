package lightgbm

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

// EvalResult is one metric score.
type EvalResult struct {
	MetricName string
	Score      float64
}

// EvalNames returns the names of the configured metrics in engine order.
func (m *Model) EvalNames() ([]string, error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}
	return m.evalNames()
}

// EvalResultForDataset returns the current metric scores for dataset index:
// 0 is the training data and 1..NumValidSets() the validation data in the
// order it was added.
func (m *Model) EvalResultForDataset(index int) ([]EvalResult, error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}
	if index < 0 || index > len(m.valid) {
		return nil, errors.NewRangeError("Model.EvalResultForDataset", index, len(m.valid))
	}

	names, err := m.evalNames()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []EvalResult{}, nil
	}

	scores := make([]float64, len(names))
	var outLen int32
	status := m.surface.BoosterGetEval(m.handle, int32(index), &outLen, scores)
	if err := capi.Check(m.surface, capi.OpBoosterGetEval, status); err != nil {
		return nil, err
	}
	if int(outLen) != len(names) {
		return nil, errors.NewNativeError(capi.OpBoosterGetEval,
			fmt.Sprintf("engine reported %d scores for %d metrics", outLen, len(names)))
	}

	results := make([]EvalResult, len(names))
	for i, name := range names {
		results[i] = EvalResult{MetricName: name, Score: scores[i]}
	}
	return results, nil
}

// evalNames queries the names in two calls: first the count and the buffer
// size, then the names themselves.
func (m *Model) evalNames() ([]string, error) {
	s := m.surface

	var n int32
	var need int
	if err := capi.Check(s, capi.OpBoosterGetEvalNames, s.BoosterGetEvalNames(m.handle, 0, &n, 0, &need, nil)); err != nil {
		return nil, err
	}
	var count int32
	if err := capi.Check(s, capi.OpBoosterGetEvalCounts, s.BoosterGetEvalCounts(m.handle, &count)); err != nil {
		return nil, err
	}
	if n != count {
		return nil, errors.NewProtocolViolation(capi.OpBoosterGetEvalNames,
			fmt.Sprintf("engine reported %d eval names but %d eval counts", n, count))
	}
	if n == 0 {
		return []string{}, nil
	}
	if need <= 0 {
		return nil, errors.NewProtocolViolation(capi.OpBoosterGetEvalNames,
			fmt.Sprintf("engine reported a name buffer size of %d", need))
	}

	bufs := make([][]byte, n)
	for i := range bufs {
		bufs[i] = make([]byte, need)
	}
	var filled int32
	var needAgain int
	if err := capi.Check(s, capi.OpBoosterGetEvalNames, s.BoosterGetEvalNames(m.handle, n, &filled, need, &needAgain, bufs)); err != nil {
		return nil, err
	}
	if filled != n {
		return nil, errors.NewProtocolViolation(capi.OpBoosterGetEvalNames,
			fmt.Sprintf("engine filled %d names after announcing %d", filled, n))
	}

	names := make([]string, n)
	for i, buf := range bufs {
		if j := bytes.IndexByte(buf, 0); j >= 0 {
			buf = buf[:j]
		}
		if !utf8.Valid(buf) {
			return nil, errors.NewEncodingError(capi.OpBoosterGetEvalNames, buf)
		}
		names[i] = string(buf)
	}
	return names, nil
}
