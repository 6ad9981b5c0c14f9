package lightgbm

import (
	"runtime"
	"time"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// Model owns a trained native booster together with the training dataset
// (evaluation index 0) and the validation datasets (indices 1..N) it was
// trained with.
type Model struct {
	surface capi.Surface
	logger  log.Logger

	handle     capi.Handle
	train      *LoadedDataset
	valid      []*LoadedDataset
	iterations int
	closed     bool
}

func newModel(s capi.Surface, logger log.Logger) *Model {
	m := &Model{surface: s, logger: logger}
	runtime.SetFinalizer(m, (*Model).finalize)
	return m
}

// fit runs the five steps of training. The model is assembled as the steps
// succeed so that Close can undo exactly what was done.
func fit(s capi.Surface, logger log.Logger, st *builderState) (*Model, error) {
	start := time.Now()
	m := newModel(s, logger)
	fail := func(err error) (*Model, error) {
		logger.Error("fit failed", err, log.OperationKey, log.OperationFit)
		return nil, errors.CombineErrors(err, m.Close())
	}
	// A protocol violation panics out of capi.Check; release what exists
	// before it propagates.
	defer func() {
		if r := recover(); r != nil {
			_ = m.Close()
			panic(r)
		}
	}()

	train, err := st.train.Load(s, nil)
	if err != nil {
		return fail(errors.Wrap(err, "loading training data"))
	}
	m.train = train

	params := st.params.String()
	if err := capi.CheckString("params", params); err != nil {
		return fail(err)
	}
	var h capi.Handle
	if err := capi.Check(s, capi.OpBoosterCreate, s.BoosterCreate(train.handle, params, &h)); err != nil {
		return fail(err)
	}
	m.handle = h

	for i, d := range st.valid {
		v, err := d.Load(s, train)
		if err != nil {
			return fail(errors.Wrapf(err, "loading validation data %d", i+1))
		}
		m.valid = append(m.valid, v)
		if err := capi.Check(s, capi.OpBoosterAddValidData, s.BoosterAddValidData(h, v.handle)); err != nil {
			return fail(err)
		}
	}

	logger.Info("training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, train.rows,
		log.FeaturesKey, train.cols,
		log.ValidSetsKey, len(m.valid),
		log.BudgetKey, st.params.NumIterations(),
	)
	if err := m.boost(st.params.NumIterations(), st.callbacks); err != nil {
		return fail(err)
	}
	logger.Info("training finished",
		log.OperationKey, log.OperationFit,
		log.IterationKey, m.iterations,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m, nil
}

// Iterations returns the number of completed boosting iterations.
func (m *Model) Iterations() int { return m.iterations }

// NumValidSets returns the number of validation datasets.
func (m *Model) NumValidSets() int { return len(m.valid) }

// NumClasses returns the number of outputs per row reported by the engine.
func (m *Model) NumClasses() (int, error) {
	if err := m.ensureOpen(); err != nil {
		return 0, err
	}
	var k int32
	if err := capi.Check(m.surface, capi.OpBoosterGetNumClasses, m.surface.BoosterGetNumClasses(m.handle, &k)); err != nil {
		return 0, err
	}
	if k < 1 {
		return 0, errors.NewProtocolViolation(capi.OpBoosterGetNumClasses, "engine reported a non-positive class count")
	}
	return int(k), nil
}

// NumFeature returns the number of features the model was trained on.
func (m *Model) NumFeature() (int, error) {
	if err := m.ensureOpen(); err != nil {
		return 0, err
	}
	var n int32
	if err := capi.Check(m.surface, capi.OpBoosterGetNumFeature, m.surface.BoosterGetNumFeature(m.handle, &n)); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.NewProtocolViolation(capi.OpBoosterGetNumFeature, "engine reported a negative feature count")
	}
	return int(n), nil
}

func (m *Model) ensureOpen() error {
	if m == nil || m.closed {
		return errors.WithStack(errors.ErrClosed)
	}
	return nil
}

// Close frees the booster, then the validation datasets in reverse order,
// then the training dataset. Calling Close more than once is a no-op.
func (m *Model) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true
	runtime.SetFinalizer(m, nil)

	var err error
	if m.handle != capi.NullHandle {
		h := m.handle
		m.handle = capi.NullHandle
		err = capi.Check(m.surface, capi.OpBoosterFree, m.surface.BoosterFree(h))
	}
	for i := len(m.valid) - 1; i >= 0; i-- {
		err = errors.CombineErrors(err, m.valid[i].Close())
	}
	if m.train != nil {
		err = errors.CombineErrors(err, m.train.Close())
	}
	if err != nil && m.logger != nil {
		m.logger.Error("releasing model failed", err, log.OperationKey, log.OperationClose)
	}
	return err
}

func (m *Model) finalize() {
	_ = m.Close()
}
