package lightgbm

import (
	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// The builder is split into four types, one per combination of
// {training data set, parameters set}. Each type only has the methods that
// are legal in its state, and only ReadyBuilder can Fit.
//
//	Builder ──AddTrainData──> BuilderWithData ──AddParams──> ReadyBuilder
//	   └──────AddParams────> BuilderWithParams ─AddTrainData─┘
//
// All transitions return a new value; the receiver is left unchanged.

type builderState struct {
	surface   capi.Surface
	logger    log.Logger
	callbacks []Callback

	train  *Dataset
	valid  []*Dataset
	params *Params
}

// copy returns a shallow copy whose slices can be appended to independently.
func (s *builderState) copy() *builderState {
	if s == nil {
		return &builderState{}
	}
	c := *s
	c.valid = append([]*Dataset(nil), s.valid...)
	c.callbacks = append([]Callback(nil), s.callbacks...)
	return &c
}

// deepCopy also copies every pending dataset and the parameters.
func (s *builderState) deepCopy() *builderState {
	c := s.copy()
	c.train = c.train.clone()
	for i, v := range c.valid {
		c.valid[i] = v.clone()
	}
	c.params = c.params.clone()
	return c
}

func (s *builderState) withParams(m map[string]any) (*builderState, error) {
	p, err := ParseParams(m)
	if err != nil {
		return nil, err
	}
	c := s.copy()
	c.params = p
	return c, nil
}

func (s *builderState) withTrain(d *Dataset) *builderState {
	c := s.copy()
	c.train = d
	return c
}

func (s *builderState) withValid(d *Dataset) *builderState {
	c := s.copy()
	c.valid = append(c.valid, d)
	return c
}

// Builder has neither training data nor parameters.
type Builder struct{ s *builderState }

// BuilderWithData has training data but no parameters.
type BuilderWithData struct{ s *builderState }

// BuilderWithParams has parameters but no training data.
type BuilderWithParams struct{ s *builderState }

// ReadyBuilder has training data and parameters and can Fit.
type ReadyBuilder struct{ s *builderState }

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) Builder {
	s := &builderState{}
	for _, opt := range opts {
		opt(s)
	}
	return Builder{s: s}
}

// AddTrainData sets the training dataset.
func (b Builder) AddTrainData(d *Dataset) BuilderWithData {
	return BuilderWithData{s: b.s.withTrain(d)}
}

// AddParams validates and sets the training parameters.
func (b Builder) AddParams(m map[string]any) (BuilderWithParams, error) {
	s, err := b.s.withParams(m)
	if err != nil {
		return BuilderWithParams{}, err
	}
	return BuilderWithParams{s: s}, nil
}

// Duplicate returns an independent deep copy.
func (b Builder) Duplicate() Builder { return Builder{s: b.s.deepCopy()} }

// AddParams validates and sets the training parameters.
func (b BuilderWithData) AddParams(m map[string]any) (ReadyBuilder, error) {
	s, err := b.s.withParams(m)
	if err != nil {
		return ReadyBuilder{}, err
	}
	return ReadyBuilder{s: s}, nil
}

// AddValData appends a validation dataset. Validation datasets get
// evaluation indices 1, 2, ... in the order they are added.
func (b BuilderWithData) AddValData(d *Dataset) BuilderWithData {
	return BuilderWithData{s: b.s.withValid(d)}
}

// Duplicate returns an independent deep copy.
func (b BuilderWithData) Duplicate() BuilderWithData { return BuilderWithData{s: b.s.deepCopy()} }

// AddTrainData sets the training dataset.
func (b BuilderWithParams) AddTrainData(d *Dataset) ReadyBuilder {
	return ReadyBuilder{s: b.s.withTrain(d)}
}

// Duplicate returns an independent deep copy.
func (b BuilderWithParams) Duplicate() BuilderWithParams { return BuilderWithParams{s: b.s.deepCopy()} }

// AddValData appends a validation dataset.
func (b ReadyBuilder) AddValData(d *Dataset) ReadyBuilder {
	return ReadyBuilder{s: b.s.withValid(d)}
}

// Duplicate returns an independent deep copy.
func (b ReadyBuilder) Duplicate() ReadyBuilder { return ReadyBuilder{s: b.s.deepCopy()} }

// Params returns the parameters that Fit will use.
func (b ReadyBuilder) Params() *Params {
	if b.s == nil {
		return nil
	}
	return b.s.params
}

// Fit loads the datasets, creates the booster and trains it for the
// configured number of iterations or until the engine reports that it cannot
// improve any further. On failure every native object created so far is
// freed before the error is returned.
func (b ReadyBuilder) Fit() (*Model, error) {
	s := b.s
	if s == nil || s.train == nil || s.params == nil {
		return nil, errors.NewConfigError("builder", "training data and parameters are required", nil)
	}
	surface := s.surface
	if surface == nil {
		surface = capi.Default()
	}
	logger := s.logger
	if logger == nil {
		logger = log.GetLoggerWithName("lightgbm")
	}
	return fit(surface, logger, s)
}

// FitPredict fits a model and predicts x with it. If prediction fails the
// model is closed and only the error is returned.
func (b ReadyBuilder) FitPredict(x [][]float64) (*Model, [][]float64, error) {
	m, err := b.Fit()
	if err != nil {
		return nil, nil, err
	}
	preds, err := m.Predict(x)
	if err != nil {
		return nil, nil, errors.CombineErrors(err, m.Close())
	}
	return m, preds, nil
}
