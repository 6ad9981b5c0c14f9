// Package capitest provides an in-memory engine implementing capi.Surface.
//
// Engine keeps strict handle accounting so tests can assert that every
// handle created was freed exactly once and in a legal order. Training fits a
// plain linear model by gradient descent; it exists so that the control loop,
// prediction and evaluation paths produce meaningful numbers, not to mimic
// gradient boosting.
package capitest

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/metrics"
)

const (
	kindDataset = "dataset"
	kindBooster = "booster"

	// convergedStep stops training once no weight moves further than this.
	convergedStep = 1e-10
)

type dataset struct {
	x         *mat.Dense
	label     []float64
	weight    []float64
	reference capi.Handle
	params    string
}

type booster struct {
	train      capi.Handle
	valid      []capi.Handle
	params     string
	objective  string
	numClass   int
	lr         float64
	metrics    []string
	w          *mat.Dense // numClass × (features+1); the last column is the bias
	iterations int
}

// Handle aliases capi.Handle.
type Handle = capi.Handle

// Engine is an in-memory capi.Surface. The zero value is not usable; call
// NewEngine.
type Engine struct {
	mu sync.Mutex

	next     capi.Handle
	datasets map[capi.Handle]*dataset
	boosters map[capi.Handle]*booster
	released map[capi.Handle]string

	lastErr    string
	calls      []string
	violations []string

	failures map[string]string
	statuses map[string]int

	evalNameSkew   int
	evalScoreSkew  int
	predictLenSkew int
	corruptNames   bool
	finishAfter    int
}

// NewEngine returns an empty engine.
func NewEngine() *Engine {
	return &Engine{
		datasets: make(map[capi.Handle]*dataset),
		boosters: make(map[capi.Handle]*booster),
		released: make(map[capi.Handle]string),
		failures: make(map[string]string),
		statuses: make(map[string]int),
	}
}

// FailOn makes every later call to op fail with status -1 and message msg.
func (e *Engine) FailOn(op, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[op] = msg
}

// SetStatus makes every later call to op return status without doing
// anything. Statuses other than 0 and -1 simulate a broken engine.
func (e *Engine) SetStatus(op string, status int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses[op] = status
}

// ClearFailures removes every FailOn and SetStatus override.
func (e *Engine) ClearFailures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = make(map[string]string)
	e.statuses = make(map[string]int)
}

// SkewEvalNames adds delta to the name count reported by BoosterGetEvalNames.
func (e *Engine) SkewEvalNames(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evalNameSkew = delta
}

// SkewEvalScores adds delta to the score count reported by BoosterGetEval.
func (e *Engine) SkewEvalScores(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evalScoreSkew = delta
}

// SkewPredictLen adds delta to the output length reported by
// BoosterPredictForMat.
func (e *Engine) SkewPredictLen(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.predictLenSkew = delta
}

// CorruptEvalNames makes BoosterGetEvalNames write bytes that are not UTF-8.
func (e *Engine) CorruptEvalNames() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.corruptNames = true
}

// FinishAfter makes BoosterUpdateOneIter report isFinished once a booster
// has trained n iterations. Zero disables it.
func (e *Engine) FinishAfter(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishAfter = n
}

// LiveHandles returns the number of handles created and not yet freed.
func (e *Engine) LiveHandles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.datasets) + len(e.boosters)
}

// LiveDatasets returns the number of live dataset handles.
func (e *Engine) LiveDatasets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.datasets)
}

// LiveBoosters returns the number of live booster handles.
func (e *Engine) LiveBoosters() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.boosters)
}

// Violations returns every misuse detected so far: double frees, use after
// free, and frees that leave a dependent handle dangling.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}

// Calls returns the names of all calls made, in order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// CallCount returns how many times op was called.
func (e *Engine) CallCount(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Reference returns the reference dataset recorded for dataset h.
func (e *Engine) Reference(h capi.Handle) capi.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.datasets[h]; ok {
		return d.reference
	}
	return capi.NullHandle
}

// BoosterValidSets returns the validation datasets attached to booster h.
func (e *Engine) BoosterValidSets(h capi.Handle) []capi.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.boosters[h]; ok {
		return append([]capi.Handle(nil), b.valid...)
	}
	return nil
}

// BoosterParameters returns the parameter string booster h was created with.
func (e *Engine) BoosterParameters(h capi.Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.boosters[h]; ok {
		return b.params
	}
	return ""
}

// Boosters returns the live booster handles.
func (e *Engine) Boosters() []capi.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]capi.Handle, 0, len(e.boosters))
	for h := range e.boosters {
		out = append(out, h)
	}
	return out
}

// begin records a call and applies any injected status. It reports whether
// the call should proceed. e.mu must be held.
func (e *Engine) begin(op string) (int, bool) {
	e.calls = append(e.calls, op)
	if st, ok := e.statuses[op]; ok {
		return st, false
	}
	if msg, ok := e.failures[op]; ok {
		e.lastErr = msg
		return -1, false
	}
	return 0, true
}

func (e *Engine) fail(format string, args ...interface{}) int {
	e.lastErr = fmt.Sprintf(format, args...)
	return -1
}

func (e *Engine) violate(format string, args ...interface{}) int {
	msg := fmt.Sprintf(format, args...)
	e.violations = append(e.violations, msg)
	e.lastErr = msg
	return -1
}

func (e *Engine) dataset(op string, h capi.Handle) (*dataset, int) {
	if d, ok := e.datasets[h]; ok {
		return d, 0
	}
	if kind, ok := e.released[h]; ok {
		return nil, e.violate("%s: use of released %s handle %d", op, kind, h)
	}
	return nil, e.fail("%s: unknown dataset handle %d", op, h)
}

func (e *Engine) booster(op string, h capi.Handle) (*booster, int) {
	if b, ok := e.boosters[h]; ok {
		return b, 0
	}
	if kind, ok := e.released[h]; ok {
		return nil, e.violate("%s: use of released %s handle %d", op, kind, h)
	}
	return nil, e.fail("%s: unknown booster handle %d", op, h)
}

func (e *Engine) register(d *dataset) capi.Handle {
	e.next++
	e.datasets[e.next] = d
	return e.next
}

func (e *Engine) GetLastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, capi.OpGetLastError)
	return e.lastErr
}

func (e *Engine) checkReference(op string, reference Handle, ncol int) int {
	if reference == capi.NullHandle {
		return 0
	}
	ref, st := e.dataset(op, reference)
	if st != 0 {
		return st
	}
	if ncol >= 0 {
		if _, refCols := ref.x.Dims(); refCols != ncol {
			return e.fail("%s: number of features (%d) does not match reference dataset (%d)", op, ncol, refCols)
		}
	}
	return 0
}

func (e *Engine) DatasetCreateFromFile(filename, parameters string, reference Handle, out *Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpDatasetCreateFromFile); !ok {
		return st
	}
	params, err := parseParams(parameters)
	if err != nil {
		return e.fail("%v", err)
	}
	x, label, err := readTextFile(filename, params["header"] == "true")
	if err != nil {
		return e.fail("%v", err)
	}
	_, ncol := x.Dims()
	if st := e.checkReference(capi.OpDatasetCreateFromFile, reference, ncol); st != 0 {
		return st
	}
	*out = e.register(&dataset{x: x, label: label, reference: reference, params: parameters})
	return 0
}

func (e *Engine) DatasetCreateFromMat(data []float64, nrow, ncol int32, isRowMajor bool, parameters string, reference Handle, out *Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpDatasetCreateFromMat); !ok {
		return st
	}
	if nrow <= 0 || ncol <= 0 {
		return e.fail("Check failed: nrow > 0 && ncol > 0 (got %dx%d)", nrow, ncol)
	}
	if len(data) < int(nrow)*int(ncol) {
		return e.fail("data buffer holds %d values, need %d", len(data), int(nrow)*int(ncol))
	}
	if _, err := parseParams(parameters); err != nil {
		return e.fail("%v", err)
	}
	if st := e.checkReference(capi.OpDatasetCreateFromMat, reference, int(ncol)); st != 0 {
		return st
	}
	*out = e.register(&dataset{
		x:         toDense(data, int(nrow), int(ncol), isRowMajor),
		reference: reference,
		params:    parameters,
	})
	return 0
}

func (e *Engine) DatasetSetField(handle Handle, field string, data []float32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpDatasetSetField); !ok {
		return st
	}
	d, st := e.dataset(capi.OpDatasetSetField, handle)
	if st != 0 {
		return st
	}
	nrow, _ := d.x.Dims()
	if len(data) != nrow {
		return e.fail("Length of %s (%d) is not same with #data (%d)", field, len(data), nrow)
	}
	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	switch field {
	case "label":
		d.label = values
	case "weight":
		d.weight = values
	default:
		return e.fail("Unknown float field: %s", field)
	}
	return 0
}

func (e *Engine) DatasetFree(handle Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpDatasetFree); !ok {
		return st
	}
	if _, ok := e.datasets[handle]; !ok {
		if _, freed := e.released[handle]; freed {
			return e.violate("%s: double free of dataset handle %d", capi.OpDatasetFree, handle)
		}
		return e.fail("%s: unknown dataset handle %d", capi.OpDatasetFree, handle)
	}
	for bh, b := range e.boosters {
		if b.train == handle {
			e.violate("%s: dataset %d freed while booster %d still trains on it", capi.OpDatasetFree, handle, bh)
		}
		for _, v := range b.valid {
			if v == handle {
				e.violate("%s: dataset %d freed while booster %d still validates on it", capi.OpDatasetFree, handle, bh)
			}
		}
	}
	for dh, d := range e.datasets {
		if d.reference == handle && dh != handle {
			e.violate("%s: dataset %d freed while dataset %d still references it", capi.OpDatasetFree, handle, dh)
		}
	}
	delete(e.datasets, handle)
	e.released[handle] = kindDataset
	return 0
}

func (e *Engine) BoosterCreate(train Handle, parameters string, out *Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterCreate); !ok {
		return st
	}
	d, st := e.dataset(capi.OpBoosterCreate, train)
	if st != 0 {
		return st
	}
	if d.label == nil {
		return e.fail("label should be set for the training dataset")
	}
	params, err := parseParams(parameters)
	if err != nil {
		return e.fail("%v", err)
	}
	b, err := newBooster(params)
	if err != nil {
		return e.fail("%v", err)
	}
	if err := b.checkLabels(d.label); err != nil {
		return e.fail("%v", err)
	}
	_, ncol := d.x.Dims()
	b.train = train
	b.params = parameters
	b.w = mat.NewDense(b.numClass, ncol+1, nil)

	e.next++
	e.boosters[e.next] = b
	*out = e.next
	return 0
}

func (e *Engine) BoosterAddValidData(booster, valid Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterAddValidData); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterAddValidData, booster)
	if st != 0 {
		return st
	}
	v, st := e.dataset(capi.OpBoosterAddValidData, valid)
	if st != 0 {
		return st
	}
	if v.label == nil {
		return e.fail("label should be set for validation data")
	}
	t, st := e.dataset(capi.OpBoosterAddValidData, b.train)
	if st != 0 {
		return st
	}
	_, trainCols := t.x.Dims()
	if _, cols := v.x.Dims(); cols != trainCols {
		return e.fail("validation data has %d features, training data has %d", cols, trainCols)
	}
	if err := b.checkLabels(v.label); err != nil {
		return e.fail("%v", err)
	}
	b.valid = append(b.valid, valid)
	return 0
}

func (e *Engine) BoosterUpdateOneIter(booster Handle, isFinished *int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterUpdateOneIter); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterUpdateOneIter, booster)
	if st != 0 {
		return st
	}
	*isFinished = 0
	if e.finishAfter > 0 && b.iterations >= e.finishAfter {
		*isFinished = 1
		return 0
	}
	d, st := e.dataset(capi.OpBoosterUpdateOneIter, b.train)
	if st != 0 {
		return st
	}
	if step := b.step(d); step < convergedStep {
		*isFinished = 1
		return 0
	}
	b.iterations++
	return 0
}

func (e *Engine) BoosterPredictForMat(booster Handle, data []float64, nrow, ncol int32, isRowMajor bool,
	predictType, startIteration, numIteration int32, parameter string,
	outLen *int64, outResult []float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterPredictForMat); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterPredictForMat, booster)
	if st != 0 {
		return st
	}
	if nrow <= 0 || ncol <= 0 || len(data) < int(nrow)*int(ncol) {
		return e.fail("invalid prediction input of size %dx%d", nrow, ncol)
	}
	if _, err := parseParams(parameter); err != nil {
		return e.fail("%v", err)
	}
	if features := b.numFeature(); int(ncol) != features {
		return e.fail("The number of features in data (%d) is not the same as it was in training data (%d)", ncol, features)
	}
	var scores *mat.Dense
	switch predictType {
	case capi.PredictNormal:
		scores = b.predict(toDense(data, int(nrow), int(ncol), isRowMajor))
	case capi.PredictRawScore:
		scores = b.raw(toDense(data, int(nrow), int(ncol), isRowMajor))
	default:
		return e.fail("predict type %d is not supported", predictType)
	}
	n := int(nrow) * b.numClass
	if len(outResult) < n {
		return e.fail("output buffer holds %d values, need %d", len(outResult), n)
	}
	copy(outResult, scores.RawMatrix().Data)
	*outLen = int64(n + e.predictLenSkew)
	return 0
}

func (e *Engine) BoosterGetNumClasses(booster Handle, out *int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterGetNumClasses); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterGetNumClasses, booster)
	if st != 0 {
		return st
	}
	*out = int32(b.numClass)
	return 0
}

func (e *Engine) BoosterGetNumFeature(booster Handle, out *int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterGetNumFeature); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterGetNumFeature, booster)
	if st != 0 {
		return st
	}
	*out = int32(b.numFeature())
	return 0
}

func (e *Engine) BoosterGetEvalCounts(booster Handle, out *int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterGetEvalCounts); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterGetEvalCounts, booster)
	if st != 0 {
		return st
	}
	*out = int32(len(b.metrics))
	return 0
}

func (e *Engine) BoosterGetEvalNames(booster Handle, length int32, outLen *int32, bufferLen int, outBufferLen *int, outStrs [][]byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterGetEvalNames); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterGetEvalNames, booster)
	if st != 0 {
		return st
	}
	*outLen = int32(len(b.metrics) + e.evalNameSkew)
	need := 0
	for _, m := range b.metrics {
		if len(m)+1 > need {
			need = len(m) + 1
		}
	}
	*outBufferLen = need
	for i, m := range b.metrics {
		if i >= int(length) || i >= len(outStrs) {
			break
		}
		buf := outStrs[i]
		if len(buf) > bufferLen {
			buf = buf[:bufferLen]
		}
		if len(buf) == 0 {
			continue
		}
		n := copy(buf[:len(buf)-1], m)
		buf[n] = 0
		if e.corruptNames && n > 0 {
			buf[0] = 0xff
		}
	}
	return 0
}

func (e *Engine) BoosterGetEval(booster Handle, dataIdx int32, outLen *int32, outResults []float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterGetEval); !ok {
		return st
	}
	b, st := e.booster(capi.OpBoosterGetEval, booster)
	if st != 0 {
		return st
	}
	if dataIdx < 0 || int(dataIdx) > len(b.valid) {
		return e.fail("Check failed: data_idx <= valid_data_.size() (%d vs %d)", dataIdx, len(b.valid))
	}
	h := b.train
	if dataIdx > 0 {
		h = b.valid[dataIdx-1]
	}
	d, st := e.dataset(capi.OpBoosterGetEval, h)
	if st != 0 {
		return st
	}
	if len(outResults) < len(b.metrics) {
		return e.fail("output buffer holds %d values, need %d", len(outResults), len(b.metrics))
	}
	pred := b.predict(d.x)
	labels := mat.NewVecDense(len(d.label), append([]float64(nil), d.label...))
	for i, name := range b.metrics {
		fn, _ := metrics.ByName(name)
		score, err := fn(labels, pred)
		if err != nil {
			return e.fail("metric %s: %v", name, err)
		}
		outResults[i] = score
	}
	*outLen = int32(len(b.metrics) + e.evalScoreSkew)
	return 0
}

func (e *Engine) BoosterFree(booster Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.begin(capi.OpBoosterFree); !ok {
		return st
	}
	if _, ok := e.boosters[booster]; !ok {
		if _, freed := e.released[booster]; freed {
			return e.violate("%s: double free of booster handle %d", capi.OpBoosterFree, booster)
		}
		return e.fail("%s: unknown booster handle %d", capi.OpBoosterFree, booster)
	}
	delete(e.boosters, booster)
	e.released[booster] = kindBooster
	return 0
}

var _ capi.Surface = (*Engine)(nil)

// parseParams splits a LightGBM parameter string into key/value pairs.
// Quotes around values are removed.
func parseParams(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, tok := range strings.Fields(s) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed parameter token %q", tok)
		}
		out[k] = strings.Trim(v, `"`)
	}
	return out, nil
}

func toDense(data []float64, nrow, ncol int, isRowMajor bool) *mat.Dense {
	buf := append([]float64(nil), data[:nrow*ncol]...)
	if isRowMajor {
		return mat.NewDense(nrow, ncol, buf)
	}
	col := mat.NewDense(ncol, nrow, buf)
	return mat.DenseCopyOf(col.T())
}

// readTextFile reads a delimited text file whose first column is the label.
func readTextFile(path string, header bool) (*mat.Dense, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("Could not open %s", path)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(header),
		dataframe.WithDelimiter(detectDelimiter(path)),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
	)
	if df.Err != nil {
		return nil, nil, fmt.Errorf("could not parse %s: %v", path, df.Err)
	}
	nrow, ncol := df.Dims()
	if nrow == 0 || ncol < 2 {
		return nil, nil, fmt.Errorf("data file %s doesn't contain any data", path)
	}

	x := mat.NewDense(nrow, ncol-1, nil)
	label := make([]float64, nrow)
	for j, name := range df.Names() {
		col := df.Col(name).Float()
		for i, v := range col {
			if math.IsNaN(v) {
				return nil, nil, fmt.Errorf("%s: non-numeric value at row %d column %d", path, i, j)
			}
			if j == 0 {
				label[i] = v
			} else {
				x.Set(i, j-1, v)
			}
		}
	}
	return x, label, nil
}

func detectDelimiter(path string) rune {
	b, err := os.ReadFile(path)
	if err != nil {
		return ','
	}
	line, _, _ := strings.Cut(string(b), "\n")
	switch {
	case strings.Contains(line, "\t"):
		return '\t'
	case strings.Contains(line, ","):
		return ','
	default:
		return ' '
	}
}

func newBooster(params map[string]string) (*booster, error) {
	b := &booster{numClass: 1, lr: 0.1}

	objective := "regression"
	for _, k := range []string{"objective", "objective_type", "app", "application", "loss"} {
		if v, ok := params[k]; ok {
			objective = v
		}
	}
	switch objective {
	case "binary":
		b.objective = "binary"
	case "regression", "regression_l2", "l2", "mean_squared_error", "mse", "l2_root", "root_mean_squared_error", "rmse":
		b.objective = "regression"
	case "multiclass", "softmax":
		b.objective = "multiclass"
		raw, ok := params["num_class"]
		if !ok {
			raw, ok = params["num_classes"]
		}
		if !ok {
			return nil, fmt.Errorf("Number of classes should be specified and greater than 1 for multiclass training")
		}
		k, err := strconv.Atoi(raw)
		if err != nil || k <= 1 {
			return nil, fmt.Errorf("Number of classes should be specified and greater than 1 for multiclass training")
		}
		b.numClass = k
	default:
		return nil, fmt.Errorf("Unknown objective type name: %s", objective)
	}

	for _, k := range []string{"learning_rate", "shrinkage_rate", "eta"} {
		if v, ok := params[k]; ok {
			lr, err := strconv.ParseFloat(v, 64)
			if err != nil || lr <= 0 {
				return nil, fmt.Errorf("learning_rate should be greater than zero, got %s", v)
			}
			b.lr = lr
		}
	}

	var spec string
	var explicit bool
	for _, k := range []string{"metric", "metrics", "metric_types"} {
		if v, ok := params[k]; ok {
			spec, explicit = v, true
		}
	}
	if !explicit {
		spec = map[string]string{"binary": "binary_logloss", "regression": "l2", "multiclass": "multi_logloss"}[b.objective]
	}
	for _, name := range strings.Split(spec, ",") {
		switch strings.ToLower(name) {
		case "", "none", "null", "na", "custom":
			continue
		}
		c, ok := metrics.Canonical(name)
		if !ok {
			return nil, fmt.Errorf("Unknown metric type name: %s", name)
		}
		if !b.accepts(c) {
			return nil, fmt.Errorf("metric %s cannot be used with objective %s", c, b.objective)
		}
		b.metrics = append(b.metrics, c)
	}
	return b, nil
}

func (b *booster) accepts(metric string) bool {
	switch metric {
	case "multi_logloss", "multi_error":
		return b.objective == "multiclass"
	case "auc", "binary_logloss", "binary_error":
		return b.objective == "binary"
	default:
		return b.objective == "regression"
	}
}

func (b *booster) checkLabels(label []float64) error {
	for _, y := range label {
		switch b.objective {
		case "binary":
			if y != 0 && y != 1 {
				return fmt.Errorf("label must be 0 or 1 for binary classification, found %g", y)
			}
		case "multiclass":
			if y != math.Trunc(y) || y < 0 || int(y) >= b.numClass {
				return fmt.Errorf("label must be in [0, %d) for multiclass classification, found %g", b.numClass, y)
			}
		}
	}
	return nil
}

func (b *booster) numFeature() int {
	_, c := b.w.Dims()
	return c - 1
}

// raw returns the n×numClass raw scores for x.
func (b *booster) raw(x *mat.Dense) *mat.Dense {
	n, f := x.Dims()
	w := b.w.Slice(0, b.numClass, 0, f)
	var s mat.Dense
	s.Mul(x, w.T())
	for i := 0; i < n; i++ {
		for k := 0; k < b.numClass; k++ {
			s.Set(i, k, s.At(i, k)+b.w.At(k, f))
		}
	}
	return &s
}

// predict applies the objective's output transform to the raw scores.
func (b *booster) predict(x *mat.Dense) *mat.Dense {
	s := b.raw(x)
	n, _ := s.Dims()
	switch b.objective {
	case "binary":
		s.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, s)
	case "multiclass":
		for i := 0; i < n; i++ {
			row := s.RawRowView(i)
			maxV := row[0]
			for _, v := range row {
				maxV = math.Max(maxV, v)
			}
			var sum float64
			for k, v := range row {
				row[k] = math.Exp(v - maxV)
				sum += row[k]
			}
			for k := range row {
				row[k] /= sum
			}
		}
	}
	return s
}

// step performs one gradient step on d and returns the largest weight change.
func (b *booster) step(d *dataset) float64 {
	n, f := d.x.Dims()
	grad := b.predict(d.x)
	for i := 0; i < n; i++ {
		y := d.label[i]
		if b.objective == "multiclass" {
			grad.Set(i, int(y), grad.At(i, int(y))-1)
			continue
		}
		grad.Set(i, 0, grad.At(i, 0)-y)
	}
	if d.weight != nil {
		for i := 0; i < n; i++ {
			for k := 0; k < b.numClass; k++ {
				grad.Set(i, k, grad.At(i, k)*d.weight[i])
			}
		}
	}

	var gw mat.Dense
	gw.Mul(grad.T(), d.x)

	var maxStep float64
	scale := b.lr / float64(n)
	for k := 0; k < b.numClass; k++ {
		var bias float64
		for i := 0; i < n; i++ {
			bias += grad.At(i, k)
		}
		for j := 0; j <= f; j++ {
			g := bias
			if j < f {
				g = gw.At(k, j)
			}
			delta := scale * g
			b.w.Set(k, j, b.w.At(k, j)-delta)
			maxStep = math.Max(maxStep, math.Abs(delta))
		}
	}
	return maxStep
}
