package lightgbm

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
)

// IterationsKey is the canonical name of the mandatory iteration budget.
const IterationsKey = "num_iterations"

// iterationAliases are the names LightGBM accepts for num_iterations.
var iterationAliases = []string{
	IterationsKey,
	"num_iteration", "n_iter", "num_tree", "num_trees", "num_round",
	"num_rounds", "nrounds", "num_boost_round", "n_estimators", "max_iter",
}

// Params is a validated parameter set. The iteration budget is kept both in
// the serialized string and separately for the training loop.
type Params struct {
	values        map[string]any
	numIterations int
	serialized    string
}

// ParseParams validates m and renders it as a LightGBM parameter string:
// keys sorted, "key=value" tokens joined by one space, arrays rendered as
// key="a,b". The iteration budget (num_iterations or one of its aliases) is
// mandatory and must be a non-negative integer.
func ParseParams(m map[string]any) (*Params, error) {
	if len(m) == 0 {
		return nil, errors.NewConfigError(IterationsKey, "missing iteration budget", nil)
	}

	n, err := iterationBudget(m)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]any, len(m))
	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || strings.ContainsAny(k, "= \t\n\r\x00\"") {
			return nil, errors.NewConfigError(k, "invalid parameter name", nil)
		}
		v, err := renderValue(k, m[k])
		if err != nil {
			return nil, err
		}
		values[k] = m[k]
		tokens = append(tokens, k+"="+v)
	}

	return &Params{
		values:        values,
		numIterations: n,
		serialized:    strings.Join(tokens, " "),
	}, nil
}

// String returns the serialized parameter string.
func (p *Params) String() string { return p.serialized }

// NumIterations returns the iteration budget.
func (p *Params) NumIterations() int { return p.numIterations }

// Get returns the value given for key.
func (p *Params) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p *Params) clone() *Params {
	if p == nil {
		return nil
	}
	c := *p
	c.values = make(map[string]any, len(p.values))
	for k, v := range p.values {
		c.values[k] = v
	}
	return &c
}

func iterationBudget(m map[string]any) (int, error) {
	found := ""
	budget := 0
	for _, alias := range iterationAliases {
		raw, ok := m[alias]
		if !ok {
			continue
		}
		n, err := toIterations(alias, raw)
		if err != nil {
			return 0, err
		}
		if found != "" && n != budget {
			return 0, errors.NewConfigError(alias,
				fmt.Sprintf("conflicts with %s=%d", found, budget), raw)
		}
		found, budget = alias, n
	}
	if found == "" {
		return 0, errors.NewConfigError(IterationsKey, "missing iteration budget", nil)
	}
	return budget, nil
}

func toIterations(key string, raw any) (int, error) {
	var n int64
	switch v := reflect.ValueOf(raw); v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt32 {
			return 0, errors.NewConfigError(key, "iteration budget too large", raw)
		}
		n = int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, errors.NewConfigError(key, "iteration budget must be an integer", raw)
		}
		n = int64(f)
	default:
		return 0, errors.NewConfigError(key, "iteration budget must be an integer", raw)
	}
	if n < 0 {
		return 0, errors.NewConfigError(key, "iteration budget must not be negative", raw)
	}
	if n > math.MaxInt32 {
		return 0, errors.NewConfigError(key, "iteration budget too large", raw)
	}
	return int(n), nil
}

// renderValue formats one parameter value.
func renderValue(key string, raw any) (string, error) {
	if raw == nil {
		return "", errors.NewConfigError(key, "nil value", nil)
	}
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "", errors.NewConfigError(key, "empty array", raw)
		}
		items := make([]string, v.Len())
		for i := range items {
			s, err := renderScalar(key, v.Index(i).Interface())
			if err != nil {
				return "", err
			}
			if strings.Contains(s, ",") {
				return "", errors.NewConfigError(key, "array element contains a comma", s)
			}
			items[i] = s
		}
		return `"` + strings.Join(items, ",") + `"`, nil
	default:
		return renderScalar(key, raw)
	}
}

func renderScalar(key string, raw any) (string, error) {
	if raw == nil {
		return "", errors.NewConfigError(key, "nil value", nil)
	}
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.String:
		s := v.String()
		if s == "" {
			return "", errors.NewConfigError(key, "empty string value", nil)
		}
		if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == 0 || r == '"' }) >= 0 {
			return "", errors.NewConfigError(key, "value contains whitespace, quote or NUL", s)
		}
		return s, nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", errors.NewConfigError(key, "value is not finite", raw)
		}
		bits := 64
		if v.Kind() == reflect.Float32 {
			bits = 32
		}
		return strconv.FormatFloat(f, 'g', -1, bits), nil
	default:
		return "", errors.NewConfigError(key, "unsupported value type "+v.Type().String(), nil)
	}
}
