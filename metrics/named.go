package metrics

import (
	"sort"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Func は LightGBM の metric 名に対応する評価関数。pred は n×K の出力
// (二値分類と回帰では K=1) で、二値分類なら確率、多クラスなら各クラスの確率。
type Func func(yTrue *mat.VecDense, pred *mat.Dense) (float64, error)

type named struct {
	fn             Func
	higherIsBetter bool
}

func column(op string, f func(yTrue, yPred *mat.VecDense) (float64, error)) Func {
	return func(yTrue *mat.VecDense, pred *mat.Dense) (float64, error) {
		if pred == nil {
			return 0, errors.NewDimensionError(op, 0, 0, "nil prediction matrix")
		}
		if _, k := pred.Dims(); k != 1 {
			r, _ := pred.Dims()
			return 0, errors.NewDimensionError(op, r, k, "expected a single output column")
		}
		return f(yTrue, mat.VecDenseCopyOf(pred.ColView(0)))
	}
}

func multi(f func(*mat.VecDense, mat.Matrix) (float64, error)) Func {
	return func(yTrue *mat.VecDense, pred *mat.Dense) (float64, error) {
		if pred == nil {
			return f(yTrue, nil)
		}
		return f(yTrue, pred)
	}
}

var registry = map[string]named{
	"auc":            {column("auc", AUC), true},
	"binary_logloss": {column("binary_logloss", BinaryLogLoss), false},
	"binary_error":   {column("binary_error", BinaryError), false},
	"l2":             {column("l2", MSE), false},
	"rmse":           {column("rmse", RMSE), false},
	"l1":             {column("l1", MAE), false},
	"multi_logloss":  {multi(MultiLogLoss), false},
	"multi_error":    {multi(MultiError), false},
}

// aliases maps LightGBM metric aliases to their canonical name.
var aliases = map[string]string{
	"mse":                     "l2",
	"mean_squared_error":      "l2",
	"regression":              "l2",
	"regression_l2":           "l2",
	"root_mean_squared_error": "rmse",
	"l2_root":                 "rmse",
	"mae":                     "l1",
	"mean_absolute_error":     "l1",
	"regression_l1":           "l1",
	"binary":                  "binary_logloss",
	"multiclass":              "multi_logloss",
	"softmax":                 "multi_logloss",
}

// Canonical は metric 名またはエイリアスを正規名に変換する。未知の名前は ok=false。
func Canonical(name string) (string, bool) {
	if c, ok := aliases[name]; ok {
		return c, true
	}
	_, ok := registry[name]
	return name, ok
}

// ByName は metric 名に対応する評価関数を返す
func ByName(name string) (Func, bool) {
	c, ok := Canonical(name)
	if !ok {
		return nil, false
	}
	return registry[c].fn, true
}

// HigherIsBetter は metric が大きいほど良いかどうかを返す (auc のみ true)
func HigherIsBetter(name string) bool {
	c, _ := Canonical(name)
	return registry[c].higherIsBetter
}

// Names は登録済みの正規 metric 名をソートして返す
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
