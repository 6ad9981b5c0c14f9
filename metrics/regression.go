// Package metrics は LightGBM の評価指標を gonum のベクトル上で計算します。
// 指標名は LightGBM の metric パラメータと同じです (l2, rmse, l1, auc など)。
package metrics

import (
	"math"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// checkPair は二つのベクトルが空でなく同じ長さであることを確認し、長さを返す
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewDimensionError(op, 0, 0, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewDimensionError(op, 0, 0, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), "length mismatch between labels and predictions")
	}
	return n, nil
}

// MSE は平均二乗誤差 (LightGBM の l2) を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差 (LightGBM の l1) を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}
