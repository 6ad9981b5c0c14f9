package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/golgbm/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEps は log(0) を避けるためのクリッピング幅
const logLossEps = 1e-15

func checkBinaryLabels(op string, yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return errors.NewConfigError("label", op+" requires labels in {0, 1}", v)
		}
	}
	return nil
}

// AUC は ROC 曲線下面積を計算する。同順位のスコアには平均順位を使う。
// 正例または負例しかない場合は 0.5 を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	var rankSumPos float64
	var nPos int
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		// 順位は 1 始まり
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
				nPos++
			}
		}
		i = j + 1
	}

	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	u := rankSumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// BinaryLogLoss は二値分類の対数損失を計算する。yProb は正例の確率。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := clip(yProb.AtVec(i))
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BinaryError は確率 0.5 を閾値とした誤分類率を計算する
func BinaryError(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryError", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("BinaryError", yTrue); err != nil {
		return 0, err
	}

	var wrong int
	for i := 0; i < n; i++ {
		pred := 0.0
		if yProb.AtVec(i) > 0.5 {
			pred = 1
		}
		if pred != yTrue.AtVec(i) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

// checkMulti は多クラスの確率行列 (n×K) とクラスラベルを検証する
func checkMulti(op string, yTrue *mat.VecDense, prob mat.Matrix) (int, int, error) {
	if yTrue == nil || prob == nil {
		return 0, 0, errors.NewDimensionError(op, 0, 0, "nil input")
	}
	rows, k := prob.Dims()
	n := yTrue.Len()
	if n == 0 || k == 0 {
		return 0, 0, errors.NewDimensionError(op, rows, k, "empty input")
	}
	if rows != n {
		return 0, 0, errors.NewDimensionError(op, rows, k, "row count differs from label count")
	}
	for i := 0; i < n; i++ {
		c := yTrue.AtVec(i)
		if c != math.Trunc(c) || c < 0 || int(c) >= k {
			return 0, 0, errors.NewConfigError("label", op+" requires class labels in [0, num_class)", c)
		}
	}
	return n, k, nil
}

// MultiLogLoss は多クラスの対数損失を計算する。prob の各行はクラス確率。
func MultiLogLoss(yTrue *mat.VecDense, prob mat.Matrix) (float64, error) {
	n, _, err := checkMulti("MultiLogLoss", yTrue, prob)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum -= math.Log(clip(prob.At(i, int(yTrue.AtVec(i)))))
	}
	return sum / float64(n), nil
}

// MultiError は最大確率のクラスが正解でない割合を計算する
func MultiError(yTrue *mat.VecDense, prob mat.Matrix) (float64, error) {
	n, k, err := checkMulti("MultiError", yTrue, prob)
	if err != nil {
		return 0, err
	}

	var wrong int
	for i := 0; i < n; i++ {
		best := 0
		for c := 1; c < k; c++ {
			if prob.At(i, c) > prob.At(i, best) {
				best = c
			}
		}
		if best != int(yTrue.AtVec(i)) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

func clip(p float64) float64 {
	return math.Max(logLossEps, math.Min(1-logLossEps, p))
}
