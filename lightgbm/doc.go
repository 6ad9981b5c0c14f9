// Package lightgbm provides safe Go bindings for training and prediction with
// the native LightGBM engine.
//
// Every native object (dataset or booster) is owned by exactly one Go value
// and released exactly once by its Close method. A finalizer releases
// anything a caller forgets to close, but callers should not rely on it.
//
// Training is configured through a staged builder whose types only expose the
// legal next step, so a configuration that lacks training data or parameters
// does not compile:
//
//	ds := lightgbm.FromMatrix(x, y)
//	b, err := lightgbm.NewBuilder().
//	    AddTrainData(ds).
//	    AddParams(map[string]any{
//	        "num_iterations": 100,
//	        "objective":      "binary",
//	        "metric":         []string{"auc", "binary_logloss"},
//	    })
//	if err != nil {
//	    return err
//	}
//	model, err := b.Fit()
//	if err != nil {
//	    return err
//	}
//	defer model.Close()
//
//	preds, err := model.Predict(xTest)
//
// The package is not safe for concurrent use of one Model or LoadedDataset
// from several goroutines; distinct models may be used concurrently.
package lightgbm
