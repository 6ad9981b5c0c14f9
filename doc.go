// Package golgbm provides safe Go bindings for the LightGBM gradient
// boosting library.
//
// The bindings wrap LightGBM's C API. Every native dataset and booster has
// exactly one owner, released exactly once, and every native status is
// checked. Misuse that the C API would accept silently, such as fitting
// without training data, is rejected at compile time by the builder types.
//
// # Installation
//
//	go get github.com/YuminosukeSato/golgbm
//
// The native engine is linked when building with the lightgbm tag and
// lib_lightgbm on the linker path:
//
//	CGO_LDFLAGS="-L/path/to/lightgbm" go build -tags lightgbm ./...
//
// Without the tag every native call fails with a NativeError explaining how
// to rebuild. The in-memory engine in capi/capitest needs no native library.
//
// # Quick Start
//
//	b, err := lightgbm.NewBuilder().
//	    AddTrainData(lightgbm.FromMatrix(x, labels)).
//	    AddParams(map[string]any{"objective": "binary", "num_iterations": 50})
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
// # Packages
//
//   - lightgbm: datasets, the typestate builder, models, callbacks
//   - capi: the native call surface, cgo binding and Prometheus instrumentation
//   - capi/capitest: an in-memory engine with strict handle accounting
//   - metrics: evaluation metrics by LightGBM name (auc, binary_logloss, ...)
//   - pkg/errors: the error taxonomy (NativeError, ConfigError, ...)
//   - pkg/log: structured logging on zerolog
//   - cmd/lgbm-train: train from a YAML run configuration
//
// # Error Handling
//
// Errors carry a Kind. Native failures, protocol violations and encoding
// errors are fatal for the operation; the others are caller mistakes:
//
//	if errors.KindOf(err) == errors.KindDimension {
//	    // wrong feature count
//	}
//
// A native status other than 0 or -1 panics with a ProtocolViolationError.
// Program boundaries recover it with errors.SafeExecute.
package golgbm
