package lightgbm

import (
	"github.com/YuminosukeSato/golgbm/capi"
	"github.com/YuminosukeSato/golgbm/pkg/log"
)

// Option configures a Builder.
type Option func(*builderState)

// WithSurface sets the native call surface. The default is capi.Default().
func WithSurface(s capi.Surface) Option {
	return func(b *builderState) {
		b.surface = s
	}
}

// WithLogger sets the logger used during Fit and by the resulting Model.
func WithLogger(l log.Logger) Option {
	return func(b *builderState) {
		b.logger = l
	}
}

// WithCallbacks appends callbacks run after every training iteration.
func WithCallbacks(cbs ...Callback) Option {
	return func(b *builderState) {
		b.callbacks = append(b.callbacks, cbs...)
	}
}
