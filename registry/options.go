package registry

import (
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"property-binder/internal/cache"
	"property-binder/internal/metrics"
	"property-binder/property"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics reports cache and discovery events to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) {
		r.metrics = c
	}
}

// WithCacheTTL sets how long an unused binding stays cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.cacheOpts = append(r.cacheOpts, cache.WithTTL(ttl))
	}
}

// WithClock sets the time source of the binding cache.
func WithClock(c clock.WithTicker) Option {
	return func(r *Registry) {
		r.cacheOpts = append(r.cacheOpts, cache.WithClock(c))
	}
}

type registerOptions struct {
	immutable  []property.Option
	modifiable []property.Option
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

// WithBuilder injects the builder factory of the immutable implementation.
func WithBuilder[B any](fn func() B) RegisterOption {
	return func(o *registerOptions) {
		o.immutable = append(o.immutable, property.WithFactory(fn))
	}
}

// WithCreate injects the factory of the modifiable implementation.
func WithCreate[M any](fn func() M) RegisterOption {
	return func(o *registerOptions) {
		o.modifiable = append(o.modifiable, property.WithFactory(fn))
	}
}

// WithMetadata attaches metadata to a property of both implementations.
func WithMetadata(name string, values ...any) RegisterOption {
	return func(o *registerOptions) {
		o.immutable = append(o.immutable, property.WithMetadata(name, values...))
		o.modifiable = append(o.modifiable, property.WithMetadata(name, values...))
	}
}
