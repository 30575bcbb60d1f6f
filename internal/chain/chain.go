// Package chain implements the ordered fallback algorithm shared by every
// configuration axis: try providers in priority order, return the first
// present value, and apply a per-chain policy to hard errors.
package chain

import (
	"context"

	"github.com/systmms/awscfg/internal/logging"
)

// Step is one candidate provider for a value of type V. Resolve returns the
// value and true when the source has an opinion, false when it is not
// configured, or an error when the source is broken.
type Step[V any] struct {
	Name    string
	Resolve func(ctx context.Context) (V, bool, error)
}

// Disposition tells the chain what to do with a step error.
type Disposition int

const (
	// Skip treats the error as absence and continues to the next step.
	Skip Disposition = iota
	// Stop terminates the chain and surfaces the error.
	Stop
)

// Chain tries steps strictly in order and short-circuits on the first present
// value. Steps after the winning one are never invoked.
type Chain[V any] struct {
	name      string
	steps     []Step[V]
	classify  func(error) Disposition
	exhausted func(lastSource string, lastErr error) error
	fallback  *V
	logger    *logging.Logger
}

// New builds a chain over the given steps. By default every step error is
// skipped (the never-fatal policy of the region, retry, timeout, and app-name
// axes) and exhaustion yields absence without error.
func New[V any](name string, steps []Step[V]) *Chain[V] {
	return &Chain[V]{
		name:     name,
		steps:    steps,
		classify: func(error) Disposition { return Skip },
		logger:   logging.Discard(),
	}
}

// WithClassifier overrides the error policy. The credentials chain installs a
// classifier that stops on configuration errors and skips reachability ones.
func (c *Chain[V]) WithClassifier(fn func(error) Disposition) *Chain[V] {
	c.classify = fn
	return c
}

// WithDefault installs a terminal literal returned when every step yields
// absence.
func (c *Chain[V]) WithDefault(v V) *Chain[V] {
	c.fallback = &v
	return c
}

// WithExhausted installs the error built when every step was tried without a
// value. It receives the last attempted source and the last step error seen
// anywhere in the chain (nil when every step was a plain miss).
func (c *Chain[V]) WithExhausted(fn func(lastSource string, lastErr error) error) *Chain[V] {
	c.exhausted = fn
	return c
}

// WithLogger routes step-miss diagnostics to the given logger.
func (c *Chain[V]) WithLogger(l *logging.Logger) *Chain[V] {
	c.logger = l
	return c
}

// Resolve runs the chain. It returns (value, true, nil) on the first present
// value, (zero, false, nil) when the chain yields absence, or an error per the
// chain policy.
func (c *Chain[V]) Resolve(ctx context.Context) (V, bool, error) {
	var zero V
	var lastSource string
	var lastErr error

	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		lastSource = step.Name

		v, ok, err := step.Resolve(ctx)
		if err != nil {
			if c.classify(err) == Stop {
				return zero, false, err
			}
			lastErr = err
			c.logger.Debug("%s chain: %s skipped: %v", c.name, step.Name, err)
			continue
		}
		if ok {
			c.logger.Debug("%s chain: resolved by %s", c.name, step.Name)
			return v, true, nil
		}
		c.logger.Debug("%s chain: %s not configured", c.name, step.Name)
	}

	if c.fallback != nil {
		c.logger.Debug("%s chain: using built-in default", c.name)
		return *c.fallback, true, nil
	}
	if c.exhausted != nil {
		return zero, false, c.exhausted(lastSource, lastErr)
	}
	return zero, false, nil
}
