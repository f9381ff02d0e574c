// Package setalg implements set algebra over host lists: n-ary union,
// intersection, symmetric difference and subtraction, bounded deletion,
// concatenation, and enumeration with a per-host transform.
//
// Every operation accepts a mix of *hostlist.HostList handles and range
// strings. Lists parsed from strings are owned by the call and released
// before it returns; handles are borrowed and never released. Operations
// documented as "mutate" change their first argument in place and return
// it; every other operation returns a fresh list that aliases no input.
package setalg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/resolve"
)

// DefaultMaxStringLen bounds String output unless overridden.
const DefaultMaxStringLen = 4096

// Engine runs host-list operations.
type Engine struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
	maxLen   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the argument resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the debug logger. It is also handed to the default
// resolver.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxStringLen bounds the length of String output; 0 means unlimited.
func WithMaxStringLen(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxLen = n
		}
	}
}

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxLen: DefaultMaxStringLen,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = resolve.New(resolve.WithLogger(e.logger))
	}
	return e
}

// New parses s into a list owned by the caller.
func (e *Engine) New(s string) (*hostlist.HostList, error) {
	hl, err := hostlist.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return hl, nil
}

// resolveAll resolves the variadic operands of op. At least one is required.
func (e *Engine) resolveAll(op string, args []any) (*resolve.Set, error) {
	if len(args) == 0 {
		return nil, resolve.Usagef(op, "at least one host list required")
	}
	set, err := e.resolver.All(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return set, nil
}

// slot resolves the target argument of a single-list operation.
func (e *Engine) slot(op string, args []any, i int) (resolve.Binding, error) {
	b, err := e.resolver.Slot(args, i)
	if err != nil {
		return resolve.Binding{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// finish releases a call's temporaries. A failed release turns the call
// into a failure, and a result that was already built is discarded.
func finish(op string, set *resolve.Set, result **hostlist.HostList, err *error) {
	rerr := set.Release()
	if rerr == nil {
		return
	}
	*err = errors.Join(*err, fmt.Errorf("%s: releasing arguments: %w", op, rerr))
	if *result != nil {
		(*result).Release()
		*result = nil
	}
}

// releaseSlot is finish for single-slot operations: a failed release of the
// target binding fails the call and zeroes its result.
func releaseSlot[T any](op string, b resolve.Binding, result *T, err *error) {
	rerr := b.Release()
	if rerr == nil {
		return
	}
	*err = errors.Join(*err, fmt.Errorf("%s: releasing argument: %w", op, rerr))
	var zero T
	*result = zero
}
