// Package resolve promotes dynamically typed call arguments to host lists
// and records, per argument, whether the call owns the resulting list.
package resolve

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/agent462/hostlist/internal/hostlist"
)

// Arg is a call argument: either a Handle to an existing list or a Pattern
// to be parsed.
type Arg interface {
	isArg()
}

// Handle wraps a caller-supplied list. The call borrows it.
type Handle struct {
	List *hostlist.HostList
}

// Pattern is a range expression the call parses into a list it owns.
type Pattern string

func (Handle) isArg()  {}
func (Pattern) isArg() {}

// Of classifies a raw value. *hostlist.HostList becomes a Handle, string
// becomes a Pattern, and an Arg is returned as is.
func Of(v any) (Arg, error) {
	switch x := v.(type) {
	case Arg:
		return x, nil
	case *hostlist.HostList:
		if x == nil {
			return nil, &UsageError{Msg: "nil host list"}
		}
		return Handle{List: x}, nil
	case string:
		return Pattern(x), nil
	default:
		return nil, &UsageError{Msg: fmt.Sprintf("expected host list or string, got %T", v)}
	}
}

// ParseFunc builds a new list from a range expression.
type ParseFunc func(string) (*hostlist.HostList, error)

// Resolver turns arguments into Bindings.
type Resolver struct {
	parse  ParseFunc
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithParser replaces hostlist.Parse as the pattern parser.
func WithParser(fn ParseFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.parse = fn
		}
	}
}

// WithLogger sets the logger used for ownership bookkeeping at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver with the given options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		parse:  hostlist.Parse,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind resolves a single value.
func (r *Resolver) Bind(v any) (Binding, error) {
	arg, err := Of(v)
	if err != nil {
		return Binding{}, err
	}
	switch a := arg.(type) {
	case Handle:
		if a.List == nil {
			return Binding{}, &UsageError{Msg: "nil host list"}
		}
		if a.List.Released() {
			return Binding{}, hostlist.ErrReleased
		}
		return Binding{List: a.List}, nil
	case Pattern:
		hl, err := r.parse(string(a))
		if err != nil {
			return Binding{}, err
		}
		return Binding{List: hl, Owned: true}, nil
	}
	return Binding{}, &UsageError{Msg: fmt.Sprintf("unsupported argument %T", arg)}
}

// Slot resolves args[i] and writes the resulting list back into args[i], so
// later resolution of args sees a borrowed handle. The returned Binding
// carries sole release responsibility for a freshly parsed list.
func (r *Resolver) Slot(args []any, i int) (Binding, error) {
	if i < 0 || i >= len(args) {
		return Binding{}, &UsageError{Msg: fmt.Sprintf("missing argument %d", i+1)}
	}
	b, err := r.Bind(args[i])
	if err != nil {
		return Binding{}, fmt.Errorf("argument %d: %w", i+1, err)
	}
	args[i] = b.List
	if b.Owned {
		r.logger.Debug("resolved slot", "index", i, "hosts", b.List.Count())
	}
	return b, nil
}

// All resolves every argument. On failure every list parsed so far is
// released before the error is returned.
func (r *Resolver) All(args []any) (*Set, error) {
	s := &Set{bindings: make([]Binding, 0, len(args))}
	for i, v := range args {
		b, err := r.Bind(v)
		if err != nil {
			if rerr := s.Release(); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		s.bindings = append(s.bindings, b)
	}
	r.logger.Debug("resolved arguments", "count", len(s.bindings), "owned", s.Owned())
	return s, nil
}
