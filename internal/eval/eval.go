// Package eval runs named host-list operations over string tokens. It is
// shared by the command line, where cobra parses the flags, and the REPL,
// where Line splits and parses an input line itself.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/pflag"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/grouper"
	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/resolve"
	"github.com/agent462/hostlist/internal/selector"
	"github.com/agent462/hostlist/internal/setalg"
)

// ErrNoHost is returned by nth when the index selects no host.
var ErrNoHost = errors.New("no host at index")

// Kind identifies which field of a Result is set.
type Kind int

const (
	KindList   Kind = iota // List
	KindHosts              // Hosts
	KindNumber             // Number
	KindText               // Text
	KindGroups             // Groups
)

// Result is the outcome of one operation.
type Result struct {
	Kind   Kind
	List   *hostlist.HostList
	Owned  bool // List is fresh and must be released by the holder
	Hosts  []string
	Number int
	Text   string
	Groups []grouper.ValueGroup
}

// Release frees List when the Result owns it.
func (r *Result) Release() error {
	if r.Kind != KindList || !r.Owned || r.List == nil {
		return nil
	}
	r.Owned = false
	return r.List.Release()
}

// Detach hands the list over to the caller: an owned list is returned as is,
// a borrowed one is copied.
func (r *Result) Detach() (*hostlist.HostList, error) {
	if r.Kind != KindList || r.List == nil {
		return nil, fmt.Errorf("result is not a host list")
	}
	if r.Owned {
		r.Owned = false
		return r.List, nil
	}
	return r.List.Copy(), nil
}

// Evaluator dispatches operations to a setalg.Engine, resolving @name
// tokens through a selector.State.
type Evaluator struct {
	ctx        context.Context
	engine     *setalg.Engine
	state      *selector.State
	lookup     func(host, key string) string
	transforms map[string]config.Transform
	logger     *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(ev *Evaluator) { ev.logger = l }
}

// WithContext sets the context that bounds network operations such as
// cidr --probe.
func WithContext(ctx context.Context) Option {
	return func(ev *Evaluator) { ev.ctx = ctx }
}

// WithTransforms registers the named rule sets that map --use refers to.
func WithTransforms(t map[string]config.Transform) Option {
	return func(ev *Evaluator) { ev.transforms = t }
}

// WithSSHLookup replaces the ssh_config resolver used by map --ssh.
func WithSSHLookup(fn func(host, key string) string) Option {
	return func(ev *Evaluator) { ev.lookup = fn }
}

// New returns an Evaluator over engine and state.
func New(engine *setalg.Engine, state *selector.State, opts ...Option) *Evaluator {
	ev := &Evaluator{
		ctx:    context.Background(),
		engine: engine,
		state:  state,
		lookup: config.SSHLookup,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// State returns the selector state the Evaluator resolves names with.
func (ev *Evaluator) State() *selector.State {
	return ev.state
}

// Engine returns the underlying set-algebra engine.
func (ev *Evaluator) Engine() *setalg.Engine {
	return ev.engine
}

// Run executes op with flags already parsed into fs. fs may be nil for
// operations without flags.
func (ev *Evaluator) Run(op *Op, fs *pflag.FlagSet, args []string) (Result, error) {
	if err := op.checkArgs(args); err != nil {
		return Result{}, err
	}
	if fs == nil {
		fs = op.FlagSet()
	}
	ev.logger.Debug("evaluating", "op", op.Name, "args", args)
	return op.run(ev, fs, args)
}

// Eval looks up the named operation, parses its flags from args and runs it.
func (ev *Evaluator) Eval(name string, args []string) (Result, error) {
	op, ok := Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("unknown operation %q", name)
	}
	fs := op.FlagSet()
	if err := fs.Parse(args); err != nil {
		return Result{}, resolve.Usagef(name, "%v", err)
	}
	return ev.Run(op, fs, fs.Args())
}

// Line splits an input line into tokens and evaluates it.
func (ev *Evaluator) Line(line string) (Result, error) {
	tokens, err := Split(line)
	if err != nil {
		return Result{}, err
	}
	if len(tokens) == 0 {
		return Result{}, fmt.Errorf("empty input")
	}
	return ev.Eval(tokens[0], tokens[1:])
}

// transform returns the map rules registered as name.
func (ev *Evaluator) transform(name string) (MapRules, error) {
	t, ok := ev.transforms[name]
	if !ok {
		names := make([]string, 0, len(ev.transforms))
		for n := range ev.transforms {
			names = append(names, n)
		}
		sort.Strings(names)
		return MapRules{}, fmt.Errorf("unknown transform %q (available: %v)", name, names)
	}
	return MapRules{Match: t.Match, Extract: t.Extract, SSHKey: t.SSH, Format: t.Format}, nil
}

// args resolves @name tokens.
func (ev *Evaluator) args(tokens []string) ([]any, error) {
	return ev.state.Args(tokens)
}

// mutated builds the Result of an operation that changed hl in place.
func (ev *Evaluator) mutated(hl *hostlist.HostList) Result {
	owned := !ev.state.Owns(hl)
	if !owned {
		ev.state.Changed(hl)
	}
	return Result{Kind: KindList, List: hl, Owned: owned}
}

func fresh(hl *hostlist.HostList) Result {
	return Result{Kind: KindList, List: hl, Owned: true}
}
