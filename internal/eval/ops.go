package eval

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/agent462/hostlist/internal/discover"
	"github.com/agent462/hostlist/internal/grouper"
	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/resolve"
	"github.com/agent462/hostlist/internal/setalg"
)

// Op describes one operation: its usage, argument bounds, flags and body.
type Op struct {
	Name    string
	Args    string // positional usage, e.g. "TARGET PATTERN"
	Short   string
	MinArgs int
	MaxArgs int // -1 for no limit
	Mutates bool

	flags func(fs *pflag.FlagSet)
	run   func(ev *Evaluator, fs *pflag.FlagSet, args []string) (Result, error)
}

// FlagSet returns a fresh flag set with the operation's flags registered.
func (op *Op) FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(op.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	op.AddFlags(fs)
	return fs
}

// AddFlags registers the operation's flags on fs. Operations without flags
// stop flag parsing at the first positional so negative indexes pass through.
func (op *Op) AddFlags(fs *pflag.FlagSet) {
	if op.flags == nil {
		fs.SetInterspersed(false)
		return
	}
	op.flags(fs)
}

func (op *Op) checkArgs(args []string) error {
	if len(args) < op.MinArgs || (op.MaxArgs >= 0 && len(args) > op.MaxArgs) {
		return resolve.Usagef("", "%s %s", op.Name, op.Args)
	}
	return nil
}

var ops = []*Op{
	{
		Name: "new", Args: "EXPR...", Short: "Expand range expressions into a host list",
		MinArgs: 0, MaxArgs: -1,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			hl, err := ev.engine.New(strings.Join(args, ","))
			if err != nil {
				return Result{}, err
			}
			return fresh(hl), nil
		},
	},
	reduceOp("union", "Hosts present in any operand, sorted and unique", (*setalg.Engine).Union),
	reduceOp("intersect", "Hosts present in every operand, sorted and unique", (*setalg.Engine).Intersect),
	reduceOp("xor", "Left-to-right symmetric difference, sorted and unique", (*setalg.Engine).Xor),
	reduceOp("subtract", "Hosts of the first operand not in any later one", (*setalg.Engine).Subtract),
	{
		Name: "delete", Args: "TARGET PATTERN", Short: "Remove pattern hosts from target, at most --limit times each",
		MinArgs: 2, MaxArgs: 2, Mutates: true,
		flags: func(fs *pflag.FlagSet) {
			fs.IntP("limit", "n", 0, "maximum occurrences removed per pattern host (0 = all)")
		},
		run: func(ev *Evaluator, fs *pflag.FlagSet, args []string) (Result, error) {
			limit, err := fs.GetInt("limit")
			if err != nil {
				return Result{}, err
			}
			a, err := ev.args(args)
			if err != nil {
				return Result{}, err
			}
			hl, err := ev.engine.Delete(a[0], a[1], limit)
			if err != nil {
				return Result{}, err
			}
			return ev.mutated(hl), nil
		},
	},
	{
		Name: "delete-all", Args: "TARGET PATTERN...", Short: "Remove every occurrence of each pattern's hosts from target",
		MinArgs: 2, MaxArgs: -1, Mutates: true,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			a, err := ev.args(args)
			if err != nil {
				return Result{}, err
			}
			hl, err := ev.engine.DeleteAll(a[0], a[1:]...)
			if err != nil {
				return Result{}, err
			}
			return ev.mutated(hl), nil
		},
	},
	{
		Name: "concat", Args: "TARGET ITEM...", Short: "Append the hosts of each item to target",
		MinArgs: 2, MaxArgs: -1, Mutates: true,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			a, err := ev.args(args)
			if err != nil {
				return Result{}, err
			}
			hl, err := ev.engine.Concat(a[0], a[1:]...)
			if err != nil {
				return Result{}, err
			}
			return ev.mutated(hl), nil
		},
	},
	{
		Name: "pop", Args: "TARGET N", Short: "Remove and print the last N hosts of target",
		MinArgs: 2, MaxArgs: 2, Mutates: true,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return Result{}, resolve.Usagef("pop", "bad count %q", args[1])
			}
			target, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}
			hosts, err := ev.engine.Pop(target, n)
			if err != nil {
				return Result{}, err
			}
			if hl, ok := target.(*hostlist.HostList); ok {
				ev.state.Changed(hl)
			}
			return Result{Kind: KindHosts, Hosts: hosts}, nil
		},
	},
	{
		Name: "nth", Args: "TARGET INDEX", Short: "Print the host at a 1-based index; negative counts from the end",
		MinArgs: 2, MaxArgs: 2,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			i, err := strconv.Atoi(args[1])
			if err != nil {
				return Result{}, resolve.Usagef("nth", "bad index %q", args[1])
			}
			target, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}
			host, ok, err := ev.engine.Nth(target, i)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				return Result{}, fmt.Errorf("nth %d: %w", i, ErrNoHost)
			}
			return Result{Kind: KindText, Text: host}, nil
		},
	},
	{
		Name: "count", Args: "TARGET", Short: "Print the number of hosts, duplicates included",
		MinArgs: 1, MaxArgs: 1,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			target, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}
			n, err := ev.engine.Count(target)
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: KindNumber, Number: n}, nil
		},
	},
	{
		Name: "string", Args: "TARGET", Short: "Print target in range notation",
		MinArgs: 1, MaxArgs: 1,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			target, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}
			s, err := ev.engine.String(target)
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: KindText, Text: s}, nil
		},
	},
	sortOp("uniq", "Sort target and drop duplicates", (*setalg.Engine).Uniq),
	sortOp("sort", "Sort target in host order", (*setalg.Engine).Sort),
	{
		Name: "expand", Args: "TARGET", Short: "Print every host of target, one per line",
		MinArgs: 1, MaxArgs: 1,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			target, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}
			hosts, err := ev.engine.Map(target, nil)
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: KindHosts, Hosts: hosts}, nil
		},
	},
	{
		Name: "map", Args: "SOURCE", Short: "Transform each host of source",
		MinArgs: 1, MaxArgs: 1,
		flags: func(fs *pflag.FlagSet) {
			fs.StringP("match", "m", "", "only keep hosts matching this glob")
			fs.StringP("extract", "e", "", "regex applied to the host; the first capture group becomes the value")
			fs.String("ssh", "", "replace the value with this ssh_config keyword for the host (e.g. HostName)")
			fs.StringP("format", "f", "", "text/template rendered per host with .Host, .Value and .Index")
			fs.BoolP("group", "g", false, "group hosts by their mapped value")
			fs.StringP("use", "u", "", "start from a named transform; other flags override its rules")
		},
		run: func(ev *Evaluator, fs *pflag.FlagSet, args []string) (Result, error) {
			var rules MapRules
			if use, _ := fs.GetString("use"); use != "" {
				named, err := ev.transform(use)
				if err != nil {
					return Result{}, err
				}
				rules = named
			}
			for name, dst := range map[string]*string{
				"match":   &rules.Match,
				"extract": &rules.Extract,
				"ssh":     &rules.SSHKey,
				"format":  &rules.Format,
			} {
				if !fs.Changed(name) {
					continue
				}
				v, err := fs.GetString(name)
				if err != nil {
					return Result{}, err
				}
				*dst = v
			}
			group, err := fs.GetBool("group")
			if err != nil {
				return Result{}, err
			}
			fn, err := rules.Compile(ev.lookup)
			if err != nil {
				return Result{}, err
			}
			source, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}

			var kept []string
			if group {
				inner := fn
				fn = func(host string) (string, bool, error) {
					v, ok, err := inner(host)
					if ok && err == nil {
						kept = append(kept, host)
					}
					return v, ok, err
				}
			}
			values, err := ev.engine.Map(source, fn)
			if err != nil {
				return Result{}, err
			}
			if group {
				return Result{Kind: KindGroups, Groups: grouper.Group(kept, values)}, nil
			}
			return Result{Kind: KindHosts, Hosts: values}, nil
		},
	},
	{
		Name: "cidr", Args: "CIDR...", Short: "Expand IPv4 CIDR blocks, optionally keeping hosts with an open port",
		MinArgs: 1, MaxArgs: -1,
		flags: func(fs *pflag.FlagSet) {
			fs.IntP("probe", "p", 0, "only keep hosts accepting TCP connections on this port")
			fs.Duration("timeout", 500*time.Millisecond, "dial timeout per host when probing")
			fs.Int("concurrency", 64, "maximum parallel dials when probing")
		},
		run: func(ev *Evaluator, fs *pflag.FlagSet, args []string) (Result, error) {
			port, err := fs.GetInt("probe")
			if err != nil {
				return Result{}, err
			}
			timeout, err := fs.GetDuration("timeout")
			if err != nil {
				return Result{}, err
			}
			concurrency, err := fs.GetInt("concurrency")
			if err != nil {
				return Result{}, err
			}
			if port < 0 || port > 65535 {
				return Result{}, resolve.Usagef("cidr", "bad port %d", port)
			}

			var hosts []string
			for _, block := range args {
				h, err := discover.Enumerate(block)
				if err != nil {
					return Result{}, err
				}
				hosts = append(hosts, h...)
			}
			if port > 0 {
				n := len(hosts)
				hosts = discover.Probe(ev.ctx, hosts, port, concurrency, timeout)
				ev.logger.Debug("probed", "port", port, "hosts", n, "open", len(hosts))
				if err := ev.ctx.Err(); err != nil {
					return Result{}, fmt.Errorf("cidr: %w", err)
				}
			}
			return fresh(hostlist.FromHosts(hosts...)), nil
		},
	},
}

func reduceOp(name, short string, fn func(*setalg.Engine, ...any) (*hostlist.HostList, error)) *Op {
	return &Op{
		Name: name, Args: "OPERAND...", Short: short,
		MinArgs: 1, MaxArgs: -1,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			a, err := ev.args(args)
			if err != nil {
				return Result{}, err
			}
			hl, err := fn(ev.engine, a...)
			if err != nil {
				return Result{}, err
			}
			return fresh(hl), nil
		},
	}
}

func sortOp(name, short string, fn func(*setalg.Engine, any) (*hostlist.HostList, error)) *Op {
	return &Op{
		Name: name, Args: "TARGET", Short: short,
		MinArgs: 1, MaxArgs: 1, Mutates: true,
		run: func(ev *Evaluator, _ *pflag.FlagSet, args []string) (Result, error) {
			target, err := ev.state.Arg(args[0])
			if err != nil {
				return Result{}, err
			}
			hl, err := fn(ev.engine, target)
			if err != nil {
				return Result{}, err
			}
			return ev.mutated(hl), nil
		},
	}
}

// Ops returns every operation in display order.
func Ops() []*Op {
	return ops
}

// Lookup returns the operation called name.
func Lookup(name string) (*Op, bool) {
	for _, op := range ops {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}
