// Package recipe runs named sequences of operation lines against one
// evaluator session, so a step can store its result for the steps after it.
package recipe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/eval"
	"github.com/agent462/hostlist/internal/hostlist"
)

var (
	assignRe = regexp.MustCompile(`^\s*([a-zA-Z0-9_-]+)\s*=\s*(\S.*)$`)
	paramRe  = regexp.MustCompile(`\$(\d+|@)`)
)

// Step is one line of a recipe, optionally storing its result as a variable.
type Step struct {
	Assign string // "" when the result is only reported
	Line   string
}

// StepResult holds the outcome of executing a single recipe step.
type StepResult struct {
	Step   Step
	Result eval.Result
}

// ParseStep splits "NAME = OP ARGS..." into its variable and line.
func ParseStep(raw string) Step {
	if m := assignRe.FindStringSubmatch(raw); m != nil {
		return Step{Assign: m[1], Line: m[2]}
	}
	return Step{Line: strings.TrimSpace(raw)}
}

// Steps parses every step of r.
func Steps(r config.Recipe) []Step {
	steps := make([]Step, len(r.Steps))
	for i, raw := range r.Steps {
		steps[i] = ParseStep(raw)
	}
	return steps
}

// Runner executes recipe steps sequentially in one evaluator session.
type Runner struct {
	ev *eval.Evaluator
}

// New creates a Runner over ev. Variables assigned by a recipe stay in the
// evaluator's selector state after Run returns.
func New(ev *eval.Evaluator) *Runner {
	return &Runner{ev: ev}
}

// Run executes steps in order with args substituted for $1..$N and $@. It
// stops at the first failing step and returns the results gathered so far;
// the caller releases them with ReleaseAll.
func (r *Runner) Run(ctx context.Context, steps []Step, args []string) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("recipe cancelled: %w", err)
		}

		tokens, err := expand(step.Line, args)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if len(tokens) == 0 {
			return results, fmt.Errorf("step %d: empty line", i+1)
		}
		res, err := r.ev.Eval(tokens[0], tokens[1:])
		if err != nil {
			return results, fmt.Errorf("step %d %q: %w", i+1, step.Line, err)
		}

		if step.Assign != "" {
			if res, err = r.store(step.Assign, res); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		results = append(results, StepResult{Step: step, Result: res})
	}

	return results, nil
}

// store binds res to a variable and returns a borrowed view of it.
func (r *Runner) store(name string, res eval.Result) (eval.Result, error) {
	var hl *hostlist.HostList
	switch res.Kind {
	case eval.KindList:
		var err error
		if hl, err = res.Detach(); err != nil {
			return eval.Result{}, err
		}
	case eval.KindHosts:
		hl = hostlist.FromHosts(res.Hosts...)
	default:
		return eval.Result{}, fmt.Errorf("cannot store a non-list result as @%s", name)
	}

	state := r.ev.State()
	if err := state.Set(name, hl); err != nil {
		hl.Release()
		return eval.Result{}, err
	}
	return eval.Result{Kind: eval.KindList, List: hl}, nil
}

// ReleaseAll releases every owned list in results.
func ReleaseAll(results []StepResult) {
	for i := range results {
		results[i].Result.Release()
	}
}

// expand splits line into tokens and substitutes recipe arguments. A bare
// $@ token becomes one token per argument; inside a longer token $@ joins
// them with commas.
func expand(line string, args []string) ([]string, error) {
	tokens, err := eval.Split(line)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, tok := range tokens {
		if tok == "$@" {
			out = append(out, args...)
			continue
		}
		var missing error
		tok = paramRe.ReplaceAllStringFunc(tok, func(p string) string {
			if p == "$@" {
				return strings.Join(args, ",")
			}
			n, _ := strconv.Atoi(p[1:])
			if n < 1 || n > len(args) {
				if missing == nil {
					missing = fmt.Errorf("parameter %s not supplied (%d given)", p, len(args))
				}
				return p
			}
			return args[n-1]
		})
		if missing != nil {
			return nil, missing
		}
		out = append(out, tok)
	}
	return out, nil
}
