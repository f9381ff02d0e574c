package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/eval"
	"github.com/agent462/hostlist/internal/hostlist"
	"github.com/agent462/hostlist/internal/recipe"
	"github.com/agent462/hostlist/internal/ui/output"
)

// HistoryEntry records a single evaluated line in the REPL.
type HistoryEntry struct {
	Input   string
	Summary string // "5 hosts", "42", "n[1-3]" ...
	Failed  bool
}

// Config holds the settings for creating a REPL session.
type Config struct {
	Evaluator   *eval.Evaluator
	Formatter   *output.Formatter
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	Interactive bool // print prompts
	Logger      *slog.Logger
	Recipes     map[string]config.Recipe // runnable with :run
}

// REPL is an interactive session that evaluates host-list operations.
type REPL struct {
	ev          *eval.Evaluator
	formatter   *output.Formatter
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
	logger      *slog.Logger
	recipes     map[string]config.Recipe
	ctx         context.Context

	last    eval.Result // last successful result; lists are owned copies
	hasLast bool
	history []HistoryEntry
}

// New creates a REPL with the given configuration.
func New(c Config) *REPL {
	r := &REPL{
		ev:          c.Evaluator,
		formatter:   c.Formatter,
		in:          c.In,
		out:         c.Out,
		errOut:      c.Err,
		interactive: c.Interactive,
		logger:      c.Logger,
		recipes:     c.Recipes,
		ctx:         context.Background(),
	}
	if r.formatter == nil {
		r.formatter = output.NewFormatter(output.ModeRanged, false, 0)
	}
	if r.in == nil {
		r.in = os.Stdin
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.errOut == nil {
		r.errOut = os.Stderr
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Close releases the last result held by the REPL.
func (r *REPL) Close() error {
	r.forgetLast()
	return nil
}

// Run starts the read-eval loop. It returns nil on clean exit (EOF or :quit).
func (r *REPL) Run(ctx context.Context) error {
	defer r.Close()
	r.ctx = ctx
	// Capture SIGINT so it doesn't kill the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	reader := bufio.NewReader(r.in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		drainSignals(sigCh)

		if r.interactive {
			fmt.Fprint(r.out, r.prompt())
		}

		line, err := reader.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF {
				if r.interactive {
					fmt.Fprintln(r.out)
				}
				return nil
			}
			if drained := drainSignals(sigCh); drained {
				fmt.Fprintln(r.out)
				continue
			}
			return fmt.Errorf("read input: %w", err)
		}

		// If a signal arrived while we were reading, discard the line.
		if drained := drainSignals(sigCh); drained {
			fmt.Fprintln(r.out)
			continue
		}

		if quit := r.Handle(line); quit {
			return nil
		}
		if err == io.EOF {
			return nil
		}
	}
}

// Handle processes one input line. It returns true if the REPL should exit.
func (r *REPL) Handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}

	if n, ok := ParseHistoryRef(line); ok {
		if n > len(r.history) {
			fmt.Fprintf(r.errOut, "no history entry %d\n", n)
			return false
		}
		line = r.history[n-1].Input
		fmt.Fprintln(r.out, line)
	}

	if strings.HasPrefix(line, ":") {
		return r.handleCommand(line)
	}

	r.evaluate(line)
	return false
}

func (r *REPL) evaluate(line string) {
	res, err := r.ev.Line(line)
	if err != nil {
		r.logger.Debug("evaluation failed", "line", line, "err", err)
		r.addHistory(HistoryEntry{Input: line, Failed: true})
		fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		return
	}
	defer res.Release()

	text, err := r.formatter.Format(res)
	if err != nil {
		fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		return
	}
	fmt.Fprint(r.out, text)

	r.addHistory(HistoryEntry{Input: line, Summary: summarize(res)})
	r.remember(res)
}

// remember keeps res as the last result, copying borrowed lists so later
// mutation or :drop cannot change it.
func (r *REPL) remember(res eval.Result) {
	r.forgetLast()
	if res.Kind == eval.KindList {
		res.List = res.List.Copy()
		res.Owned = true
	}
	r.last = res
	r.hasLast = true
}

func (r *REPL) forgetLast() {
	if r.hasLast {
		r.last.Release()
		r.last = eval.Result{}
		r.hasLast = false
	}
}

func (r *REPL) prompt() string {
	n := len(r.ev.State().VarNames())
	if n == 0 {
		return "hostlist> "
	}
	return fmt.Sprintf("hostlist [%d %s]> ", n, plural("var", n))
}

func (r *REPL) addHistory(e HistoryEntry) {
	r.history = append(r.history, e)
}

// handleCommand processes a colon-prefixed REPL command.
// Returns true if the REPL should exit.
func (r *REPL) handleCommand(line string) bool {
	cmd, args := ParseColonCommand(line)

	switch cmd {
	case ":quit", ":q":
		return true

	case ":help":
		r.showHelp()

	case ":history", ":h":
		r.showHistory()

	case ":set":
		if len(args) == 0 {
			fmt.Fprintln(r.errOut, "usage: :set NAME [OP ARGS...]")
			return false
		}
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[len(cmd):]), args[0]))
		if err := r.setVar(args[0], rest); err != nil {
			fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		}

	case ":drop":
		if len(args) != 1 {
			fmt.Fprintln(r.errOut, "usage: :drop NAME")
			return false
		}
		if err := r.ev.State().Drop(strings.TrimPrefix(args[0], "@")); err != nil {
			fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		}

	case ":vars":
		r.showVars()

	case ":groups":
		r.showGroups()

	case ":each":
		if len(args) != 1 {
			fmt.Fprintln(r.errOut, "usage: :each NAME")
			return false
		}
		if err := r.each(args[0]); err != nil {
			fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		}

	case ":last":
		r.showLast()

	case ":recipes":
		r.showRecipes()

	case ":run":
		tokens, err := eval.Split(line)
		if err != nil || len(tokens) < 2 {
			fmt.Fprintln(r.errOut, "usage: :run RECIPE [ARGS...]")
			return false
		}
		r.runRecipe(line, tokens[1], tokens[2:])

	case ":export":
		if len(args) == 0 {
			fmt.Fprintln(r.errOut, "usage: :export <file>")
			return false
		}
		if err := r.exportJSON(args[0]); err != nil {
			fmt.Fprintf(r.errOut, "export: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "exported to %s\n", args[0])
		}

	default:
		fmt.Fprintf(r.errOut, "unknown command %q (try %s)\n", cmd, strings.Join(ValidCommands(), ", "))
	}

	return false
}

// setVar stores the result of expr, or the last result when expr is empty,
// as @name.
func (r *REPL) setVar(name, expr string) error {
	name = strings.TrimPrefix(name, "@")
	var hl *hostlist.HostList
	if expr == "" {
		if !r.hasLast || r.last.Kind != eval.KindList {
			return errors.New("no previous host list to store")
		}
		hl = r.last.List.Copy()
	} else {
		res, err := r.ev.Line(expr)
		if err != nil {
			return err
		}
		if res.Kind == eval.KindHosts {
			hl = hostlist.FromHosts(res.Hosts...)
		} else {
			hl, err = res.Detach()
			if err != nil {
				return fmt.Errorf("%s: %w", expr, err)
			}
		}
	}

	if err := r.ev.State().Set(name, hl); err != nil {
		hl.Release()
		return err
	}
	r.addHistory(HistoryEntry{Input: strings.TrimSpace(":set " + name + " " + expr), Summary: fmt.Sprintf("@%s = %d %s", name, hl.Count(), plural("host", hl.Count()))})
	fmt.Fprintf(r.out, "@%s = %s\n", name, hl.String())
	return nil
}

// runRecipe runs a recipe in this session, printing each reported step.
// Variables it assigns stay defined afterwards.
func (r *REPL) runRecipe(line, name string, args []string) {
	rec, ok := r.recipes[name]
	if !ok {
		fmt.Fprintf(r.errOut, "unknown recipe %q (try :recipes)\n", name)
		return
	}

	results, err := recipe.New(r.ev).Run(r.ctx, recipe.Steps(rec), args)
	defer recipe.ReleaseAll(results)
	for _, sr := range results {
		if sr.Step.Assign != "" {
			fmt.Fprintf(r.out, "@%s = %s\n", sr.Step.Assign, sr.Result.List.String())
			continue
		}
		text, ferr := r.formatter.Format(sr.Result)
		if ferr != nil {
			fmt.Fprint(r.errOut, r.formatter.FormatError(ferr))
			continue
		}
		fmt.Fprint(r.out, text)
	}
	if err != nil {
		r.addHistory(HistoryEntry{Input: line, Failed: true})
		fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		return
	}

	r.addHistory(HistoryEntry{Input: line, Summary: fmt.Sprintf("%d %s", len(results), plural("step", len(results)))})
	if n := len(results); n > 0 {
		r.remember(results[n-1].Result)
	}
}

func (r *REPL) showRecipes() {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]output.RecipeRow, 0, len(names))
	for _, name := range names {
		rec := r.recipes[name]
		rows = append(rows, output.RecipeRow{
			Name:        name,
			Builtin:     recipe.IsBuiltin(name),
			Steps:       rec.Steps,
			Description: rec.Description,
		})
	}
	fmt.Fprint(r.out, r.formatter.FormatRecipes(rows))
}

// each walks the named list with an iterator, printing one numbered host
// per line.
func (r *REPL) each(token string) error {
	arg, err := r.ev.State().Arg(token)
	if err != nil {
		return err
	}
	var hl *hostlist.HostList
	switch v := arg.(type) {
	case *hostlist.HostList:
		hl = v
	case string:
		hl, err = r.ev.Engine().New(v)
		if err != nil {
			return err
		}
		defer hl.Release()
	}

	it := r.ev.Engine().Iter(hl)
	defer it.Close()
	i := 0
	for {
		host, ok := it.Next()
		if !ok {
			break
		}
		i++
		fmt.Fprintf(r.out, " %-4d %s\n", i, host)
	}
	return nil
}

func (r *REPL) showHelp() {
	fmt.Fprintln(r.out, "operations:")
	for _, op := range eval.Ops() {
		fmt.Fprintf(r.out, "  %-28s %s\n", op.Name+" "+op.Args, op.Short)
	}
	fmt.Fprintln(r.out, "commands:")
	fmt.Fprintln(r.out, "  :set NAME [OP ARGS...]       store a result (or the last one) as @NAME")
	fmt.Fprintln(r.out, "  :drop NAME                   forget @NAME")
	fmt.Fprintln(r.out, "  :vars, :groups               list variables or groups")
	fmt.Fprintln(r.out, "  :each NAME                   print each host with its position")
	fmt.Fprintln(r.out, "  :last, :export FILE          show or save the last result")
	fmt.Fprintln(r.out, "  :recipes, :run RECIPE ARGS   list or run recipes")
	fmt.Fprintln(r.out, "  :history, !N, :quit")
}

func (r *REPL) showHistory() {
	if len(r.history) == 0 {
		fmt.Fprintln(r.out, "no history")
		return
	}
	for i, e := range r.history {
		fmt.Fprintln(r.out, FormatHistoryEntry(i+1, e))
	}
}

func (r *REPL) showVars() {
	state := r.ev.State()
	names := state.VarNames()
	if len(names) == 0 {
		fmt.Fprintln(r.out, "no variables")
		return
	}
	for _, name := range names {
		hl, _ := state.Lookup(name)
		fmt.Fprintf(r.out, "  @%-20s %5d  %s\n", name, hl.Count(), hl.String())
	}
}

func (r *REPL) showGroups() {
	state := r.ev.State()
	var rows []output.GroupRow
	for _, name := range state.GroupNames() {
		hl, _ := state.Lookup(name)
		s, _ := hl.RangedString(r.formatter.MaxLen)
		rows = append(rows, output.GroupRow{Name: name, Count: hl.Count(), Range: s})
	}
	fmt.Fprint(r.out, r.formatter.FormatGroups(rows))
}

func (r *REPL) showLast() {
	if !r.hasLast {
		fmt.Fprintln(r.errOut, "no previous result")
		return
	}
	text, err := r.formatter.Format(r.last)
	if err != nil {
		fmt.Fprint(r.errOut, r.formatter.FormatError(err))
		return
	}
	fmt.Fprint(r.out, text)
}

func (r *REPL) exportJSON(filename string) error {
	if !r.hasLast {
		return fmt.Errorf("no result to export")
	}

	data, err := r.formatter.FormatJSON(r.last)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0644)
}

func summarize(res eval.Result) string {
	switch res.Kind {
	case eval.KindList:
		return fmt.Sprintf("%d %s", res.List.Count(), plural("host", res.List.Count()))
	case eval.KindHosts:
		return fmt.Sprintf("%d %s", len(res.Hosts), plural("value", len(res.Hosts)))
	case eval.KindNumber:
		return strconv.Itoa(res.Number)
	case eval.KindGroups:
		return fmt.Sprintf("%d %s", len(res.Groups), plural("group", len(res.Groups)))
	default:
		return res.Text
	}
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func drainSignals(ch <-chan os.Signal) bool {
	drained := false
	for {
		select {
		case <-ch:
			drained = true
		default:
			return drained
		}
	}
}

// FormatHistoryEntry formats a single history entry for display.
func FormatHistoryEntry(index int, e HistoryEntry) string {
	input := e.Input
	if len(input) > 40 {
		input = input[:37] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, " %-4d %-42s", index, input)
	switch {
	case e.Failed:
		b.WriteString("(failed)")
	case e.Summary != "":
		fmt.Fprintf(&b, "(%s)", e.Summary)
	}
	return strings.TrimRight(b.String(), " ")
}

// ParseColonCommand parses a colon-command into its name and arguments.
func ParseColonCommand(line string) (cmd string, args []string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// ValidCommands returns the list of valid colon-command names.
func ValidCommands() []string {
	return []string{":quit", ":q", ":help", ":history", ":h", ":set", ":drop", ":vars", ":groups", ":each", ":last", ":export", ":recipes", ":run"}
}

// ParseHistoryRef checks if a string is a history reference like "!3".
// Returns the 1-based index and true if it is, or 0 and false otherwise.
func ParseHistoryRef(s string) (int, bool) {
	if !strings.HasPrefix(s, "!") || len(s) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
