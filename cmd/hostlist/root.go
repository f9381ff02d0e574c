package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agent462/hostlist/internal/config"
	"github.com/agent462/hostlist/internal/eval"
	"github.com/agent462/hostlist/internal/recipe"
	"github.com/agent462/hostlist/internal/resolve"
	"github.com/agent462/hostlist/internal/selector"
	"github.com/agent462/hostlist/internal/setalg"
	"github.com/agent462/hostlist/internal/ui/output"
	"github.com/agent462/hostlist/internal/ui/repl"
)

// app carries the flag values and the session shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	output     string
	maxLen     int
	noColor    bool
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hostlist",
		Short: "Set algebra over host lists in range notation",
		Long: `hostlist expands, combines and compresses host lists such as
"node[001-064],login[1-2]". Operands are range expressions or @name
references to configured groups (@all is their union).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return resolve.Usagef(cmd.Name(), "%v", err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/hostlist/config.yaml)")
	pf.StringVarP(&a.output, "output", "o", "", "output mode: ranged, expanded or json")
	pf.IntVar(&a.maxLen, "max-len", 0, "bound on ranged output length, 0 = unlimited (default from config)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	for _, op := range eval.Ops() {
		root.AddCommand(a.opCmd(op))
	}
	root.AddCommand(a.groupsCmd(), a.recipeCmd(), a.recipesCmd(), a.replCmd())
	return root
}

// setup configures logging and loads the config before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("output") {
		a.cfg.Defaults.Output = a.output
	}
	if cmd.Flags().Changed("max-len") {
		a.cfg.Defaults.MaxStringLen = a.maxLen
	}
	if a.noColor {
		a.cfg.Defaults.Color = false
	}
	if err := a.cfg.Validate(); err != nil {
		return resolve.Usagef("", "%v", err)
	}
	a.logger.Debug("config loaded", "path", a.configPath, "groups", len(a.cfg.Groups), "output", a.cfg.Defaults.Output)
	return nil
}

// session builds the evaluator for one command. The returned func releases
// every list the session owns.
func (a *app) session(ctx context.Context) (*eval.Evaluator, func(), error) {
	state, err := selector.New(a.cfg, selector.WithLogger(a.logger))
	if err != nil {
		return nil, nil, err
	}
	engine := setalg.New(
		setalg.WithLogger(a.logger),
		setalg.WithMaxStringLen(a.cfg.Defaults.MaxStringLen),
	)
	ev := eval.New(engine, state,
		eval.WithLogger(a.logger),
		eval.WithContext(ctx),
		eval.WithTransforms(a.cfg.Transforms),
	)
	return ev, func() {
		if err := state.Close(); err != nil {
			a.logger.Warn("releasing session lists", "err", err)
		}
	}, nil
}

func (a *app) formatter() *output.Formatter {
	color := a.cfg.Defaults.Color && isTerminal(a.out)
	return output.NewFormatter(a.cfg.Defaults.Output, color, a.cfg.Defaults.MaxStringLen)
}

func (a *app) opCmd(op *eval.Op) *cobra.Command {
	cmd := &cobra.Command{
		Use:   op.Name + " " + op.Args,
		Short: op.Short,
		Args:  argBounds(op),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, done, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			res, err := ev.Run(op, cmd.Flags(), args)
			if err != nil {
				return err
			}
			defer res.Release()

			text, err := a.formatter().Format(res)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, text)
			return nil
		},
	}
	op.AddFlags(cmd.Flags())
	return cmd
}

func argBounds(op *eval.Op) cobra.PositionalArgs {
	if op.MaxArgs < 0 {
		return usageArgs(cobra.MinimumNArgs(op.MinArgs))
	}
	return usageArgs(cobra.RangeArgs(op.MinArgs, op.MaxArgs))
}

// usageArgs reports argument count mistakes as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return resolve.Usagef(cmd.Name(), "%v", err)
		}
		return nil
	}
}

func (a *app) groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List configured groups",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, done, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			state := ev.State()
			var rows []output.GroupRow
			for _, name := range state.GroupNames() {
				hl, _ := state.Lookup(name)
				s, _ := hl.RangedString(a.cfg.Defaults.MaxStringLen)
				rows = append(rows, output.GroupRow{
					Name:        name,
					Count:       hl.Count(),
					Range:       s,
					Description: a.cfg.Groups[name].Description,
				})
			}
			fmt.Fprint(a.out, a.formatter().FormatGroups(rows))
			return nil
		},
	}
}

func (a *app) recipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe NAME [ARG...]",
		Short: "Run a recipe, printing the result of each step",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, _, ok := recipe.ResolveRecipe(args[0], a.cfg)
			if !ok {
				return fmt.Errorf("unknown recipe %q (available: %v)", args[0], recipe.Names(a.cfg))
			}

			ev, done, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			a.logger.Debug("running recipe", "recipe", args[0], "steps", len(rec.Steps))
			results, err := recipe.New(ev).Run(cmd.Context(), recipe.Steps(rec), args[1:])
			defer recipe.ReleaseAll(results)

			f := a.formatter()
			for _, sr := range results {
				if sr.Step.Assign != "" {
					a.logger.Debug("stored", "var", sr.Step.Assign, "hosts", sr.Result.List.Count())
					continue
				}
				text, ferr := f.Format(sr.Result)
				if ferr != nil {
					return ferr
				}
				fmt.Fprint(a.out, text)
			}
			return err
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) recipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List built-in and configured recipes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged := recipe.MergedRecipes(a.cfg)
			var rows []output.RecipeRow
			for _, name := range recipe.Names(a.cfg) {
				_, configured := a.cfg.Recipes[name]
				rows = append(rows, output.RecipeRow{
					Name:        name,
					Builtin:     !configured,
					Steps:       merged[name].Steps,
					Description: merged[name].Description,
				})
			}
			fmt.Fprint(a.out, a.formatter().FormatRecipes(rows))
			return nil
		},
	}
}

func (a *app) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, done, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			r := repl.New(repl.Config{
				Evaluator:   ev,
				Formatter:   a.formatter(),
				In:          a.in,
				Out:         a.out,
				Err:         a.errOut,
				Interactive: isTerminal(a.in),
				Logger:      a.logger,
				Recipes:     recipe.MergedRecipes(a.cfg),
			})
			return r.Run(cmd.Context())
		},
	}
}

// isTerminal reports whether v is an *os.File attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
