// Command hostlist evaluates set algebra over cluster host lists written in
// range notation, such as "node[001-064],login[1-2]".
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/agent462/hostlist/internal/resolve"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// run builds the command tree and executes it with args.
func run(in io.Reader, outW, errW io.Writer, args []string) error {
	root := newRootCmd(&app{in: in, out: outW, errOut: errW})
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)
	return root.Execute()
}

// exitCode maps usage mistakes to 2 and everything else to 1.
func exitCode(err error) int {
	var ue *resolve.UsageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}
