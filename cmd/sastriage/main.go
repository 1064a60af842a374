package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	triageerrors "sastriage/internal/errors"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: stdout, stderr: stderr}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return exitCode(stderr, cmd.ExecuteContext(ctx))
}

// exitError ends the process with code. A nil err prints nothing.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}

	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		if ee.err == nil {
			return code
		}
		err = ee.err
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var te *triageerrors.TriageError
	if errors.As(err, &te) && len(te.SuggestedFixes) > 0 {
		fmt.Fprintln(stderr, "\nSuggested fixes:")
		for _, fix := range te.SuggestedFixes {
			switch fix.Type {
			case triageerrors.RunCommand:
				fmt.Fprintf(stderr, "  - %s: %s\n", fix.Description, fix.Command)
			case triageerrors.EditFile:
				fmt.Fprintf(stderr, "  - %s: edit %s\n", fix.Description, fix.Path)
			default:
				fmt.Fprintf(stderr, "  - %s\n", fix.Description)
			}
		}
	}
	return code
}
