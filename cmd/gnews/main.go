package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
	"github.com/rcourtman/gnews-profiles/internal/logging"
	"github.com/rs/zerolog"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(internalerrors.ExitCode(err))
}

// execute runs one command line and logs its outcome.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	state := &cliState{}
	root := newRootCmd(state)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	switch {
	case state.ctx != nil:
		logOutcome(logging.FromContext(state.ctx), state.verb, err)
	case err != nil:
		// Usage and argument errors fail before setup starts logging.
		verb := "gnews"
		if cmd != nil && cmd != root {
			verb = cmd.Name()
		}
		logOutcome(logging.FromContext(state.fallbackContext(ctx, stderr)), verb, err)
	}
	logging.Shutdown()
	return err
}

func logOutcome(logger zerolog.Logger, verb string, err error) {
	if err == nil {
		logger.Info().Str("command", verb).Msg("Command completed")
		return
	}
	logger.Error().
		Err(err).
		Str("command", verb).
		Str("kind", string(internalerrors.KindOf(err))).
		Int("exitCode", internalerrors.ExitCode(err)).
		Msg("Command failed")
}
