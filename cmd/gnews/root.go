package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rcourtman/gnews-profiles/internal/config"
	"github.com/rcourtman/gnews-profiles/internal/logging"
	"github.com/rcourtman/gnews-profiles/internal/netutil"
	"github.com/rcourtman/gnews-profiles/internal/profile"
	"github.com/spf13/cobra"
)

// cliState carries what a command set up so execute can log the outcome.
type cliState struct {
	configPath string
	storePath  string
	outputDir  string
	logLevel   string

	verb string
	ctx  context.Context
}

// app is the per-invocation environment shared by the verbs.
type app struct {
	cfg    *config.Config
	store  *profile.FileStore
	editor *profile.Editor
}

func newRootCmd(state *cliState) *cobra.Command {
	root := &cobra.Command{
		Use:   "gnews",
		Short: "Manage and run saved Google News search profiles",
		Long: `gnews stores named news search profiles (query, locale, time window,
result limit, excluded sites, proxy) and runs them on demand, saving results
as JSON files.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&state.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/gnews/config.yaml)")
	flags.StringVar(&state.storePath, "store", "", "profile store path (default ./search_profiles.json)")
	flags.StringVar(&state.outputDir, "output-dir", "", "directory for search results (default ./google_news_search_result)")
	flags.StringVar(&state.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newAddCmd(state),
		newUseCmd(state),
		newEditCmd(state),
		newDelCmd(state),
		newListCmd(state),
		newShowCmd(state),
		newHistoryCmd(state),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, starts logging and opens the store. It runs
// inside each RunE because add and edit parse their own flags.
func (s *cliState) setup(cmd *cobra.Command, verb string, args []string) (*app, context.Context, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, cmd.Context(), err
	}
	s.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, cmd.Context(), fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Console = cmd.ErrOrStderr()
	logging.Init(logCfg)
	netutil.SetDNSCacheTTL(cfg.DNSCacheTTL)

	ctx, _ := logging.WithRunID(cmd.Context(), "")
	s.verb = verb
	s.ctx = ctx

	logger := logging.FromContext(ctx)
	logger.Info().
		Str("command", verb).
		Strs("args", args).
		Str("store", cfg.StorePath).
		Msg("Command started")
	for setting := range cfg.EnvOverrides {
		logger.Debug().Str("setting", setting).Msg("Setting overridden by environment")
	}

	store := profile.NewFileStore(cfg.StorePath)
	return &app{
		cfg:    cfg,
		store:  store,
		editor: profile.NewEditor(store),
	}, ctx, nil
}

// fallbackContext starts logging for a command that failed before setup ran.
// Without a usable config the outcome only reaches the console.
func (s *cliState) fallbackContext(ctx context.Context, stderr io.Writer) context.Context {
	logCfg := logging.Config{Format: "auto", Level: "info", Component: "gnews"}
	if cfg, err := config.Load(s.configPath); err == nil && cfg.Validate() == nil {
		logCfg = cfg.LoggingConfig()
	}
	logCfg.Console = stderr
	logging.Init(logCfg)

	ctx, _ = logging.WithRunID(ctx, "")
	return ctx
}

// applyFlags layers explicitly set global flags over the loaded config.
func (s *cliState) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.StorePath = s.storePath
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = s.outputDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = s.logLevel
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gnews %s\n", Version)
			if BuildTime != "unknown" {
				fmt.Fprintf(out, "Built: %s\n", BuildTime)
			}
			if GitCommit != "unknown" {
				fmt.Fprintf(out, "Commit: %s\n", GitCommit)
			}
		},
	}
}
