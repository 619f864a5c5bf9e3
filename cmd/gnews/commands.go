package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rcourtman/gnews-profiles/internal/config"
	"github.com/rcourtman/gnews-profiles/internal/history"
	"github.com/rcourtman/gnews-profiles/internal/logging"
	"github.com/rcourtman/gnews-profiles/internal/netutil"
	"github.com/rcourtman/gnews-profiles/internal/profile"
	"github.com/rcourtman/gnews-profiles/internal/search"
	"github.com/rcourtman/gnews-profiles/internal/search/googlenews"
	"github.com/rcourtman/gnews-profiles/internal/search/serpapi"
)

// newProvider selects the search backend. Tests replace it.
var newProvider = func(cfg *config.Config) (search.Provider, error) {
	if err := cfg.ValidateProvider(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	switch cfg.Provider {
	case config.ProviderSerpAPI:
		return serpapi.New(cfg.SerpAPIKey), nil
	case config.ProviderGoogleNews:
		return googlenews.New(cfg.GoogleNewsURL, func(proxy string) (*http.Client, error) {
			return netutil.NewHTTPClient(netutil.ClientOptions{Timeout: cfg.RequestTimeout, Proxy: proxy})
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

var flagAliases = map[string]string{
	"exclude": "exclude_websites",
}

func aliasNormalizer(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}
	return pflag.NormalizedName(name)
}

func newAddCmd(state *cliState) *cobra.Command {
	var attrs profile.Attrs

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new search profile",
		Example: `  gnews add temp --language en --country US --query AI --period 7d --max_results 50
  gnews add temp --language en --country US --query AI --period 7d --exclude cnn.com bbc.com
  gnews add jan --language ko --country KR --query 반도체 --start_date 2024-01-01 --end_date 2024-01-31`,
		// --exclude takes space separated values, which pflag cannot express.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			args = expandListFlag(args, "exclude_websites", "--exclude", "--exclude_websites")
			positional, helped, err := parseOwnFlags(cmd, args, cobra.ExactArgs(1))
			if helped || err != nil {
				return err
			}

			a, _, err := state.setup(cmd, "add", positional)
			if err != nil {
				return err
			}

			p, err := a.editor.Add(positional[0], attrs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' added (%s, %s/%s, %s)\n",
				p.Name, p.Query, p.Language, p.Country, p.Time)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&attrs.Language, "language", "", "search language, e.g. en")
	flags.StringVar(&attrs.Country, "country", "", "search country, e.g. US")
	flags.StringVar(&attrs.Query, "query", "", "search query")
	flags.StringVar(&attrs.Period, "period", "", "relative window such as 12h, 7d, 1m, 1y")
	flags.StringVar(&attrs.StartDate, "start_date", "", "range start (YYYY-MM-DD)")
	flags.StringVar(&attrs.EndDate, "end_date", "", "range end, inclusive (YYYY-MM-DD)")
	flags.IntVar(&attrs.MaxResults, "max_results", profile.DefaultMaxResults, "maximum number of articles to save")
	flags.StringSliceVar(&attrs.ExcludeWebsites, "exclude_websites", nil, "domains to drop from results (space or comma separated)")
	flags.StringVar(&attrs.Proxy, "proxy", "", "proxy URL for this profile's searches")
	flags.BoolP("help", "h", false, "help for add")
	flags.SetNormalizeFunc(aliasNormalizer)

	return cmd
}

func newUseCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Run a saved profile and write the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := state.setup(cmd, "use", args)
			if err != nil {
				return err
			}

			provider, err := newProvider(a.cfg)
			if err != nil {
				return err
			}
			executor := search.NewExecutor(a.store, provider, a.cfg.OutputDir)

			if a.cfg.HistoryEnabled {
				ledger, err := history.Open(a.cfg.HistoryPath)
				if err != nil {
					logger := logging.FromContext(ctx)
					logger.Warn().Err(err).Msg("Search history disabled for this run")
				} else {
					defer ledger.Close()
					executor.WithRecorder(ledger)
				}
			}

			artifact, err := executor.Use(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d article(s) to %s\n", artifact.Count, artifact.Path)
			return nil
		},
	}
}

func newEditCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <name> --att KEY VALUE [VALUE...] [--att ...]",
		Short: "Change attributes of a saved profile",
		Long: `Change attributes of a saved profile. Each --att names one attribute and
its new value(s): ` + strings.Join(profile.Keys, ", ") + `.

Setting period clears start_date/end_date and setting a date clears period.
An empty value clears proxy or exclude_websites.`,
		Example: `  gnews edit temp --att query ML
  gnews edit temp --att exclude_websites cnn.com foxnews.com --att max_results=20
  gnews edit temp --att start_date 2024-01-01 --att end_date 2024-01-31`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, assignments, err := parseEditArgs(args)
			if err != nil {
				return err
			}
			positional, helped, err := parseOwnFlags(cmd, rest, cobra.ExactArgs(1))
			if helped || err != nil {
				return err
			}
			if len(assignments) == 0 {
				return fmt.Errorf("nothing to change: pass at least one --att KEY VALUE")
			}

			a, _, err := state.setup(cmd, "edit", args)
			if err != nil {
				return err
			}

			name := positional[0]
			_, changes, err := a.editor.Edit(name, assignments)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				fmt.Fprintf(out, "Profile '%s' unchanged\n", name)
				return nil
			}
			for _, c := range changes {
				fmt.Fprintf(out, "  %s\n", c)
			}
			fmt.Fprintf(out, "Profile '%s' updated\n", name)
			return nil
		},
	}
	cmd.Flags().BoolP("help", "h", false, "help for edit")
	return cmd
}

func newDelCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "del <name>",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := state.setup(cmd, "del", args)
			if err != nil {
				return err
			}
			if err := a.editor.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted\n", args[0])
			return nil
		},
	}
}

func newListCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := state.setup(cmd, "list", args)
			if err != nil {
				return err
			}
			profiles, err := a.editor.List()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No profiles in %s\n", a.store.Path())
				return nil
			}

			t := newTable("NAME", "LOCALE", "QUERY", "TIME", "MAX", "EXCLUDED")
			for _, p := range profiles {
				t.Row(p.Name, p.Language+"/"+p.Country, p.Query, p.Time.String(),
					fmt.Sprint(p.MaxResults), strings.Join(p.ExcludeWebsites, ","))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newShowCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved profile as stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := state.setup(cmd, "show", args)
			if err != nil {
				return err
			}
			p, err := a.editor.Get(args[0])
			if err != nil {
				return err
			}
			data, err := profile.Encode(profile.Profiles{p.Name: p})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newHistoryCmd(state *cliState) *cobra.Command {
	var (
		limit       int
		profileName string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := state.setup(cmd, "history", args)
			if err != nil {
				return err
			}
			if !a.cfg.HistoryEnabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Search history is disabled")
				return nil
			}

			ledger, err := history.Open(a.cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			entries, err := ledger.Recent(ctx, profileName, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No searches recorded")
				return nil
			}

			t := newTable("WHEN", "PROFILE", "PROVIDER", "QUERY", "COUNT", "RESULT")
			for _, e := range entries {
				result := e.Path
				if !e.Succeeded() {
					result = "failed: " + e.Error
				}
				t.Row(e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Profile, e.Provider,
					e.Query, fmt.Sprint(e.Count), result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "number of entries to show")
	cmd.Flags().StringVar(&profileName, "profile", "", "only show searches for this profile")
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}
