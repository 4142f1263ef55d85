package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/glebovdev/moodradio/internal/genre"
	"github.com/glebovdev/moodradio/internal/service"
	"github.com/glebovdev/moodradio/internal/station"
	"github.com/spf13/cobra"
)

const toolTimeout = 30 * time.Second

var (
	resolveTag  string
	searchLimit int
	searchProbe bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <text>",
	Short: "Show which genre a mood resolves to",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var searchCmd = &cobra.Command{
	Use:   "search <genre>",
	Short: "List live candidates for a genre",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite stations",
	Args:  cobra.NoArgs,
	RunE:  runFavorites,
}

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "List blacklisted station IDs",
	Args:  cobra.NoArgs,
	RunE:  runBlacklist,
}

var blacklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every blacklisted station",
	Args:  cobra.NoArgs,
	RunE:  runBlacklistClear,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveTag, "tag", "", "Explicit genre tag, bypasses interpretation")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results per search term (0 uses the configured page size)")
	searchCmd.Flags().BoolVar(&searchProbe, "probe", false, "Probe candidates and report the first reachable one")

	blacklistCmd.AddCommand(blacklistClearCmd)
	rootCmd.AddCommand(resolveCmd, searchCmd, favoritesCmd, blacklistCmd)
}

// withApp runs fn against a freshly wired pipeline with console logging.
func withApp(fn func(ctx context.Context, a *app) error) error {
	setupConsoleLogging()

	ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		res := a.interpreter.Interpret(ctx, strings.Join(args, " "), resolveTag)
		if res.Genre == "" {
			res.Genre = genre.DefaultGenre
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "genre:     %s\n", res.Genre)
		fmt.Fprintf(out, "category:  %s\n", res.Category)
		fmt.Fprintf(out, "random:    %t\n", res.UseRandomOrder)
		if res.Reasoning != "" {
			fmt.Fprintf(out, "reasoning: %s\n", res.Reasoning)
		}
		return nil
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		g := genre.Normalize(args[0])

		found, err := a.stations.Search(ctx, g, service.SearchOptions{Limit: searchLimit})
		if err != nil {
			return fmt.Errorf("failed to search %q: %w", g, err)
		}
		found = a.store.FilterBlacklisted(found)

		printStations(cmd, found)

		if searchProbe && len(found) > 0 {
			best, results := a.validator.Probe(ctx, a.validator.Rerank(ctx, g, found))
			for _, r := range results {
				state := "ok"
				if !r.Reachable {
					state = "unreachable"
					if r.Err != nil {
						state = r.Err.Error()
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "probe %-40s %6s  %s\n",
					truncate(r.Station.Name, 40), r.Latency.Round(time.Millisecond), state)
			}
			if best.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nfirst reachable: %s (%s)\n", best.Name, best.StreamURL)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "\nno reachable candidates")
			}
		}
		return nil
	})
}

func runFavorites(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if len(a.cfg.Favorites) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet.")
			return nil
		}
		printStations(cmd, a.cfg.Favorites)
		return nil
	})
}

func runBlacklist(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		ids := a.store.BlacklistIDs()
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Blacklist is empty.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}

func runBlacklistClear(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		n := len(a.store.BlacklistIDs())
		a.store.ClearBlacklist()
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d station(s) from the blacklist.\n", n)
		return nil
	})
}

func printStations(cmd *cobra.Command, stations []station.Station) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFORMAT\tTAGS\tSTREAM")
	for _, s := range stations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncate(s.Name, 40), s.Format(), s.DisplayTags(4), s.StreamURL)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
