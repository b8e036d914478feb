package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shannon/internal/config"
	"shannon/internal/usage"
)

var usageReset bool

// usageCmd prints token consumption of the LLM backends
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token usage of the openai and gemini backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, err := usage.NewTracker(config.DefaultStateDir())
		if err != nil {
			return err
		}
		if usageReset {
			if err := tracker.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "usage reset")
			return nil
		}
		printUsage(cmd.OutOrStdout(), tracker.Stats())
		fmt.Fprintf(cmd.OutOrStdout(), "\nrecorded in %s\n", tracker.Path())
		return nil
	},
}

func init() {
	usageCmd.Flags().BoolVar(&usageReset, "reset", false, "Clear the recorded usage")
}

// withUsage attaches a tracker when the configured backend bills tokens.
// The returned func flushes it.
func withUsage(ctx context.Context) (context.Context, func()) {
	if cfg.Server.Backend != "openai" && cfg.Server.Backend != "gemini" {
		return ctx, func() {}
	}
	tracker, err := usage.NewTracker(config.DefaultStateDir())
	if err != nil {
		logger.Warn("usage tracking disabled", zap.Error(err))
		return ctx, func() {}
	}
	return usage.NewContext(ctx, tracker), func() {
		if err := tracker.Close(); err != nil {
			logger.Warn("failed to save usage", zap.Error(err))
		}
	}
}

func printUsage(w io.Writer, stats usage.AggregatedStats) {
	fmt.Fprintf(w, "requests: %d\n", stats.Requests)
	fmt.Fprintf(w, "tokens:   %d (in %d, out %d)\n", stats.Total.Total, stats.Total.Input, stats.Total.Output)
	section := func(title string, m map[string]usage.TokenCounts) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c := m[k]
			fmt.Fprintf(w, "  %-20s %8d (in %d, out %d)\n", k, c.Total, c.Input, c.Output)
		}
	}
	section("by backend", stats.ByBackend)
	section("by model", stats.ByModel)
	section("by strength", stats.ByStrength)
}
