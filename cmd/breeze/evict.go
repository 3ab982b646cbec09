package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

var evictDays int

var evictCmd = &cobra.Command{
	Use:          "evict",
	Short:        "Evict long-term memories past the retention window",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		days := evictDays
		if days <= 0 {
			days = a.memory.MaxAgeDays()
		}

		removed, err := a.memory.Evict(ctx, days)
		if err != nil {
			return fmt.Errorf("eviction failed: %w", err)
		}

		log.FromCtx(ctx).Info().Int("removed", removed).Int("max_age_days", days).Msg("eviction complete")
		fmt.Printf("Evicted %d conversation(s) older than %d days.\n", removed, days)
		return nil
	},
}

func init() {
	evictCmd.Flags().IntVar(&evictDays, "days", 0, "retention window in days (default from config)")
	rootCmd.AddCommand(evictCmd)
}
