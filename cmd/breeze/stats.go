package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show stored conversation counts and tier sizes",
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

		counts, err := a.convs.PersonaCounts(ctx)
		if err != nil {
			return err
		}

		if len(counts) == 0 {
			fmt.Println("No conversations stored yet.")
			return nil
		}

		fmt.Println("Conversations by persona:")
		for _, pc := range counts {
			fmt.Printf("  %-20s %d\n", pc.Persona, pc.Count)
		}

		recent, longTerm, err := a.tiers.TrackedCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\nTracked: %d recent, %d long-term\n", recent, longTerm)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
