package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/beesandtrees/ocean-breeze-chat/internal/service/ui"
)

var (
	searchPersona string
	searchLimit   int
)

var searchCmd = &cobra.Command{
	Use:          "search <query>",
	Short:        "Search stored conversations by relevance",
	Args:         cobra.MinimumNArgs(1),
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

		persona := searchPersona
		if persona == "" {
			persona = a.cfg.Persona
		}

		query := strings.Join(args, " ")
		matches, err := a.memory.FindRelated(ctx, query, persona, searchLimit)
		if err != nil {
			return err
		}

		if len(matches) == 0 {
			fmt.Println("No related conversations found.")
			return nil
		}

		for _, m := range matches {
			when := time.Unix(m.Record.CreatedAt, 0).Format("2006-01-02")
			summary := m.Record.Metadata.Summary
			if summary == "" {
				summary = "(no summary)"
			}
			fmt.Printf("[%d] %s  score=%d\n    %s\n", m.Record.ID, when, m.Score, ui.MemoryStyle.Render(summary))
			if len(m.Record.Metadata.Topics) > 0 {
				fmt.Printf("    topics: %s\n", strings.Join(m.Record.Metadata.Topics, ", "))
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchPersona, "persona", "p", "", "persona to search within (default from config)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
