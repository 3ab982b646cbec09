package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/internal/service/chat"
	"github.com/beesandtrees/ocean-breeze-chat/internal/service/memory"
	"github.com/beesandtrees/ocean-breeze-chat/internal/transport/cli"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/srv"
)

var (
	chatUserID  string
	chatPersona string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  `Opens a readline chat with the configured persona. Past conversations are recalled and new ones are remembered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		// Session id correlates all log lines of this chat run.
		logger := log.FromCtx(ctx).With().Str("session", uuid.NewString()).Logger()
		ctx = logger.WithContext(ctx)

		a, err := newApp(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize")
			return err
		}

		if a.ai == nil {
			_ = a.Close()
			return errors.New("chat requires an LLM provider, set ANTHROPIC_API_KEY")
		}

		if chatUserID == "" {
			chatUserID = core.DefaultUserID
		}
		if chatPersona != "" {
			a.cfg.Persona = chatPersona
		}

		chatSvc := chat.NewChat(a.cfg, a.ai, a.memory)

		rl, err := cli.NewReadLine(chatSvc, a.cfg, chatUserID)
		if err != nil {
			return err
		}

		janitor := memory.NewJanitor(a.convs, a.tiers, a.ext, a.cfg.JanitorInterval, a.cfg.MaxAgeDays)

		services := []srv.Service{
			srv.NewCleanup(a.Close),
			janitor,
		}

		srv.StartServices(ctx, services)

		// The readline loop runs in the foreground; leaving it ends the
		// session, so the shared context is canceled to release the rest.
		runErr := rl.Start(ctx)
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}
		stop()

		if err := rl.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to close readline")
		}
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("breeze has been shut down gracefully")

		return runErr
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUserID, "user", "u", "", "user id the conversation belongs to")
	chatCmd.Flags().StringVarP(&chatPersona, "persona", "p", "", "persona to chat with (default from config)")
	rootCmd.AddCommand(chatCmd)
}
