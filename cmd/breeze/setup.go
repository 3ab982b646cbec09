package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/beesandtrees/ocean-breeze-chat/internal/config"
	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/internal/providers/llm"
	"github.com/beesandtrees/ocean-breeze-chat/internal/service/memory"
	"github.com/beesandtrees/ocean-breeze-chat/internal/storage/sqlite"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg    *config.AppConfig
	db     *sql.DB
	convs  *sqlite.Conversations
	tiers  *memory.TierManager
	ai     core.AIProvider
	memory *memory.Service
	ext    core.Extractor
}

func newApp(ctx context.Context) (*app, error) {
	logger := log.FromCtx(ctx)

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, err
	}

	appCfg := config.NewAppConfig(ctx)

	if err := os.MkdirAll(appCfg.RuntimePath, 0755); err != nil {
		return nil, err
	}

	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	convs, err := sqlite.NewConversations(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	aiProvider, err := llm.NewProvider(ctx, appCfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if aiProvider == nil {
		logger.Warn().Msg("no LLM provider configured, replies disabled")
	}

	extractor := newExtractor(appCfg, aiProvider)

	tierCfg := memory.TierConfig{
		Immediate: appCfg.ImmediateTierSize,
		Recent:    appCfg.RecentTierSize,
		LongTerm:  appCfg.LongTermTierSize,
	}
	tiers := memory.NewTierManager(convs, sqlite.NewTiers(db), tierCfg)
	ranker := memory.NewRanker(convs, aiProvider)

	instructions := appCfg.MemoryInstructions
	if instructions == "" {
		instructions = memory.DefaultInstructions
	}
	assembler := memory.NewAssembler(convs, ranker, extractor, tierCfg, instructions)

	mem := memory.NewService(
		convs,
		tiers,
		ranker,
		assembler,
		extractor,
		appCfg.MigrationThreshold,
		appCfg.MaxAgeDays,
	)

	return &app{
		cfg:    appCfg,
		db:     db,
		convs:  convs,
		tiers:  tiers,
		ai:     aiProvider,
		memory: mem,
		ext:    extractor,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func newExtractor(cfg *config.AppConfig, ai core.AIProvider) core.Extractor {
	heuristic := memory.NewHeuristicExtractor()
	if cfg.ExtractorStrategy == "model" && ai != nil {
		return memory.NewModelExtractor(ai, heuristic, cfg.ExtractTimeout)
	}
	return heuristic
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
