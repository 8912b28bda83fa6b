package cmd

import (
	"context"
	"fmt"

	"reading-gen/anki"
	"reading-gen/cache"
	"reading-gen/db"
	"reading-gen/llm"
	"reading-gen/settings"
	"reading-gen/utils"
)

// runtime holds the services every command is built on
type runtime struct {
	config     *utils.Config
	configPath string
	logger     *utils.Logger
	db         *db.DB
	settings   *settings.Manager
	cache      *cache.ArticleCache
	anki       *anki.Client
	llm        *llm.Client
}

// openRuntime loads the bootstrap config, opens the log and the database and
// restores the stored configuration and article cache.
func openRuntime(ctx context.Context) (*runtime, error) {
	configPath, err := utils.EnsureDefaultConfig(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("creating default config: %w", err)
	}
	cfg, err := utils.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := utils.NewLogger(utils.GetLogPath(cfg.Data.LogDir), cfg.Debug || flagDebug)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger.Debug("Using config file: %s", configPath)

	rt := &runtime{config: cfg, configPath: configPath, logger: logger}

	rt.db, err = db.New(cfg.Data.DBPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Debug("Database initialized: %s", cfg.Data.DBPath)

	rt.settings, err = settings.Open(ctx, rt.db, logger.Zap())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	policy, err := cache.PolicyByName(cfg.Cache.KeyPolicy)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.cache, err = cache.Open(ctx, rt.db, policy, logger.Zap())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("loading article cache: %w", err)
	}

	rt.anki = anki.New(cfg.Anki.URL, logger.Zap())
	rt.llm = llm.NewClient(logger.Zap())
	return rt, nil
}

// Close releases the database and flushes the log
func (rt *runtime) Close() {
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Error("Failed to close database: %v", err)
		}
	}
	_ = rt.logger.Close()
}
