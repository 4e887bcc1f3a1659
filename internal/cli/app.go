package cli

import (
	"context"
	"fmt"

	"github.com/kirillm/fx-copilot/internal/backend"
	"github.com/kirillm/fx-copilot/internal/config"
	"github.com/kirillm/fx-copilot/internal/i18n"
	"github.com/kirillm/fx-copilot/internal/journal"
	"github.com/kirillm/fx-copilot/internal/market"
	"github.com/kirillm/fx-copilot/internal/orchestrator"
	"github.com/kirillm/fx-copilot/internal/policy"
	"github.com/kirillm/fx-copilot/internal/speech"
	"github.com/kirillm/fx-copilot/internal/storage"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

// app собранные компоненты одной сессии
type app struct {
	logger  *utils.Logger
	orch    *orchestrator.Orchestrator
	journal *journal.Journal
	store   *storage.PostgresStorage
	archive *storage.Archive
}

// newApp собирает оркестратор и его зависимости. Архив в PostgreSQL
// подключается только при DB_ENABLED=true.
func newApp(ctx context.Context, cfg *config.Config, logger *utils.Logger, provider speech.Provider) (*app, error) {
	engine, err := policy.NewEngine(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	client := backend.NewClient(backend.Options{
		BaseURL:        cfg.Service.BaseURL,
		UserID:         cfg.Service.UserID,
		Timeout:        cfg.Service.Timeout,
		RequestsPerSec: cfg.Service.RequestsPerSec,
		Burst:          cfg.Service.RequestBurst,
	}, logger)

	reference := make(map[string]float64)
	for _, inst := range engine.Instruments() {
		reference[inst.Pair] = inst.ReferencePrice
	}
	feed := market.NewFeed(client, reference, cfg.Service.MarketCacheTTL, logger)

	a := &app{
		logger:  logger,
		journal: journal.New(),
	}

	if cfg.Database.Enabled {
		store, err := storage.NewPostgresStorage(ctx, cfg.Database.DSN(),
			cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
		if err != nil {
			return nil, err
		}
		a.store = store

		if err := storage.Replay(ctx, a.journal, store.Turns(), store.Decisions()); err != nil {
			logger.Warn("⚠️ [Archive] replay failed, starting with an empty journal: %v", err)
		}
		a.archive = storage.NewArchive(store.Turns(), store.Decisions(), logger)
		a.journal.Subscribe(a.archive)
		logger.Info("🗄️ [Archive] PostgreSQL archive enabled (%s@%s/%s)", cfg.Database.User, cfg.Database.Host, cfg.Database.DBName)
	}

	lang, err := i18n.ParseLang(cfg.Autonomy.Language)
	if err != nil {
		lang = i18n.LangEN
	}

	a.orch = orchestrator.New(orchestrator.Deps{
		Service: client,
		Market:  feed,
		Speech:  provider,
		Policy:  engine,
		Journal: a.journal,
		Logger:  logger,
	}, orchestrator.Options{
		AutonomyInterval: cfg.Autonomy.AutonomyInterval,
		BriefingInterval: cfg.Autonomy.BriefingInterval,
		BriefingEnabled:  cfg.Autonomy.BriefingEnabled,
		ListenTimeout:    cfg.Autonomy.ListenTimeout,
		SpeechMinVisual:  cfg.Autonomy.SpeechMinVisual,
		VoiceEnabled:     cfg.Autonomy.VoiceEnabled,
		AccountEquity:    cfg.Autonomy.AccountEquity,
		DefaultPair:      cfg.Autonomy.DefaultPair,
		Language:         lang,
	})

	return a, nil
}

// Close останавливает оркестратор и дописывает архив
func (a *app) Close() {
	if a.orch != nil {
		a.orch.Dispose()
	}
	if a.archive != nil {
		a.archive.Close()
		if n := a.archive.Dropped(); n > 0 {
			a.logger.Warn("⚠️ [Archive] %d records were dropped", n)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("❌ failed to close database: %v", err)
		}
	}
}
