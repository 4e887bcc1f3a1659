package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillm/fx-copilot/internal/api"
	"github.com/kirillm/fx-copilot/internal/speech"
	"github.com/kirillm/fx-copilot/internal/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator with the HTTP API and the Telegram bot",
	Long: `Run the orchestrator as a long-lived service.

The HTTP API and the /ws live feed are always started. The Telegram bot
starts when TELEGRAM_BOT_TOKEN is set; narration is then delivered to
admin chats instead of the console.

Example:
  copilot serve --port 8080
  DB_ENABLED=true copilot serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override SERVER_PORT")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provider speech.Provider = speech.NewConsole(os.Stdout)
	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		auth := telegram.NewAuthManager(cfg.Telegram.Admins, cfg.Telegram.Whitelist, cfg.Telegram.RateLimit)
		bot, err = telegram.NewBot(cfg.Telegram.BotToken, logger, auth)
		if err != nil {
			return err
		}
		provider = telegram.NewNarrator(bot)
	}

	a, err := newApp(ctx, cfg, logger, provider)
	if err != nil {
		return err
	}
	defer a.Close()

	hub := api.NewHub(logger)
	a.journal.Subscribe(hub)
	server := api.NewServer(logger, a.orch, hub, cfg.Server.Port)

	if err := a.orch.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if bot != nil {
		bot.SetController(a.orch)
		g.Go(func() error {
			bot.Start(gctx)
			return nil
		})
	}

	logger.Info("✅ FX copilot is running (API on :%d)", cfg.Server.Port)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("👋 shutdown complete")
	return nil
}
