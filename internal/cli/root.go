package cli

import (
	"fmt"

	"github.com/kirillm/fx-copilot/internal/config"
	"github.com/kirillm/fx-copilot/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	policyPath string
)

var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "FX copilot - conversational autonomy orchestrator for FX trading",
	Long: `FX copilot turns plain-language commands into guarded trading actions.
Every trade goes through explain-before-execute on the guardrail service,
full autonomy needs an explicit confirmation, and the kill switch always
works locally even when the service is unreachable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Override POLICY_PATH (local limits YAML)")
}

// Execute запускает CLI
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig читает .env и окружение, затем применяет флаги
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if policyPath != "" {
		cfg.PolicyPath = policyPath
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*utils.Logger, error) {
	return utils.NewFileLogger(cfg.Log.Level, utils.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})
}
