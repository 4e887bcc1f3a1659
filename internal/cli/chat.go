package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kirillm/fx-copilot/internal/orchestrator"
	"github.com/kirillm/fx-copilot/internal/speech"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatSpeak bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the orchestrator from the terminal",
	Long: `Read commands from stdin, one per line, and print the replies.

In a terminal a prompt is shown; piped input is processed as a script.
Type "exit" or press Ctrl+D to quit.

Example:
  copilot chat
  printf 'status\nrun cycle\n' | copilot chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatSpeak, "speak", false, "Print narration to the console in addition to replies")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// в терминале логи мешают диалогу
	if logLevel == "" && cfg.Log.File == "" {
		cfg.Log.Level = "warn"
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provider speech.Provider = speech.Silent{}
	if chatSpeak {
		provider = speech.NewConsole(os.Stdout)
	}

	a, err := newApp(ctx, cfg, logger, provider)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	return chatLoop(ctx, a.orch, os.Stdin, os.Stdout, interactive)
}

type commandHandler interface {
	HandleCommand(ctx context.Context, text string) orchestrator.Outcome
}

// chatLoop читает строки до EOF, "exit" или отмены ctx
func chatLoop(ctx context.Context, h commandHandler, in io.Reader, out io.Writer, interactive bool) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	prompt := func() {
		if interactive {
			fmt.Fprint(out, "you> ")
		}
	}

	prompt()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			switch strings.ToLower(line) {
			case "":
				prompt()
				continue
			case "exit", "quit":
				return nil
			}

			res := h.HandleCommand(ctx, line)
			if res.Message != "" {
				fmt.Fprintf(out, "copilot> %s\n", res.Message)
			}
			if res.Err != nil {
				fmt.Fprintf(out, "⚠️ %v\n", res.Err)
			}
			prompt()
		}
	}
}
