package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/speech"
)

// Narrator озвучка оркестратора в виде сообщений администраторам.
// Распознавание речи не поддерживается.
type Narrator struct {
	bot *Bot
}

// NewNarrator создает провайдер речи поверх бота
func NewNarrator(bot *Bot) *Narrator {
	return &Narrator{bot: bot}
}

func (n *Narrator) Speak(ctx context.Context, text, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ids := n.bot.auth.AdminIDs()
	if len(ids) == 0 {
		return speech.ErrUnavailable
	}
	for _, id := range ids {
		n.bot.sendOnce(id, text)
	}
	return nil
}

func (n *Narrator) ListenOnce(context.Context, string, time.Duration) (string, error) {
	return "", speech.ErrUnavailable
}

func (n *Narrator) UnlockAudio(context.Context) bool { return true }

func (n *Narrator) Stop() {}

func (n *Narrator) Capabilities() speech.Capabilities {
	return speech.Capabilities{Synthesis: true}
}

var _ speech.Provider = (*Narrator)(nil)
