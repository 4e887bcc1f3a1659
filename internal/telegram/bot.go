package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kirillm/fx-copilot/internal/orchestrator"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

const (
	maxMessageLength = 4096
	dedupeWindow     = 5 * time.Second
	limiterIdle      = 5 * time.Minute
)

// Controller операции оркестратора, доступные из чата
type Controller interface {
	HandleCommand(ctx context.Context, text string) orchestrator.Outcome
	EngageKillSwitch(ctx context.Context, reason string) orchestrator.Outcome
	RefreshGuardrails(ctx context.Context) orchestrator.Outcome
	MarketBriefing(ctx context.Context, pair string) orchestrator.Outcome
	Snapshot() orchestrator.Snapshot
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type sentKey struct {
	chatID int64
	text   string
}

// Bot принимает команды из Telegram и передает их оркестратору
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	logger  *utils.Logger
	control Controller
	auth    *AuthManager
	now     func() time.Time

	sentMu sync.Mutex
	sent   map[sentKey]time.Time

	wg sync.WaitGroup
}

// NewBot авторизует бота по токену. Оркестратор подключается через
// SetController до Start.
func NewBot(token string, logger *utils.Logger, auth *AuthManager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Telegram bot authorized: @%s", api.Self.UserName)

	b := newBot(api, logger, nil, auth)
	b.api = api
	return b, nil
}

func newBot(out sender, logger *utils.Logger, control Controller, auth *AuthManager) *Bot {
	if logger == nil {
		logger = utils.Discard()
	}
	return &Bot{
		out:     out,
		logger:  logger,
		control: control,
		auth:    auth,
		now:     time.Now,
		sent:    make(map[sentKey]time.Time),
	}
}

// SetController подключает оркестратор
func (b *Bot) SetController(control Controller) {
	b.control = control
}

// Start обрабатывает обновления до отмены ctx
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	cleanup := time.NewTicker(limiterIdle)
	defer cleanup.Stop()

	b.broadcast("🤖 FX copilot started. Use /help to see available commands.")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("📴 [Telegram] bot stopped")
			return

		case <-cleanup.C:
			if n := b.auth.CleanupRateLimiters(limiterIdle); n > 0 {
				b.logger.Debug("[Telegram] dropped %d idle rate limiters", n)
			}

		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

// handleMessage проверяет доступ и маршрутизирует сообщение
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.auth.IsAllowed(userID) {
		b.logger.Warn("⚠️ [Telegram] unauthorized access attempt from user %d", userID)
		b.send(chatID, "⛔ Access denied.")
		return
	}

	if err := b.auth.CheckRateLimit(userID); err != nil {
		b.send(chatID, "⏱ "+err.Error())
		return
	}

	b.logger.Info("[Telegram] message from %d: %s", userID, message.Text)

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Свободный текст может менять автономию, поэтому только для админов
	if err := b.auth.RequireAdmin(userID); err != nil {
		b.send(chatID, "⛔ "+err.Error())
		return
	}
	b.sendOutcome(chatID, b.control.HandleCommand(ctx, message.Text))
}

// handleCommand обрабатывает slash-команды
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start", "help":
		b.send(chatID, helpText)

	case "status":
		snap := b.control.Snapshot()
		b.send(chatID, NewFormatter(snap.Language).FormatStatus(snap, b.now()))

	case "decisions":
		snap := b.control.Snapshot()
		b.send(chatID, NewFormatter(snap.Language).FormatDecisions(snap.Decisions, 10))

	case "briefing":
		b.sendOutcome(chatID, b.control.MarketBriefing(ctx, strings.ToUpper(args)))

	case "refresh":
		if !b.requireAdmin(message) {
			return
		}
		b.sendOutcome(chatID, b.control.RefreshGuardrails(ctx))

	case "kill":
		if !b.requireAdmin(message) {
			return
		}
		reason := args
		if reason == "" {
			reason = "telegram /kill"
		}
		b.sendOutcome(chatID, b.control.EngageKillSwitch(ctx, reason))

	default:
		b.send(chatID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) requireAdmin(message *tgbotapi.Message) bool {
	if err := b.auth.RequireAdmin(message.From.ID); err != nil {
		b.send(message.Chat.ID, "⛔ "+err.Error())
		return false
	}
	return true
}

func (b *Bot) sendOutcome(chatID int64, out orchestrator.Outcome) {
	text := out.Message
	if out.Err != nil {
		text = strings.TrimSpace(fmt.Sprintf("%s\n⚠️ %v", text, out.Err))
	}
	if text == "" {
		return
	}
	b.sendOnce(chatID, text)
}

// broadcast отправляет сообщение всем администраторам
func (b *Bot) broadcast(text string) int {
	ids := b.auth.AdminIDs()
	for _, id := range ids {
		b.send(id, text)
	}
	return len(ids)
}

// sendOnce пропускает текст, уже отправленный в этот чат в пределах
// dedupeWindow: ответ на команду и его озвучка приходят почти одновременно.
func (b *Bot) sendOnce(chatID int64, text string) {
	if b.seenRecently(chatID, text) {
		return
	}
	b.send(chatID, text)
}

// send отправляет сообщение, разбивая длинные
func (b *Bot) send(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLength) {
		message := tgbotapi.NewMessage(chatID, part)
		if _, err := b.out.Send(message); err != nil {
			b.logger.Error("❌ [Telegram] failed to send message: %v", err)
		}
	}
}

func (b *Bot) seenRecently(chatID int64, text string) bool {
	now := b.now()
	key := sentKey{chatID: chatID, text: strings.TrimSpace(text)}

	b.sentMu.Lock()
	defer b.sentMu.Unlock()

	for k, at := range b.sent {
		if now.Sub(at) > dedupeWindow {
			delete(b.sent, k)
		}
	}
	if _, ok := b.sent[key]; ok {
		return true
	}
	b.sent[key] = now
	return false
}

const helpText = `🤖 FX Copilot

📊 MONITORING
/status - Autonomy mode, guardrails, connection
/decisions - Recent decision log
/briefing [PAIR] - Market briefing (default pair if omitted)

🛡 CONTROL (admins)
/refresh - Resync guardrails with the service
/kill [reason] - Engage the kill switch

💬 Plain messages are handled as commands, for example:
"Enable full autonomy with 1.5% risk and 3% daily loss"
"confirm command"
"run cycle"
"USD/PKR outlook for next week"
"Switch to Russian"`
