package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/intent"
)

// HandleCommand обрабатывает свободный текст: подтверждение, гейт
// высокого риска, локальные правила, удаленный NLP, иначе подсказка.
// Пустой текст игнорируется.
func (o *Orchestrator) HandleCommand(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}
	}

	o.opMu.Lock()
	defer o.opMu.Unlock()
	if o.isDisposed() {
		return Outcome{Err: domain.ErrDisposed}
	}
	o.processing.Store(true)
	defer o.processing.Store(false)

	o.journal.AddTurn(text, true)
	o.logger.Debug("[Orchestrator] command: %q", text)

	out := o.routeLocked(ctx, text)
	o.say(out.Message)
	return out
}

func (o *Orchestrator) routeLocked(ctx context.Context, text string) Outcome {
	// 1. Подтверждение ожидающей команды
	if intent.IsConfirmation(text) {
		pending := o.takePending()
		if pending == "" {
			return Outcome{Message: o.msg.T("confirm_nothing")}
		}
		o.logger.Info("✅ [Orchestrator] confirmed: %q", pending)
		return o.resolveLocked(ctx, pending, true)
	}

	// 2. Гейт высокого риска
	if intent.IsHighRisk(text) {
		return o.gateLocked(text)
	}

	return o.resolveLocked(ctx, text, false)
}

// gateLocked откладывает команду до явного подтверждения; новая команда
// высокого риска заменяет предыдущую
func (o *Orchestrator) gateLocked(text string) Outcome {
	o.stateMu.Lock()
	o.st.pending = text
	o.stateMu.Unlock()

	o.decide("Confirmation required", fmt.Sprintf("High-risk command awaiting confirmation: %q.", text), true, "")
	o.logger.Info("⏸ [Orchestrator] high-risk command pending: %q", text)
	return Outcome{Message: o.msg.Tf("confirm_required", text)}
}

func (o *Orchestrator) takePending() string {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	pending := o.st.pending
	o.st.pending = ""
	return pending
}

func (o *Orchestrator) resolveLocked(ctx context.Context, text string, confirmed bool) Outcome {
	// 3. Локальная таблица правил
	if in, ok := intent.Classify(text); ok {
		o.logger.Debug("[Orchestrator] intent %s (rule %s)", in.Kind, in.Rule)
		return o.dispatchLocked(ctx, in, text, confirmed)
	}

	// 4. Удаленный классификатор
	out, handled := o.remoteIntentLocked(ctx, text)
	if handled {
		return out
	}

	// 5. Не распознано
	return Outcome{Message: o.msg.T("not_automated"), Err: out.Err}
}

// remoteIntentLocked доступен только онлайн; действует при уверенности >= 0.60
func (o *Orchestrator) remoteIntentLocked(ctx context.Context, text string) (Outcome, bool) {
	if o.isOffline() {
		return Outcome{}, false
	}

	res, err := o.service.ParseCommand(ctx, text)
	if err != nil {
		o.logger.Warn("⚠️ [Orchestrator] remote NLP failed: %v", err)
		return Outcome{Err: fmt.Errorf("remote nlp: %w", err)}, false
	}
	if !res.Success || res.Confidence < domain.MinNLPConfidence {
		o.logger.Debug("[Orchestrator] remote NLP ignored: type=%s confidence=%.2f", res.CommandType, res.Confidence)
		return Outcome{}, false
	}

	switch res.CommandType {
	case domain.CommandStopAll:
		return o.killLocked(ctx, "remote command: stop all"), true
	case domain.CommandGetAnalysis:
		pair, _ := res.Parameters["pair"].(string)
		if detected, ok := intent.DetectPair(text); ok {
			pair = detected
		}
		return o.briefingLocked(ctx, pair), true
	}

	if res.AIResponse != "" {
		return Outcome{Message: res.AIResponse}, true
	}
	return Outcome{}, false
}

func (o *Orchestrator) dispatchLocked(ctx context.Context, in intent.Intent, text string, confirmed bool) Outcome {
	switch in.Kind {
	case intent.KindLanguage:
		return o.handleLanguage(in)
	case intent.KindVoiceOn:
		return o.handleVoice(ctx, true)
	case intent.KindVoiceOff:
		return o.handleVoice(ctx, false)
	case intent.KindBriefingConfig:
		return o.handleBriefingConfig(in)
	case intent.KindVoiceTest:
		return o.handleVoiceTest(ctx)
	case intent.KindVoiceCapture:
		return o.handleCapture(ctx)
	case intent.KindMarketBriefing:
		return o.briefingLocked(ctx, in.Pair)
	case intent.KindRunCycle:
		return o.runCycleLocked(ctx)
	case intent.KindNotifications:
		return o.handleNotifications(ctx, in)
	case intent.KindKillSwitch:
		return o.killLocked(ctx, "user command: "+text)
	case intent.KindAutonomy:
		if in.Mode == domain.ModeFullAuto && !confirmed {
			return o.gateLocked(text)
		}
		return o.configureLocked(ctx, in.Mode, in.RiskPct, in.DailyLossPct)
	case intent.KindExplain:
		return o.handleExplain()
	case intent.KindOutlook:
		return o.handleOutlook(ctx, in)
	default:
		return Outcome{Message: o.msg.T("not_automated")}
	}
}
