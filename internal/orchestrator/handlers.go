package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/i18n"
	"github.com/kirillm/fx-copilot/internal/intent"
	"github.com/kirillm/fx-copilot/internal/speech"
)

func (o *Orchestrator) handleLanguage(in intent.Intent) Outcome {
	lang, err := i18n.ParseLang(in.Language)
	if err != nil {
		return Outcome{Message: o.msg.Tf("lang_unsupported", in.Language), Err: err}
	}

	o.msg.SetLang(lang)
	o.decide("Language switched", fmt.Sprintf("Responses and narration now use %s.", lang.Locale()), false, "")
	return Outcome{Message: o.msg.T("lang_switched")}
}

func (o *Orchestrator) handleVoice(ctx context.Context, enabled bool) Outcome {
	o.stateMu.Lock()
	o.st.voiceEnabled = enabled
	o.stateMu.Unlock()

	if !enabled {
		o.speech.Stop()
		o.decide("Voice narration disabled", "User turned narration off.", false, "")
		return Outcome{Message: o.msg.T("voice_off")}
	}

	unlocked := o.speech.Provider().UnlockAudio(ctx)
	o.decide("Voice narration enabled", fmt.Sprintf("User turned narration on; audio unlocked: %v.", unlocked), false, "")
	return Outcome{Message: o.msg.T("voice_on")}
}

// handleBriefingConfig нулевой интервал оставляет текущий
func (o *Orchestrator) handleBriefingConfig(in intent.Intent) Outcome {
	o.stateMu.Lock()
	o.st.briefingEnabled = in.BriefingEnabled
	if in.Interval > 0 {
		o.st.briefingInterval = domain.ClampBriefingInterval(in.Interval)
	}
	interval := o.st.briefingInterval
	o.stateMu.Unlock()

	o.restartBriefingLoop()

	if !in.BriefingEnabled {
		o.decide("Market briefings stopped", "Periodic briefings disabled by user.", false, "")
		return Outcome{Message: o.msg.T("briefing_off")}
	}

	seconds := int(interval / time.Second)
	o.decide("Market briefings scheduled", fmt.Sprintf("Briefing every %d seconds.", seconds), false, "")
	return Outcome{Message: o.msg.Tf("briefing_on", seconds)}
}

func (o *Orchestrator) handleVoiceTest(ctx context.Context) Outcome {
	unlocked := o.speech.Provider().UnlockAudio(ctx)
	caps := o.speech.Capabilities()

	return Outcome{Message: o.msg.Tf("voice_test",
		o.capability(unlocked), o.capability(caps.Synthesis), o.capability(caps.Recognition))}
}

func (o *Orchestrator) capability(ok bool) string {
	if ok {
		return o.msg.T("cap_yes")
	}
	return o.msg.T("cap_no")
}

// handleCapture слушает одну фразу и обрабатывает ее как команду
func (o *Orchestrator) handleCapture(ctx context.Context) Outcome {
	heard, err := speech.Listen(ctx, o.speech.Provider(), o.locale(), o.opts.ListenTimeout)
	switch {
	case errors.Is(err, speech.ErrUnavailable):
		return Outcome{Message: o.msg.T("listen_unavailable"), Err: err}
	case errors.Is(err, speech.ErrNoSpeech):
		return Outcome{Message: o.msg.T("listen_none")}
	case err != nil:
		o.logger.Warn("⚠️ [Orchestrator] voice capture failed: %v", err)
		return Outcome{Message: o.msg.T("listen_none"), Err: err}
	}

	o.say(o.msg.Tf("listen_heard", heard))
	o.journal.AddTurn(heard, true)

	if in, ok := intent.Classify(heard); ok && in.Kind == intent.KindVoiceCapture {
		return Outcome{Message: o.msg.T("listen_none")}
	}
	return o.routeLocked(ctx, heard)
}

// handleNotifications сохраняет каналы поверх текущих настроек и
// отправляет тестовое оповещение в фоне
func (o *Orchestrator) handleNotifications(ctx context.Context, in intent.Intent) Outcome {
	if len(in.Channels) == 0 {
		return Outcome{Message: o.msg.T("channels_missing")}
	}

	prefs, err := o.service.GetNotificationPreferences(ctx)
	if err != nil {
		o.logger.Warn("⚠️ [Orchestrator] notification preferences unavailable, starting fresh: %v", err)
		prefs = domain.NotificationPreferences{}
	}
	prefs = mergeChannels(prefs, in)

	if err := o.service.SetNotificationPreferences(ctx, prefs); err != nil {
		err = fmt.Errorf("set notification preferences: %w", err)
		return Outcome{Message: o.msg.Tf("channels_failed", err.Error()), Err: err}
	}

	channels := strings.Join(in.Channels, ", ")
	o.decide("Notification channels updated", fmt.Sprintf("Alerts via %s.", channels), false, "")

	pair := in.Pair
	if pair == "" {
		pair = o.opts.DefaultPair
	}
	o.spawn("study-alert", func(ctx context.Context) error {
		return o.service.SendStudyAlert(ctx, domain.StudyAlert{
			Pair:        pair,
			Instruction: "Test alert: notification channels configured.",
			Priority:    "normal",
		})
	})

	return Outcome{Message: o.msg.Tf("channels_set", channels)}
}

func mergeChannels(prefs domain.NotificationPreferences, in intent.Intent) domain.NotificationPreferences {
	seen := make(map[string]bool, len(prefs.Channels))
	channels := make([]string, 0, len(prefs.Channels)+len(in.Channels))
	for _, ch := range append(append([]string{}, prefs.Channels...), in.Channels...) {
		if !seen[ch] {
			seen[ch] = true
			channels = append(channels, ch)
		}
	}

	settings := make(map[string]string, len(prefs.ChannelSettings)+3)
	for k, v := range prefs.ChannelSettings {
		settings[k] = v
	}
	if in.Email != "" {
		settings[domain.ChannelEmail] = in.Email
	}
	if in.Phone != "" {
		for _, ch := range in.Channels {
			if ch == domain.ChannelSMS || ch == domain.ChannelWhatsApp {
				settings[ch] = in.Phone
			}
		}
	}
	if in.Webhook != "" {
		settings[domain.ChannelWebhook] = in.Webhook
	}

	prefs.Channels = channels
	prefs.ChannelSettings = settings
	return prefs
}

func (o *Orchestrator) handleExplain() Outcome {
	last, ok := o.journal.LatestDecision()
	if !ok {
		return Outcome{Message: o.msg.T("explain_none")}
	}
	return Outcome{Message: o.msg.Tf("explain_last", last.Summary, last.Rationale, last.ConfidencePercent)}
}

// handleOutlook прогноз по паре; ошибка сервиса не переводит в офлайн
func (o *Orchestrator) handleOutlook(ctx context.Context, in intent.Intent) Outcome {
	pair := in.Pair
	if pair == "" {
		pair = o.opts.DefaultPair
	}
	horizon := in.Horizon
	if horizon == "" {
		horizon = domain.HorizonDay
	}

	f, err := o.service.GetForecast(ctx, pair, horizon)
	if err != nil {
		err = fmt.Errorf("forecast %s %s: %w", pair, horizon, err)
		return Outcome{Message: o.msg.Tf("outlook_failed", pair, err.Error()), Err: err}
	}

	confidence := f.Confidence
	if confidence <= 1 {
		confidence *= 100
	}
	if bias := parseBias(f.Direction); bias != "" {
		o.stateMu.Lock()
		o.st.bias = bias
		o.stateMu.Unlock()
	}

	return Outcome{Message: strings.TrimSpace(o.msg.Tf("outlook", pair, horizon, f.Direction, confidence, f.TargetPrice, f.Summary))}
}
