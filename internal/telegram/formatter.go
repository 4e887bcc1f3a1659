package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/i18n"
	"github.com/kirillm/fx-copilot/internal/orchestrator"
)

// Formatter форматирует карточки статуса и журнала для чата
type Formatter struct {
	lang i18n.Lang
}

// NewFormatter создает новый форматтер
func NewFormatter(lang i18n.Lang) *Formatter {
	if lang != i18n.LangRU && lang != i18n.LangEN {
		lang = i18n.LangEN
	}
	return &Formatter{lang: lang}
}

var labels = map[string]map[i18n.Lang]string{
	"status":     {i18n.LangEN: "Status", i18n.LangRU: "Статус"},
	"mode":       {i18n.LangEN: "Mode", i18n.LangRU: "Режим"},
	"state":      {i18n.LangEN: "State", i18n.LangRU: "Состояние"},
	"risk":       {i18n.LangEN: "Risk per trade", i18n.LangRU: "Риск на сделку"},
	"daily":      {i18n.LangEN: "Daily loss limit", i18n.LangRU: "Дневной лимит убытка"},
	"connection": {i18n.LangEN: "Connection", i18n.LangRU: "Связь"},
	"online":     {i18n.LangEN: "online", i18n.LangRU: "онлайн"},
	"offline":    {i18n.LangEN: "offline (simulation)", i18n.LangRU: "офлайн (симуляция)"},
	"kill":       {i18n.LangEN: "Kill switch", i18n.LangRU: "Аварийный стоп"},
	"active":     {i18n.LangEN: "ACTIVE", i18n.LangRU: "АКТИВЕН"},
	"inactive":   {i18n.LangEN: "off", i18n.LangRU: "выключен"},
	"pending":    {i18n.LangEN: "Awaiting confirmation", i18n.LangRU: "Ждет подтверждения"},
	"briefing":   {i18n.LangEN: "Briefings", i18n.LangRU: "Брифинги"},
	"every":      {i18n.LangEN: "every", i18n.LangRU: "каждые"},
	"disabled":   {i18n.LangEN: "disabled", i18n.LangRU: "выключены"},
	"bias":       {i18n.LangEN: "Bias", i18n.LangRU: "Уклон"},
	"confidence": {i18n.LangEN: "Confidence", i18n.LangRU: "Уверенность"},
	"synced":     {i18n.LangEN: "Last sync", i18n.LangRU: "Синхронизация"},
	"never":      {i18n.LangEN: "never", i18n.LangRU: "не было"},
	"decisions":  {i18n.LangEN: "Decision log", i18n.LangRU: "Журнал решений"},
	"no_entries": {i18n.LangEN: "No decisions yet", i18n.LangRU: "Решений пока нет"},
}

// T переводит подпись
func (f *Formatter) T(key string) string {
	if trans, ok := labels[key]; ok {
		if val, ok := trans[f.lang]; ok {
			return val
		}
	}
	return key
}

// FormatStatus карточка состояния оркестратора
func (f *Formatter) FormatStatus(snap orchestrator.Snapshot, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 %s\n\n", f.T("status")))
	sb.WriteString(fmt.Sprintf("%s %s: %s\n", modeIcon(snap.Mode), f.T("mode"), snap.Mode.Label()))
	sb.WriteString(fmt.Sprintf("🎛 %s: %s\n", f.T("state"), snap.Visual))
	sb.WriteString(fmt.Sprintf("⚖️ %s: %.2f%%\n", f.T("risk"), snap.Guardrails.MaxRiskPerTradePct))
	sb.WriteString(fmt.Sprintf("📉 %s: %.2f%%\n", f.T("daily"), snap.Guardrails.DailyLossLimitPct))

	conn := f.T("online")
	if snap.Offline {
		conn = f.T("offline")
	}
	sb.WriteString(fmt.Sprintf("🔌 %s: %s\n", f.T("connection"), conn))

	kill := f.T("inactive")
	if snap.KillSwitch {
		kill = "🛑 " + f.T("active")
		if snap.KillSwitchReason != "" {
			kill += " (" + snap.KillSwitchReason + ")"
		}
	}
	sb.WriteString(fmt.Sprintf("🚨 %s: %s\n", f.T("kill"), kill))

	briefing := f.T("disabled")
	if snap.BriefingEnabled {
		briefing = fmt.Sprintf("%s %s", f.T("every"), FormatDuration(snap.BriefingInterval))
	}
	sb.WriteString(fmt.Sprintf("📰 %s: %s\n", f.T("briefing"), briefing))

	if snap.Bias != "" {
		sb.WriteString(fmt.Sprintf("🧭 %s: %s, %s %d%%\n", f.T("bias"), snap.Bias, f.T("confidence"), snap.ConfidencePercent))
	}

	synced := f.T("never")
	if !snap.LastSync.IsZero() {
		synced = FormatDuration(now.Sub(snap.LastSync))
	}
	sb.WriteString(fmt.Sprintf("🕒 %s: %s\n", f.T("synced"), synced))

	if snap.PendingCommand != "" {
		sb.WriteString(fmt.Sprintf("\n⏳ %s: %q\n", f.T("pending"), snap.PendingCommand))
	}

	return sb.String()
}

// FormatDecisions последние записи журнала решений, новые первыми
func (f *Formatter) FormatDecisions(entries []domain.DecisionLogEntry, limit int) string {
	if len(entries) == 0 {
		return fmt.Sprintf("📋 %s", f.T("no_entries"))
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 %s\n\n", f.T("decisions")))
	for i, e := range entries {
		mark := "✅"
		if e.BlockedByGuardrails {
			mark = "⛔"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s (%d%%)\n", i+1, mark, e.Summary, e.ConfidencePercent))
		if e.Rationale != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", e.Rationale))
		}
		sb.WriteString(fmt.Sprintf("   %s\n", e.Timestamp.Format("2006-01-02 15:04")))
	}

	return sb.String()
}

func modeIcon(m domain.AutonomyMode) string {
	switch m {
	case domain.ModeFullAuto:
		return "🤖"
	case domain.ModeSemiAuto:
		return "🛡"
	case domain.ModeAssisted:
		return "🤝"
	default:
		return "✋"
	}
}

// FormatDuration форматирует длительность
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// splitMessage разбивает длинное сообщение на части по строкам
func splitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var messages []string
	current := ""

	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLength {
			if current != "" {
				messages = append(messages, current)
				current = ""
			}
			messages = append(messages, line[:maxLength])
			line = line[maxLength:]
		}
		if current != "" && len(current)+len(line)+1 > maxLength {
			messages = append(messages, current)
			current = line
			continue
		}
		if current != "" {
			current += "\n"
		}
		current += line
	}

	if current != "" {
		messages = append(messages, current)
	}

	return messages
}
