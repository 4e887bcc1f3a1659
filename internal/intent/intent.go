// Package intent классифицирует свободный текст команд в локальные интенты.
//
// Классификация - упорядоченная таблица правил: первое совпавшее правило
// определяет интент. Каждое правило можно проверить отдельно.
package intent

import (
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// Kind тип локального интента
type Kind string

const (
	KindLanguage       Kind = "language"
	KindVoiceOn        Kind = "voice_on"
	KindVoiceOff       Kind = "voice_off"
	KindBriefingConfig Kind = "briefing_config"
	KindVoiceTest      Kind = "voice_test"
	KindVoiceCapture   Kind = "voice_capture"
	KindMarketBriefing Kind = "market_briefing"
	KindRunCycle       Kind = "run_cycle"
	KindNotifications  Kind = "notifications"
	KindKillSwitch     Kind = "kill_switch"
	KindAutonomy       Kind = "autonomy"
	KindExplain        Kind = "explain"
	KindOutlook        Kind = "outlook"
)

// Intent результат классификации с извлеченными параметрами
type Intent struct {
	Kind Kind
	Rule string

	// KindLanguage
	Language string

	// KindBriefingConfig; Interval == 0 означает "не указан"
	BriefingEnabled bool
	Interval        time.Duration

	// KindNotifications
	Channels []string
	Email    string
	Phone    string
	Webhook  string

	// KindAutonomy; пустой Mode означает "оставить текущий"
	Mode         domain.AutonomyMode
	RiskPct      float64
	DailyLossPct float64

	// KindOutlook, KindMarketBriefing
	Pair    string
	Horizon domain.Horizon
}

// Rule правило таблицы интентов
type Rule struct {
	Name  string
	Match func(text, lower string) (Intent, bool)
}

var confirmationPhrases = map[string]bool{
	"confirm":         true,
	"confirm command": true,
	"yes proceed":     true,
}

// normalize приводит текст к нижнему регистру без хвостовой пунктуации
func normalize(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimRight(lower, ".!")
	return strings.Join(strings.Fields(strings.ReplaceAll(lower, ",", " ")), " ")
}

// IsConfirmation проверяет фразу подтверждения
func IsConfirmation(text string) bool {
	return confirmationPhrases[normalize(text)]
}

// IsHighRisk проверяет, требует ли команда подтверждения
func IsHighRisk(text string) bool {
	if IsConfirmation(text) {
		return false
	}
	lower := strings.ToLower(text)
	if isQuestion(lower) {
		return false
	}
	for _, re := range highRiskPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// Classify прогоняет текст через таблицу правил по порядку
func Classify(text string) (Intent, bool) {
	return ClassifyWith(Rules(), text)
}

// ClassifyWith прогоняет текст через заданную таблицу
func ClassifyWith(rules []Rule, text string) (Intent, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{}, false
	}
	lower := strings.ToLower(text)

	for _, r := range rules {
		if in, ok := r.Match(text, lower); ok {
			in.Rule = r.Name
			return in, true
		}
	}
	return Intent{}, false
}
