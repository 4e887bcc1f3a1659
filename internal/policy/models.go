package policy

import "time"

// Policy локальный профиль лимитов, действующий без сервиса гардрейлов
type Policy struct {
	ProfileName       string       `yaml:"profile_name"`
	OfflineMaxRiskPct float64      `yaml:"offline_max_risk_pct"`
	MaxRiskCapPct     float64      `yaml:"max_risk_cap_pct"`
	MaxDailyLossPct   float64      `yaml:"max_daily_loss_pct"`
	StopDistancePct   float64      `yaml:"stop_distance_pct"`
	RewardRatio       float64      `yaml:"reward_ratio"`
	Instruments       []Instrument `yaml:"instruments"`
}

// Instrument торгуемая пара и опорная цена для расчета параметров сделки
type Instrument struct {
	Pair           string  `yaml:"pair"`
	ReferencePrice float64 `yaml:"reference_price"`
	Decimals       int32   `yaml:"decimals"`
}

// OfflineRequest запрос на локальную симуляцию сделки
type OfflineRequest struct {
	Pair       string
	RiskPct    float64
	KillSwitch bool
}

// ValidationResult результат проверки политикой
type ValidationResult struct {
	Approved   bool
	Violations []Violation
	CheckedAt  time.Time
}

// Reason первая критичная причина отказа
func (r *ValidationResult) Reason() string {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return v.Message
		}
	}
	return ""
}

// Violation описывает нарушение политики
type Violation struct {
	Type           string // risk_per_trade, daily_loss, kill_switch, unknown_instrument
	LimitName      string
	LimitValue     float64
	AttemptedValue float64
	Severity       string
	Message        string
}

const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)
