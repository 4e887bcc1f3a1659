package domain

import (
	"fmt"
	"strings"
	"time"
)

// Level уровень автономии, как его хранит сервис гардрейлов
type Level string

const (
	LevelManual      Level = "manual"
	LevelAssisted    Level = "assisted"
	LevelGuardedAuto Level = "guarded_auto"
	LevelFullAuto    Level = "full_auto"
)

// ParseLevel разбирает уровень; неизвестные значения считаются manual
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelAssisted:
		return LevelAssisted
	case LevelGuardedAuto:
		return LevelGuardedAuto
	case LevelFullAuto:
		return LevelFullAuto
	default:
		return LevelManual
	}
}

// Mode возвращает режим автономии для уровня
func (l Level) Mode() AutonomyMode {
	switch l {
	case LevelAssisted:
		return ModeAssisted
	case LevelGuardedAuto:
		return ModeSemiAuto
	case LevelFullAuto:
		return ModeFullAuto
	default:
		return ModeManual
	}
}

// AutonomyMode режим автономии оркестратора
type AutonomyMode string

const (
	ModeManual   AutonomyMode = "manual"
	ModeAssisted AutonomyMode = "assisted"
	ModeSemiAuto AutonomyMode = "semi_auto"
	ModeFullAuto AutonomyMode = "full_auto"
)

// ParseMode разбирает режим автономии
func ParseMode(s string) (AutonomyMode, error) {
	switch m := AutonomyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeManual, ModeAssisted, ModeSemiAuto, ModeFullAuto:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown autonomy mode %q", ErrInvalidInput, s)
	}
}

// Level возвращает уровень гардрейлов для режима
func (m AutonomyMode) Level() Level {
	switch m {
	case ModeAssisted:
		return LevelAssisted
	case ModeSemiAuto:
		return LevelGuardedAuto
	case ModeFullAuto:
		return LevelFullAuto
	default:
		return LevelManual
	}
}

// Label человекочитаемое имя режима
func (m AutonomyMode) Label() string {
	switch m {
	case ModeAssisted:
		return "Assisted"
	case ModeSemiAuto:
		return "Semi-Auto"
	case ModeFullAuto:
		return "Full Auto"
	default:
		return "Manual"
	}
}

// VisualState состояние для отображения, на логику не влияет
type VisualState string

const (
	StateMonitoring VisualState = "monitoring"
	StateAnalyzing  VisualState = "analyzing"
	StateTrading    VisualState = "trading"
	StatePaused     VisualState = "paused"
)

// Bias рыночный уклон для отображения
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// GuardrailState риск-бюджет и статус паузы, который держит сервис
type GuardrailState struct {
	MaxRiskPerTradePct float64 `json:"max_risk_per_trade_pct"`
	DailyLossLimitPct  float64 `json:"daily_loss_limit_pct"`
	WeeklyLossLimitPct float64 `json:"weekly_loss_limit_pct"`
	HardMaxDrawdownPct float64 `json:"hard_max_drawdown_pct"`
	ProbationPassed    bool    `json:"probation_passed"`
	Paused             bool    `json:"paused"`
	PauseReason        string  `json:"pause_reason"`
	Level              Level   `json:"level"`
}

// DefaultGuardrails безопасные значения до первой синхронизации
func DefaultGuardrails() GuardrailState {
	return GuardrailState{
		MaxRiskPerTradePct: DefaultRiskPerTradePct,
		DailyLossLimitPct:  DefaultDailyLossLimitPct,
		WeeklyLossLimitPct: DefaultWeeklyLossLimitPct,
		HardMaxDrawdownPct: DefaultHardMaxDrawdownPct,
		Level:              LevelManual,
	}
}

// ConversationTurn реплика в журнале разговора
type ConversationTurn struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	FromUser  bool      `json:"from_user"`
	Timestamp time.Time `json:"timestamp"`
}

// DecisionLogEntry запись журнала решений
type DecisionLogEntry struct {
	ID                  string      `json:"id"`
	Timestamp           time.Time   `json:"timestamp"`
	State               VisualState `json:"state"`
	Summary             string      `json:"summary"`
	Rationale           string      `json:"rationale"`
	ConfidencePercent   int         `json:"confidence_percent"`
	BlockedByGuardrails bool        `json:"blocked_by_guardrails"`
}

// TradeParams параметры сделки для explain-before-execute и исполнения
type TradeParams struct {
	Pair                 string  `json:"pair"`
	Side                 string  `json:"side"`
	EntryPrice           float64 `json:"entry_price"`
	StopLoss             float64 `json:"stop_loss"`
	TakeProfit           float64 `json:"take_profit"`
	Units                float64 `json:"units"`
	RiskPercent          float64 `json:"risk_percent"`
	ServerSideProtection bool    `json:"server_side_protection"`
	ClientOrderID        string  `json:"client_order_id"`
}

// GuardDecision ответ explain-before-execute
type GuardDecision struct {
	GuardPassed    bool   `json:"guard_passed"`
	GuardReason    string `json:"guard_reason"`
	ExecutionToken string `json:"execution_token"`
	TokenRequired  bool   `json:"token_required"`
}

// ExecutionReceipt ответ на исполнение сделки
type ExecutionReceipt struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TradeID string `json:"trade_id,omitempty"`
}

// KillSwitchAck подтверждение kill switch от сервиса
type KillSwitchAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NLPResult результат удаленного классификатора команд
type NLPResult struct {
	Success     bool                   `json:"success"`
	Confidence  float64                `json:"confidence"`
	CommandType string                 `json:"command_type"`
	AIResponse  string                 `json:"ai_response"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// NotificationPreferences каналы уведомлений пользователя
type NotificationPreferences struct {
	Channels          []string          `json:"channels"`
	ChannelSettings   map[string]string `json:"channel_settings,omitempty"`
	AutonomousMode    *bool             `json:"autonomous_mode,omitempty"`
	AutonomousProfile string            `json:"autonomous_profile,omitempty"`
}

// StudyAlert запрос на учебное оповещение по паре
type StudyAlert struct {
	Pair        string `json:"pair"`
	Instruction string `json:"instruction,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// ForexRate котировка; Fallback означает подставленные данные
type ForexRate struct {
	Pair      string    `json:"pair"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
	Fallback  bool      `json:"fallback"`
}

// NewsItem новость по паре
type NewsItem struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	Sentiment string `json:"sentiment"`
}

// NewsDigest подборка новостей
type NewsDigest struct {
	Pair     string     `json:"pair"`
	Items    []NewsItem `json:"items"`
	Fallback bool       `json:"fallback"`
}

// Sentiment рыночный сентимент
type Sentiment struct {
	Pair     string  `json:"pair"`
	Score    float64 `json:"score"`
	Label    string  `json:"label"`
	Fallback bool    `json:"fallback"`
}

// Horizon горизонт прогноза
type Horizon string

const (
	HorizonIntraday Horizon = "intraday"
	HorizonDay      Horizon = "1d"
	HorizonWeek     Horizon = "1w"
)

// Forecast прогноз по паре
type Forecast struct {
	Pair        string  `json:"pair"`
	Horizon     Horizon `json:"horizon"`
	Direction   string  `json:"direction"`
	Confidence  float64 `json:"confidence"`
	TargetPrice float64 `json:"target_price"`
	Summary     string  `json:"summary"`
}
