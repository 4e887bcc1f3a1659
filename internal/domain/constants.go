package domain

import "time"

// Journal capacities
const (
	ConversationCapacity = 80
	DecisionCapacity     = 60
)

// Guardrail defaults for missing or malformed values
const (
	DefaultRiskPerTradePct    = 1.0
	DefaultDailyLossLimitPct  = 2.0
	DefaultWeeklyLossLimitPct = 5.0
	DefaultHardMaxDrawdownPct = 10.0
)

// Intent routing
const (
	MinNLPConfidence = 0.60
)

// Loop cadence
const (
	MinBriefingInterval     = 15 * time.Second
	MaxBriefingInterval     = 300 * time.Second
	DefaultBriefingInterval = 60 * time.Second
	DefaultAutonomyInterval = 60 * time.Second
	DefaultListenTimeout    = 12 * time.Second
)

// Trade sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Notification channels
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelWebhook  = "webhook"
)

// Remote NLP command types
const (
	CommandBuyOrder          = "buy_order"
	CommandSellOrder         = "sell_order"
	CommandSetAlert          = "set_alert"
	CommandEnableAutomation  = "enable_automation"
	CommandDisableAutomation = "disable_automation"
	CommandGetAnalysis       = "get_analysis"
	CommandPaperTrade        = "paper_trade"
	CommandStopAll           = "stop_all"
	CommandGetStatus         = "get_status"
)

// ClampBriefingInterval приводит интервал брифинга к [15s, 300s]
func ClampBriefingInterval(d time.Duration) time.Duration {
	if d < MinBriefingInterval {
		return MinBriefingInterval
	}
	if d > MaxBriefingInterval {
		return MaxBriefingInterval
	}
	return d
}
