package policy

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPolicy встроенный профиль, если файл политики не задан
func DefaultPolicy() *Policy {
	return &Policy{
		ProfileName:       "moderate",
		OfflineMaxRiskPct: 2.5,
		MaxRiskCapPct:     5.0,
		MaxDailyLossPct:   10.0,
		StopDistancePct:   0.5,
		RewardRatio:       2.0,
		Instruments: []Instrument{
			{Pair: "EUR/USD", ReferencePrice: 1.0850, Decimals: 5},
			{Pair: "GBP/USD", ReferencePrice: 1.2700, Decimals: 5},
			{Pair: "USD/JPY", ReferencePrice: 157.0, Decimals: 3},
			{Pair: "AUD/USD", ReferencePrice: 0.6650, Decimals: 5},
			{Pair: "USD/PKR", ReferencePrice: 278.5, Decimals: 2},
		},
	}
}

// Engine локальный движок лимитов
type Engine struct {
	mu     sync.RWMutex
	policy *Policy
}

// NewEngine создает движок; пустой путь означает встроенный профиль
func NewEngine(policyPath string) (*Engine, error) {
	if policyPath == "" {
		return &Engine{policy: DefaultPolicy()}, nil
	}

	p, err := loadPolicy(policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return &Engine{policy: p}, nil
}

// NewEngineWithPolicy создает движок из готового профиля
func NewEngineWithPolicy(p *Policy) *Engine {
	return &Engine{policy: p}
}

// loadPolicy загружает policy из YAML
func loadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		RiskProfiles map[string]Policy `yaml:"risk_profiles"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// По умолчанию используем moderate
	profileName := os.Getenv("POLICY_PROFILE")
	if profileName == "" {
		profileName = "moderate"
	}

	policy, ok := config.RiskProfiles[profileName]
	if !ok {
		return nil, fmt.Errorf("policy profile %s not found", profileName)
	}

	policy.ProfileName = profileName
	fillDefaults(&policy)
	return &policy, nil
}

// fillDefaults подставляет значения встроенного профиля вместо нулевых
func fillDefaults(p *Policy) {
	def := DefaultPolicy()
	if p.OfflineMaxRiskPct <= 0 {
		p.OfflineMaxRiskPct = def.OfflineMaxRiskPct
	}
	if p.MaxRiskCapPct <= 0 {
		p.MaxRiskCapPct = def.MaxRiskCapPct
	}
	if p.MaxDailyLossPct <= 0 {
		p.MaxDailyLossPct = def.MaxDailyLossPct
	}
	if p.StopDistancePct <= 0 {
		p.StopDistancePct = def.StopDistancePct
	}
	if p.RewardRatio <= 0 {
		p.RewardRatio = def.RewardRatio
	}
	if len(p.Instruments) == 0 {
		p.Instruments = def.Instruments
	}
}

// Policy возвращает копию текущего профиля
func (e *Engine) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp := *e.policy
	cp.Instruments = append([]Instrument(nil), e.policy.Instruments...)
	return cp
}

// Instruments список торгуемых пар
func (e *Engine) Instruments() []Instrument {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Instrument(nil), e.policy.Instruments...)
}

// Instrument ищет пару по имени
func (e *Engine) Instrument(pair string) (Instrument, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, in := range e.policy.Instruments {
		if in.Pair == pair {
			return in, true
		}
	}
	return Instrument{}, false
}

// CheckOffline проверяет сделку в режиме локальной симуляции
func (e *Engine) CheckOffline(req OfflineRequest) *ValidationResult {
	e.mu.RLock()
	p := e.policy
	e.mu.RUnlock()

	result := &ValidationResult{
		Approved:   true,
		Violations: []Violation{},
		CheckedAt:  time.Now(),
	}

	if req.KillSwitch {
		result.Violations = append(result.Violations, Violation{
			Type:     "kill_switch",
			Severity: SeverityCritical,
			Message:  "Kill switch is engaged",
		})
	}

	if req.RiskPct > p.OfflineMaxRiskPct {
		result.Violations = append(result.Violations, Violation{
			Type:           "risk_per_trade",
			LimitName:      "offline_max_risk_pct",
			LimitValue:     p.OfflineMaxRiskPct,
			AttemptedValue: req.RiskPct,
			Severity:       SeverityCritical,
			Message: fmt.Sprintf("Risk %.2f%% exceeds the local simulation cap of %.2f%%",
				req.RiskPct, p.OfflineMaxRiskPct),
		})
	}

	if req.Pair != "" {
		if _, ok := e.Instrument(req.Pair); !ok {
			result.Violations = append(result.Violations, Violation{
				Type:     "unknown_instrument",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s is not in the instrument list", req.Pair),
			})
		}
	}

	// Если есть critical нарушения - отклоняем
	for _, v := range result.Violations {
		if v.Severity == SeverityCritical {
			result.Approved = false
			break
		}
	}

	return result
}

// ValidateRisk проверяет риск на сделку, заданный пользователем
func (e *Engine) ValidateRisk(riskPct float64) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if riskPct <= 0 || riskPct > e.policy.MaxRiskCapPct {
		return fmt.Errorf("risk per trade must be within (0, %.1f]%%, got %.2f%%", e.policy.MaxRiskCapPct, riskPct)
	}
	return nil
}

// ValidateDailyLoss проверяет дневной лимит убытка
func (e *Engine) ValidateDailyLoss(dailyLossPct float64) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if dailyLossPct <= 0 || dailyLossPct > e.policy.MaxDailyLossPct {
		return fmt.Errorf("daily loss limit must be within (0, %.1f]%%, got %.2f%%", e.policy.MaxDailyLossPct, dailyLossPct)
	}
	return nil
}
