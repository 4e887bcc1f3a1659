package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

var (
	ErrKillSwitchActive = fmt.Errorf("%w: kill switch is active", domain.ErrEmergencyStop)
)

// Outcome исход explain-before-execute
type Outcome string

const (
	OutcomeBlocked      Outcome = "blocked"
	OutcomeTokenMissing Outcome = "token_missing"
	OutcomeExecuted     Outcome = "executed"
)

// Service сторона сервиса, нужная исполнителю
type Service interface {
	ExplainBeforeExecute(ctx context.Context, trade domain.TradeParams, rationale string) (domain.GuardDecision, error)
	ExecuteTrade(ctx context.Context, trade domain.TradeParams, token string) (domain.ExecutionReceipt, error)
}

// Result результат исполнения
type Result struct {
	Outcome    Outcome
	Trade      domain.TradeParams
	Decision   domain.GuardDecision
	Receipt    domain.ExecutionReceipt
	ExecutedAt time.Time
}

// Reason причина блокировки для журнала
func (r *Result) Reason() string {
	switch r.Outcome {
	case OutcomeBlocked:
		if r.Decision.GuardReason != "" {
			return r.Decision.GuardReason
		}
		return "guard decision negative"
	case OutcomeTokenMissing:
		return "execution token required but not issued"
	default:
		return r.Receipt.Message
	}
}

// Executor исполнитель сделок по протоколу explain-before-execute
type Executor struct {
	service    Service
	killSwitch *KillSwitch
	logger     *utils.Logger
}

// NewExecutor создает новый executor
func NewExecutor(service Service, killSwitch *KillSwitch, logger *utils.Logger) *Executor {
	if logger == nil {
		logger = utils.Discard()
	}
	return &Executor{
		service:    service,
		killSwitch: killSwitch,
		logger:     logger,
	}
}

// Execute запрашивает решение гарда и исполняет сделку только с выданным токеном.
// Отказ гарда и отсутствие токена - штатные исходы, не ошибки.
func (e *Executor) Execute(ctx context.Context, trade domain.TradeParams, rationale string) (*Result, error) {
	// 1. Проверка kill switch
	if e.killSwitch != nil && e.killSwitch.IsActive() {
		return nil, ErrKillSwitchActive
	}

	// 2. Explain-before-execute
	decision, err := e.service.ExplainBeforeExecute(ctx, trade, rationale)
	if err != nil {
		return nil, fmt.Errorf("explain-before-execute: %w", err)
	}

	result := &Result{Trade: trade, Decision: decision}

	if !decision.GuardPassed {
		result.Outcome = OutcomeBlocked
		e.logger.Warn("⛔ Guard blocked %s %s: %s", trade.Side, trade.Pair, result.Reason())
		return result, nil
	}

	// 3. Токен обязателен, если его требует политика сервиса
	if decision.TokenRequired && decision.ExecutionToken == "" {
		result.Outcome = OutcomeTokenMissing
		e.logger.Warn("⛔ Guard passed %s %s without execution token", trade.Side, trade.Pair)
		return result, nil
	}

	// 4. Исполнение
	receipt, err := e.service.ExecuteTrade(ctx, trade, decision.ExecutionToken)
	if err != nil {
		return result, fmt.Errorf("execute trade: %w", err)
	}

	result.Outcome = OutcomeExecuted
	result.Receipt = receipt
	result.ExecutedAt = time.Now()

	if receipt.Success {
		e.logger.Info("✅ Execution successful: %s %s %.0f units @ %.5f (ID: %s)",
			trade.Side, trade.Pair, trade.Units, trade.EntryPrice, receipt.TradeID)
	} else {
		e.logger.Warn("⚠️ Execution returned warning for %s %s: %s", trade.Side, trade.Pair, receipt.Message)
	}
	return result, nil
}
