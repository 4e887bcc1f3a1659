package execution

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/policy"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Sizer рассчитывает параметры сделки от риск-бюджета
type Sizer struct {
	equity      decimal.Decimal
	stopPct     decimal.Decimal
	rewardRatio decimal.Decimal
}

// NewSizer создает калькулятор; equity - размер счета в валюте котировки
func NewSizer(equity float64, p policy.Policy) *Sizer {
	return &Sizer{
		equity:      decimal.NewFromFloat(equity),
		stopPct:     decimal.NewFromFloat(p.StopDistancePct),
		rewardRatio: decimal.NewFromFloat(p.RewardRatio),
	}
}

// Build строит сделку: стоп на stopPct от входа, цель на rewardRatio R,
// объем = equity * risk% / дистанция стопа
func (s *Sizer) Build(inst policy.Instrument, side string, riskPct float64) (domain.TradeParams, error) {
	if riskPct <= 0 {
		return domain.TradeParams{}, fmt.Errorf("%w: risk must be positive, got %.2f", domain.ErrInvalidInput, riskPct)
	}
	if inst.ReferencePrice <= 0 {
		return domain.TradeParams{}, fmt.Errorf("%w: no price for %s", domain.ErrInvalidInput, inst.Pair)
	}
	if side != domain.SideBuy && side != domain.SideSell {
		return domain.TradeParams{}, fmt.Errorf("%w: unknown side %q", domain.ErrInvalidInput, side)
	}

	entry := decimal.NewFromFloat(inst.ReferencePrice)
	distance := entry.Mul(s.stopPct).Div(hundred)
	if !distance.IsPositive() {
		return domain.TradeParams{}, fmt.Errorf("%w: stop distance is zero", domain.ErrInvalidInput)
	}
	reward := distance.Mul(s.rewardRatio)

	stop, target := entry.Sub(distance), entry.Add(reward)
	if side == domain.SideSell {
		stop, target = entry.Add(distance), entry.Sub(reward)
	}

	risk := decimal.NewFromFloat(riskPct)
	riskAmount := s.equity.Mul(risk).Div(hundred)
	units := riskAmount.Div(distance).Floor()

	places := inst.Decimals
	if places <= 0 {
		places = 5
	}

	return domain.TradeParams{
		Pair:                 inst.Pair,
		Side:                 side,
		EntryPrice:           entry.Round(places).InexactFloat64(),
		StopLoss:             stop.Round(places).InexactFloat64(),
		TakeProfit:           target.Round(places).InexactFloat64(),
		Units:                units.InexactFloat64(),
		RiskPercent:          riskPct,
		ServerSideProtection: true,
		ClientOrderID:        uuid.NewString(),
	}, nil
}
