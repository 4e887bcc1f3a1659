package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/execution"
	"github.com/kirillm/fx-copilot/internal/policy"
)

// RunTradeCycle запускает один автономный цикл. Начатый цикл всегда
// доходит до одного из своих исходов.
func (o *Orchestrator) RunTradeCycle(ctx context.Context) Outcome {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	if o.isDisposed() {
		return Outcome{Err: domain.ErrDisposed}
	}
	o.processing.Store(true)
	defer o.processing.Store(false)

	out := o.runCycleLocked(ctx)
	o.say(out.Message)
	return out
}

// runCycleLocked добавляет ровно одну запись в журнал решений
func (o *Orchestrator) runCycleLocked(ctx context.Context) Outcome {
	var (
		out     Outcome
		blocked bool
	)

	switch {
	case o.killSwitch.IsActive():
		out = Outcome{Message: o.msg.T("cycle_blocked_kill")}
		o.decide("Cycle blocked", "Kill switch is engaged.", true, domain.StatePaused)
		blocked = true
	case o.Mode() == domain.ModeManual:
		out = Outcome{Message: o.msg.T("cycle_blocked_manual")}
		o.decide("Cycle blocked", "Autonomy is in Manual mode.", true, "")
		blocked = true
	case o.isOffline():
		o.setVisual(domain.StateAnalyzing)
		out, blocked = o.simulateLocked()
	default:
		o.setVisual(domain.StateAnalyzing)
		out, blocked = o.tradeLocked(ctx)
	}

	o.closeCycle(blocked)
	return out
}

// simulateLocked упрощенный локальный цикл без сервиса
func (o *Orchestrator) simulateLocked() (Outcome, bool) {
	inst, side := o.pickCandidate()

	o.stateMu.RLock()
	risk := o.st.draftRisk
	o.stateMu.RUnlock()

	check := o.policy.CheckOffline(policy.OfflineRequest{
		Pair:       inst.Pair,
		RiskPct:    risk,
		KillSwitch: o.killSwitch.IsActive(),
	})
	if !check.Approved {
		reason := check.Reason()
		o.decide("Simulation blocked", reason, true, domain.StatePaused)
		return Outcome{Message: o.msg.Tf("sim_blocked", reason)}, true
	}

	o.decide(fmt.Sprintf("Simulated %s %s", side, inst.Pair),
		fmt.Sprintf("Offline mode: local simulation at %.2f%% risk, reference price %.5f.", risk, inst.ReferencePrice),
		false, domain.StateTrading)
	return Outcome{Message: o.msg.Tf("sim_trade", side, inst.Pair, risk)}, false
}

// tradeLocked explain-before-execute через сервис
func (o *Orchestrator) tradeLocked(ctx context.Context) (Outcome, bool) {
	inst, side := o.pickCandidate()

	o.stateMu.RLock()
	risk := o.st.draftRisk
	bias := o.st.bias
	confidence := o.st.confidence
	o.stateMu.RUnlock()

	trade, err := o.sizer.Build(inst, side, risk)
	if err != nil {
		o.decide("Trade not built", err.Error(), false, "")
		return Outcome{Message: o.msg.Tf("budget_invalid", err.Error()), Err: err}, false
	}

	rationale := fmt.Sprintf("%s %s: bias %s, confidence %d%%, %.2f%% risk, stop %.5f, target %.5f.",
		side, inst.Pair, bias, confidence, risk, trade.StopLoss, trade.TakeProfit)

	o.setVisual(domain.StateTrading)
	res, err := o.executor.Execute(ctx, trade, rationale)
	switch {
	case errors.Is(err, execution.ErrKillSwitchActive):
		o.decide("Cycle blocked", "Kill switch is engaged.", true, domain.StatePaused)
		return Outcome{Message: o.msg.T("cycle_blocked_kill")}, true
	case err != nil && res == nil:
		o.decide("Guard decision unavailable", err.Error(), false, "")
		return Outcome{Message: o.msg.Tf("explain_failed", err.Error()), Err: err}, false
	case err != nil:
		o.decide(fmt.Sprintf("Execution failed for %s", inst.Pair), err.Error(), false, "")
		return Outcome{Message: o.msg.Tf("trade_failed", err.Error()), Err: err}, false
	}

	switch res.Outcome {
	case execution.OutcomeBlocked:
		o.decide(fmt.Sprintf("Guardrails blocked %s", inst.Pair), res.Reason(), true, domain.StatePaused)
		return Outcome{Message: o.msg.Tf("guard_blocked", inst.Pair, res.Reason())}, true

	case execution.OutcomeTokenMissing:
		o.decide(fmt.Sprintf("Guardrails blocked %s", inst.Pair), res.Reason(), true, domain.StatePaused)
		return Outcome{Message: o.msg.Tf("token_missing", inst.Pair)}, true

	default:
		detail := res.Receipt.Message
		if detail == "" {
			detail = res.Receipt.TradeID
		}
		if !res.Receipt.Success {
			o.decide(fmt.Sprintf("Trade on %s not confirmed", inst.Pair), rationale+" "+detail, false, domain.StateTrading)
			return Outcome{Message: o.msg.Tf("trade_warning", inst.Pair, detail)}, false
		}
		o.decide(fmt.Sprintf("Executed %s %s", side, inst.Pair), rationale, false, domain.StateTrading)
		return Outcome{Message: o.msg.Tf("trade_executed", side, inst.Pair, detail)}, false
	}
}

// pickCandidate случайная пара из набора; сторона следует уклону
func (o *Orchestrator) pickCandidate() (policy.Instrument, string) {
	instruments := o.policy.Instruments()
	inst := policy.Instrument{Pair: o.opts.DefaultPair}
	if len(instruments) > 0 {
		inst = instruments[o.rnd.Intn(len(instruments))]
	}

	o.stateMu.RLock()
	bias := o.st.bias
	o.stateMu.RUnlock()

	switch bias {
	case domain.BiasBullish:
		return inst, domain.SideBuy
	case domain.BiasBearish:
		return inst, domain.SideSell
	}
	if o.rnd.Intn(2) == 0 {
		return inst, domain.SideBuy
	}
	return inst, domain.SideSell
}

// closeCycle пересчитывает уверенность и уклон для отображения
func (o *Orchestrator) closeCycle(blocked bool) {
	biases := []domain.Bias{domain.BiasBullish, domain.BiasBearish, domain.BiasNeutral}
	confidence := 55 + o.rnd.Intn(36)
	bias := biases[o.rnd.Intn(len(biases))]
	kill := o.killSwitch.IsActive()

	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	o.st.confidence = confidence
	o.st.bias = bias
	if kill || o.st.guardrails.Paused || blocked {
		o.st.visual = domain.StatePaused
	} else {
		o.st.visual = domain.StateMonitoring
	}
}
