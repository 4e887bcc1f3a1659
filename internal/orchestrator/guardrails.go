package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// RefreshGuardrails синхронизирует гардрейлы с сервисом
func (o *Orchestrator) RefreshGuardrails(ctx context.Context) Outcome {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	if o.isDisposed() {
		return Outcome{Err: domain.ErrDisposed}
	}
	o.processing.Store(true)
	defer o.processing.Store(false)

	return o.refreshLocked(ctx)
}

// refreshLocked при успехе заменяет состояние целиком, при ошибке
// переходит в офлайн с локально заданными лимитами
func (o *Orchestrator) refreshLocked(ctx context.Context) Outcome {
	g, err := o.service.GetGuardrails(ctx)
	if err != nil {
		o.logger.Warn("⚠️ [Orchestrator] guardrail sync failed, switching to local simulation: %v", err)

		o.stateMu.Lock()
		o.st.offline = true
		o.st.guardrails.Paused = false
		o.st.guardrails.PauseReason = ""
		o.st.guardrails.MaxRiskPerTradePct = o.st.draftRisk
		o.st.guardrails.DailyLossLimitPct = o.st.draftDaily
		risk, daily := o.st.draftRisk, o.st.draftDaily
		o.stateMu.Unlock()

		o.decide("Guardrail sync failed",
			fmt.Sprintf("Service unreachable (%v). Using local limits: %.2f%% risk per trade, %.2f%% daily loss.", err, risk, daily),
			false, "")
		message := o.msg.T("offline_fallback")
		o.say(message)
		o.evaluateArming()
		return Outcome{Message: message, Err: err}
	}

	o.stateMu.Lock()
	o.st.guardrails = g
	o.st.offline = false
	o.st.mode = g.Level.Mode()
	o.st.draftRisk = g.MaxRiskPerTradePct
	o.st.draftDaily = g.DailyLossLimitPct
	o.st.lastSync = time.Now()
	if g.Paused {
		o.st.visual = domain.StatePaused
	}
	mode := o.modeLocked()
	o.stateMu.Unlock()

	reason := g.PauseReason
	if reason == "" {
		reason = "guardrails paused by service"
	}
	o.killSwitch.Sync(g.Paused, reason)

	rationale := fmt.Sprintf("Level %s, %.2f%% risk per trade, %.2f%% daily loss, %.2f%% weekly loss, %.2f%% max drawdown.",
		g.Level, g.MaxRiskPerTradePct, g.DailyLossLimitPct, g.WeeklyLossLimitPct, g.HardMaxDrawdownPct)
	if g.Paused {
		rationale += " Paused: " + reason + "."
	}
	o.decide("Guardrails synchronized", rationale, g.Paused, "")
	o.evaluateArming()

	o.logger.Info("🛡 [Orchestrator] guardrails synchronized: mode=%s risk=%.2f%% paused=%v", mode, g.MaxRiskPerTradePct, g.Paused)
	return Outcome{Message: o.msg.Tf("refresh_ok", mode.Label(), g.MaxRiskPerTradePct)}
}

// ConfigureAutonomy меняет режим и риск-бюджет. FullAuto никогда не
// применяется напрямую: команда ставится на подтверждение.
// Нулевые riskPct/dailyLossPct означают "оставить текущие".
func (o *Orchestrator) ConfigureAutonomy(ctx context.Context, mode domain.AutonomyMode, riskPct, dailyLossPct float64) Outcome {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	if o.isDisposed() {
		return Outcome{Err: domain.ErrDisposed}
	}
	o.processing.Store(true)
	defer o.processing.Store(false)

	var out Outcome
	if mode == domain.ModeFullAuto {
		out = o.gateLocked(fullAutoCommand(o.resolveBudget(riskPct, dailyLossPct)))
	} else {
		out = o.configureLocked(ctx, mode, riskPct, dailyLossPct)
	}
	o.say(out.Message)
	return out
}

func fullAutoCommand(riskPct, dailyLossPct float64) string {
	return fmt.Sprintf("Enable full autonomy with %.2f%% risk per trade and %.2f%% daily loss", riskPct, dailyLossPct)
}

func (o *Orchestrator) resolveBudget(riskPct, dailyLossPct float64) (float64, float64) {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	if riskPct <= 0 {
		riskPct = o.st.draftRisk
	}
	if dailyLossPct <= 0 {
		dailyLossPct = o.st.draftDaily
	}
	return riskPct, dailyLossPct
}

// configureLocked отправляет уровень и бюджет в сервис и сливает ответ:
// сервис главный для нечисловых полей, запрос - для двух заданных чисел
func (o *Orchestrator) configureLocked(ctx context.Context, mode domain.AutonomyMode, riskPct, dailyLossPct float64) Outcome {
	if mode == "" {
		mode = o.Mode()
	}
	// проверяются только переданные числа: значения из синхронизации
	// принадлежат сервису, а переход в Manual не блокируется никогда
	if err := o.validateRequested(riskPct, dailyLossPct); err != nil {
		if mode != domain.ModeManual {
			return Outcome{Message: o.msg.Tf("budget_invalid", err.Error()), Err: fmt.Errorf("%w: %v", domain.ErrRiskLimitExceeded, err)}
		}
		o.logger.Warn("⚠️ [Orchestrator] ignoring budget for manual mode: %v", err)
		riskPct, dailyLossPct = 0, 0
	}
	riskPct, dailyLossPct = o.resolveBudget(riskPct, dailyLossPct)

	var (
		echo      domain.GuardrailState
		remoteErr error
		remote    bool
	)
	if !o.isOffline() {
		echo, remoteErr = o.service.ConfigureGuardrails(ctx, mode.Level(), riskPct, dailyLossPct)
		remote = remoteErr == nil
		if remoteErr != nil {
			o.logger.Warn("⚠️ [Orchestrator] configure rejected, applying locally: %v", remoteErr)
		}
	}

	o.stateMu.Lock()
	wasOffline := o.st.offline
	if remote {
		o.st.guardrails = echo
		o.st.lastSync = time.Now()
	} else {
		o.st.offline = true
		o.st.guardrails.Level = mode.Level()
		o.st.guardrails.Paused = false
		o.st.guardrails.PauseReason = ""
	}
	o.st.guardrails.MaxRiskPerTradePct = riskPct
	o.st.guardrails.DailyLossLimitPct = dailyLossPct
	o.st.draftRisk = riskPct
	o.st.draftDaily = dailyLossPct
	o.st.mode = o.st.guardrails.Level.Mode()
	o.st.visual = domain.StateMonitoring
	applied := o.modeLocked()
	o.stateMu.Unlock()

	o.killSwitch.Deactivate()

	rationale := fmt.Sprintf("%.2f%% risk per trade, %.2f%% daily loss limit.", riskPct, dailyLossPct)
	if !remote {
		rationale += " Applied locally (offline)."
	}
	o.decide(fmt.Sprintf("Autonomy set to %s", applied.Label()), rationale, false, domain.StateMonitoring)
	o.evaluateArming()

	o.logger.Info("🎛 [Orchestrator] autonomy=%s risk=%.2f%% daily=%.2f%% remote=%v", applied, riskPct, dailyLossPct, remote)

	var message string
	if applied == domain.ModeManual {
		message = o.msg.T("autonomy_paused")
	} else {
		message = o.msg.Tf("autonomy_set", applied.Label(), riskPct, dailyLossPct)
	}
	switch {
	case remoteErr != nil:
		message = o.msg.Tf("autonomy_failed", remoteErr.Error()) + " " + message
	case wasOffline:
		message += " " + o.msg.T("autonomy_local")
	}
	return Outcome{Message: message, Err: remoteErr}
}

func (o *Orchestrator) validateRequested(riskPct, dailyLossPct float64) error {
	if riskPct > 0 {
		if err := o.policy.ValidateRisk(riskPct); err != nil {
			return err
		}
	}
	if dailyLossPct > 0 {
		return o.policy.ValidateDailyLoss(dailyLossPct)
	}
	return nil
}
