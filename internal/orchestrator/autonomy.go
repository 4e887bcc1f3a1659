package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// EngageKillSwitch включает kill switch. Повторный вызов ничего не меняет
// и сообщает "уже активен".
func (o *Orchestrator) EngageKillSwitch(ctx context.Context, reason string) Outcome {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	if o.isDisposed() {
		return Outcome{Err: domain.ErrDisposed}
	}
	o.processing.Store(true)
	defer o.processing.Store(false)

	out := o.killLocked(ctx, reason)
	o.say(out.Message)
	return out
}

func (o *Orchestrator) killLocked(ctx context.Context, reason string) Outcome {
	if reason == "" {
		reason = "user request"
	}
	if !o.killSwitch.Activate(reason) {
		return Outcome{Message: o.msg.T("kill_already")}
	}

	o.stateMu.Lock()
	o.st.mode = domain.ModeManual
	o.st.guardrails.Level = domain.LevelManual
	o.st.guardrails.Paused = true
	o.st.guardrails.PauseReason = reason
	o.st.visual = domain.StatePaused
	o.stateMu.Unlock()

	o.evaluateArming()

	out := Outcome{Message: o.msg.T("kill_engaged")}
	rationale := "Kill switch engaged: " + reason + "."

	ack, err := o.service.ActivateKillSwitch(ctx, reason)
	switch {
	case err != nil:
		out.Err = fmt.Errorf("remote kill switch: %w", err)
	case !ack.Success:
		detail := ack.Message
		if detail == "" {
			detail = "not acknowledged"
		}
		out.Err = fmt.Errorf("remote kill switch: %s", detail)
	}
	if out.Err != nil {
		o.logger.Error("❌ [Orchestrator] kill switch not confirmed by service: %v", out.Err)
		out.Message += " " + o.msg.Tf("kill_remote_failed", out.Err.Error())
		rationale += " Service did not confirm; local engagement stands."
	}

	o.decide("Kill switch engaged", rationale, false, domain.StatePaused)
	return out
}

// armed условие работы автономного цикла
func (o *Orchestrator) armed() bool {
	o.stateMu.RLock()
	mode := o.modeLocked()
	paused := o.st.guardrails.Paused
	o.stateMu.RUnlock()
	return mode == domain.ModeFullAuto && !paused && !o.killSwitch.IsActive()
}

func (o *Orchestrator) autonomyArmed() bool {
	o.loopMu.Lock()
	defer o.loopMu.Unlock()
	return o.autonomyCancel != nil
}

// evaluateArming запускает или останавливает автономный цикл
func (o *Orchestrator) evaluateArming() {
	armed := o.armed()

	o.loopMu.Lock()
	defer o.loopMu.Unlock()

	switch {
	case armed && o.autonomyCancel == nil:
		o.autonomyCancel = o.startLoopLocked("autonomy", o.opts.AutonomyInterval, o.autonomyTick)
	case !armed && o.autonomyCancel != nil:
		o.autonomyCancel()
		o.autonomyCancel = nil
		o.logger.Info("⏹ [Orchestrator] autonomy loop disarmed")
	}
}

// restartBriefingLoop перезапускает цикл сводок с текущим интервалом
func (o *Orchestrator) restartBriefingLoop() {
	o.stateMu.RLock()
	enabled := o.st.briefingEnabled
	interval := o.st.briefingInterval
	o.stateMu.RUnlock()

	o.loopMu.Lock()
	defer o.loopMu.Unlock()

	if o.briefingCancel != nil {
		o.briefingCancel()
		o.briefingCancel = nil
	}
	if enabled {
		o.briefingCancel = o.startLoopLocked("briefing", interval, o.briefingTick)
	}
}

// startLoopLocked запускает периодический цикл; nil если оркестратор не
// инициализирован или уже остановлен
func (o *Orchestrator) startLoopLocked(name string, interval time.Duration, tick func(context.Context)) context.CancelFunc {
	if o.rootCtx == nil || o.rootCtx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(o.rootCtx)
	o.loops.Add(1)
	go func() {
		defer o.loops.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		o.logger.Info("⏱ [Orchestrator] %s loop started (every %v)", name, interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ctx)
			}
		}
	}()
	return cancel
}

// autonomyTick пропускается, если идет другая операция; условие
// перепроверяется на каждом тике
func (o *Orchestrator) autonomyTick(ctx context.Context) {
	if !o.opMu.TryLock() {
		o.logger.Debug("[Orchestrator] autonomy tick skipped: busy")
		return
	}
	defer o.opMu.Unlock()
	if o.isDisposed() || ctx.Err() != nil {
		return
	}
	if !o.armed() {
		o.evaluateArming()
		return
	}

	o.processing.Store(true)
	defer o.processing.Store(false)

	out := o.runCycleLocked(ctx)
	o.say(out.Message)
}

// briefingTick пропускается при активном kill switch или занятом оркестраторе
func (o *Orchestrator) briefingTick(ctx context.Context) {
	if o.killSwitch.IsActive() {
		return
	}
	if !o.opMu.TryLock() {
		o.logger.Debug("[Orchestrator] briefing tick skipped: busy")
		return
	}
	defer o.opMu.Unlock()
	if o.isDisposed() || ctx.Err() != nil {
		return
	}

	o.processing.Store(true)
	defer o.processing.Store(false)

	o.say(o.briefingLocked(ctx, "").Message)
}
