package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errNetwork = errors.New("dial tcp: connection refused")

type forecastCall struct {
	pair    string
	horizon domain.Horizon
}

// fakeService сервис гардрейлов в памяти; поля настраиваются до вызовов
type fakeService struct {
	mu sync.Mutex

	guardrails   domain.GuardrailState
	guardErr     error
	configureErr error
	decision     domain.GuardDecision
	explainErr   error
	receipt      domain.ExecutionReceipt
	killAck      domain.KillSwitchAck
	killErr      error
	nlp          domain.NLPResult
	nlpErr       error
	forecast     domain.Forecast
	forecastErr  error
	prefs        domain.NotificationPreferences
	alertErr     error

	configureCalls []domain.Level
	explainCalls   int
	executeCalls   int
	executedTokens []string
	killCalls      int
	nlpCalls       int
	forecastCalls  []forecastCall
	savedPrefs     []domain.NotificationPreferences
	alerts         []domain.StudyAlert
}

func newFakeService() *fakeService {
	g := domain.DefaultGuardrails()
	g.Level = domain.LevelGuardedAuto
	return &fakeService{
		guardrails: g,
		decision:   domain.GuardDecision{GuardPassed: true, ExecutionToken: "tok-1", TokenRequired: true},
		receipt:    domain.ExecutionReceipt{Success: true, Message: "filled", TradeID: "T-1"},
		killAck:    domain.KillSwitchAck{Success: true, Message: "halted"},
	}
}

func (f *fakeService) GetGuardrails(context.Context) (domain.GuardrailState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.guardrails, f.guardErr
}

func (f *fakeService) ConfigureGuardrails(_ context.Context, level domain.Level, riskPct, dailyLossPct float64) (domain.GuardrailState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configureCalls = append(f.configureCalls, level)
	if f.configureErr != nil {
		return domain.GuardrailState{}, f.configureErr
	}
	f.guardrails.Level = level
	f.guardrails.MaxRiskPerTradePct = riskPct
	f.guardrails.DailyLossLimitPct = dailyLossPct
	f.guardrails.Paused = false
	return f.guardrails, nil
}

func (f *fakeService) ExplainBeforeExecute(context.Context, domain.TradeParams, string) (domain.GuardDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.explainCalls++
	return f.decision, f.explainErr
}

func (f *fakeService) ExecuteTrade(_ context.Context, _ domain.TradeParams, token string) (domain.ExecutionReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executeCalls++
	f.executedTokens = append(f.executedTokens, token)
	return f.receipt, nil
}

func (f *fakeService) ActivateKillSwitch(context.Context, string) (domain.KillSwitchAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killCalls++
	return f.killAck, f.killErr
}

func (f *fakeService) GetNotificationPreferences(context.Context) (domain.NotificationPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs, nil
}

func (f *fakeService) SetNotificationPreferences(_ context.Context, prefs domain.NotificationPreferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedPrefs = append(f.savedPrefs, prefs)
	f.prefs = prefs
	return nil
}

func (f *fakeService) SendStudyAlert(_ context.Context, alert domain.StudyAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return f.alertErr
}

func (f *fakeService) GetForecast(_ context.Context, pair string, horizon domain.Horizon) (domain.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecastCalls = append(f.forecastCalls, forecastCall{pair: pair, horizon: horizon})
	return f.forecast, f.forecastErr
}

func (f *fakeService) ParseCommand(context.Context, string) (domain.NLPResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nlpCalls++
	return f.nlp, f.nlpErr
}

func (f *fakeService) counts() (execute, explain, kill int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executeCalls, f.explainCalls, f.killCalls
}

// fakeMarket отдает фиксированные данные
type fakeMarket struct {
	fallback bool
}

func (m fakeMarket) Rate(_ context.Context, pair string) domain.ForexRate {
	return domain.ForexRate{Pair: pair, Price: 1.0850, Fallback: m.fallback}
}

func (m fakeMarket) News(_ context.Context, pair string) domain.NewsDigest {
	return domain.NewsDigest{Pair: pair, Items: []domain.NewsItem{{Title: "ECB holds rates"}}}
}

func (m fakeMarket) Sentiment(_ context.Context, pair string) domain.Sentiment {
	return domain.Sentiment{Pair: pair, Score: 0.4, Label: "bullish"}
}

func newTestOrchestrator(t *testing.T, svc *fakeService, mutate ...func(*Options)) *Orchestrator {
	t.Helper()
	opts := DefaultOptions()
	opts.VoiceEnabled = false
	opts.Rand = rand.New(rand.NewSource(42))
	for _, fn := range mutate {
		fn(&opts)
	}
	o := New(Deps{Service: svc, Market: fakeMarket{}}, opts)
	t.Cleanup(o.Dispose)
	return o
}

func agentTurns(o *Orchestrator, substr string) int {
	n := 0
	for _, turn := range o.Journal().Conversation() {
		if !turn.FromUser && strings.Contains(turn.Text, substr) {
			n++
		}
	}
	return n
}

func TestFullAutonomyRequiresConfirmation(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	require.NoError(t, o.RefreshGuardrails(ctx).Err)
	require.Equal(t, domain.ModeSemiAuto, o.Mode())

	out := o.HandleCommand(ctx, "Enable full autonomy with 1% risk per trade")
	assert.Contains(t, out.Message, "Confirmation required")

	snap := o.Snapshot()
	assert.Equal(t, "Enable full autonomy with 1% risk per trade", snap.PendingCommand)
	assert.Equal(t, domain.ModeSemiAuto, snap.Mode)
	assert.Empty(t, svc.configureCalls)

	last, ok := o.Journal().LatestDecision()
	require.True(t, ok)
	assert.True(t, last.BlockedByGuardrails)

	out = o.HandleCommand(ctx, "confirm command")
	require.NoError(t, out.Err)

	snap = o.Snapshot()
	assert.Equal(t, domain.ModeFullAuto, snap.Mode)
	assert.Equal(t, 1.0, snap.DraftRiskPct)
	assert.Empty(t, snap.PendingCommand)
	assert.Equal(t, []domain.Level{domain.LevelFullAuto}, svc.configureCalls)
}

func TestConfigureAutonomyFullAutoIsGated(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.ConfigureAutonomy(ctx, domain.ModeFullAuto, 1.5, 3)
	assert.Equal(t, domain.ModeManual, o.Mode())
	assert.Contains(t, o.Snapshot().PendingCommand, "1.50% risk per trade")

	o.HandleCommand(ctx, "yes proceed")
	snap := o.Snapshot()
	assert.Equal(t, domain.ModeFullAuto, snap.Mode)
	assert.Equal(t, 1.5, snap.DraftRiskPct)
	assert.Equal(t, 3.0, snap.DraftDailyLossPct)
}

func TestPendingCommandSurvivesOtherCommands(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.HandleCommand(ctx, "Enable full autonomy with 1% risk per trade")
	out := o.HandleCommand(ctx, "go semi-auto")
	require.NoError(t, out.Err)

	snap := o.Snapshot()
	assert.Equal(t, "Enable full autonomy with 1% risk per trade", snap.PendingCommand)
	assert.Equal(t, domain.ModeSemiAuto, snap.Mode)

	o.HandleCommand(ctx, "Close all positions now")
	assert.Equal(t, "Close all positions now", o.Snapshot().PendingCommand)
	_, _, kills := svc.counts()
	assert.Zero(t, kills)

	o.HandleCommand(ctx, "confirm")
	assert.True(t, o.Snapshot().KillSwitch)
	assert.Empty(t, o.Snapshot().PendingCommand)
}

func TestFullAutoQuestionIsNotGated(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()
	o.RefreshGuardrails(ctx)

	o.HandleCommand(ctx, "why did you go full auto?")
	assert.Empty(t, o.Snapshot().PendingCommand)

	out := o.HandleCommand(ctx, "confirm")
	assert.Equal(t, "Nothing is waiting for confirmation.", out.Message)
	assert.Equal(t, domain.ModeSemiAuto, o.Mode())
	assert.Empty(t, svc.configureCalls)
}

func TestConfirmWithNothingPending(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())

	out := o.HandleCommand(context.Background(), "Confirm")
	assert.Equal(t, "Nothing is waiting for confirmation.", out.Message)
	assert.Empty(t, o.Journal().Decisions())
}

func TestEmptyCommandIsNoop(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())

	out := o.HandleCommand(context.Background(), "   ")
	assert.Empty(t, out.Message)
	assert.NoError(t, out.Err)
	assert.Empty(t, o.Journal().Conversation())
}

func TestRefreshFailureFallsBackOffline(t *testing.T) {
	svc := newFakeService()
	svc.guardErr = errNetwork
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	out := o.RefreshGuardrails(ctx)
	require.ErrorIs(t, out.Err, errNetwork)

	snap := o.Snapshot()
	assert.True(t, snap.Offline)
	assert.Equal(t, snap.DraftRiskPct, snap.Guardrails.MaxRiskPerTradePct)
	assert.Equal(t, snap.DraftDailyLossPct, snap.Guardrails.DailyLossLimitPct)
	assert.Equal(t, 1, agentTurns(o, "switched to local simulation"))

	o.RefreshGuardrails(ctx)
	assert.Equal(t, 2, agentTurns(o, "switched to local simulation"))
}

func TestRefreshRestoresOnline(t *testing.T) {
	svc := newFakeService()
	svc.guardErr = errNetwork
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.RefreshGuardrails(ctx)
	require.True(t, o.Snapshot().Offline)

	svc.mu.Lock()
	svc.guardErr = nil
	svc.guardrails.MaxRiskPerTradePct = 1.25
	svc.mu.Unlock()

	out := o.RefreshGuardrails(ctx)
	require.NoError(t, out.Err)
	snap := o.Snapshot()
	assert.False(t, snap.Offline)
	assert.Equal(t, 1.25, snap.DraftRiskPct)
	assert.False(t, snap.LastSync.IsZero())
}

func TestRemotePauseForcesManual(t *testing.T) {
	svc := newFakeService()
	svc.guardrails.Level = domain.LevelFullAuto
	svc.guardrails.Paused = true
	svc.guardrails.PauseReason = "daily loss limit hit"
	o := newTestOrchestrator(t, svc)

	o.RefreshGuardrails(context.Background())

	snap := o.Snapshot()
	assert.Equal(t, domain.ModeManual, snap.Mode)
	assert.Equal(t, domain.StatePaused, snap.Visual)
	assert.True(t, snap.KillSwitch)
	assert.False(t, snap.AutonomyArmed)
}

func TestTradeCycleOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		decision    domain.GuardDecision
		explainErr  error
		wantExecute int
		wantBlocked bool
		wantText    string
	}{
		{
			name:        "guard rejects",
			decision:    domain.GuardDecision{GuardPassed: false, GuardReason: "exposure limit"},
			wantBlocked: true,
			wantText:    "exposure limit",
		},
		{
			name:        "token missing",
			decision:    domain.GuardDecision{GuardPassed: true, TokenRequired: true},
			wantBlocked: true,
			wantText:    "token required",
		},
		{
			name:        "executed",
			decision:    domain.GuardDecision{GuardPassed: true, TokenRequired: true, ExecutionToken: "tok-9"},
			wantExecute: 1,
			wantText:    "Executed",
		},
		{
			name:       "explain unavailable",
			explainErr: errNetwork,
			wantText:   "Could not obtain a guard decision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.decision = tt.decision
			svc.explainErr = tt.explainErr
			o := newTestOrchestrator(t, svc)
			ctx := context.Background()

			require.NoError(t, o.RefreshGuardrails(ctx).Err)
			before := len(o.Journal().Decisions())

			out := o.RunTradeCycle(ctx)
			assert.Contains(t, out.Message, tt.wantText)

			executed, explained, _ := svc.counts()
			assert.Equal(t, 1, explained)
			assert.Equal(t, tt.wantExecute, executed)

			decisions := o.Journal().Decisions()
			require.Len(t, decisions, before+1)
			assert.Equal(t, tt.wantBlocked, decisions[0].BlockedByGuardrails)

			if tt.wantBlocked {
				assert.Equal(t, domain.StatePaused, o.Snapshot().Visual)
			}
		})
	}
}

func TestTradeCyclePassesExecutionToken(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.RefreshGuardrails(ctx)
	o.RunTradeCycle(ctx)

	assert.Equal(t, []string{"tok-1"}, svc.executedTokens)
	assert.Equal(t, domain.StateMonitoring, o.Snapshot().Visual)
}

func TestTradeCycleBlockedInManual(t *testing.T) {
	svc := newFakeService()
	svc.guardrails.Level = domain.LevelManual
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.RefreshGuardrails(ctx)
	before := len(o.Journal().Decisions())

	out := o.HandleCommand(ctx, "run cycle")
	assert.Contains(t, out.Message, "Manual mode")

	_, explained, _ := svc.counts()
	assert.Zero(t, explained)
	decisions := o.Journal().Decisions()
	require.Len(t, decisions, before+1)
	assert.True(t, decisions[0].BlockedByGuardrails)
	assert.Equal(t, "Cycle blocked", decisions[0].Summary)
	assert.Equal(t, domain.StatePaused, o.Snapshot().Visual)
}

func TestOfflineCycleSimulates(t *testing.T) {
	svc := newFakeService()
	svc.guardErr = errNetwork
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.RefreshGuardrails(ctx)
	out := o.ConfigureAutonomy(ctx, domain.ModeSemiAuto, 1, 2)
	require.NoError(t, out.Err)
	assert.Contains(t, out.Message, "Applied locally")
	assert.Empty(t, svc.configureCalls)

	before := len(o.Journal().Decisions())
	out = o.RunTradeCycle(ctx)
	assert.Contains(t, out.Message, "offline mode")

	executed, explained, _ := svc.counts()
	assert.Zero(t, executed)
	assert.Zero(t, explained)
	assert.Len(t, o.Journal().Decisions(), before+1)
}

func TestConfigureRemoteFailureAppliesLocally(t *testing.T) {
	svc := newFakeService()
	svc.configureErr = errNetwork
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.RefreshGuardrails(ctx)
	out := o.ConfigureAutonomy(ctx, domain.ModeAssisted, 1.5, 4)
	require.ErrorIs(t, out.Err, errNetwork)

	snap := o.Snapshot()
	assert.True(t, snap.Offline)
	assert.Equal(t, domain.ModeAssisted, snap.Mode)
	assert.Equal(t, 1.5, snap.Guardrails.MaxRiskPerTradePct)
	assert.Equal(t, 4.0, snap.Guardrails.DailyLossLimitPct)
}

func TestConfigureRejectsInvalidBudget(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)

	out := o.ConfigureAutonomy(context.Background(), domain.ModeSemiAuto, 9, 2)
	require.ErrorIs(t, out.Err, domain.ErrRiskLimitExceeded)
	assert.Empty(t, svc.configureCalls)
	assert.Equal(t, domain.ModeManual, o.Mode())
}

func TestConfigureFromSyncedBudgetAboveLocalCaps(t *testing.T) {
	tests := []struct {
		name      string
		configure func(ctx context.Context, o *Orchestrator) Outcome
		wantMode  domain.AutonomyMode
		wantRisk  float64
		wantErr   error
	}{
		{
			name:      "pause command",
			configure: func(ctx context.Context, o *Orchestrator) Outcome { return o.HandleCommand(ctx, "pause autonomy") },
			wantMode:  domain.ModeManual,
			wantRisk:  6,
		},
		{
			name:      "manual without budget",
			configure: func(ctx context.Context, o *Orchestrator) Outcome { return o.ConfigureAutonomy(ctx, domain.ModeManual, 0, 0) },
			wantMode:  domain.ModeManual,
			wantRisk:  6,
		},
		{
			name:      "manual ignores out of range budget",
			configure: func(ctx context.Context, o *Orchestrator) Outcome { return o.ConfigureAutonomy(ctx, domain.ModeManual, 9, 30) },
			wantMode:  domain.ModeManual,
			wantRisk:  6,
		},
		{
			name:      "assisted keeps synced budget",
			configure: func(ctx context.Context, o *Orchestrator) Outcome { return o.ConfigureAutonomy(ctx, domain.ModeAssisted, 0, 0) },
			wantMode:  domain.ModeAssisted,
			wantRisk:  6,
		},
		{
			name:      "assisted with supplied risk",
			configure: func(ctx context.Context, o *Orchestrator) Outcome { return o.ConfigureAutonomy(ctx, domain.ModeAssisted, 2, 0) },
			wantMode:  domain.ModeAssisted,
			wantRisk:  2,
		},
		{
			name:      "supplied risk above cap",
			configure: func(ctx context.Context, o *Orchestrator) Outcome { return o.ConfigureAutonomy(ctx, domain.ModeAssisted, 7, 0) },
			wantMode:  domain.ModeSemiAuto,
			wantRisk:  6,
			wantErr:   domain.ErrRiskLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.guardrails.MaxRiskPerTradePct = 6
			svc.guardrails.DailyLossLimitPct = 12
			o := newTestOrchestrator(t, svc)
			ctx := context.Background()

			require.NoError(t, o.Initialize(ctx))
			require.Equal(t, domain.ModeSemiAuto, o.Mode())

			out := tt.configure(ctx, o)
			if tt.wantErr != nil {
				require.ErrorIs(t, out.Err, tt.wantErr)
				assert.Empty(t, svc.configureCalls)
			} else {
				require.NoError(t, out.Err)
				assert.Len(t, svc.configureCalls, 1)
			}

			snap := o.Snapshot()
			assert.Equal(t, tt.wantMode, snap.Mode)
			assert.Equal(t, tt.wantRisk, snap.Guardrails.MaxRiskPerTradePct)
			assert.False(t, snap.Offline)
		})
	}
}

func TestConfigureSequenceKeepsLastMode(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	for _, mode := range []domain.AutonomyMode{domain.ModeAssisted, domain.ModeSemiAuto, domain.ModeManual, domain.ModeAssisted} {
		o.ConfigureAutonomy(ctx, mode, 0, 0)
		assert.Equal(t, mode, o.Mode())
	}
}

func TestKillSwitchIsIdempotent(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()
	o.RefreshGuardrails(ctx)

	first := o.EngageKillSwitch(ctx, "drawdown")
	require.NoError(t, first.Err)
	assert.Contains(t, first.Message, "KILL SWITCH ACTIVATED")

	afterFirst := o.Snapshot()
	decisions := len(afterFirst.Decisions)

	second := o.EngageKillSwitch(ctx, "again")
	assert.Equal(t, "Kill switch is already active.", second.Message)

	afterSecond := o.Snapshot()
	assert.Len(t, afterSecond.Decisions, decisions)
	assert.Equal(t, afterFirst.Mode, afterSecond.Mode)
	assert.Equal(t, afterFirst.Guardrails, afterSecond.Guardrails)
	assert.Equal(t, afterFirst.Visual, afterSecond.Visual)
	assert.Equal(t, domain.ModeManual, afterSecond.Mode)
	assert.True(t, afterSecond.Guardrails.Paused)

	_, _, kills := svc.counts()
	assert.Equal(t, 1, kills)
}

func TestKillSwitchRemoteFailureStandsLocally(t *testing.T) {
	tests := []struct {
		name string
		ack  domain.KillSwitchAck
		err  error
	}{
		{name: "transport error", err: errNetwork},
		{name: "not acknowledged", ack: domain.KillSwitchAck{Success: false, Message: "broker offline"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.killAck = tt.ack
			svc.killErr = tt.err
			o := newTestOrchestrator(t, svc)

			out := o.EngageKillSwitch(context.Background(), "")
			require.Error(t, out.Err)
			assert.Contains(t, out.Message, "did not acknowledge")
			assert.True(t, o.Snapshot().KillSwitch)
		})
	}
}

func TestKillSwitchBlocksCycle(t *testing.T) {
	svc := newFakeService()
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	o.RefreshGuardrails(ctx)
	o.EngageKillSwitch(ctx, "test")
	before := len(o.Journal().Decisions())

	out := o.RunTradeCycle(ctx)
	assert.Contains(t, out.Message, "kill switch")
	_, explained, _ := svc.counts()
	assert.Zero(t, explained)
	assert.Len(t, o.Journal().Decisions(), before+1)
}

func TestOutlookQuestion(t *testing.T) {
	svc := newFakeService()
	svc.forecast = domain.Forecast{Pair: "USD/PKR", Horizon: domain.HorizonWeek, Direction: "bearish", Confidence: 0.62, TargetPrice: 277.9}
	o := newTestOrchestrator(t, svc)

	out := o.HandleCommand(context.Background(), "What's expected for USD/PKR this week?")
	require.NoError(t, out.Err)

	assert.Equal(t, []forecastCall{{pair: "USD/PKR", horizon: domain.HorizonWeek}}, svc.forecastCalls)
	assert.Contains(t, out.Message, "USD/PKR outlook (1w): bearish, confidence 62%")
	assert.Equal(t, domain.BiasBearish, o.Snapshot().Bias)
}

func TestOutlookFailureStaysOnline(t *testing.T) {
	svc := newFakeService()
	svc.forecastErr = errNetwork
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()
	o.RefreshGuardrails(ctx)

	out := o.HandleCommand(ctx, "forecast for GBP/USD today")
	require.ErrorIs(t, out.Err, errNetwork)
	assert.False(t, o.Snapshot().Offline)
}

func TestRemoteIntentFallback(t *testing.T) {
	tests := []struct {
		name     string
		nlp      domain.NLPResult
		nlpErr   error
		wantText string
		wantKill bool
	}{
		{
			name:     "stop all engages kill switch",
			nlp:      domain.NLPResult{Success: true, Confidence: 0.9, CommandType: domain.CommandStopAll},
			wantText: "KILL SWITCH ACTIVATED",
			wantKill: true,
		},
		{
			name:     "analysis gives briefing",
			nlp:      domain.NLPResult{Success: true, Confidence: 0.8, CommandType: domain.CommandGetAnalysis},
			wantText: "EUR/USD at 1.08500",
		},
		{
			name:     "confident reply",
			nlp:      domain.NLPResult{Success: true, Confidence: 0.7, CommandType: domain.CommandGetStatus, AIResponse: "All systems nominal."},
			wantText: "All systems nominal.",
		},
		{
			name:     "low confidence",
			nlp:      domain.NLPResult{Success: true, Confidence: 0.3, CommandType: domain.CommandStopAll},
			wantText: "can't automate",
		},
		{
			name:     "remote error",
			nlpErr:   errNetwork,
			wantText: "can't automate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.nlp = tt.nlp
			svc.nlpErr = tt.nlpErr
			o := newTestOrchestrator(t, svc)
			ctx := context.Background()
			o.RefreshGuardrails(ctx)

			out := o.HandleCommand(ctx, "hmm, blah blah")
			assert.Contains(t, out.Message, tt.wantText)
			assert.Equal(t, tt.wantKill, o.Snapshot().KillSwitch)
			if tt.nlpErr != nil {
				assert.ErrorIs(t, out.Err, errNetwork)
			}
		})
	}
}

func TestRemoteIntentSkippedOffline(t *testing.T) {
	svc := newFakeService()
	svc.guardErr = errNetwork
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()
	o.RefreshGuardrails(ctx)

	out := o.HandleCommand(ctx, "hmm, blah blah")
	assert.Contains(t, out.Message, "can't automate")
	assert.Zero(t, svc.nlpCalls)
}

func TestLanguageSwitch(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())
	ctx := context.Background()

	out := o.HandleCommand(ctx, "Switch language to Russian")
	assert.Equal(t, "Язык переключен на русский.", out.Message)
	assert.Equal(t, "ru", string(o.Snapshot().Language))

	out = o.HandleCommand(ctx, "switch language to klingon")
	assert.ErrorIs(t, out.Err, domain.ErrUnsupportedLanguage)
	assert.Equal(t, "ru", string(o.Snapshot().Language))
}

func TestBriefingConfiguration(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())
	ctx := context.Background()

	out := o.HandleCommand(ctx, "market briefings every 2 minutes")
	assert.Equal(t, "Market briefings every 120 seconds.", out.Message)
	snap := o.Snapshot()
	assert.True(t, snap.BriefingEnabled)
	assert.Equal(t, 2*time.Minute, snap.BriefingInterval)

	out = o.HandleCommand(ctx, "stop the briefings")
	assert.Equal(t, "Periodic market briefings stopped.", out.Message)
	assert.False(t, o.Snapshot().BriefingEnabled)
}

func TestMarketBriefing(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())

	out := o.MarketBriefing(context.Background(), "")
	assert.Equal(t, "EUR/USD at 1.08500, sentiment bullish (0.40). Headline: ECB holds rates.", out.Message)
	assert.Equal(t, domain.BiasBullish, o.Snapshot().Bias)
}

func TestVoiceCommands(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())
	ctx := context.Background()

	o.HandleCommand(ctx, "enable voice")
	assert.True(t, o.Snapshot().VoiceEnabled)

	o.HandleCommand(ctx, "mute")
	assert.False(t, o.Snapshot().VoiceEnabled)

	out := o.HandleCommand(ctx, "test the voice")
	assert.Equal(t, "Voice self-test: audio unavailable, synthesis unavailable, recognition unavailable.", out.Message)

	out = o.HandleCommand(ctx, "listen to me")
	assert.Equal(t, "Voice capture is not available on this device.", out.Message)
}

func TestNotificationChannels(t *testing.T) {
	svc := newFakeService()
	svc.prefs = domain.NotificationPreferences{Channels: []string{domain.ChannelSMS}, ChannelSettings: map[string]string{domain.ChannelSMS: "+15550100"}}
	o := newTestOrchestrator(t, svc)
	ctx := context.Background()

	out := o.HandleCommand(ctx, "send alerts to me@example.com")
	require.NoError(t, out.Err)
	assert.Contains(t, out.Message, "email")

	o.Dispose()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.savedPrefs, 1)
	assert.Equal(t, []string{domain.ChannelSMS, domain.ChannelEmail}, svc.savedPrefs[0].Channels)
	assert.Equal(t, "me@example.com", svc.savedPrefs[0].ChannelSettings[domain.ChannelEmail])
	assert.Equal(t, "+15550100", svc.savedPrefs[0].ChannelSettings[domain.ChannelSMS])
	require.Len(t, svc.alerts, 1)
	assert.Equal(t, "EUR/USD", svc.alerts[0].Pair)
}

func TestStudyAlertFailureIsRecorded(t *testing.T) {
	svc := newFakeService()
	svc.alertErr = errNetwork
	o := newTestOrchestrator(t, svc)

	o.HandleCommand(context.Background(), "send alerts to me@example.com")
	assert.Eventually(t, func() bool {
		return o.Snapshot().TaskErrors["study-alert"] != ""
	}, time.Second, 5*time.Millisecond)
}

func TestExplainLastDecision(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())
	ctx := context.Background()

	out := o.HandleCommand(ctx, "why did you do that?")
	assert.Equal(t, "No decisions recorded yet.", out.Message)

	o.EngageKillSwitch(ctx, "manual stop")
	out = o.HandleCommand(ctx, "explain")
	assert.Contains(t, out.Message, "Last decision: Kill switch engaged.")
}

func TestJournalCapacityHolds(t *testing.T) {
	svc := newFakeService()
	o := New(Deps{Service: svc, Journal: journal.New()}, Options{VoiceEnabled: false, Rand: rand.New(rand.NewSource(1))})
	defer o.Dispose()
	ctx := context.Background()

	for i := 0; i < 70; i++ {
		o.HandleCommand(ctx, "run cycle")
	}
	assert.Len(t, o.Journal().Conversation(), domain.ConversationCapacity)
	assert.Len(t, o.Journal().Decisions(), domain.DecisionCapacity)
}

func TestInitializeTwice(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService())
	ctx := context.Background()

	require.NoError(t, o.Initialize(ctx))
	assert.ErrorIs(t, o.Initialize(ctx), domain.ErrAlreadyInitialized)
}

func TestAutonomyLoopRunsAndStops(t *testing.T) {
	svc := newFakeService()
	svc.guardrails.Level = domain.LevelFullAuto
	o := newTestOrchestrator(t, svc, func(opts *Options) {
		opts.AutonomyInterval = 10 * time.Millisecond
	})

	require.NoError(t, o.Initialize(context.Background()))
	assert.True(t, o.Snapshot().AutonomyArmed)

	assert.Eventually(t, func() bool {
		executed, _, _ := svc.counts()
		return executed >= 2
	}, 2*time.Second, 5*time.Millisecond)

	o.EngageKillSwitch(context.Background(), "stop loop")
	assert.False(t, o.Snapshot().AutonomyArmed)

	executed, _, _ := svc.counts()
	time.Sleep(50 * time.Millisecond)
	after, _, _ := svc.counts()
	assert.Equal(t, executed, after)

	o.Dispose()
	out := o.HandleCommand(context.Background(), "run cycle")
	assert.ErrorIs(t, out.Err, domain.ErrDisposed)
}

func TestBriefingLoopNarrates(t *testing.T) {
	o := newTestOrchestrator(t, newFakeService(), func(opts *Options) {
		opts.BriefingEnabled = true
		opts.BriefingInterval = domain.MinBriefingInterval
	})
	require.NoError(t, o.Initialize(context.Background()))

	o.briefingTick(context.Background())
	assert.Equal(t, 1, agentTurns(o, "Headline: ECB holds rates."))
}
