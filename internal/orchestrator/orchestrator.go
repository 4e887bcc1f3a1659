// Package orchestrator координирует разговорную автономию: маршрутизацию
// команд, гардрейлы, автономный торговый цикл, журналы и озвучку.
//
// Orchestrator создается один раз на сессию, запускается Initialize и
// останавливается Dispose. Все изменяемое состояние принадлежит ему;
// снаружи доступны только копии через Snapshot.
package orchestrator

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/execution"
	"github.com/kirillm/fx-copilot/internal/i18n"
	"github.com/kirillm/fx-copilot/internal/journal"
	"github.com/kirillm/fx-copilot/internal/policy"
	"github.com/kirillm/fx-copilot/internal/speech"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

// Service удаленный сервис гардрейлов и исполнения
type Service interface {
	GetGuardrails(ctx context.Context) (domain.GuardrailState, error)
	ConfigureGuardrails(ctx context.Context, level domain.Level, riskPct, dailyLossPct float64) (domain.GuardrailState, error)
	ExplainBeforeExecute(ctx context.Context, trade domain.TradeParams, rationale string) (domain.GuardDecision, error)
	ExecuteTrade(ctx context.Context, trade domain.TradeParams, token string) (domain.ExecutionReceipt, error)
	ActivateKillSwitch(ctx context.Context, reason string) (domain.KillSwitchAck, error)
	GetNotificationPreferences(ctx context.Context) (domain.NotificationPreferences, error)
	SetNotificationPreferences(ctx context.Context, prefs domain.NotificationPreferences) error
	SendStudyAlert(ctx context.Context, alert domain.StudyAlert) error
	GetForecast(ctx context.Context, pair string, horizon domain.Horizon) (domain.Forecast, error)
	ParseCommand(ctx context.Context, text string) (domain.NLPResult, error)
}

// MarketData рыночные данные для сводок; ошибки уже заменены запасными данными
type MarketData interface {
	Rate(ctx context.Context, pair string) domain.ForexRate
	News(ctx context.Context, pair string) domain.NewsDigest
	Sentiment(ctx context.Context, pair string) domain.Sentiment
}

// Outcome результат публичной операции. Ошибки не выходят за пределы
// оркестратора: вызывающий получает сообщение и поле Err.
type Outcome struct {
	Message string
	Err     error
}

// Deps зависимости оркестратора
type Deps struct {
	Service Service
	Market  MarketData
	Speech  speech.Provider
	Policy  *policy.Engine
	Journal *journal.Journal
	Logger  *utils.Logger
}

// Options настройки циклов и озвучки
type Options struct {
	AutonomyInterval time.Duration
	BriefingInterval time.Duration
	BriefingEnabled  bool
	ListenTimeout    time.Duration
	SpeechMinVisual  time.Duration
	VoiceEnabled     bool
	AccountEquity    float64
	DefaultPair      string
	Language         i18n.Lang
	TaskTimeout      time.Duration
	Rand             *rand.Rand
}

// DefaultOptions значения по умолчанию
func DefaultOptions() Options {
	return Options{
		AutonomyInterval: domain.DefaultAutonomyInterval,
		BriefingInterval: domain.DefaultBriefingInterval,
		ListenTimeout:    domain.DefaultListenTimeout,
		SpeechMinVisual:  speech.DefaultMinVisual,
		VoiceEnabled:     true,
		AccountEquity:    10000,
		DefaultPair:      "EUR/USD",
		Language:         i18n.LangEN,
		TaskTimeout:      30 * time.Second,
	}
}

// state изменяемое состояние сессии, защищено stateMu
type state struct {
	guardrails       domain.GuardrailState
	mode             domain.AutonomyMode
	visual           domain.VisualState
	offline          bool
	draftRisk        float64
	draftDaily       float64
	pending          string
	voiceEnabled     bool
	briefingEnabled  bool
	briefingInterval time.Duration
	confidence       int
	bias             domain.Bias
	lastSync         time.Time
	initialized      bool
	disposed         bool
}

// Orchestrator владелец всех компонентов сессии
type Orchestrator struct {
	service    Service
	market     MarketData
	policy     *policy.Engine
	journal    *journal.Journal
	speech     *speech.Queue
	killSwitch *execution.KillSwitch
	executor   *execution.Executor
	sizer      *execution.Sizer
	msg        *i18n.Formatter
	logger     *utils.Logger
	opts       Options
	rnd        *rand.Rand

	// opMu сериализует операции; таймеры берут его через TryLock
	opMu       sync.Mutex
	processing atomic.Bool

	stateMu sync.RWMutex
	st      state

	loopMu         sync.Mutex
	rootCtx        context.Context
	rootCancel     context.CancelFunc
	autonomyCancel context.CancelFunc
	briefingCancel context.CancelFunc
	loops          sync.WaitGroup

	tasks *taskGroup
}

// New создает оркестратор
func New(deps Deps, opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.AutonomyInterval <= 0 {
		opts.AutonomyInterval = def.AutonomyInterval
	}
	if opts.BriefingInterval <= 0 {
		opts.BriefingInterval = def.BriefingInterval
	}
	opts.BriefingInterval = domain.ClampBriefingInterval(opts.BriefingInterval)
	if opts.ListenTimeout <= 0 {
		opts.ListenTimeout = def.ListenTimeout
	}
	if opts.AccountEquity <= 0 {
		opts.AccountEquity = def.AccountEquity
	}
	if opts.DefaultPair == "" {
		opts.DefaultPair = def.DefaultPair
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = def.TaskTimeout
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	logger := deps.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	engine := deps.Policy
	if engine == nil {
		engine = policy.NewEngineWithPolicy(policy.DefaultPolicy())
	}
	jrnl := deps.Journal
	if jrnl == nil {
		jrnl = journal.New()
	}

	killSwitch := execution.NewKillSwitch(logger)
	guardrails := domain.DefaultGuardrails()

	return &Orchestrator{
		service:    deps.Service,
		market:     deps.Market,
		policy:     engine,
		journal:    jrnl,
		speech:     speech.NewQueue(deps.Speech, logger, opts.SpeechMinVisual),
		killSwitch: killSwitch,
		executor:   execution.NewExecutor(deps.Service, killSwitch, logger),
		sizer:      execution.NewSizer(opts.AccountEquity, engine.Policy()),
		msg:        i18n.NewFormatter(opts.Language),
		logger:     logger,
		opts:       opts,
		rnd:        opts.Rand,
		st: state{
			guardrails:       guardrails,
			mode:             domain.ModeManual,
			visual:           domain.StateMonitoring,
			draftRisk:        guardrails.MaxRiskPerTradePct,
			draftDaily:       guardrails.DailyLossLimitPct,
			voiceEnabled:     opts.VoiceEnabled,
			briefingEnabled:  opts.BriefingEnabled,
			briefingInterval: opts.BriefingInterval,
			confidence:       70,
			bias:             domain.BiasNeutral,
		},
		tasks: newTaskGroup(logger),
	}
}

// Initialize синхронизирует гардрейлы и запускает циклы. Повторный вызов
// возвращает ErrAlreadyInitialized.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.stateMu.Lock()
	switch {
	case o.st.disposed:
		o.stateMu.Unlock()
		return domain.ErrDisposed
	case o.st.initialized:
		o.stateMu.Unlock()
		return domain.ErrAlreadyInitialized
	}
	o.st.initialized = true
	o.stateMu.Unlock()

	o.loopMu.Lock()
	o.rootCtx, o.rootCancel = context.WithCancel(context.Background())
	o.loopMu.Unlock()

	o.logger.Info("🚀 [Orchestrator] initializing (autonomy every %v, briefing every %v)",
		o.opts.AutonomyInterval, o.opts.BriefingInterval)

	o.opMu.Lock()
	o.processing.Store(true)
	o.refreshLocked(ctx)
	o.processing.Store(false)
	o.opMu.Unlock()

	o.restartBriefingLoop()
	return nil
}

// Dispose останавливает циклы, фоновые задачи и озвучку
func (o *Orchestrator) Dispose() {
	o.loopMu.Lock()
	if o.rootCancel != nil {
		o.rootCancel()
	}
	o.autonomyCancel, o.briefingCancel = nil, nil
	o.loopMu.Unlock()

	// дождаться операции, которая уже выполняется
	o.opMu.Lock()
	o.stateMu.Lock()
	already := o.st.disposed
	o.st.disposed = true
	o.stateMu.Unlock()
	o.opMu.Unlock()

	if already {
		return
	}

	o.logger.Info("🛑 [Orchestrator] disposing...")
	o.speech.Stop()
	o.loops.Wait()
	o.tasks.wait()
	o.speech.Close()
	o.logger.Info("✅ [Orchestrator] disposed")
}

// Snapshot неизменяемая копия состояния для UI
type Snapshot struct {
	Mode              domain.AutonomyMode       `json:"mode"`
	Visual            domain.VisualState        `json:"visual_state"`
	Guardrails        domain.GuardrailState     `json:"guardrails"`
	Offline           bool                      `json:"offline"`
	KillSwitch        bool                      `json:"kill_switch"`
	KillSwitchReason  string                    `json:"kill_switch_reason,omitempty"`
	KillSwitchSince   time.Time                 `json:"kill_switch_since"`
	DraftRiskPct      float64                   `json:"draft_risk_pct"`
	DraftDailyLossPct float64                   `json:"draft_daily_loss_pct"`
	PendingCommand    string                    `json:"pending_command,omitempty"`
	VoiceEnabled      bool                      `json:"voice_enabled"`
	Speaking          bool                      `json:"speaking"`
	BriefingEnabled   bool                      `json:"briefing_enabled"`
	BriefingInterval  time.Duration             `json:"briefing_interval"`
	AutonomyArmed     bool                      `json:"autonomy_armed"`
	Processing        bool                      `json:"processing"`
	Language          i18n.Lang                 `json:"language"`
	ConfidencePercent int                       `json:"confidence_percent"`
	Bias              domain.Bias               `json:"bias"`
	LastSync          time.Time                 `json:"last_sync"`
	Conversation      []domain.ConversationTurn `json:"conversation"`
	Decisions         []domain.DecisionLogEntry `json:"decisions"`
	TaskErrors        map[string]string         `json:"task_errors,omitempty"`
}

// Snapshot возвращает копию текущего состояния
func (o *Orchestrator) Snapshot() Snapshot {
	o.stateMu.RLock()
	snap := Snapshot{
		Mode:              o.modeLocked(),
		Visual:            o.st.visual,
		Guardrails:        o.st.guardrails,
		Offline:           o.st.offline,
		DraftRiskPct:      o.st.draftRisk,
		DraftDailyLossPct: o.st.draftDaily,
		PendingCommand:    o.st.pending,
		VoiceEnabled:      o.st.voiceEnabled,
		BriefingEnabled:   o.st.briefingEnabled,
		BriefingInterval:  o.st.briefingInterval,
		ConfidencePercent: o.st.confidence,
		Bias:              o.st.bias,
		LastSync:          o.st.lastSync,
	}
	o.stateMu.RUnlock()

	snap.KillSwitch, snap.KillSwitchReason, snap.KillSwitchSince = o.killSwitch.GetStatus()
	snap.Speaking = o.speech.Speaking()
	snap.Processing = o.processing.Load()
	snap.Language = o.msg.GetLang()
	snap.AutonomyArmed = o.autonomyArmed()
	snap.Conversation = o.journal.Conversation()
	snap.Decisions = o.journal.Decisions()
	snap.TaskErrors = o.tasks.errors()
	return snap
}

// Journal журналы разговора и решений
func (o *Orchestrator) Journal() *journal.Journal {
	return o.journal
}

// Mode наблюдаемый режим автономии (Manual, если гардрейлы на паузе)
func (o *Orchestrator) Mode() domain.AutonomyMode {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.modeLocked()
}

func (o *Orchestrator) modeLocked() domain.AutonomyMode {
	if o.st.guardrails.Paused {
		return domain.ModeManual
	}
	return o.st.mode
}

func (o *Orchestrator) isDisposed() bool {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.st.disposed
}

func (o *Orchestrator) isOffline() bool {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.st.offline
}

func (o *Orchestrator) setVisual(v domain.VisualState) {
	o.stateMu.Lock()
	o.st.visual = v
	o.stateMu.Unlock()
}

func (o *Orchestrator) locale() string {
	return o.msg.GetLang().Locale()
}

// say добавляет ответ агента в разговор и озвучивает его
func (o *Orchestrator) say(text string) {
	if text == "" {
		return
	}
	o.journal.AddTurn(text, false)

	o.stateMu.RLock()
	voice := o.st.voiceEnabled
	o.stateMu.RUnlock()
	if voice {
		o.speech.Enqueue(text, o.locale())
	}
}

// decide добавляет запись в журнал решений
func (o *Orchestrator) decide(summary, rationale string, blocked bool, visual domain.VisualState) {
	o.stateMu.RLock()
	if visual == "" {
		visual = o.st.visual
	}
	confidence := o.st.confidence
	o.stateMu.RUnlock()

	o.journal.AddDecision(domain.DecisionLogEntry{
		State:               visual,
		Summary:             summary,
		Rationale:           rationale,
		ConfidencePercent:   confidence,
		BlockedByGuardrails: blocked,
	})
	o.logger.Debug("[Orchestrator] decision: %s (%s) blocked=%v", summary, rationale, blocked)
}
