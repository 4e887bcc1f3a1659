package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// guardrailPayload ответ /autonomy/guardrails; указатели отличают отсутствующие поля от нулей
type guardrailPayload struct {
	MaxRiskPerTradePct *float64 `json:"max_risk_per_trade_pct"`
	DailyLossLimitPct  *float64 `json:"daily_loss_limit_pct"`
	WeeklyLossLimitPct *float64 `json:"weekly_loss_limit_pct"`
	HardMaxDrawdownPct *float64 `json:"hard_max_drawdown_pct"`
	ProbationPassed    *bool    `json:"probation_passed"`
	Paused             *bool    `json:"paused"`
	PauseReason        *string  `json:"pause_reason"`
	Level              *string  `json:"level"`
}

// guardrailEnvelope сервис отдает гардрейлы либо плоско, либо в поле "guardrails"
type guardrailEnvelope struct {
	Guardrails *guardrailPayload `json:"guardrails"`
	guardrailPayload
}

func (p guardrailPayload) toState() domain.GuardrailState {
	state := domain.DefaultGuardrails()
	state.MaxRiskPerTradePct = positiveOr(p.MaxRiskPerTradePct, state.MaxRiskPerTradePct)
	state.DailyLossLimitPct = positiveOr(p.DailyLossLimitPct, state.DailyLossLimitPct)
	state.WeeklyLossLimitPct = positiveOr(p.WeeklyLossLimitPct, state.WeeklyLossLimitPct)
	state.HardMaxDrawdownPct = positiveOr(p.HardMaxDrawdownPct, state.HardMaxDrawdownPct)
	if p.ProbationPassed != nil {
		state.ProbationPassed = *p.ProbationPassed
	}
	if p.Paused != nil {
		state.Paused = *p.Paused
	}
	if p.PauseReason != nil {
		state.PauseReason = *p.PauseReason
	}
	if p.Level != nil {
		state.Level = domain.ParseLevel(*p.Level)
	}
	return state
}

func positiveOr(v *float64, def float64) float64 {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

// GetGuardrails читает гардрейлы пользователя
func (c *Client) GetGuardrails(ctx context.Context) (domain.GuardrailState, error) {
	var env guardrailEnvelope
	if err := c.do(ctx, http.MethodGet, "/autonomy/guardrails/"+url.PathEscape(c.userID), nil, nil, &env); err != nil {
		return domain.GuardrailState{}, err
	}
	if env.Guardrails != nil {
		return env.Guardrails.toState(), nil
	}
	return env.guardrailPayload.toState(), nil
}

// GuardrailUpdate частичное обновление гардрейлов; nil-поля не отправляются
type GuardrailUpdate struct {
	Level              *domain.Level `json:"level,omitempty"`
	MaxRiskPerTradePct *float64      `json:"max_risk_per_trade_pct,omitempty"`
	DailyLossLimitPct  *float64      `json:"daily_loss_limit_pct,omitempty"`
	Paused             *bool         `json:"paused,omitempty"`
	PauseReason        *string       `json:"pause_reason,omitempty"`
}

// UpdateGuardrails отправляет изменения и возвращает итоговое состояние
func (c *Client) UpdateGuardrails(ctx context.Context, upd GuardrailUpdate) (domain.GuardrailState, error) {
	var env guardrailEnvelope
	if err := c.do(ctx, http.MethodPost, "/autonomy/guardrails/"+url.PathEscape(c.userID), nil, upd, &env); err != nil {
		return domain.GuardrailState{}, err
	}
	if env.Guardrails != nil {
		return env.Guardrails.toState(), nil
	}
	return env.guardrailPayload.toState(), nil
}

type explainRequest struct {
	Trade       domain.TradeParams `json:"trade"`
	Rationale   string             `json:"rationale,omitempty"`
	RequestedAt time.Time          `json:"requested_at"`
}

type explainResponse struct {
	GuardPassed    *bool  `json:"guard_passed"`
	GuardReason    string `json:"guard_reason"`
	Reason         string `json:"reason"`
	ExecutionToken string `json:"execution_token"`
	TokenRequired  *bool  `json:"token_required"`
}

// ExplainBeforeExecute проверяет сделку у сервиса и получает токен исполнения
func (c *Client) ExplainBeforeExecute(ctx context.Context, trade domain.TradeParams, rationale string) (domain.GuardDecision, error) {
	var resp explainResponse
	req := explainRequest{Trade: trade, Rationale: rationale, RequestedAt: time.Now().UTC()}
	if err := c.do(ctx, http.MethodPost, "/autonomy/explain-before-execute/"+url.PathEscape(c.userID), nil, req, &resp); err != nil {
		return domain.GuardDecision{}, err
	}

	decision := domain.GuardDecision{
		GuardReason:    resp.GuardReason,
		ExecutionToken: strings.TrimSpace(resp.ExecutionToken),
		TokenRequired:  true,
	}
	// без явного guard_passed сделка считается заблокированной
	if resp.GuardPassed != nil {
		decision.GuardPassed = *resp.GuardPassed
	}
	if resp.TokenRequired != nil {
		decision.TokenRequired = *resp.TokenRequired
	}
	if decision.GuardReason == "" {
		decision.GuardReason = resp.Reason
	}
	return decision, nil
}

type executeRequest struct {
	Trade          domain.TradeParams `json:"trade"`
	ExecutionToken string             `json:"execution_token,omitempty"`
}

// ExecuteTrade исполняет сделку с токеном explain-before-execute
func (c *Client) ExecuteTrade(ctx context.Context, trade domain.TradeParams, token string) (domain.ExecutionReceipt, error) {
	var receipt domain.ExecutionReceipt
	err := c.do(ctx, http.MethodPost, "/risk/execute-trade", c.userQuery(), executeRequest{Trade: trade, ExecutionToken: token}, &receipt)
	return receipt, err
}

// ActivateKillSwitch включает kill switch на стороне сервиса
func (c *Client) ActivateKillSwitch(ctx context.Context, reason string) (domain.KillSwitchAck, error) {
	var ack domain.KillSwitchAck
	body := map[string]string{"reason": reason}
	err := c.do(ctx, http.MethodPost, "/risk/kill-switch", c.userQuery(), body, &ack)
	return ack, err
}

// GetNotificationPreferences читает каналы уведомлений
func (c *Client) GetNotificationPreferences(ctx context.Context) (domain.NotificationPreferences, error) {
	var prefs domain.NotificationPreferences
	err := c.do(ctx, http.MethodGet, "/notifications/preferences", c.userQuery(), nil, &prefs)
	return prefs, err
}

// SetNotificationPreferences сохраняет каналы уведомлений
func (c *Client) SetNotificationPreferences(ctx context.Context, prefs domain.NotificationPreferences) error {
	return c.do(ctx, http.MethodPost, "/notifications/preferences", c.userQuery(), prefs, nil)
}

type studyAlertRequest struct {
	UserID string `json:"user_id"`
	domain.StudyAlert
}

// SendStudyAlert ставит учебное оповещение по паре
func (c *Client) SendStudyAlert(ctx context.Context, alert domain.StudyAlert) error {
	return c.do(ctx, http.MethodPost, "/notifications/study-alert", nil, studyAlertRequest{UserID: c.userID, StudyAlert: alert}, nil)
}

type nlpRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

// ParseCommand удаленная классификация свободного текста
func (c *Client) ParseCommand(ctx context.Context, text string) (domain.NLPResult, error) {
	var result domain.NLPResult
	err := c.do(ctx, http.MethodPost, "/nlp/parse-command", nil, nlpRequest{Text: text, UserID: c.userID}, &result)
	return result, err
}

// GetForexRate текущая котировка пары
func (c *Client) GetForexRate(ctx context.Context, pair string) (domain.ForexRate, error) {
	var rate domain.ForexRate
	if err := c.do(ctx, http.MethodGet, "/forex/rates", pairQuery(pair), nil, &rate); err != nil {
		return domain.ForexRate{}, err
	}
	if rate.Pair == "" {
		rate.Pair = pair
	}
	if rate.Price <= 0 {
		if rate.Bid > 0 && rate.Ask > 0 {
			rate.Price = (rate.Bid + rate.Ask) / 2
		} else {
			return domain.ForexRate{}, domain.ErrMalformedPayload
		}
	}
	if rate.Timestamp.IsZero() {
		rate.Timestamp = time.Now().UTC()
	}
	return rate, nil
}

// GetNews новости по паре
func (c *Client) GetNews(ctx context.Context, pair string) (domain.NewsDigest, error) {
	var digest domain.NewsDigest
	if err := c.do(ctx, http.MethodGet, "/forex/news", pairQuery(pair), nil, &digest); err != nil {
		return domain.NewsDigest{}, err
	}
	if digest.Pair == "" {
		digest.Pair = pair
	}
	return digest, nil
}

// GetSentiment сентимент по паре
func (c *Client) GetSentiment(ctx context.Context, pair string) (domain.Sentiment, error) {
	var s domain.Sentiment
	if err := c.do(ctx, http.MethodGet, "/forex/sentiment", pairQuery(pair), nil, &s); err != nil {
		return domain.Sentiment{}, err
	}
	if s.Pair == "" {
		s.Pair = pair
	}
	if s.Label == "" {
		s.Label = labelFor(s.Score)
	}
	return s, nil
}

// GetForecast прогноз по паре на горизонт
func (c *Client) GetForecast(ctx context.Context, pair string, horizon domain.Horizon) (domain.Forecast, error) {
	q := pairQuery(pair)
	q.Set("horizon", string(horizon))

	var f domain.Forecast
	if err := c.do(ctx, http.MethodGet, "/forex/forecast", q, nil, &f); err != nil {
		return domain.Forecast{}, err
	}
	if f.Pair == "" {
		f.Pair = pair
	}
	if f.Horizon == "" {
		f.Horizon = horizon
	}
	if f.Direction == "" {
		f.Direction = string(domain.BiasNeutral)
	}
	return f, nil
}

func pairQuery(pair string) url.Values {
	return url.Values{"pair": []string{pair}}
}

func labelFor(score float64) string {
	switch {
	case score > 0.15:
		return string(domain.BiasBullish)
	case score < -0.15:
		return string(domain.BiasBearish)
	default:
		return string(domain.BiasNeutral)
	}
}

// ConfigureGuardrails устанавливает уровень и риск-бюджет
func (c *Client) ConfigureGuardrails(ctx context.Context, level domain.Level, riskPct, dailyLossPct float64) (domain.GuardrailState, error) {
	upd := GuardrailUpdate{Level: &level}
	if riskPct > 0 {
		upd.MaxRiskPerTradePct = &riskPct
	}
	if dailyLossPct > 0 {
		upd.DailyLossLimitPct = &dailyLossPct
	}
	return c.UpdateGuardrails(ctx, upd)
}
