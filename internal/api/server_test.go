package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/journal"
	"github.com/kirillm/fx-copilot/internal/orchestrator"
	"github.com/kirillm/fx-copilot/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type configureCall struct {
	mode  domain.AutonomyMode
	risk  float64
	daily float64
}

type fakeController struct {
	mu        sync.Mutex
	commands  []string
	configure []configureCall
	kills     []string
	refreshes int
	pairs     []string
	outcome   orchestrator.Outcome
	snapshot  orchestrator.Snapshot
}

func (f *fakeController) HandleCommand(_ context.Context, text string) orchestrator.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, text)
	return f.outcome
}

func (f *fakeController) ConfigureAutonomy(_ context.Context, mode domain.AutonomyMode, risk, daily float64) orchestrator.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configure = append(f.configure, configureCall{mode: mode, risk: risk, daily: daily})
	return f.outcome
}

func (f *fakeController) EngageKillSwitch(_ context.Context, reason string) orchestrator.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills = append(f.kills, reason)
	return f.outcome
}

func (f *fakeController) RefreshGuardrails(context.Context) orchestrator.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.outcome
}

func (f *fakeController) MarketBriefing(_ context.Context, pair string) orchestrator.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs = append(f.pairs, pair)
	return f.outcome
}

func (f *fakeController) Snapshot() orchestrator.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"health wrong method", http.MethodPost, "/health", "", http.StatusMethodNotAllowed},
		{"status", http.MethodGet, "/status", "", http.StatusOK},
		{"conversation", http.MethodGet, "/conversation?limit=1", "", http.StatusOK},
		{"decisions", http.MethodGet, "/decisions", "", http.StatusOK},
		{"briefing", http.MethodGet, "/briefing?pair=eur/usd", "", http.StatusOK},
		{"command", http.MethodPost, "/command", `{"text":"run cycle"}`, http.StatusOK},
		{"command empty", http.MethodPost, "/command", `{"text":"  "}`, http.StatusBadRequest},
		{"command garbage", http.MethodPost, "/command", `{`, http.StatusBadRequest},
		{"command wrong method", http.MethodGet, "/command", "", http.StatusMethodNotAllowed},
		{"autonomy", http.MethodPost, "/autonomy", `{"mode":"semi_auto","risk_pct":1}`, http.StatusOK},
		{"autonomy unknown mode", http.MethodPost, "/autonomy", `{"mode":"yolo"}`, http.StatusBadRequest},
		{"autonomy negative risk", http.MethodPost, "/autonomy", `{"mode":"assisted","risk_pct":-1}`, http.StatusBadRequest},
		{"kill switch empty body", http.MethodPost, "/kill-switch", "", http.StatusOK},
		{"refresh", http.MethodPost, "/refresh", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(utils.Discard(), &fakeController{}, nil, 0)
			rec, resp := doRequest(t, srv.Handler(), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, resp.Success)
		})
	}
}

func TestCommandReturnsOutcome(t *testing.T) {
	ctrl := &fakeController{outcome: orchestrator.Outcome{Message: "Confirmation required", Err: nil}}
	srv := NewServer(utils.Discard(), ctrl, nil, 0)

	_, resp := doRequest(t, srv.Handler(), http.MethodPost, "/command", `{"text":"Enable full autonomy"}`)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Confirmation required", data["message"])
	assert.Equal(t, []string{"Enable full autonomy"}, ctrl.commands)
}

func TestAutonomyParsesRequest(t *testing.T) {
	ctrl := &fakeController{}
	srv := NewServer(utils.Discard(), ctrl, nil, 0)

	doRequest(t, srv.Handler(), http.MethodPost, "/autonomy", `{"mode":"Full_Auto","risk_pct":1.5,"daily_loss_pct":3}`)

	require.Len(t, ctrl.configure, 1)
	assert.Equal(t, configureCall{mode: domain.ModeFullAuto, risk: 1.5, daily: 3}, ctrl.configure[0])
}

func TestDisposedIsUnavailable(t *testing.T) {
	ctrl := &fakeController{outcome: orchestrator.Outcome{Err: domain.ErrDisposed}}
	srv := NewServer(utils.Discard(), ctrl, nil, 0)

	rec, resp := doRequest(t, srv.Handler(), http.MethodPost, "/refresh", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, resp.Error, "disposed")
}

func TestDecisionsFilterAndLimit(t *testing.T) {
	ctrl := &fakeController{snapshot: orchestrator.Snapshot{Decisions: []domain.DecisionLogEntry{
		{ID: "3", BlockedByGuardrails: true},
		{ID: "2"},
		{ID: "1", BlockedByGuardrails: true},
	}}}
	srv := NewServer(utils.Discard(), ctrl, nil, 0)

	_, resp := doRequest(t, srv.Handler(), http.MethodGet, "/decisions?blocked=true", "")
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["count"])

	_, resp = doRequest(t, srv.Handler(), http.MethodGet, "/decisions?limit=1", "")
	data = resp.Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["count"])
}

func TestKillSwitchReason(t *testing.T) {
	ctrl := &fakeController{}
	srv := NewServer(utils.Discard(), ctrl, nil, 0)

	doRequest(t, srv.Handler(), http.MethodPost, "/kill-switch", `{"reason":"flash crash"}`)
	doRequest(t, srv.Handler(), http.MethodPost, "/kill-switch", "")

	assert.Equal(t, []string{"flash crash", "api request"}, ctrl.kills)
}

func TestHubStreamsJournalEvents(t *testing.T) {
	hub := NewHub(utils.Discard())
	srv := NewServer(utils.Discard(), &fakeController{}, hub, 0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	j := journal.New()
	j.Subscribe(hub)
	j.AddTurn("status", true)
	j.AddDecision(domain.DecisionLogEntry{Summary: "Guardrails synchronized"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "turn", ev.Type)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "decision", ev.Type)
	assert.Equal(t, "Guardrails synchronized", ev.Data.(map[string]interface{})["summary"])
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(utils.Discard())
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
	hub.Close()
}
