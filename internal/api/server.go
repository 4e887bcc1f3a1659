package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/orchestrator"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

// Controller операции оркестратора, доступные по HTTP
type Controller interface {
	HandleCommand(ctx context.Context, text string) orchestrator.Outcome
	ConfigureAutonomy(ctx context.Context, mode domain.AutonomyMode, riskPct, dailyLossPct float64) orchestrator.Outcome
	EngageKillSwitch(ctx context.Context, reason string) orchestrator.Outcome
	RefreshGuardrails(ctx context.Context) orchestrator.Outcome
	MarketBriefing(ctx context.Context, pair string) orchestrator.Outcome
	Snapshot() orchestrator.Snapshot
}

type Server struct {
	logger  *utils.Logger
	control Controller
	hub     *Hub
	port    int
	started time.Time
	server  *http.Server
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type CommandRequest struct {
	Text string `json:"text"`
}

type AutonomyRequest struct {
	Mode         string  `json:"mode"`
	RiskPct      float64 `json:"risk_pct"`
	DailyLossPct float64 `json:"daily_loss_pct"`
}

type KillSwitchRequest struct {
	Reason string `json:"reason"`
}

// OutcomeResponse ответ оркестратора
type OutcomeResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func NewServer(logger *utils.Logger, control Controller, hub *Hub, port int) *Server {
	s := &Server{
		logger:  logger,
		control: control,
		hub:     hub,
		port:    port,
		started: time.Now(),
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler маршруты API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/conversation", s.handleConversation)
	mux.HandleFunc("/decisions", s.handleDecisions)
	mux.HandleFunc("/briefing", s.handleBriefing)
	mux.HandleFunc("/command", s.handleCommand)
	mux.HandleFunc("/autonomy", s.handleAutonomy)
	mux.HandleFunc("/kill-switch", s.handleKillSwitch)
	mux.HandleFunc("/refresh", s.handleRefresh)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.ServeWS)
	}

	return mux
}

// Start блокируется до Shutdown или ошибки сервера
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server on %s", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер и отключает websocket-клиентов
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.server.Shutdown(ctx)
}

// handleHealth - health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}

	s.sendSuccess(w, health)
}

// handleStatus - snapshot without the logs
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.control.Snapshot()
	snap.Conversation = nil
	snap.Decisions = nil

	status := map[string]interface{}{
		"orchestrator": snap,
		"mode_label":   snap.Mode.Label(),
		"timestamp":    time.Now().Unix(),
	}
	if s.hub != nil {
		status["live_clients"] = s.hub.Clients()
	}

	s.sendSuccess(w, status)
}

// handleConversation - last N turns, oldest first
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	turns := s.control.Snapshot().Conversation
	if limit := getQueryParamInt(r, "limit", 0); limit > 0 && limit < len(turns) {
		turns = turns[len(turns)-limit:]
	}

	s.sendSuccess(w, map[string]interface{}{
		"turns": turns,
		"count": len(turns),
	})
}

// handleDecisions - last N decisions, newest first
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decisions := s.control.Snapshot().Decisions
	if limit := getQueryParamInt(r, "limit", 0); limit > 0 && limit < len(decisions) {
		decisions = decisions[:limit]
	}
	if getQueryParam(r, "blocked", "") == "true" {
		blocked := make([]domain.DecisionLogEntry, 0, len(decisions))
		for _, d := range decisions {
			if d.BlockedByGuardrails {
				blocked = append(blocked, d)
			}
		}
		decisions = blocked
	}

	s.sendSuccess(w, map[string]interface{}{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

// handleBriefing - one-off market briefing
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pair := strings.ToUpper(getQueryParam(r, "pair", ""))
	s.sendOutcome(w, s.control.MarketBriefing(r.Context(), pair))
}

// handleCommand - free-text command
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		s.sendError(w, domain.ErrEmptyCommand.Error(), http.StatusBadRequest)
		return
	}

	s.sendOutcome(w, s.control.HandleCommand(r.Context(), req.Text))
}

// handleAutonomy - set mode and risk budget; full_auto goes through confirmation
func (s *Server) handleAutonomy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AutonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.RiskPct < 0 || req.DailyLossPct < 0 {
		s.sendError(w, "Risk values must not be negative", http.StatusBadRequest)
		return
	}

	s.sendOutcome(w, s.control.ConfigureAutonomy(r.Context(), mode, req.RiskPct, req.DailyLossPct))
}

// handleKillSwitch - engage the kill switch
func (s *Server) handleKillSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req KillSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "api request"
	}
	s.sendOutcome(w, s.control.EngageKillSwitch(r.Context(), reason))
}

// handleRefresh - resync guardrails
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sendOutcome(w, s.control.RefreshGuardrails(r.Context()))
}

// sendOutcome: ошибки оркестратора не являются ошибками HTTP
func (s *Server) sendOutcome(w http.ResponseWriter, out orchestrator.Outcome) {
	if errors.Is(out.Err, domain.ErrDisposed) {
		s.sendError(w, out.Err.Error(), http.StatusServiceUnavailable)
		return
	}

	resp := OutcomeResponse{Message: out.Message}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	s.sendSuccess(w, resp)
}

// Helper methods
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{
		Success: true,
		Data:    data,
	})
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   message,
	})
}

// Helper function to parse query parameter
func getQueryParam(r *http.Request, key string, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to parse int query parameter
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
