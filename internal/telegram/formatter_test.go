package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/i18n"
	"github.com/kirillm/fx-copilot/internal/orchestrator"
)

func TestFormatter_T(t *testing.T) {
	tests := []struct {
		name string
		lang i18n.Lang
		key  string
		want string
	}{
		{"english status", i18n.LangEN, "status", "Status"},
		{"russian status", i18n.LangRU, "status", "Статус"},
		{"unknown key", i18n.LangEN, "missing_key", "missing_key"},
		{"unsupported lang falls back", i18n.Lang("de"), "mode", "Mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewFormatter(tt.lang).T(tt.key); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestFormatter_FormatStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	snap := orchestrator.Snapshot{
		Mode:   domain.ModeSemiAuto,
		Visual: domain.StateMonitoring,
		Guardrails: domain.GuardrailState{
			MaxRiskPerTradePct: 1.5,
			DailyLossLimitPct:  3,
		},
		BriefingEnabled:   true,
		BriefingInterval:  90 * time.Second,
		Bias:              domain.BiasBearish,
		ConfidencePercent: 62,
		LastSync:          now.Add(-5 * time.Minute),
		PendingCommand:    "Enable full autonomy",
	}

	result := NewFormatter(i18n.LangEN).FormatStatus(snap, now)

	for _, want := range []string{
		"Mode: " + domain.ModeSemiAuto.Label(),
		"Risk per trade: 1.50%",
		"Daily loss limit: 3.00%",
		"Connection: online",
		"Kill switch: off",
		"Briefings: every 1m",
		"Bias: bearish, Confidence 62%",
		"Last sync: 5m",
		`Awaiting confirmation: "Enable full autonomy"`,
	} {
		if !strings.Contains(result, want) {
			t.Errorf("FormatStatus() missing %q in:\n%s", want, result)
		}
	}
}

func TestFormatter_FormatStatus_OfflineKilled(t *testing.T) {
	snap := orchestrator.Snapshot{
		Mode:             domain.ModeManual,
		Visual:           domain.StatePaused,
		Offline:          true,
		KillSwitch:       true,
		KillSwitchReason: "flash crash",
	}

	result := NewFormatter(i18n.LangRU).FormatStatus(snap, time.Now())

	for _, want := range []string{"офлайн (симуляция)", "АКТИВЕН (flash crash)", "не было", "выключены"} {
		if !strings.Contains(result, want) {
			t.Errorf("FormatStatus() missing %q in:\n%s", want, result)
		}
	}
	if strings.Contains(result, "⏳") {
		t.Error("FormatStatus() should not show pending command")
	}
}

func TestFormatter_FormatDecisions(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	entries := []domain.DecisionLogEntry{
		{Summary: "Cycle blocked", Rationale: "Autonomy is in Manual mode", BlockedByGuardrails: true, Timestamp: ts},
		{Summary: "Guardrails synchronized", ConfidencePercent: 70, Timestamp: ts},
		{Summary: "Older", Timestamp: ts},
	}

	result := NewFormatter(i18n.LangEN).FormatDecisions(entries, 2)

	if !strings.Contains(result, "1. ⛔ Cycle blocked (0%)") {
		t.Errorf("FormatDecisions() missing blocked entry:\n%s", result)
	}
	if !strings.Contains(result, "2. ✅ Guardrails synchronized (70%)") {
		t.Errorf("FormatDecisions() missing second entry:\n%s", result)
	}
	if strings.Contains(result, "Older") {
		t.Error("FormatDecisions() should respect limit")
	}
	if !strings.Contains(result, "2026-03-02 09:30") {
		t.Error("FormatDecisions() should contain timestamp")
	}
}

func TestFormatter_FormatDecisions_Empty(t *testing.T) {
	result := NewFormatter(i18n.LangEN).FormatDecisions(nil, 5)
	if !strings.Contains(result, "No decisions yet") {
		t.Errorf("FormatDecisions() = %q", result)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"seconds", 30 * time.Second, "30s"},
		{"minutes", 5 * time.Minute, "5m"},
		{"hours", 2 * time.Hour, "2h 0m"},
		{"hours and minutes", 2*time.Hour + 30*time.Minute, "2h 30m"},
		{"days", 25 * time.Hour, "1d 1h"},
		{"days and hours", 50 * time.Hour, "2d 2h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLength int
		want      []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"by lines", "aaaa\nbbbb\ncccc", 9, []string{"aaaa\nbbbb", "cccc"}},
		{"exact line", "aaaa\nbbbbb", 5, []string{"aaaa", "bbbbb"}},
		{"long line cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.maxLength)
			if len(got) != len(tt.want) {
				t.Fatalf("splitMessage() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitMessage()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
