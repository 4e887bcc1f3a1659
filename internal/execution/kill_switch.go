package execution

import (
	"sync"
	"time"

	"github.com/kirillm/fx-copilot/pkg/utils"
)

// KillSwitch аварийная остановка торговли
type KillSwitch struct {
	mu          sync.RWMutex
	active      bool
	activatedAt time.Time
	reason      string
	logger      *utils.Logger
}

// NewKillSwitch создает новый kill switch
func NewKillSwitch(logger *utils.Logger) *KillSwitch {
	if logger == nil {
		logger = utils.Discard()
	}
	return &KillSwitch{logger: logger}
}

// Activate активирует kill switch; false если он уже был активен
func (ks *KillSwitch) Activate(reason string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.active {
		return false
	}
	ks.active = true
	ks.activatedAt = time.Now()
	ks.reason = reason

	ks.logger.Warn("🚨 KILL SWITCH ACTIVATED: %s", reason)
	return true
}

// Deactivate деактивирует kill switch; false если он не был активен
func (ks *KillSwitch) Deactivate() bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if !ks.active {
		return false
	}
	ks.active = false
	ks.reason = ""
	ks.activatedAt = time.Time{}

	ks.logger.Info("✅ Kill switch deactivated")
	return true
}

// Sync выставляет состояние по данным сервиса (paused == kill switch)
func (ks *KillSwitch) Sync(active bool, reason string) {
	if active {
		ks.Activate(reason)
		return
	}
	ks.Deactivate()
}

// IsActive проверяет активен ли kill switch
func (ks *KillSwitch) IsActive() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	return ks.active
}

// GetStatus возвращает статус kill switch
func (ks *KillSwitch) GetStatus() (bool, string, time.Time) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	return ks.active, ks.reason, ks.activatedAt
}
