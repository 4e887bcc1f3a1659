package telegram

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AuthManager управляет правами доступа и rate limiting
type AuthManager struct {
	adminIDs        map[int64]bool
	whitelist       map[int64]bool
	limiters        map[int64]*userLimiter
	mu              sync.RWMutex
	enableWhitelist bool

	perSecond float64
	burst     int
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewAuthManager создает менеджер авторизации. perSecond задает лимит
// сообщений в секунду на пользователя, burst равен округленному лимиту.
func NewAuthManager(adminIDsStr, whitelistStr string, perSecond float64) *AuthManager {
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}

	am := &AuthManager{
		adminIDs:  parseIDs(adminIDsStr),
		whitelist: parseIDs(whitelistStr),
		limiters:  make(map[int64]*userLimiter),
		perSecond: perSecond,
		burst:     burst,
	}
	am.enableWhitelist = strings.TrimSpace(whitelistStr) != ""

	return am
}

func parseIDs(s string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, idStr := range strings.Split(s, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}

// IsAdmin проверяет, является ли пользователь администратором.
// Пустой список админов означает, что админом считается любой.
func (am *AuthManager) IsAdmin(userID int64) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if len(am.adminIDs) == 0 {
		return true
	}
	return am.adminIDs[userID]
}

// IsAllowed проверяет, разрешен ли доступ пользователю
func (am *AuthManager) IsAllowed(userID int64) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()

	if !am.enableWhitelist {
		return true
	}
	// Админы всегда разрешены
	if am.adminIDs[userID] {
		return true
	}
	return am.whitelist[userID]
}

// CheckRateLimit возвращает ошибку, если пользователь превысил лимит
func (am *AuthManager) CheckRateLimit(userID int64) error {
	am.mu.Lock()
	ul, ok := am.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rate.Limit(am.perSecond), am.burst)}
		am.limiters[userID] = ul
	}
	ul.lastSeen = time.Now()
	am.mu.Unlock()

	r := ul.limiter.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return fmt.Errorf("rate limit exceeded, please wait %v", delay.Round(time.Millisecond))
	}
	return nil
}

// RequireAdmin возвращает ошибку, если пользователь не администратор
func (am *AuthManager) RequireAdmin(userID int64) error {
	if !am.IsAdmin(userID) {
		return fmt.Errorf("access denied: admin permission required")
	}
	return nil
}

// AdminIDs возвращает отсортированный список ID администраторов
func (am *AuthManager) AdminIDs() []int64 {
	am.mu.RLock()
	defer am.mu.RUnlock()

	ids := make([]int64, 0, len(am.adminIDs))
	for id := range am.adminIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CleanupRateLimiters удаляет лимитеры неактивных пользователей
func (am *AuthManager) CleanupRateLimiters(idle time.Duration) int {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := time.Now()
	removed := 0
	for userID, ul := range am.limiters {
		if now.Sub(ul.lastSeen) > idle {
			delete(am.limiters, userID)
			removed++
		}
	}
	return removed
}
