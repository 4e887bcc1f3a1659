// Package journal хранит журнал разговора и журнал решений оркестратора.
//
// Разговор хранится в порядке добавления (старые первыми), решения в
// обратном порядке (новые первыми). Оба журнала ограничены по размеру,
// при переполнении вытесняется самая старая запись.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirillm/fx-copilot/internal/domain"
)

// Sink получает копию каждой новой записи (архив, live-обновления)
type Sink interface {
	AppendTurn(turn domain.ConversationTurn)
	AppendDecision(entry domain.DecisionLogEntry)
}

// Journal ограниченные журналы разговора и решений
type Journal struct {
	mu          sync.RWMutex
	turns       []domain.ConversationTurn
	decisions   []domain.DecisionLogEntry
	turnCap     int
	decisionCap int
	sinks       []Sink
	now         func() time.Time
}

// Option настройка журнала
type Option func(*Journal)

// WithCapacity переопределяет размеры журналов
func WithCapacity(turns, decisions int) Option {
	return func(j *Journal) {
		if turns > 0 {
			j.turnCap = turns
		}
		if decisions > 0 {
			j.decisionCap = decisions
		}
	}
}

// WithClock задает источник времени
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// New создает журнал с емкостью 80/60
func New(opts ...Option) *Journal {
	j := &Journal{
		turnCap:     domain.ConversationCapacity,
		decisionCap: domain.DecisionCapacity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.turns = make([]domain.ConversationTurn, 0, j.turnCap)
	j.decisions = make([]domain.DecisionLogEntry, 0, j.decisionCap)
	return j
}

// Subscribe подключает получателя новых записей
func (j *Journal) Subscribe(s Sink) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sinks = append(j.sinks, s)
}

// AddTurn добавляет реплику в конец разговора
func (j *Journal) AddTurn(text string, fromUser bool) domain.ConversationTurn {
	turn := domain.ConversationTurn{
		ID:        uuid.NewString(),
		Text:      text,
		FromUser:  fromUser,
		Timestamp: j.now(),
	}

	j.mu.Lock()
	if len(j.turns) >= j.turnCap {
		// сдвигаем, чтобы не держать хвост старого массива
		copy(j.turns, j.turns[1:])
		j.turns = j.turns[:len(j.turns)-1]
	}
	j.turns = append(j.turns, turn)
	sinks := j.sinks
	j.mu.Unlock()

	for _, s := range sinks {
		s.AppendTurn(turn)
	}
	return turn
}

// AddDecision вставляет запись в начало журнала решений
func (j *Journal) AddDecision(entry domain.DecisionLogEntry) domain.DecisionLogEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = j.now()
	}

	j.mu.Lock()
	if len(j.decisions) >= j.decisionCap {
		j.decisions = j.decisions[:j.decisionCap-1]
	}
	j.decisions = append(j.decisions, domain.DecisionLogEntry{})
	copy(j.decisions[1:], j.decisions)
	j.decisions[0] = entry
	sinks := j.sinks
	j.mu.Unlock()

	for _, s := range sinks {
		s.AppendDecision(entry)
	}
	return entry
}

// Conversation копия разговора, старые реплики первыми
func (j *Journal) Conversation() []domain.ConversationTurn {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]domain.ConversationTurn(nil), j.turns...)
}

// Decisions копия журнала решений, новые первыми
func (j *Journal) Decisions() []domain.DecisionLogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]domain.DecisionLogEntry(nil), j.decisions...)
}

// LatestDecision последняя запись, если есть
func (j *Journal) LatestDecision() (domain.DecisionLogEntry, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.decisions) == 0 {
		return domain.DecisionLogEntry{}, false
	}
	return j.decisions[0], true
}

// Restore загружает записи из архива без уведомления получателей.
// turns ожидаются старыми первыми, decisions новыми первыми.
func (j *Journal) Restore(turns []domain.ConversationTurn, decisions []domain.DecisionLogEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(turns) > j.turnCap {
		turns = turns[len(turns)-j.turnCap:]
	}
	if len(decisions) > j.decisionCap {
		decisions = decisions[:j.decisionCap]
	}
	j.turns = append(j.turns[:0], turns...)
	j.decisions = append(j.decisions[:0], decisions...)
}
