package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/journal"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

const (
	archiveBuffer      = 256
	archiveSaveTimeout = 5 * time.Second
)

type record struct {
	turn     *domain.ConversationTurn
	decision *domain.DecisionLogEntry
}

// Archive асинхронно пишет записи журнала в репозитории.
// Реализует journal.Sink: запись никогда не блокирует оркестратор,
// при переполнении буфера запись отбрасывается с предупреждением.
type Archive struct {
	turns     domain.TurnRepository
	decisions domain.DecisionRepository
	logger    *utils.Logger

	queue chan record

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64

	done chan struct{}
}

// NewArchive запускает фоновую запись
func NewArchive(turns domain.TurnRepository, decisions domain.DecisionRepository, logger *utils.Logger) *Archive {
	if logger == nil {
		logger = utils.Discard()
	}
	a := &Archive{
		turns:     turns,
		decisions: decisions,
		logger:    logger,
		queue:     make(chan record, archiveBuffer),
		done:      make(chan struct{}),
	}
	go a.run()
	return a
}

// AppendTurn ставит реплику в очередь на запись
func (a *Archive) AppendTurn(turn domain.ConversationTurn) {
	a.enqueue(record{turn: &turn})
}

// AppendDecision ставит запись решения в очередь на запись
func (a *Archive) AppendDecision(entry domain.DecisionLogEntry) {
	a.enqueue(record{decision: &entry})
}

func (a *Archive) enqueue(r record) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.queue <- r:
	default:
		dropped := a.dropped.Add(1)
		a.logger.Warn("⚠️ [Archive] buffer full, record dropped (total dropped: %d)", dropped)
	}
}

// Dropped количество отброшенных записей
func (a *Archive) Dropped() int {
	return int(a.dropped.Load())
}

func (a *Archive) run() {
	defer close(a.done)
	for r := range a.queue {
		a.save(r)
	}
}

func (a *Archive) save(r record) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveSaveTimeout)
	defer cancel()

	var err error
	switch {
	case r.turn != nil:
		err = a.turns.Save(ctx, r.turn)
	case r.decision != nil:
		err = a.decisions.Save(ctx, r.decision)
	}
	if err != nil {
		a.logger.Error("❌ [Archive] failed to save record: %v", err)
	}
}

// Close дописывает очередь и останавливает запись
func (a *Archive) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
}

// Replay загружает последние записи архива в журнал
func Replay(ctx context.Context, j *journal.Journal, turns domain.TurnRepository, decisions domain.DecisionRepository) error {
	recentTurns, err := turns.GetRecent(ctx, domain.ConversationCapacity)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	recentDecisions, err := decisions.GetRecent(ctx, domain.DecisionCapacity)
	if err != nil {
		return fmt.Errorf("load decisions: %w", err)
	}

	j.Restore(recentTurns, recentDecisions)
	return nil
}

var _ journal.Sink = (*Archive)(nil)
