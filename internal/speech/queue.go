package speech

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

// DefaultMinVisual минимальная длительность флага "говорит"
const DefaultMinVisual = 900 * time.Millisecond

type job struct {
	id     string
	text   string
	locale string
}

// Queue строго последовательная очередь озвучки.
// Фразы проигрываются по одной в порядке постановки.
type Queue struct {
	provider  Provider
	logger    *utils.Logger
	minVisual time.Duration

	active atomic.Int64

	mu       sync.Mutex
	pending  []job
	closed   bool
	stopCurr context.CancelFunc

	wake      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue запускает воркер очереди
func NewQueue(provider Provider, logger *utils.Logger, minVisual time.Duration) *Queue {
	if provider == nil {
		provider = Silent{}
	}
	if minVisual < 0 {
		minVisual = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		provider:  provider,
		logger:    logger,
		minVisual: minVisual,
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue ставит фразу в очередь; false если очередь закрыта
func (q *Queue) Enqueue(text, locale string) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.active.Add(1)
	q.pending = append(q.pending, job{id: uuid.NewString(), text: text, locale: locale})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Speaking true пока есть незавершенные задания
func (q *Queue) Speaking() bool {
	return q.active.Load() > 0
}

// Active количество незавершенных заданий
func (q *Queue) Active() int {
	return int(q.active.Load())
}

// Capabilities возможности провайдера
func (q *Queue) Capabilities() Capabilities {
	return q.provider.Capabilities()
}

// Provider нижележащий провайдер
func (q *Queue) Provider() Provider {
	return q.provider
}

// Stop сбрасывает ожидающие фразы и прерывает текущую
func (q *Queue) Stop() {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.active.Add(int64(-dropped))
	if q.stopCurr != nil {
		q.stopCurr()
	}
	q.mu.Unlock()

	q.provider.Stop()
}

// Close останавливает воркер и ждет его завершения
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()

		q.Stop()
		q.cancel()
		<-q.done
	})
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}

		for {
			j, ctx, ok := q.next()
			if !ok {
				break
			}
			q.play(ctx, j)
		}
	}
}

func (q *Queue) next() (job, context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 || q.ctx.Err() != nil {
		return job{}, nil, false
	}
	j := q.pending[0]
	q.pending = q.pending[1:]

	ctx, cancel := context.WithCancel(q.ctx)
	q.stopCurr = cancel
	return j, ctx, true
}

func (q *Queue) play(ctx context.Context, j job) {
	defer func() {
		q.mu.Lock()
		if q.stopCurr != nil {
			q.stopCurr()
			q.stopCurr = nil
		}
		q.mu.Unlock()
		q.active.Add(-1)
	}()

	started := time.Now()
	if err := q.provider.Speak(ctx, j.text, j.locale); err != nil {
		// ошибки озвучки не выходят за пределы очереди
		if q.logger != nil {
			q.logger.Debug("[Speech] job %s degraded to text: %v", j.id, err)
		}
	}

	if rest := q.minVisual - time.Since(started); rest > 0 {
		timer := time.NewTimer(rest)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}
