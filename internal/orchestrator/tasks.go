package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/kirillm/fx-copilot/pkg/utils"
)

// taskGroup именованные фоновые задачи с сохранением ошибок
type taskGroup struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	errs   map[string]string
	logger *utils.Logger
}

func newTaskGroup(logger *utils.Logger) *taskGroup {
	return &taskGroup{errs: make(map[string]string), logger: logger}
}

func (t *taskGroup) wait() {
	t.wg.Wait()
}

func (t *taskGroup) errors() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(t.errs))
	for k, v := range t.errs {
		out[k] = v
	}
	return out
}

func (t *taskGroup) record(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.errs[name] = err.Error()
		return
	}
	delete(t.errs, name)
}

// spawn запускает задачу; ошибка сохраняется под именем задачи, успешный
// повтор ее очищает
func (o *Orchestrator) spawn(name string, fn func(ctx context.Context) error) {
	o.loopMu.Lock()
	parent := o.rootCtx
	o.loopMu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	o.tasks.wg.Add(1)
	go func() {
		defer o.tasks.wg.Done()

		ctx, cancel := context.WithTimeout(parent, o.opts.TaskTimeout)
		defer cancel()

		started := time.Now()
		err := fn(ctx)
		o.tasks.record(name, err)
		if err != nil {
			o.tasks.logger.Warn("⚠️ [Orchestrator] task %s failed: %v", name, err)
			return
		}
		o.tasks.logger.Debug("[Orchestrator] task %s done in %v", name, time.Since(started).Round(time.Millisecond))
	}()
}
