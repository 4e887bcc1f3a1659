package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnavailable провайдер не поддерживает операцию или отключен
	ErrUnavailable = errors.New("speech provider unavailable")

	// ErrNoSpeech за отведенное время ничего не распознано
	ErrNoSpeech = errors.New("no speech heard")
)

// Capabilities флаги возможностей провайдера
type Capabilities struct {
	Synthesis   bool `json:"synthesis"`
	Recognition bool `json:"recognition"`
}

// Provider синтез и распознавание речи. Все методы best-effort.
type Provider interface {
	Speak(ctx context.Context, text, locale string) error
	ListenOnce(ctx context.Context, locale string, timeout time.Duration) (string, error)
	UnlockAudio(ctx context.Context) bool
	Stop()
	Capabilities() Capabilities
}

// Silent провайдер без звука, когда платформа не поддерживает речь
type Silent struct{}

func (Silent) Speak(context.Context, string, string) error { return ErrUnavailable }
func (Silent) ListenOnce(context.Context, string, time.Duration) (string, error) {
	return "", ErrUnavailable
}
func (Silent) UnlockAudio(context.Context) bool { return false }
func (Silent) Stop()                            {}
func (Silent) Capabilities() Capabilities       { return Capabilities{} }

// Console печатает озвучку в терминал
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole создает консольный провайдер
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Speak(ctx context.Context, text, locale string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "🔊 [%s] %s\n", locale, strings.TrimSpace(text))
	return err
}

func (c *Console) ListenOnce(context.Context, string, time.Duration) (string, error) {
	return "", ErrUnavailable
}

func (c *Console) UnlockAudio(context.Context) bool { return true }

func (c *Console) Stop() {}

func (c *Console) Capabilities() Capabilities {
	return Capabilities{Synthesis: true}
}

// Listen захватывает одну фразу с таймаутом. Зависший провайдер не
// блокирует вызывающего дольше timeout.
func Listen(ctx context.Context, p Provider, locale string, timeout time.Duration) (string, error) {
	if p == nil || !p.Capabilities().Recognition {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := p.ListenOnce(ctx, locale, timeout)
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		p.Stop()
		return "", ErrNoSpeech
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return "", ErrNoSpeech
			}
			return "", fmt.Errorf("speech capture failed: %w", r.err)
		}
		text := strings.TrimSpace(r.text)
		if text == "" {
			return "", ErrNoSpeech
		}
		return text, nil
	}
}
