package i18n

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// Lang представляет язык
type Lang string

const (
	LangEN Lang = "en"
	LangRU Lang = "ru"
)

// ParseLang разбирает код или название языка
func ParseLang(s string) (Lang, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english", "английский":
		return LangEN, nil
	case "ru", "russian", "русский":
		return LangRU, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, s)
	}
}

// Locale локаль для синтеза речи
func (l Lang) Locale() string {
	if l == LangRU {
		return "ru-RU"
	}
	return "en-US"
}

// Formatter форматирует ответы для пользователя
type Formatter struct {
	mu   sync.RWMutex
	lang Lang
}

// NewFormatter создает новый форматтер
func NewFormatter(lang Lang) *Formatter {
	if lang != LangRU && lang != LangEN {
		lang = LangEN
	}
	return &Formatter{lang: lang}
}

// SetLang устанавливает язык
func (f *Formatter) SetLang(lang Lang) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lang = lang
}

// GetLang возвращает текущий язык
func (f *Formatter) GetLang() Lang {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lang
}

// T переводит строку; нет перевода - английский, нет ключа - сам ключ
func (f *Formatter) T(key string) string {
	lang := f.GetLang()
	if trans, ok := translations[key]; ok {
		if val, ok := trans[lang]; ok {
			return val
		}
		if val, ok := trans[LangEN]; ok {
			return val
		}
	}
	return key
}

// Tf переводит строку и подставляет аргументы
func (f *Formatter) Tf(key string, args ...interface{}) string {
	return fmt.Sprintf(f.T(key), args...)
}
