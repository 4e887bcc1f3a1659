package i18n

import (
	"testing"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormatter_T(t *testing.T) {
	tests := []struct {
		name string
		lang Lang
		key  string
		want string
	}{
		{"english status", LangEN, "status", "Status"},
		{"russian status", LangRU, "status", "Статус"},
		{"english kill switch", LangEN, "kill_already", "Kill switch is already active."},
		{"unknown key", LangEN, "unknown_key", "unknown_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(tt.lang)
			if got := f.T(tt.key); got != tt.want {
				t.Errorf("T() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatter_SetGetLang(t *testing.T) {
	f := NewFormatter(LangEN)

	if f.GetLang() != LangEN {
		t.Error("Initial language should be English")
	}

	f.SetLang(LangRU)

	if f.GetLang() != LangRU {
		t.Error("Language should be Russian after SetLang")
	}
	assert.Equal(t, "ru-RU", f.GetLang().Locale())
}

func TestFormatter_UnknownLangDefaultsToEnglish(t *testing.T) {
	f := NewFormatter(Lang("de"))
	assert.Equal(t, LangEN, f.GetLang())
}

func TestFormatter_Tf(t *testing.T) {
	f := NewFormatter(LangEN)
	assert.Equal(t, "Market briefings every 45 seconds.", f.Tf("briefing_on", 45))
}

func TestParseLang(t *testing.T) {
	tests := []struct {
		input   string
		want    Lang
		wantErr bool
	}{
		{"en", LangEN, false},
		{"English", LangEN, false},
		{"russian", LangRU, false},
		{"русский", LangRU, false},
		{"klingon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLang(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslations_HaveEnglish(t *testing.T) {
	for key, trans := range translations {
		if _, ok := trans[LangEN]; !ok {
			t.Errorf("translation %q has no English text", key)
		}
	}
}
