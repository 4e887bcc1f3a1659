package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
)

var (
	reInterval = regexp.MustCompile(`(\d+)\s*(seconds?|minutes?)`)
	reEmail    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhone    = regexp.MustCompile(`\+?\d[\d\s\-().]{7,}\d`)
	reWebhook  = regexp.MustCompile(`https?://[^\s]+`)

	reRiskBefore  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%\s*(?:of\s+)?risk`)
	reRiskAfter   = regexp.MustCompile(`risk[^\d%]{0,20}?(\d+(?:[.,]\d+)?)\s*%`)
	reDailyBefore = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%\s*(?:max(?:imum)?\s+)?daily`)
	reDailyAfter  = regexp.MustCompile(`daily[^\d%]{0,20}?(\d+(?:[.,]\d+)?)\s*%`)

	reIntraday = regexp.MustCompile(`\b(intraday|today|intra-day)\b`)
	reWeek     = regexp.MustCompile(`\bweek(ly)?\b`)
)

// pairPatterns регулярка на каждую пару
var pairPatterns = []struct {
	pair string
	re   *regexp.Regexp
}{
	{"EUR/USD", regexp.MustCompile(`(?i)\beur\s*[/\-]?\s*usd\b|\bfiber\b`)},
	{"GBP/USD", regexp.MustCompile(`(?i)\bgbp\s*[/\-]?\s*usd\b|\bcable\b`)},
	{"USD/JPY", regexp.MustCompile(`(?i)\busd\s*[/\-]?\s*jpy\b`)},
	{"AUD/USD", regexp.MustCompile(`(?i)\baud\s*[/\-]?\s*usd\b|\baussie\b`)},
	{"USD/PKR", regexp.MustCompile(`(?i)\busd\s*[/\-]?\s*pkr\b|\brupee\b`)},
	{"USD/CHF", regexp.MustCompile(`(?i)\busd\s*[/\-]?\s*chf\b`)},
	{"USD/CAD", regexp.MustCompile(`(?i)\busd\s*[/\-]?\s*cad\b|\bloonie\b`)},
	{"NZD/USD", regexp.MustCompile(`(?i)\bnzd\s*[/\-]?\s*usd\b|\bkiwi\b`)},
	{"EUR/GBP", regexp.MustCompile(`(?i)\beur\s*[/\-]?\s*gbp\b`)},
	{"EUR/JPY", regexp.MustCompile(`(?i)\beur\s*[/\-]?\s*jpy\b`)},
	{"GBP/JPY", regexp.MustCompile(`(?i)\bgbp\s*[/\-]?\s*jpy\b`)},
}

// DetectPair находит валютную пару в тексте
func DetectPair(text string) (string, bool) {
	for _, p := range pairPatterns {
		if p.re.MatchString(text) {
			return p.pair, true
		}
	}
	return "", false
}

// DetectHorizon intraday/today -> intraday, week -> 1w, иначе 1d
func DetectHorizon(lower string) domain.Horizon {
	switch {
	case reIntraday.MatchString(lower):
		return domain.HorizonIntraday
	case reWeek.MatchString(lower):
		return domain.HorizonWeek
	default:
		return domain.HorizonDay
	}
}

// ParseInterval извлекает интервал и приводит его к [15s, 300s]
func ParseInterval(lower string) (time.Duration, bool) {
	m := reInterval.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	unit := time.Second
	if strings.HasPrefix(m[2], "minute") {
		unit = time.Minute
	}
	return domain.ClampBriefingInterval(time.Duration(n) * unit), true
}

// ExtractRiskBudget извлекает риск на сделку и дневной лимит убытка (0 если нет)
func ExtractRiskBudget(lower string) (riskPct, dailyPct float64) {
	dailyPct = firstPercent(lower, reDailyBefore, reDailyAfter)

	// "2% daily loss" не должно считаться риском на сделку
	masked := lower
	if loc := reDailyBefore.FindStringIndex(masked); loc != nil {
		masked = masked[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + masked[loc[1]:]
	}
	riskPct = firstPercent(masked, reRiskBefore, reRiskAfter)
	return riskPct, dailyPct
}

// ExtractPhone находит номер телефона (9+ цифр)
func ExtractPhone(text string) string {
	for _, candidate := range rePhone.FindAllString(text, -1) {
		var sb strings.Builder
		for i, r := range candidate {
			if r == '+' && i == 0 {
				sb.WriteRune(r)
			}
			if r >= '0' && r <= '9' {
				sb.WriteRune(r)
			}
		}
		digits := strings.TrimPrefix(sb.String(), "+")
		if len(digits) >= 9 && len(digits) <= 15 {
			return sb.String()
		}
	}
	return ""
}

func firstPercent(s string, patterns ...*regexp.Regexp) float64 {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			if v := parseFloat(m[1]); v > 0 {
				return v
			}
		}
	}
	return 0
}

// parseFloat парсит число с поддержкой запятой
func parseFloat(s string) float64 {
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
