package intent

import (
	"regexp"
	"strings"

	"github.com/kirillm/fx-copilot/internal/domain"
)

var highRiskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(enable|activate|turn on|switch to|go|start|engage)\s+(the\s+)?full(y)?[\s-]*(auto|autonomy|autonomous)\b`),
	regexp.MustCompile(`\bfull[\s-]*authori[sz](ation|e)\b`),
	regexp.MustCompile(`\bclose (all|every)( open)? (positions?|trades?)\b`),
}

var (
	reLanguage     = regexp.MustCompile(`\b(?:switch|change|set)\s+(?:the\s+)?language\s+(?:to\s+)?([\p{L}]+)`)
	reSpeakLang    = regexp.MustCompile(`\b(?:speak|reply|respond|talk)\s+(?:in\s+)?(english|russian|french|german|spanish|urdu|arabic|chinese|русский|английский)\b`)
	reVoiceTest    = regexp.MustCompile(`\b(test (the )?(voice|audio|speech)|voice (self[\s-]?)?test|audio check|sound check)\b`)
	reVoiceOff     = regexp.MustCompile(`\b(mute|unvoice|disable (the )?voice|voice off|turn off (the )?voice|stop talking|be quiet)\b`)
	reVoiceOn      = regexp.MustCompile(`\b(unmute|enable (the )?voice|voice on|turn on (the )?voice|talk to me)\b`)
	reBriefing     = regexp.MustCompile(`\bbriefings?\b`)
	reBriefingOff  = regexp.MustCompile(`\b(stop|disable|pause|turn off|cancel|no more)\b|\bbriefings? off\b`)
	reBriefingCfg  = regexp.MustCompile(`\b(every|each|periodic|automatic|auto|start|enable|turn on|schedule|interval)\b|\bbriefings? on\b`)
	reCapture      = regexp.MustCompile(`\b(listen|voice command|hear me|start listening|take a voice)\b`)
	reMarketBrief  = regexp.MustCompile(`\b(briefing|market (update|summary|overview|brief)|what'?s happening in the market|market now)\b`)
	reRunCycle     = regexp.MustCompile(`\b(run|start|trigger|execute|do)\s+(an?\s+|the\s+)?(autonomous\s+|auto\s+|trade\s+|trading\s+)?cycle\b|\b(scan|look)\s+for\s+(a\s+)?trades?\b`)
	reNotify       = regexp.MustCompile(`\b(notify|notifications?|alerts?|e-?mail|sms|text me|whatsapp|webhook)\b`)
	reKillSwitch   = regexp.MustCompile(`\b(kill[\s-]?switch|stop (all )?trading|stop all|stop everything|emergency stop|halt (all )?trading|close (all|every)( open)? (positions?|trades?)|panic)\b`)
	rePause        = regexp.MustCompile(`\b(pause|hold|suspend)\b.*\b(autonomy|trading|automation|bot|autopilot)\b|\bmanual mode\b|\bgo manual\b|\b(switch|set) to manual\b`)
	reFullAuto     = regexp.MustCompile(`\bfull(y)?[\s-]*(auto|autonomy|autonomous)\b|\bfull[\s-]*authori[sz](ation|e)\b`)
	reSemiAuto     = regexp.MustCompile(`\bsemi[\s-]*(auto|autonomy|autonomous)\b|\bguarded[\s-]*auto\b`)
	reAssisted     = regexp.MustCompile(`\bassisted\b|\bassist mode\b|\bco-?pilot mode\b`)
	reRiskKeyword  = regexp.MustCompile(`\b(risk|daily loss|loss limit)\b`)
	reQuestion     = regexp.MustCompile(`^(why|what|how|when|did|does|was|were)\b`)
	reExplain      = regexp.MustCompile(`\b(why|explain|reason|rationale|how did you decide)\b`)
	reOutlookWords = regexp.MustCompile(`\b(expect|expected|expectation|outlook|forecast|predict|prediction|going|view|think|direction|bias|move)\b`)
)

// Rules упорядоченная таблица правил; порядок определяет приоритет
func Rules() []Rule {
	return []Rule{
		{Name: "language", Match: matchLanguage},
		{Name: "voice_test", Match: matchVoiceTest},
		{Name: "voice_off", Match: matchVoiceOff},
		{Name: "voice_on", Match: matchVoiceOn},
		{Name: "briefing_config", Match: matchBriefingConfig},
		{Name: "voice_capture", Match: matchVoiceCapture},
		{Name: "market_briefing", Match: matchMarketBriefing},
		{Name: "run_cycle", Match: matchRunCycle},
		{Name: "notifications", Match: matchNotifications},
		{Name: "kill_switch", Match: matchKillSwitch},
		{Name: "autonomy", Match: matchAutonomy},
		{Name: "explain", Match: matchExplain},
		{Name: "outlook", Match: matchOutlook},
	}
}

func matchLanguage(_, lower string) (Intent, bool) {
	if m := reLanguage.FindStringSubmatch(lower); m != nil {
		return Intent{Kind: KindLanguage, Language: m[1]}, true
	}
	if m := reSpeakLang.FindStringSubmatch(lower); m != nil {
		return Intent{Kind: KindLanguage, Language: m[1]}, true
	}
	return Intent{}, false
}

func matchVoiceTest(_, lower string) (Intent, bool) {
	return Intent{Kind: KindVoiceTest}, reVoiceTest.MatchString(lower)
}

func matchVoiceOff(_, lower string) (Intent, bool) {
	return Intent{Kind: KindVoiceOff}, reVoiceOff.MatchString(lower)
}

func matchVoiceOn(_, lower string) (Intent, bool) {
	return Intent{Kind: KindVoiceOn}, reVoiceOn.MatchString(lower)
}

func matchBriefingConfig(_, lower string) (Intent, bool) {
	if !reBriefing.MatchString(lower) {
		return Intent{}, false
	}

	if reBriefingOff.MatchString(lower) {
		return Intent{Kind: KindBriefingConfig, BriefingEnabled: false}, true
	}

	interval, hasInterval := ParseInterval(lower)
	if !hasInterval && !reBriefingCfg.MatchString(lower) {
		// разовый запрос сводки обрабатывает market_briefing
		return Intent{}, false
	}
	return Intent{Kind: KindBriefingConfig, BriefingEnabled: true, Interval: interval}, true
}

func matchVoiceCapture(_, lower string) (Intent, bool) {
	return Intent{Kind: KindVoiceCapture}, reCapture.MatchString(lower)
}

func matchMarketBriefing(text, lower string) (Intent, bool) {
	if !reMarketBrief.MatchString(lower) {
		return Intent{}, false
	}
	pair, _ := DetectPair(text)
	return Intent{Kind: KindMarketBriefing, Pair: pair}, true
}

func matchRunCycle(_, lower string) (Intent, bool) {
	return Intent{Kind: KindRunCycle}, reRunCycle.MatchString(lower)
}

func matchNotifications(text, lower string) (Intent, bool) {
	if !reNotify.MatchString(lower) {
		return Intent{}, false
	}

	in := Intent{Kind: KindNotifications}
	rest := text

	if url := reWebhook.FindString(rest); url != "" {
		in.Webhook = strings.TrimRight(url, ".,;)")
		rest = strings.Replace(rest, url, " ", 1)
	}
	if email := reEmail.FindString(rest); email != "" {
		in.Email = email
		rest = strings.Replace(rest, email, " ", 1)
	}
	in.Phone = ExtractPhone(rest)

	wantsWhatsApp := strings.Contains(lower, "whatsapp")
	wantsSMS := strings.Contains(lower, "sms") || strings.Contains(lower, "text me")

	if in.Email != "" || strings.Contains(lower, "email") || strings.Contains(lower, "e-mail") {
		in.Channels = append(in.Channels, domain.ChannelEmail)
	}
	if wantsSMS || (in.Phone != "" && !wantsWhatsApp) {
		in.Channels = append(in.Channels, domain.ChannelSMS)
	}
	if wantsWhatsApp {
		in.Channels = append(in.Channels, domain.ChannelWhatsApp)
	}
	if in.Webhook != "" {
		in.Channels = append(in.Channels, domain.ChannelWebhook)
	}
	in.Pair, _ = DetectPair(text)
	return in, true
}

func matchKillSwitch(_, lower string) (Intent, bool) {
	return Intent{Kind: KindKillSwitch}, !isQuestion(lower) && reKillSwitch.MatchString(lower)
}

func matchAutonomy(_, lower string) (Intent, bool) {
	if isQuestion(lower) {
		return Intent{}, false
	}
	in := Intent{Kind: KindAutonomy}
	in.RiskPct, in.DailyLossPct = ExtractRiskBudget(lower)

	switch {
	case rePause.MatchString(lower):
		in.Mode = domain.ModeManual
	case reFullAuto.MatchString(lower):
		in.Mode = domain.ModeFullAuto
	case reSemiAuto.MatchString(lower):
		in.Mode = domain.ModeSemiAuto
	case reAssisted.MatchString(lower):
		in.Mode = domain.ModeAssisted
	case reRiskKeyword.MatchString(lower) && (in.RiskPct > 0 || in.DailyLossPct > 0):
		// только риск-бюджет, режим не меняется
	default:
		return Intent{}, false
	}
	return in, true
}

func matchExplain(_, lower string) (Intent, bool) {
	return Intent{Kind: KindExplain}, reExplain.MatchString(lower)
}

func matchOutlook(text, lower string) (Intent, bool) {
	pair, ok := DetectPair(text)
	if !ok {
		return Intent{}, false
	}
	if !reOutlookWords.MatchString(lower) && !strings.Contains(lower, "?") {
		return Intent{}, false
	}
	return Intent{Kind: KindOutlook, Pair: pair, Horizon: DetectHorizon(lower)}, true
}

// isQuestion вопрос о действии, а не команда
func isQuestion(lower string) bool {
	lower = strings.TrimSpace(lower)
	return strings.HasSuffix(lower, "?") || reQuestion.MatchString(lower)
}
