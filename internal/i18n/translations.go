package i18n

var translations = map[string]map[Lang]string{
	"confirm_required": {
		LangEN: "Confirmation required for \"%s\". Reply \"confirm command\" to proceed.",
		LangRU: "Требуется подтверждение для \"%s\". Ответьте \"confirm command\", чтобы продолжить.",
	},
	"confirm_nothing": {
		LangEN: "Nothing is waiting for confirmation.",
		LangRU: "Нет команд, ожидающих подтверждения.",
	},
	"lang_switched": {
		LangEN: "Language switched to English.",
		LangRU: "Язык переключен на русский.",
	},
	"lang_unsupported": {
		LangEN: "Sorry, %s is not supported. Available: English, Russian.",
		LangRU: "Язык %s не поддерживается. Доступны: английский, русский.",
	},
	"voice_on": {
		LangEN: "Voice narration enabled.",
		LangRU: "Голосовое сопровождение включено.",
	},
	"voice_off": {
		LangEN: "Voice narration disabled.",
		LangRU: "Голосовое сопровождение выключено.",
	},
	"briefing_on": {
		LangEN: "Market briefings every %d seconds.",
		LangRU: "Рыночные сводки каждые %d секунд.",
	},
	"briefing_off": {
		LangEN: "Periodic market briefings stopped.",
		LangRU: "Периодические сводки остановлены.",
	},
	"listen_heard": {
		LangEN: "Heard: \"%s\"",
		LangRU: "Распознано: \"%s\"",
	},
	"listen_none": {
		LangEN: "No speech heard.",
		LangRU: "Речь не распознана.",
	},
	"listen_unavailable": {
		LangEN: "Voice capture is not available on this device.",
		LangRU: "Голосовой ввод недоступен на этом устройстве.",
	},
	"voice_test": {
		LangEN: "Voice self-test: audio %s, synthesis %s, recognition %s.",
		LangRU: "Проверка голоса: звук %s, синтез %s, распознавание %s.",
	},
	"cap_yes": {
		LangEN: "available",
		LangRU: "доступен",
	},
	"cap_no": {
		LangEN: "unavailable",
		LangRU: "недоступен",
	},
	"briefing_line": {
		LangEN: "%s at %.5f, sentiment %s (%.2f).",
		LangRU: "%s по %.5f, настроение %s (%.2f).",
	},
	"briefing_headline": {
		LangEN: "Headline: %s.",
		LangRU: "Главное: %s.",
	},
	"briefing_fallback": {
		LangEN: "Live data unavailable, showing reference values.",
		LangRU: "Живые данные недоступны, показаны опорные значения.",
	},
	"cycle_blocked_kill": {
		LangEN: "Autonomous cycle blocked: kill switch is engaged.",
		LangRU: "Автономный цикл заблокирован: активирован kill switch.",
	},
	"cycle_blocked_manual": {
		LangEN: "Autonomous cycle blocked: autonomy is in Manual mode.",
		LangRU: "Автономный цикл заблокирован: включен ручной режим.",
	},
	"sim_blocked": {
		LangEN: "Local simulation blocked: %s",
		LangRU: "Локальная симуляция заблокирована: %s",
	},
	"sim_trade": {
		LangEN: "Simulated %s %s with %.2f%% risk (offline mode).",
		LangRU: "Смоделирована сделка %s %s с риском %.2f%% (офлайн).",
	},
	"guard_blocked": {
		LangEN: "Guardrails blocked the %s trade: %s",
		LangRU: "Гардрейлы заблокировали сделку %s: %s",
	},
	"token_missing": {
		LangEN: "Trade on %s blocked: execution token required but not issued.",
		LangRU: "Сделка %s заблокирована: требуется токен исполнения, но он не выдан.",
	},
	"trade_executed": {
		LangEN: "Executed %s %s: %s",
		LangRU: "Исполнено %s %s: %s",
	},
	"trade_warning": {
		LangEN: "Trade on %s was not confirmed: %s",
		LangRU: "Сделка %s не подтверждена: %s",
	},
	"trade_failed": {
		LangEN: "Trade execution failed: %s",
		LangRU: "Ошибка исполнения сделки: %s",
	},
	"explain_failed": {
		LangEN: "Could not obtain a guard decision: %s",
		LangRU: "Не удалось получить решение гардрейлов: %s",
	},
	"channels_set": {
		LangEN: "Notifications will be delivered via %s. Sending a test alert.",
		LangRU: "Уведомления будут приходить через %s. Отправляю тестовое оповещение.",
	},
	"channels_missing": {
		LangEN: "Tell me an email address, phone number or webhook URL to configure alerts.",
		LangRU: "Укажите email, телефон или webhook URL для настройки оповещений.",
	},
	"channels_failed": {
		LangEN: "Could not save notification preferences: %s",
		LangRU: "Не удалось сохранить настройки уведомлений: %s",
	},
	"kill_engaged": {
		LangEN: "KILL SWITCH ACTIVATED - All trading disabled.",
		LangRU: "KILL SWITCH АКТИВИРОВАН - вся торговля остановлена.",
	},
	"kill_already": {
		LangEN: "Kill switch is already active.",
		LangRU: "Kill switch уже активен.",
	},
	"kill_remote_failed": {
		LangEN: "Kill switch engaged locally, but the service did not acknowledge: %s",
		LangRU: "Kill switch включен локально, но сервис не подтвердил: %s",
	},
	"autonomy_set": {
		LangEN: "Autonomy set to %s with %.1f%% risk per trade and %.1f%% daily loss limit.",
		LangRU: "Автономия: %s, риск %.1f%% на сделку, дневной лимит убытка %.1f%%.",
	},
	"autonomy_local": {
		LangEN: "Applied locally while the guardrail service is offline.",
		LangRU: "Применено локально, сервис гардрейлов недоступен.",
	},
	"autonomy_failed": {
		LangEN: "Guardrail service rejected the update (%s). Applied locally.",
		LangRU: "Сервис гардрейлов отклонил изменение (%s). Применено локально.",
	},
	"autonomy_paused": {
		LangEN: "Autonomy paused. Manual mode until you resume.",
		LangRU: "Автономия на паузе. Ручной режим до возобновления.",
	},
	"budget_invalid": {
		LangEN: "Invalid risk settings: %s",
		LangRU: "Некорректные параметры риска: %s",
	},
	"explain_none": {
		LangEN: "No decisions recorded yet.",
		LangRU: "Решений пока нет.",
	},
	"explain_last": {
		LangEN: "Last decision: %s. Why: %s (confidence %d%%).",
		LangRU: "Последнее решение: %s. Причина: %s (уверенность %d%%).",
	},
	"outlook": {
		LangEN: "%s outlook (%s): %s, confidence %.0f%%, target %.5f. %s",
		LangRU: "Прогноз %s (%s): %s, уверенность %.0f%%, цель %.5f. %s",
	},
	"outlook_failed": {
		LangEN: "Forecast for %s is unavailable right now: %s",
		LangRU: "Прогноз по %s сейчас недоступен: %s",
	},
	"not_automated": {
		LangEN: "I can't automate that yet. Try \"run cycle\" or \"What's expected for EUR/USD this week?\"",
		LangRU: "Это пока не автоматизировано. Попробуйте \"run cycle\" или \"What's expected for EUR/USD this week?\"",
	},
	"offline_fallback": {
		LangEN: "Guardrail service unreachable, switched to local simulation.",
		LangRU: "Сервис гардрейлов недоступен, переключаюсь на локальную симуляцию.",
	},
	"refresh_ok": {
		LangEN: "Guardrails synchronized: %s, %.1f%% risk per trade.",
		LangRU: "Гардрейлы синхронизированы: %s, риск %.1f%% на сделку.",
	},
	"status": {
		LangEN: "Status",
		LangRU: "Статус",
	},
	"access_denied": {
		LangEN: "Access denied",
		LangRU: "Доступ запрещен",
	},
	"rate_limit_exceeded": {
		LangEN: "Too many requests, please wait",
		LangRU: "Слишком много запросов, подождите",
	},
}
