package domain

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyCommand пустая команда
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnsupportedLanguage неподдерживаемый код языка
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrServiceUnavailable сервис гардрейлов недоступен (сеть, таймаут, 5xx)
	ErrServiceUnavailable = errors.New("guardrail service unavailable")

	// ErrMalformedPayload сервис вернул неразбираемый ответ
	ErrMalformedPayload = errors.New("malformed service payload")

	// ErrRiskLimitExceeded возвращается при превышении лимитов риска
	ErrRiskLimitExceeded = errors.New("risk limit exceeded")

	// ErrEmergencyStop возвращается когда активирован kill switch
	ErrEmergencyStop = errors.New("emergency stop activated")

	// ErrAlreadyInitialized повторный Initialize
	ErrAlreadyInitialized = errors.New("orchestrator already initialized")

	// ErrDisposed оркестратор уже остановлен
	ErrDisposed = errors.New("orchestrator disposed")

	// ErrDatabaseConnection возвращается при ошибке подключения к БД
	ErrDatabaseConnection = errors.New("database connection error")
)
