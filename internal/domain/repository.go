package domain

import "context"

// TurnRepository архив реплик разговора
type TurnRepository interface {
	Save(ctx context.Context, turn *ConversationTurn) error
	GetRecent(ctx context.Context, limit int) ([]ConversationTurn, error)
}

// DecisionRepository архив журнала решений
type DecisionRepository interface {
	Save(ctx context.Context, entry *DecisionLogEntry) error
	GetRecent(ctx context.Context, limit int) ([]DecisionLogEntry, error)
}
