package repository

import (
	"context"
	"database/sql"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// DecisionRepository хранит журнал решений
type DecisionRepository struct {
	db *sql.DB
}

// NewDecisionRepository создает новый репозиторий
func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Save сохраняет запись журнала решений
func (r *DecisionRepository) Save(ctx context.Context, entry *domain.DecisionLogEntry) error {
	query := `
		INSERT INTO decision_log (id, state, summary, rationale, confidence_percent, blocked_by_guardrails, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		string(entry.State),
		entry.Summary,
		entry.Rationale,
		entry.ConfidencePercent,
		entry.BlockedByGuardrails,
		entry.Timestamp,
	)
	return err
}

// GetRecent последние N записей, новые первыми
func (r *DecisionRepository) GetRecent(ctx context.Context, limit int) ([]domain.DecisionLogEntry, error) {
	query := `
		SELECT id, state, summary, rationale, confidence_percent, blocked_by_guardrails, created_at
		FROM decision_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.DecisionLogEntry
	for rows.Next() {
		var (
			e         domain.DecisionLogEntry
			state     string
			rationale sql.NullString
		)
		if err := rows.Scan(&e.ID, &state, &e.Summary, &rationale, &e.ConfidencePercent, &e.BlockedByGuardrails, &e.Timestamp); err != nil {
			return nil, err
		}
		e.State = domain.VisualState(state)
		e.Rationale = rationale.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

var _ domain.DecisionRepository = (*DecisionRepository)(nil)
