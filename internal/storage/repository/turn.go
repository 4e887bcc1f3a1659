package repository

import (
	"context"
	"database/sql"

	"github.com/kirillm/fx-copilot/internal/domain"
)

// TurnRepository хранит реплики разговора
type TurnRepository struct {
	db *sql.DB
}

// NewTurnRepository создает новый репозиторий реплик
func NewTurnRepository(db *sql.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Save сохраняет реплику; повторная запись с тем же ID игнорируется
func (r *TurnRepository) Save(ctx context.Context, turn *domain.ConversationTurn) error {
	query := `
		INSERT INTO conversation_turns (id, text, from_user, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, turn.ID, turn.Text, turn.FromUser, turn.Timestamp)
	return err
}

// GetRecent последние N реплик, от старых к новым
func (r *TurnRepository) GetRecent(ctx context.Context, limit int) ([]domain.ConversationTurn, error) {
	query := `
		SELECT id, text, from_user, created_at FROM (
			SELECT id, text, from_user, created_at
			FROM conversation_turns
			ORDER BY created_at DESC
			LIMIT $1
		) recent
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.ID, &t.Text, &t.FromUser, &t.Timestamp); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

var _ domain.TurnRepository = (*TurnRepository)(nil)
