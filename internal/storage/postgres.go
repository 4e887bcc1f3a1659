package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/storage/repository"
	_ "github.com/lib/pq"
)

// PostgresStorage архив разговора и журнала решений в PostgreSQL
type PostgresStorage struct {
	db        *sql.DB
	turns     *repository.TurnRepository
	decisions *repository.DecisionRepository
}

// NewPostgresStorage открывает соединение и применяет миграции
func NewPostgresStorage(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrDatabaseConnection, err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	storage := &PostgresStorage{
		db:        db,
		turns:     repository.NewTurnRepository(db),
		decisions: repository.NewDecisionRepository(db),
	}

	if err := storage.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id UUID PRIMARY KEY,
			text TEXT NOT NULL,
			from_user BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS decision_log (
			id UUID PRIMARY KEY,
			state VARCHAR(20) NOT NULL,
			summary TEXT NOT NULL,
			rationale TEXT,
			confidence_percent INTEGER NOT NULL DEFAULT 0,
			blocked_by_guardrails BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_created_at ON conversation_turns(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_log_created_at ON decision_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_log_blocked ON decision_log(blocked_by_guardrails)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Turns репозиторий реплик
func (s *PostgresStorage) Turns() *repository.TurnRepository {
	return s.turns
}

// Decisions репозиторий решений
func (s *PostgresStorage) Decisions() *repository.DecisionRepository {
	return s.decisions
}

// Close закрывает соединение с базой данных
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
