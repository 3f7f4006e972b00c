package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/collectnyc/archive/internal/model"
)

// PostgresAccessAttemptRepo はPostgreSQLを使用したAccessAttemptRepositoryの実装。
type PostgresAccessAttemptRepo struct {
	db *sql.DB
}

// NewPostgresAccessAttemptRepo はPostgresAccessAttemptRepoを生成する。
func NewPostgresAccessAttemptRepo(db *sql.DB) *PostgresAccessAttemptRepo {
	return &PostgresAccessAttemptRepo{db: db}
}

// Create は試行記録を1件追加する。
func (r *PostgresAccessAttemptRepo) Create(ctx context.Context, attempt *model.AccessAttempt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_attempts (id, slug, success, created_at)
		 VALUES ($1, $2, $3, $4)`,
		attempt.ID, attempt.Slug, attempt.Success, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access attempt: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AccessAttemptRepository = (*PostgresAccessAttemptRepo)(nil)
