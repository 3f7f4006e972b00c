package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/collectnyc/archive/internal/model"
)

// PostgresItemAccessRepo はPostgreSQLを使用したItemAccessRepositoryの実装。
type PostgresItemAccessRepo struct {
	db *sql.DB
}

// NewPostgresItemAccessRepo はPostgresItemAccessRepoを生成する。
func NewPostgresItemAccessRepo(db *sql.DB) *PostgresItemAccessRepo {
	return &PostgresItemAccessRepo{db: db}
}

// FindBySlug は指定slugの認証情報を取得する。見つからない場合はnilを返す。
func (r *PostgresItemAccessRepo) FindBySlug(ctx context.Context, slug string) (*model.ItemAccess, error) {
	access := &model.ItemAccess{}
	err := r.db.QueryRowContext(ctx,
		`SELECT slug, password_hash, updated_at
		 FROM item_access
		 WHERE slug = $1`,
		slug,
	).Scan(&access.Slug, &access.PasswordHash, &access.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item access: %w", err)
	}

	return access, nil
}

// Upsert は認証情報を作成または更新する。
func (r *PostgresItemAccessRepo) Upsert(ctx context.Context, access *model.ItemAccess) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO item_access (slug, password_hash, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`,
		access.Slug, access.PasswordHash, access.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item access: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ItemAccessRepository = (*PostgresItemAccessRepo)(nil)
