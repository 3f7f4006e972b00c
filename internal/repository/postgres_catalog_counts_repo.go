package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/collectnyc/archive/internal/model"
)

// PostgresCatalogCountsRepo はPostgreSQLを使用したCatalogCountsRepositoryの実装。
// catalog_countsは常に1行（id=1）のみを保持する。
type PostgresCatalogCountsRepo struct {
	db *sql.DB
}

// NewPostgresCatalogCountsRepo はPostgresCatalogCountsRepoを生成する。
func NewPostgresCatalogCountsRepo(db *sql.DB) *PostgresCatalogCountsRepo {
	return &PostgresCatalogCountsRepo{db: db}
}

// Save は件数を上書き保存する。
func (r *PostgresCatalogCountsRepo) Save(ctx context.Context, counts model.CatalogCounts) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_counts (id, item_count, media_count, total_count, refreshed_at)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET item_count = EXCLUDED.item_count,
		     media_count = EXCLUDED.media_count,
		     total_count = EXCLUDED.total_count,
		     refreshed_at = EXCLUDED.refreshed_at`,
		counts.ItemCount, counts.MediaCount, counts.TotalCount, counts.RefreshedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save catalog counts: %w", err)
	}
	return nil
}

// Latest は保存済みの件数を取得する。未保存の場合はnilを返す。
func (r *PostgresCatalogCountsRepo) Latest(ctx context.Context) (*model.CatalogCounts, error) {
	counts := &model.CatalogCounts{}
	err := r.db.QueryRowContext(ctx,
		`SELECT item_count, media_count, total_count, refreshed_at
		 FROM catalog_counts
		 WHERE id = 1`,
	).Scan(&counts.ItemCount, &counts.MediaCount, &counts.TotalCount, &counts.RefreshedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog counts: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ CatalogCountsRepository = (*PostgresCatalogCountsRepo)(nil)
