// Package counts はナビゲーション表示用のカタログ件数を定期的に集約・保存するワーカーを提供する。
package counts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/collectnyc/archive/internal/catalog"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/repository"
)

// CatalogSource はカタログ全体の集約を行うインターフェース。
type CatalogSource interface {
	Catalog(ctx context.Context) (*model.CatalogSnapshot, error)
}

// Refresher はカタログを定期的に集約し、件数をcatalog_countsに保存する。
// 集約に失敗した回は保存済みの件数を上書きしない。
type Refresher struct {
	source CatalogSource
	repo   repository.CatalogCountsRepository
	logger *slog.Logger
}

// NewRefresher はRefresherの新しいインスタンスを生成する。
func NewRefresher(source CatalogSource, repo repository.CatalogCountsRepository, logger *slog.Logger) *Refresher {
	return &Refresher{
		source: source,
		repo:   repo,
		logger: logger,
	}
}

// Start はinterval間隔で件数の更新を行う。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("件数更新ワーカーを開始しました",
		slog.Duration("interval", interval),
	)

	r.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("件数更新ワーカーを停止しました")
			return
		case <-ticker.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Refresher) runLogged(ctx context.Context) {
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("件数の更新に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce はカタログを1回集約し、件数を保存する。
func (r *Refresher) RunOnce(ctx context.Context) error {
	start := time.Now()

	snapshot, err := r.source.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("カタログの集約に失敗: %w", err)
	}

	counts := catalog.CountsOf(snapshot)
	if err := r.repo.Save(ctx, counts); err != nil {
		return fmt.Errorf("件数の保存に失敗: %w", err)
	}

	r.logger.Info("件数を更新しました",
		slog.Int("item_count", counts.ItemCount),
		slog.Int("media_count", counts.MediaCount),
		slog.Int("total_count", counts.TotalCount),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
