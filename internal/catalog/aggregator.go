// Package catalog はCMSのページ分割された検索結果を走査し、
// カタログスナップショットを組み立てる機能を提供する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/collectnyc/archive/internal/cms"
	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/model"
)

const (
	// PageSize は1回のページ取得で要求する件数。
	PageSize = 100
	// maxPages は1回の走査で取得するページ数の上限。
	// next_pageを返し続けるソースで無限ループしないための制限。
	maxPages = 1000
)

// ErrPageLimit はページ数の上限に達しても走査が終わらなかったことを表す。
var ErrPageLimit = errors.New("catalog: page limit exceeded")

// PageSource はページ単位の検索を提供するカタログソース。
// *cms.Client が実装する。
type PageSource interface {
	MasterRef(ctx context.Context) (string, error)
	QueryPage(ctx context.Context, req cms.PageRequest) (*cms.SearchResponse, error)
}

// FetchError はカタログ走査の失敗を表す。
// Pageが0の場合はマスターrefの取得に失敗したことを示す。
type FetchError struct {
	Tag  model.TagRef
	Page int
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("catalog: failed to resolve master ref: %v", e.Err)
	}
	return fmt.Sprintf("catalog: failed to fetch page %d: %v", e.Page, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Aggregator はカタログソースを1ページ目から最終ページまで走査し、
// 全アイテムを1つのスナップショットにまとめる。
// 走査途中のエラーでは部分的な結果を返さない。
type Aggregator struct {
	source       PageSource
	converter    *Converter
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
	documentType string
	now          func() time.Time
}

// NewAggregator はAggregatorの新しいインスタンスを生成する。
func NewAggregator(
	source PageSource,
	converter *Converter,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	documentType string,
) *Aggregator {
	return &Aggregator{
		source:       source,
		converter:    converter,
		metrics:      collector,
		logger:       logger,
		documentType: documentType,
		now:          time.Now,
	}
}

// Aggregate は全ページを走査してスナップショットを生成する。
// tagがゼロ値の場合はカタログ全体を対象とする。
// すべてのページで同じマスターrefを使用する。
func (a *Aggregator) Aggregate(ctx context.Context, tag model.TagRef) (*model.CatalogSnapshot, error) {
	start := a.now()

	ref, err := a.source.MasterRef(ctx)
	if err != nil {
		a.metrics.RecordAggregationFailure("master_ref")
		return nil, &FetchError{Tag: tag, Page: 0, Err: err}
	}

	var items []model.CatalogItem
	page := 1
	for {
		if page > maxPages {
			a.metrics.RecordAggregationFailure("page_limit")
			return nil, &FetchError{Tag: tag, Page: page, Err: ErrPageLimit}
		}

		resp, err := a.source.QueryPage(ctx, cms.PageRequest{
			Ref:          ref,
			DocumentType: a.documentType,
			Tag:          tag,
			PageSize:     PageSize,
			Page:         page,
		})
		if err != nil {
			a.metrics.RecordAggregationFailure("page")
			a.logger.Error("カタログページの取得に失敗しました",
				slog.String("tag", tag.Label()),
				slog.Int("page", page),
				slog.Int("items_discarded", len(items)),
				slog.String("error", err.Error()),
			)
			return nil, &FetchError{Tag: tag, Page: page, Err: err}
		}
		a.metrics.RecordPageFetched()

		items = append(items, a.converter.ConvertAll(resp.Results)...)

		if !resp.HasNext() {
			break
		}
		page++
	}

	snapshot := model.NewCatalogSnapshot(items, a.now())
	elapsed := a.now().Sub(start)

	if tag.IsZero() {
		a.metrics.RecordAggregation(elapsed, snapshot.ItemCount)
	}

	a.logger.Info("カタログの集約が完了しました",
		slog.String("tag", tag.Label()),
		slog.Int("pages", page),
		slog.Int("item_count", snapshot.ItemCount),
		slog.Int("media_count", snapshot.MediaCount),
		slog.Int("total_count", snapshot.TotalCount),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
	)

	return snapshot, nil
}
