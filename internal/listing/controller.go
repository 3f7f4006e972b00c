// Package listing はカタログ一覧の表示状態（タグ絞り込み、ソート、レイアウト）を管理する。
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/model"
)

// Layout は一覧のレイアウト。
type Layout string

const (
	LayoutList Layout = "list"
	LayoutGrid Layout = "grid"
)

var (
	// ErrStaleResponse は後続の絞り込み操作によって不要になったレスポンスを破棄したことを表す。
	ErrStaleResponse = errors.New("listing: stale filter response discarded")
	// ErrEmptyTag はタグ名・IDのどちらも指定されていないことを表す。
	ErrEmptyTag = errors.New("listing: tag name or id is required")
)

// FilterFetchError はタグ絞り込みの取得失敗を表す。
// 一覧は直前の状態のまま保持される。
type FilterFetchError struct {
	Tag model.TagRef
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *FilterFetchError) Error() string {
	return fmt.Sprintf("listing: failed to fetch items for tag %q: %v", e.Tag.Label(), e.Err)
}

// Unwrap は元のエラーを返す。
func (e *FilterFetchError) Unwrap() error {
	return e.Err
}

// TagQuerier はタグに属するアイテムを取得する外部コラボレータ。
type TagQuerier interface {
	QueryTag(ctx context.Context, tag model.TagRef) ([]model.CatalogItem, error)
}

// Controller は1つのブラウズセッションの一覧状態を保持する。
// スナップショットは生成時に受け取り、以降は変更しない。
type Controller struct {
	mu      sync.Mutex
	querier TagQuerier
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	snapshot *model.CatalogSnapshot
	items    []model.CatalogItem
	filter   *string
	alpha    SortDirection
	chrono   ChronoMode
	lastSort sortKind
	layout   Layout
	lastErr  *FilterFetchError

	// generation は絞り込み要求ごとに増加する。
	// レスポンス到着時に一致しなければ破棄する。
	generation uint64
}

// NewController はスナップショットの全アイテムを初期一覧とするControllerを生成する。
func NewController(snapshot *model.CatalogSnapshot, querier TagQuerier, collector metrics.MetricsCollector, logger *slog.Logger) *Controller {
	return &Controller{
		querier:  querier,
		metrics:  collector,
		logger:   logger,
		snapshot: snapshot,
		items:    snapshot.Items(),
		layout:   LayoutList,
	}
}

// ApplyTagFilter はフィルタラベルを設定し、タグに属するアイテムを取得して一覧を置き換える。
// 取得に失敗した場合は一覧を保持し、ラベルは戻さない。
// 取得中に別の絞り込みや解除が行われた場合はレスポンスを破棄してErrStaleResponseを返す。
func (c *Controller) ApplyTagFilter(ctx context.Context, tag model.TagRef) error {
	if tag.IsZero() {
		return ErrEmptyTag
	}
	if tag.Name == model.AllWorkLabel && tag.ID == "" {
		c.ClearFilter()
		return nil
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	label := tag.Label()
	c.filter = &label
	c.mu.Unlock()

	items, err := c.querier.QueryTag(ctx, tag)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.metrics.RecordStaleResponse()
		c.logger.Info("古いタグ絞り込みレスポンスを破棄しました",
			slog.String("tag", label),
			slog.Uint64("generation", gen),
			slog.Uint64("current_generation", c.generation),
		)
		return ErrStaleResponse
	}

	if err != nil {
		fe := &FilterFetchError{Tag: tag, Err: err}
		c.lastErr = fe
		c.metrics.RecordFilterFailure()
		c.logger.Error("タグ絞り込みの取得に失敗しました",
			slog.String("tag", label),
			slog.String("error", err.Error()),
		)
		return fe
	}

	c.items = append([]model.CatalogItem(nil), items...)
	c.lastErr = nil
	c.reapplySort()
	return nil
}

// ClearFilter はフィルタを"All Work"に戻し、スナップショットの全アイテムを一覧に戻す。
// 再取得は行わない。
func (c *Controller) ClearFilter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	label := model.AllWorkLabel
	c.filter = &label
	c.items = c.snapshot.Items()
	c.lastErr = nil
	c.reapplySort()
}

// ToggleAlphabeticalSort は現在の一覧をタイトル順にソートする。
// 昇順の場合は降順に、それ以外は昇順にする。
func (c *Controller) ToggleAlphabeticalSort() SortDirection {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.alpha == SortAscending {
		c.alpha = SortDescending
	} else {
		c.alpha = SortAscending
	}
	c.lastSort = sortAlpha
	sortByTitle(c.items, c.alpha)
	return c.alpha
}

// CycleChronologicalSort は現在の一覧を制作日順にソートする。
// 未設定/古い順 → 新しい順、新しい順 → 古い順と切り替える。
func (c *Controller) CycleChronologicalSort() ChronoMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chrono == ChronoNewest {
		c.chrono = ChronoOldest
	} else {
		c.chrono = ChronoNewest
	}
	c.lastSort = sortChrono
	sortByDate(c.items, c.chrono)
	return c.chrono
}

// ToggleViewMode はリスト表示とグリッド表示を切り替える。
func (c *Controller) ToggleViewMode() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.layout == LayoutList {
		c.layout = LayoutGrid
	} else {
		c.layout = LayoutList
	}
	return c.layout
}

// Items は現在の一覧のコピーを返す。
func (c *Controller) Items() []model.CatalogItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]model.CatalogItem(nil), c.items...)
}

// Snapshot は初期化時のスナップショットを返す。
func (c *Controller) Snapshot() *model.CatalogSnapshot {
	return c.snapshot
}

// reapplySort は最後に記録したソートを現在の一覧に再適用する。c.muを保持して呼ぶ。
func (c *Controller) reapplySort() {
	switch c.lastSort {
	case sortAlpha:
		sortByTitle(c.items, c.alpha)
	case sortChrono:
		sortByDate(c.items, c.chrono)
	}
}
