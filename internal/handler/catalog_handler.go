package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/collectnyc/archive/internal/listing"
	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/session"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// Catalog はカタログ全体を集約したスナップショットを返す。
	Catalog(ctx context.Context) (*model.CatalogSnapshot, error)
	// QueryTag は指定タグに属するアイテムを返す。
	QueryTag(ctx context.Context, tag model.TagRef) ([]model.CatalogItem, error)
	// Item はslugに一致するアイテムを返す。見つからない場合はnil。
	Item(ctx context.Context, slug string) (*model.CatalogItem, error)
	// Counts はナビゲーション表示用の件数を返す。
	Counts(ctx context.Context) (model.CatalogCounts, error)
}

// CatalogHandler は一覧画面のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogServiceInterface
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface, collector metrics.MetricsCollector, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		metrics: collector,
		logger:  logger,
	}
}

// filterRequest はタグ絞り込みリクエストのボディ。
type filterRequest struct {
	Tag   string `json:"tag"`
	TagID string `json:"tag_id"`
}

// controller はセッションの一覧コントローラを返す。未マウントの場合はカタログを集約してマウントする。
func (h *CatalogHandler) controller(ctx context.Context, b *session.Browse) (*listing.Controller, error) {
	if c := b.Controller(); c != nil {
		return c, nil
	}

	snapshot, err := h.service.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	return b.MountIfAbsent(listing.NewController(snapshot, h.service, h.metrics, h.logger)), nil
}

// Mount は一覧をマウントして現在の表示を返す。
// GET /api/catalog?tag=X
// tagが指定された場合はマウント時にタグ絞り込みを適用する。
func (h *CatalogHandler) Mount(w http.ResponseWriter, r *http.Request) {
	b, ok := browseFromRequest(w, r)
	if !ok {
		return
	}

	c, err := h.controller(r.Context(), b)
	if err != nil {
		handleServiceError(w, err, "")
		return
	}

	if tag := r.URL.Query().Get("tag"); tag != "" {
		// 取得失敗は一覧を保持したままView.Errorに反映されるため、レスポンスは200で返す
		if err := c.ApplyTagFilter(r.Context(), model.TagRef{Name: tag}); err != nil && !isFilterFetchError(err) {
			handleServiceError(w, err, tag)
			return
		}
	}

	writeJSON(w, http.StatusOK, toCatalogViewResponse(c.View()))
}

// ApplyFilter はタグ絞り込みを適用する。
// POST /api/catalog/filter
func (h *CatalogHandler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	b, ok := browseFromRequest(w, r)
	if !ok {
		return
	}

	var req filterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag := model.TagRef{Name: req.Tag, ID: req.TagID}
	if tag.IsZero() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTagError())
		return
	}

	c, err := h.controller(r.Context(), b)
	if err != nil {
		handleServiceError(w, err, "")
		return
	}

	if err := c.ApplyTagFilter(r.Context(), tag); err != nil {
		handleServiceError(w, err, tag.Label())
		return
	}

	writeJSON(w, http.StatusOK, toCatalogViewResponse(c.View()))
}

// ClearFilter はフィルタを解除する。
// DELETE /api/catalog/filter
func (h *CatalogHandler) ClearFilter(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(c *listing.Controller) { c.ClearFilter() })
}

// ToggleTitleSort はタイトル順ソートを切り替える。
// POST /api/catalog/sort/title
func (h *CatalogHandler) ToggleTitleSort(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(c *listing.Controller) { c.ToggleAlphabeticalSort() })
}

// CycleDateSort は日付順ソートを新しい順→古い順→新しい順と切り替える。
// POST /api/catalog/sort/date
func (h *CatalogHandler) CycleDateSort(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(c *listing.Controller) { c.CycleChronologicalSort() })
}

// ToggleView はリスト表示とグリッド表示を切り替える。
// POST /api/catalog/view
func (h *CatalogHandler) ToggleView(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(c *listing.Controller) { c.ToggleViewMode() })
}

// mutate は再取得を伴わない一覧操作を適用して表示を返す。
func (h *CatalogHandler) mutate(w http.ResponseWriter, r *http.Request, op func(*listing.Controller)) {
	b, ok := browseFromRequest(w, r)
	if !ok {
		return
	}

	c, err := h.controller(r.Context(), b)
	if err != nil {
		handleServiceError(w, err, "")
		return
	}

	op(c)
	writeJSON(w, http.StatusOK, toCatalogViewResponse(c.View()))
}

// Count はナビゲーション表示用の件数を返す。
// GET /api/count
// mediaはアイテム数とメディア数の合計。
func (h *CatalogHandler) Count(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Counts(r.Context())
	if err != nil {
		handleServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"count": counts.ItemCount,
		"media": counts.TotalCount,
	})
}

func isFilterFetchError(err error) bool {
	var fe *listing.FilterFetchError
	return errors.As(err, &fe)
}
