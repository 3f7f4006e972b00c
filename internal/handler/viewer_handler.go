package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/session"
	"github.com/collectnyc/archive/internal/viewer"
)

// ViewerHandler は閲覧画面のHTTPハンドラー。
type ViewerHandler struct {
	catalog  CatalogServiceInterface
	verifier viewer.Verifier
	logger   *slog.Logger
}

// NewViewerHandler はViewerHandlerを生成する。
func NewViewerHandler(catalog CatalogServiceInterface, verifier viewer.Verifier, logger *slog.Logger) *ViewerHandler {
	return &ViewerHandler{
		catalog:  catalog,
		verifier: verifier,
		logger:   logger,
	}
}

type keyRequest struct {
	Key string `json:"key"`
}

type unlockRequest struct {
	Password string `json:"password"`
}

type navigateResponse struct {
	Handled  bool             `json:"handled"`
	Redirect string           `json:"redirect,omitempty"`
	View     itemViewResponse `json:"view"`
}

// Open は閲覧セッションを開始してアイテムの表示を返す。
// GET /api/items/{slug}
// 同じアイテムの閲覧セッションが開いている場合はそれを返す。
func (h *ViewerHandler) Open(w http.ResponseWriter, r *http.Request) {
	b, ok := browseFromRequest(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")

	if v, ok := b.Viewer(slug); ok {
		writeJSON(w, http.StatusOK, toItemViewResponse(v.View()))
		return
	}

	item, err := h.lookup(r, b, slug)
	if err != nil {
		handleServiceError(w, err, slug)
		return
	}
	if item == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewItemNotFoundError(slug))
		return
	}

	v := b.OpenViewer(*item, h.verifier, h.logger)
	writeJSON(w, http.StatusOK, toItemViewResponse(v.View()))
}

// lookup はマウント済みの一覧からアイテムを探し、なければCMSから取得する。
func (h *ViewerHandler) lookup(r *http.Request, b *session.Browse, slug string) (*model.CatalogItem, error) {
	if c := b.Controller(); c != nil {
		if it, ok := c.Snapshot().Find(slug); ok {
			return &it, nil
		}
	}
	return h.catalog.Item(r.Context(), slug)
}

// active は開いている閲覧セッションを返す。存在しない場合は409を書き込む。
func (h *ViewerHandler) active(w http.ResponseWriter, r *http.Request) (*viewer.Session, string, bool) {
	v, slug, _, ok := h.activeIn(w, r)
	return v, slug, ok
}

func (h *ViewerHandler) activeIn(w http.ResponseWriter, r *http.Request) (*viewer.Session, string, *session.Browse, bool) {
	b, ok := browseFromRequest(w, r)
	if !ok {
		return nil, "", nil, false
	}
	slug := chi.URLParam(r, "slug")

	v, ok := b.Viewer(slug)
	if !ok {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewViewerClosedError(slug))
		return nil, "", nil, false
	}
	return v, slug, b, true
}

// Next は次のメディアに進む。
// POST /api/items/{slug}/next
func (h *ViewerHandler) Next(w http.ResponseWriter, r *http.Request) {
	v, slug, ok := h.active(w, r)
	if !ok {
		return
	}
	if _, err := v.Next(); err != nil {
		handleServiceError(w, err, slug)
		return
	}
	writeJSON(w, http.StatusOK, toItemViewResponse(v.View()))
}

// Prev は前のメディアに戻る。
// POST /api/items/{slug}/prev
func (h *ViewerHandler) Prev(w http.ResponseWriter, r *http.Request) {
	v, slug, ok := h.active(w, r)
	if !ok {
		return
	}
	if _, err := v.Prev(); err != nil {
		handleServiceError(w, err, slug)
		return
	}
	writeJSON(w, http.StatusOK, toItemViewResponse(v.View()))
}

// Key はキーボード入力をセッションのリスナーに配信する。
// POST /api/items/{slug}/keys
// Escapeで閲覧を終了した場合はredirectに遷移先を含める。
func (h *ViewerHandler) Key(w http.ResponseWriter, r *http.Request) {
	v, _, b, ok := h.activeIn(w, r)
	if !ok {
		return
	}

	var req keyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key, ok := viewer.ParseKey(req.Key)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidKeyError(req.Key))
		return
	}

	resp := navigateResponse{Handled: b.Keys().Dispatch(key)}
	resp.View = toItemViewResponse(v.View())
	if resp.View.Closed {
		resp.Redirect = viewer.ExitTarget
	}
	writeJSON(w, http.StatusOK, resp)
}

// Exit は閲覧を終了して遷移先を返す。
// POST /api/items/{slug}/exit
func (h *ViewerHandler) Exit(w http.ResponseWriter, r *http.Request) {
	v, _, ok := h.active(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": v.Exit()})
}

// Unlock はパスワードを送信してアクセスゲートの解錠を試みる。
// POST /api/items/{slug}/unlock
// 照合失敗・照合不能はいずれもgate_errorに反映して200で返す。
func (h *ViewerHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	v, slug, ok := h.active(w, r)
	if !ok {
		return
	}

	var req unlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := v.Unlock(r.Context(), req.Password); err != nil {
		var transportErr *viewer.VerifyTransportError
		if !errors.As(err, &transportErr) {
			handleServiceError(w, err, slug)
			return
		}
		h.logger.Warn("パスワード照合を実行できませんでした",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, toItemViewResponse(v.View()))
}
