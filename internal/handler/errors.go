package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/collectnyc/archive/internal/access"
	"github.com/collectnyc/archive/internal/catalog"
	"github.com/collectnyc/archive/internal/listing"
	"github.com/collectnyc/archive/internal/middleware"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/session"
	"github.com/collectnyc/archive/internal/viewer"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// decodeJSON はリクエストボディをデコードする。失敗時は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("The request body could not be parsed."))
		return false
	}
	return true
}

// browseFromRequest はリクエストのブラウズセッションを返す。存在しない場合は401を書き込む。
func browseFromRequest(w http.ResponseWriter, r *http.Request) (*session.Browse, bool) {
	b, err := middleware.BrowseFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewSessionMissingError())
		return nil, false
	}
	return b, true
}

// toAPIError はドメイン層のエラーを統一エラーに変換する。
// subjectはメッセージに含めるタグ名またはslug。変換できないエラーはそのまま返す。
func toAPIError(err error, subject string) error {
	var (
		apiErr      *model.APIError
		filterErr   *listing.FilterFetchError
		fetchErr    *catalog.FetchError
		transportEr *viewer.VerifyTransportError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, listing.ErrStaleResponse):
		return model.NewStaleFilterError(subject)
	case errors.As(err, &filterErr):
		return model.NewFilterFetchFailedError(filterErr.Tag.Label())
	case errors.Is(err, listing.ErrEmptyTag), errors.Is(err, catalog.ErrEmptyTag):
		return model.NewInvalidTagError()
	case errors.As(err, &fetchErr):
		if !fetchErr.Tag.IsZero() {
			return model.NewFilterFetchFailedError(fetchErr.Tag.Label())
		}
		return model.NewCatalogFetchFailedError()
	case errors.Is(err, viewer.ErrClosed):
		return model.NewViewerClosedError(subject)
	case errors.Is(err, viewer.ErrLocked):
		return model.NewItemLockedError(subject)
	case errors.Is(err, viewer.ErrNoMedia):
		return model.NewNoMediaError(subject)
	case errors.Is(err, viewer.ErrAlreadyUnlocked):
		return model.NewAlreadyUnlockedError(subject)
	case errors.As(err, &transportEr):
		return model.NewVerifyUnavailableError()
	case errors.Is(err, access.ErrEmptySlug):
		return model.NewInvalidRequestError("itemSlug is required.")
	}
	return err
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error, subject string) {
	var apiErr *model.APIError
	if errors.As(toAPIError(err, subject), &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("内部エラーが発生しました", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeCatalogFetchFailed, model.ErrCodeFilterFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeStaleFilter, model.ErrCodeViewerClosed, model.ErrCodeAlreadyUnlocked, model.ErrCodeNoMedia:
		return http.StatusConflict
	case model.ErrCodeItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeItemLocked:
		return http.StatusForbidden
	case model.ErrCodeInvalidTag, model.ErrCodeInvalidKey, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeVerifyUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeSessionMissing:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
