// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: catalog, viewer, access, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCatalogFetchFailed = "CATALOG_FETCH_FAILED"
	ErrCodeFilterFetchFailed  = "FILTER_FETCH_FAILED"
	ErrCodeStaleFilter        = "STALE_FILTER"
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeNoMedia            = "NO_MEDIA"
	ErrCodeItemLocked         = "ITEM_LOCKED"
	ErrCodeAlreadyUnlocked    = "ALREADY_UNLOCKED"
	ErrCodeViewerClosed       = "VIEWER_CLOSED"
	ErrCodeInvalidTag         = "INVALID_TAG"
	ErrCodeInvalidKey         = "INVALID_KEY"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeVerifyUnavailable  = "VERIFY_UNAVAILABLE"
	ErrCodeSessionMissing     = "SESSION_MISSING"
)

// NewCatalogFetchFailedError はカタログ集約失敗エラーを生成する。
func NewCatalogFetchFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogFetchFailed,
		Message:  "The archive could not be loaded.",
		Category: "catalog",
		Action:   "Reload the page in a moment.",
	}
}

// NewFilterFetchFailedError はタグ絞り込み取得失敗エラーを生成する。
func NewFilterFetchFailedError(label string) *APIError {
	return &APIError{
		Code:     ErrCodeFilterFetchFailed,
		Message:  fmt.Sprintf("Items tagged %q could not be loaded.", label),
		Category: "catalog",
		Action:   "The previous list is still shown. Try the tag again.",
	}
}

// NewStaleFilterError は後続のフィルタ操作で上書きされたレスポンスを表すエラーを生成する。
func NewStaleFilterError(label string) *APIError {
	return &APIError{
		Code:     ErrCodeStaleFilter,
		Message:  fmt.Sprintf("The %q filter was superseded by a newer selection.", label),
		Category: "catalog",
		Action:   "No action needed.",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("Archive item not found: %s", slug),
		Category: "viewer",
		Action:   "Return to the archive and choose another item.",
	}
}

// NewNoMediaError はメディアを持たないアイテムでカルーセルを開こうとした場合のエラーを生成する。
func NewNoMediaError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeNoMedia,
		Message:  fmt.Sprintf("Archive item %s has no media to display.", slug),
		Category: "viewer",
		Action:   "Return to the archive.",
	}
}

// NewItemLockedError はロック中のアイテムのメディアを操作しようとした場合のエラーを生成する。
func NewItemLockedError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeItemLocked,
		Message:  fmt.Sprintf("Archive item %s is password protected.", slug),
		Category: "access",
		Action:   "Enter the password to view this item.",
	}
}

// NewAlreadyUnlockedError はアンロック済みのゲートへの再送信エラーを生成する。
func NewAlreadyUnlockedError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyUnlocked,
		Message:  fmt.Sprintf("Archive item %s is already unlocked.", slug),
		Category: "access",
		Action:   "No action needed.",
	}
}

// NewViewerClosedError は終了済みのビューアセッションへの操作エラーを生成する。
func NewViewerClosedError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeViewerClosed,
		Message:  fmt.Sprintf("The viewer for %s has been closed.", slug),
		Category: "viewer",
		Action:   "Open the item again from the archive.",
	}
}

// NewInvalidTagError は無効なタグ指定エラーを生成する。
func NewInvalidTagError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTag,
		Message:  "A tag name or tag id is required.",
		Category: "validation",
		Action:   "Choose a tag from the list.",
	}
}

// NewInvalidKeyError は未対応キーのエラーを生成する。
func NewInvalidKeyError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidKey,
		Message:  fmt.Sprintf("Unsupported key: %s", key),
		Category: "validation",
		Action:   "Use ArrowLeft, ArrowRight or Escape.",
	}
}

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "Send a valid JSON request body.",
	}
}

// NewVerifyUnavailableError はパスワード照合が一時的に利用できない場合のエラーを生成する。
func NewVerifyUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeVerifyUnavailable,
		Message:  "Password verification is temporarily unavailable.",
		Category: "access",
		Action:   "Try again in a moment.",
	}
}

// NewSessionMissingError はブラウズセッション未検出エラーを生成する。
func NewSessionMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionMissing,
		Message:  "Browsing session not found.",
		Category: "system",
		Action:   "Reload the page.",
	}
}
