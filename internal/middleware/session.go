// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/collectnyc/archive/internal/session"
)

const sessionCookieName = "archive_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// browseContextKey はリクエストコンテキストにブラウズセッションを格納するためのキー。
var browseContextKey = contextKey("browse_session")

// ErrNoBrowseSession はコンテキストにブラウズセッションが存在しない場合のエラー。
var ErrNoBrowseSession = errors.New("browse session not found in context")

// SessionStore はブラウズセッションの取得・作成に必要なインターフェース。
// session.Storeの部分集合として定義する。
type SessionStore interface {
	Get(id string) (*session.Browse, bool)
	Create() *session.Browse
}

// SessionCookieConfig はセッションCookieの属性を保持する。
type SessionCookieConfig struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// NewSessionMiddleware はCookieからブラウズセッションを読み取るミドルウェアを返す。
// セッションが存在しないか期限切れの場合は新しく作成してCookieを発行する。
// ログインは不要で、ブラウズセッションは訪問者ごとの一覧・閲覧状態を分離するためだけに使う。
func NewSessionMiddleware(store SessionStore, cookieCfg SessionCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var browse *session.Browse

			if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				if b, ok := store.Get(cookie.Value); ok {
					browse = b
				}
			}

			if browse == nil {
				browse = store.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookieName,
					Value:    browse.ID,
					Path:     "/",
					Domain:   cookieCfg.Domain,
					MaxAge:   int(cookieCfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cookieCfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(ContextWithBrowse(r.Context(), browse)))
		})
	}
}

// BrowseFromContext はリクエストコンテキストからブラウズセッションを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func BrowseFromContext(ctx context.Context) (*session.Browse, error) {
	b, ok := ctx.Value(browseContextKey).(*session.Browse)
	if !ok || b == nil {
		return nil, ErrNoBrowseSession
	}
	return b, nil
}

// ContextWithBrowse はコンテキストにブラウズセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithBrowse(ctx context.Context, b *session.Browse) context.Context {
	return context.WithValue(ctx, browseContextKey, b)
}

// sessionIDFromRequest はログ・レート制限のキーとして使うセッションIDを返す。
func sessionIDFromRequest(r *http.Request) string {
	if b, err := BrowseFromContext(r.Context()); err == nil {
		return b.ID
	}
	return ""
}
