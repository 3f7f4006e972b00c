package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/collectnyc/archive/internal/model"
)

const (
	// IncorrectPasswordMessage は検証失敗レスポンスにメッセージがない場合の表示。
	IncorrectPasswordMessage = "Incorrect password."
	// GenericErrorMessage は検証処理自体が失敗した場合の表示。
	GenericErrorMessage = "Something went wrong. Please try again."
)

// ErrAlreadyUnlocked は解錠済みのゲートにパスワードを送信したことを表す。
var ErrAlreadyUnlocked = errors.New("viewer: access gate is already unlocked")

// VerifyTransportError はパスワード検証の呼び出し自体が失敗したことを表す。
// ゲートは施錠されたまま汎用メッセージが設定される。
type VerifyTransportError struct {
	Slug string
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *VerifyTransportError) Error() string {
	return fmt.Sprintf("viewer: verification for %s failed: %v", e.Slug, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *VerifyTransportError) Unwrap() error {
	return e.Err
}

// Verifier はパスワード検証を行う外部コラボレータ。
type Verifier interface {
	Verify(ctx context.Context, slug, candidate string) (model.VerifyResult, error)
}

// AccessGate はパスワード保護されたアイテムの施錠状態を管理する。
// 保護されていないアイテムにはゲートを作らない（nil）。
// nilのAccessGateは常に解錠済みとして振る舞う。
type AccessGate struct {
	mu        sync.Mutex
	slug      string
	verifier  Verifier
	locked    bool
	lastError string
	input     string
}

// NewAccessGate はアイテムのゲートを生成する。protectedがfalseの場合はnilを返す。
func NewAccessGate(slug string, protected bool, verifier Verifier) *AccessGate {
	if !protected {
		return nil
	}
	return &AccessGate{
		slug:     slug,
		verifier: verifier,
		locked:   true,
	}
}

// Submit は入力されたパスワードを検証する。
// 成功時は解錠し、失敗レスポンス時はレスポンスのメッセージを、
// 呼び出し失敗時は汎用メッセージを設定して施錠のままにする。
func (g *AccessGate) Submit(ctx context.Context, candidate string) error {
	if g == nil {
		return ErrAlreadyUnlocked
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.locked {
		return ErrAlreadyUnlocked
	}

	g.input = candidate
	result, err := g.verifier.Verify(ctx, g.slug, candidate)
	if err != nil {
		g.lastError = GenericErrorMessage
		return &VerifyTransportError{Slug: g.slug, Err: err}
	}

	if !result.Success {
		g.lastError = result.Message
		if g.lastError == "" {
			g.lastError = IncorrectPasswordMessage
		}
		return nil
	}

	g.locked = false
	g.lastError = ""
	g.input = ""
	return nil
}

// Locked は施錠中かを返す。
func (g *AccessGate) Locked() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}

// LastError は直近の検証失敗メッセージを返す。
func (g *AccessGate) LastError() string {
	if g == nil {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastError
}

// SetInput は入力欄の値を更新する。
func (g *AccessGate) SetInput(s string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.input = s
}

// Input は入力欄の値を返す。
func (g *AccessGate) Input() string {
	if g == nil {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.input
}
