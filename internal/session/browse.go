// Package session はブラウズセッション（訪問者ごとの一覧状態・閲覧状態）を
// メモリ上で管理する。フィルタやソートの状態は永続化しない。
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/collectnyc/archive/internal/listing"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/viewer"
)

// Browse は1人の訪問者のブラウズ状態。
// 一覧コントローラ、キーボード配信先、現在開いている閲覧セッションを保持する。
// 他のセッションとは何も共有しない。
type Browse struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastSeen   time.Time
	controller *listing.Controller
	keys       *viewer.KeyBus
	viewer     *viewer.Session
}

func newBrowse(id string, now time.Time) *Browse {
	return &Browse{
		ID:        id,
		CreatedAt: now,
		lastSeen:  now,
		keys:      viewer.NewKeyBus(),
	}
}

// Controller はマウント済みの一覧コントローラを返す。未マウントの場合はnil。
func (b *Browse) Controller() *listing.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.controller
}

// MountIfAbsent は未マウントの場合のみcを保持し、保持されているコントローラを返す。
// 同時に初回マウントされた場合は先に保持された方が使われる。
func (b *Browse) MountIfAbsent(c *listing.Controller) *listing.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.controller == nil {
		b.controller = c
	}
	return b.controller
}

// Keys はこのセッションのキーボード配信先を返す。
func (b *Browse) Keys() *viewer.KeyBus {
	return b.keys
}

// OpenViewer はアイテムの閲覧セッションを開始する。
// 開いている閲覧セッションがあれば先に終了する。終了・開始・保持は1つのロック内で行い、
// キーボード配信先に登録される閲覧セッションは常に高々1つとなる。
func (b *Browse) OpenViewer(item model.CatalogItem, verifier viewer.Verifier, logger *slog.Logger) *viewer.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.viewer != nil {
		b.viewer.Close()
	}
	b.viewer = viewer.Open(item, b.keys, verifier, logger)
	return b.viewer
}

// Viewer はslugに一致する開いている閲覧セッションを返す。
func (b *Browse) Viewer(slug string) (*viewer.Session, bool) {
	b.mu.Lock()
	v := b.viewer
	b.mu.Unlock()

	if v == nil || v.Slug() != slug || v.Closed() {
		return nil, false
	}
	return v, true
}

// Close は開いている閲覧セッションを終了する。
func (b *Browse) Close() {
	b.mu.Lock()
	v := b.viewer
	b.viewer = nil
	b.mu.Unlock()

	if v != nil {
		v.Close()
	}
}

func (b *Browse) touch(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = now
}

func (b *Browse) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}
