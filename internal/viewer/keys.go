package viewer

import "sync"

// Key はキーボードイベントのキー名。
type Key string

const (
	KeyArrowRight Key = "ArrowRight"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyEscape     Key = "Escape"
)

// ParseKey はキー名を検証する。未対応のキーの場合はfalseを返す。
func ParseKey(s string) (Key, bool) {
	switch k := Key(s); k {
	case KeyArrowRight, KeyArrowLeft, KeyEscape:
		return k, true
	default:
		return "", false
	}
}

// KeyListener はキーイベントを受け取る。処理した場合はtrueを返す。
type KeyListener interface {
	HandleKey(k Key) bool
}

// KeyBus はブラウズセッション単位のキーイベント配信先。
// 閲覧セッションはマウント時にAttachし、終了時に返された関数でDetachする。
type KeyBus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listenerEntry
}

type listenerEntry struct {
	id       uint64
	listener KeyListener
}

// NewKeyBus は空のKeyBusを生成する。
func NewKeyBus() *KeyBus {
	return &KeyBus{}
}

// Attach はリスナーを登録し、登録解除用の関数を返す。
// 解除関数は何度呼んでも1回だけ効果を持つ。
func (b *KeyBus) Attach(l KeyListener) (detach func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listenerEntry{id: id, listener: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, e := range b.listeners {
				if e.id == id {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch は登録順にリスナーへキーを配信する。
// いずれかのリスナーが処理した場合はtrueを返す。
// リスナーは配信中に自身をDetachしてよい。
func (b *KeyBus) Dispatch(k Key) bool {
	b.mu.Lock()
	entries := make([]listenerEntry, len(b.listeners))
	copy(entries, b.listeners)
	b.mu.Unlock()

	handled := false
	for _, e := range entries {
		if e.listener.HandleKey(k) {
			handled = true
		}
	}
	return handled
}

// Len は登録中のリスナー数を返す。
func (b *KeyBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
