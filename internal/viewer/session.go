package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/collectnyc/archive/internal/model"
)

const (
	// DefaultTitle はタイトル未設定のアイテムに表示するタイトル。
	DefaultTitle = "COLLECT Project"
	// DefaultDescription は説明文未設定のアイテムのメタ説明。
	DefaultDescription = "An archive item by COLLECT NYC."
	// ExitTarget は閲覧終了時の遷移先。
	ExitTarget = "/"
)

var (
	// ErrClosed は終了済みの閲覧セッションを操作したことを表す。
	ErrClosed = errors.New("viewer: session is closed")
	// ErrLocked は施錠中のアイテムのメディアを操作したことを表す。
	ErrLocked = errors.New("viewer: item is locked")
)

// Session はアイテム1件の閲覧セッション。
// 開始時にKeyBusへ1回だけ登録し、Close/Exitのいずれでも登録を解除する。
type Session struct {
	mu       sync.Mutex
	id       string
	item     model.CatalogItem
	carousel *Carousel
	gate     *AccessGate
	detach   func()
	closed   bool
	logger   *slog.Logger
}

// ItemView は閲覧画面の描画結果。
type ItemView struct {
	SessionID       string
	Slug            string
	Title           string
	Tags            []string
	TagLine         string
	Year            string
	DescriptionHTML string
	MetaDescription string
	ComingSoon      bool
	Locked          bool
	GateError       string
	Media           *model.MediaAsset
	Index           int
	Total           int
	Position        string
	Closed          bool
}

// Open はアイテムの閲覧セッションを開始し、キーボードリスナーを登録する。
// メディアを持たないアイテムではカルーセルを生成しない。
func Open(item model.CatalogItem, bus *KeyBus, verifier Verifier, logger *slog.Logger) *Session {
	s := &Session{
		id:     ulid.Make().String(),
		item:   item,
		gate:   NewAccessGate(item.Slug, item.PasswordProtected, verifier),
		logger: logger,
	}
	if c, err := NewCarousel(len(item.Media)); err == nil {
		s.carousel = c
	}
	s.detach = bus.Attach(s)

	logger.Debug("閲覧セッションを開始しました",
		slog.String("viewer_id", s.id),
		slog.String("slug", item.Slug),
		slog.Int("media", len(item.Media)),
		slog.Bool("locked", s.gate.Locked()),
	)
	return s
}

// ID は閲覧セッションのIDを返す。
func (s *Session) ID() string {
	return s.id
}

// Slug は閲覧中のアイテムのslugを返す。
func (s *Session) Slug() string {
	return s.item.Slug
}

// Next は次のメディアに進む。
func (s *Session) Next() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigable(); err != nil {
		return 0, err
	}
	return s.carousel.Next(), nil
}

// Prev は前のメディアに戻る。
func (s *Session) Prev() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigable(); err != nil {
		return 0, err
	}
	return s.carousel.Prev(), nil
}

// navigable はカルーセルを操作できる状態かを確認する。s.muを保持して呼ぶ。
func (s *Session) navigable() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.gate.Locked():
		return ErrLocked
	case s.carousel == nil:
		return ErrNoMedia
	}
	return nil
}

// Unlock はパスワードを送信してゲートの解錠を試みる。
func (s *Session) Unlock(ctx context.Context, candidate string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.gate.Submit(ctx, candidate)
}

// SetInput はパスワード入力欄の値を更新する。
func (s *Session) SetInput(v string) {
	s.gate.SetInput(v)
}

// Exit は閲覧を終了し、遷移先を返す。
func (s *Session) Exit() string {
	s.Close()
	return ExitTarget
}

// Close はキーボードリスナーの登録を解除してセッションを終了する。
// 2回目以降の呼び出しは何もしない。
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	detach := s.detach
	s.mu.Unlock()

	detach()
	s.logger.Debug("閲覧セッションを終了しました",
		slog.String("viewer_id", s.id),
		slog.String("slug", s.item.Slug),
	)
}

// Closed は終了済みかを返す。
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// HandleKey はKeyListenerを実装する。
// 右矢印で次へ、左矢印で前へ、Escapeで終了する。
func (s *Session) HandleKey(k Key) bool {
	switch k {
	case KeyArrowRight:
		_, err := s.Next()
		return err == nil
	case KeyArrowLeft:
		_, err := s.Prev()
		return err == nil
	case KeyEscape:
		if s.Closed() {
			return false
		}
		s.Exit()
		return true
	default:
		return false
	}
}

// View は現在の閲覧状態を描画用に返す。
// 施錠中はメディアを含めない。位置表示はメディアが2件以上の場合のみ設定する。
func (s *Session) View() ItemView {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.item
	v := ItemView{
		SessionID:       s.id,
		Slug:            it.Slug,
		Title:           it.Title,
		Tags:            append([]string(nil), it.Tags...),
		TagLine:         it.TagLine(),
		Year:            it.Year(),
		DescriptionHTML: it.DescriptionHTML,
		MetaDescription: it.DescriptionText,
		ComingSoon:      it.ComingSoon,
		Locked:          s.gate.Locked(),
		GateError:       s.gate.LastError(),
		Closed:          s.closed,
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if v.MetaDescription == "" {
		v.MetaDescription = DefaultDescription
	}

	if !v.Locked && s.carousel != nil {
		media := it.Media[s.carousel.Index()]
		v.Media = &media
		v.Index = s.carousel.Index()
		v.Total = s.carousel.Total()
		if v.Total > 1 {
			v.Position = s.carousel.Position()
		}
	}
	return v
}
