package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store はブラウズセッションのメモリ上のストア。
// 最終アクセスからttlを超えたセッションはSweepで破棄される。
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Browse
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Browse),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create は新しいブラウズセッションを作成する。
func (s *Store) Create() *Browse {
	b := newBrowse(uuid.NewString(), s.now())

	s.mu.Lock()
	s.sessions[b.ID] = b
	s.mu.Unlock()

	return b
}

// Get は指定IDのセッションを返し、最終アクセス時刻を更新する。
// 存在しないか期限切れの場合はfalseを返す。
func (s *Store) Get(id string) (*Browse, bool) {
	s.mu.RLock()
	b, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	now := s.now()
	if now.Sub(b.idleSince()) > s.ttl {
		s.Delete(id)
		return nil, false
	}

	b.touch(now)
	return b, true
}

// Delete はセッションを破棄し、開いている閲覧セッションを終了する。
func (s *Store) Delete(id string) {
	s.mu.Lock()
	b, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		b.Close()
	}
}

// Len は保持中のセッション数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep は期限切れのセッションを破棄し、破棄した件数を返す。
func (s *Store) Sweep() int {
	now := s.now()

	var expired []*Browse
	s.mu.Lock()
	for id, b := range s.sessions {
		if now.Sub(b.idleSince()) > s.ttl {
			expired = append(expired, b)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, b := range expired {
		b.Close()
	}
	return len(expired)
}

// Run はコンテキストがキャンセルされるまでintervalごとにSweepを実行する。
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("セッションスイーパーを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("ttl", s.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("セッションスイーパーを停止しました")
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("期限切れのセッションを破棄しました",
					slog.Int("count", n),
					slog.Int("remaining", s.Len()),
				)
			}
		}
	}
}
