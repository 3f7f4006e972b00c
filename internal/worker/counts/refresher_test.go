package counts

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/collectnyc/archive/internal/model"
)

// --- モック定義 ---

type mockSource struct {
	mu      sync.Mutex
	calls   int
	catalog func(ctx context.Context) (*model.CatalogSnapshot, error)
}

func (m *mockSource) Catalog(ctx context.Context) (*model.CatalogSnapshot, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.catalog(ctx)
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCountsRepo struct {
	mu     sync.Mutex
	saved  []model.CatalogCounts
	saveFn func(ctx context.Context, counts model.CatalogCounts) error
}

func (m *mockCountsRepo) Save(ctx context.Context, counts model.CatalogCounts) error {
	m.mu.Lock()
	m.saved = append(m.saved, counts)
	m.mu.Unlock()
	if m.saveFn != nil {
		return m.saveFn(ctx, counts)
	}
	return nil
}

func (m *mockCountsRepo) Latest(ctx context.Context) (*model.CatalogCounts, error) {
	return nil, nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func snapshotWith(items, mediaPerItem int) *model.CatalogSnapshot {
	list := make([]model.CatalogItem, items)
	for i := range list {
		list[i].Media = make([]model.MediaAsset, mediaPerItem)
	}
	return model.NewCatalogSnapshot(list, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
}

// --- テスト ---

func TestRefresher_RunOnce_SavesCounts(t *testing.T) {
	var buf bytes.Buffer
	source := &mockSource{catalog: func(ctx context.Context) (*model.CatalogSnapshot, error) {
		return snapshotWith(3, 2), nil
	}}
	repo := &mockCountsRepo{}

	if err := NewRefresher(source, repo, newTestLogger(&buf)).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(repo.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(repo.saved))
	}
	got := repo.saved[0]
	if got.ItemCount != 3 || got.MediaCount != 6 || got.TotalCount != 9 {
		t.Errorf("counts = %+v, want 3/6/9", got)
	}
	if !got.RefreshedAt.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("RefreshedAt = %v, want snapshot time", got.RefreshedAt)
	}
	if !strings.Contains(buf.String(), "件数を更新しました") {
		t.Errorf("expected completion log, got: %s", buf.String())
	}
}

func TestRefresher_RunOnce_AggregationFailureDoesNotSave(t *testing.T) {
	var buf bytes.Buffer
	source := &mockSource{catalog: func(ctx context.Context) (*model.CatalogSnapshot, error) {
		return nil, errors.New("cms down")
	}}
	repo := &mockCountsRepo{}

	err := NewRefresher(source, repo, newTestLogger(&buf)).RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.saved) != 0 {
		t.Errorf("saved = %d, want 0", len(repo.saved))
	}
}

func TestRefresher_RunOnce_SaveFailure(t *testing.T) {
	var buf bytes.Buffer
	source := &mockSource{catalog: func(ctx context.Context) (*model.CatalogSnapshot, error) {
		return snapshotWith(1, 0), nil
	}}
	repo := &mockCountsRepo{saveFn: func(ctx context.Context, counts model.CatalogCounts) error {
		return errors.New("db down")
	}}

	err := NewRefresher(source, repo, newTestLogger(&buf)).RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "件数の保存に失敗") {
		t.Errorf("err = %v, want save failure", err)
	}
}

func TestRefresher_Start_RunsImmediatelyAndStops(t *testing.T) {
	var buf bytes.Buffer
	source := &mockSource{catalog: func(ctx context.Context) (*model.CatalogSnapshot, error) {
		return snapshotWith(1, 1), nil
	}}
	repo := &mockCountsRepo{}
	r := NewRefresher(source, repo, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(time.Second)
	for source.Calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("Start did not run immediately")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not stop after cancel")
	}
}
