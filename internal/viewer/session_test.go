package viewer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectnyc/archive/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func itemWithMedia(n int, protected bool) model.CatalogItem {
	it := model.CatalogItem{Slug: "poster-series", Title: "Poster Series", Tags: []string{"Print", "Type"}, PasswordProtected: protected}
	for i := 0; i < n; i++ {
		it.Media = append(it.Media, model.MediaAsset{URL: "https://images.example.com/" + string(rune('a'+i)) + ".jpg"})
	}
	return it
}

func TestOpen_AttachesExactlyOnce(t *testing.T) {
	bus := NewKeyBus()
	s := Open(itemWithMedia(3, false), bus, passwordVerifier("x"), discardLogger())

	assert.Equal(t, 1, bus.Len())
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "poster-series", s.Slug())
}

func TestSession_KeyboardNavigation(t *testing.T) {
	bus := NewKeyBus()
	s := Open(itemWithMedia(3, false), bus, passwordVerifier("x"), discardLogger())

	assert.True(t, bus.Dispatch(KeyArrowRight))
	assert.Equal(t, 1, s.View().Index)
	assert.True(t, bus.Dispatch(KeyArrowLeft))
	assert.True(t, bus.Dispatch(KeyArrowLeft))
	assert.Equal(t, 2, s.View().Index)
	assert.Equal(t, "3/3", s.View().Position)

	assert.True(t, bus.Dispatch(KeyEscape))
	assert.True(t, s.Closed())
	assert.Equal(t, 0, bus.Len(), "escape detaches the listener")
	assert.False(t, bus.Dispatch(KeyArrowRight))
}

func TestSession_CloseDetachesAndIsIdempotent(t *testing.T) {
	bus := NewKeyBus()
	s := Open(itemWithMedia(2, false), bus, passwordVerifier("x"), discardLogger())

	s.Close()
	s.Close()
	assert.Equal(t, 0, bus.Len())

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Unlock(context.Background(), "x"), ErrClosed)
}

func TestSession_ExitReturnsTarget(t *testing.T) {
	bus := NewKeyBus()
	s := Open(itemWithMedia(1, false), bus, passwordVerifier("x"), discardLogger())

	assert.Equal(t, "/", s.Exit())
	assert.Equal(t, 0, bus.Len())
	assert.True(t, s.View().Closed)
}

func TestSession_NoListenerLeakAcrossSessions(t *testing.T) {
	bus := NewKeyBus()
	for i := 0; i < 5; i++ {
		s := Open(itemWithMedia(2, false), bus, passwordVerifier("x"), discardLogger())
		s.Exit()
	}
	assert.Equal(t, 0, bus.Len())
}

func TestSession_ZeroMediaHasNoCarousel(t *testing.T) {
	bus := NewKeyBus()
	s := Open(itemWithMedia(0, false), bus, passwordVerifier("x"), discardLogger())

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrNoMedia)
	assert.False(t, bus.Dispatch(KeyArrowRight))

	v := s.View()
	assert.Nil(t, v.Media)
	assert.Equal(t, 0, v.Total)
	assert.True(t, bus.Dispatch(KeyEscape), "escape still exits")
}

func TestSession_LockedHidesMediaUntilUnlocked(t *testing.T) {
	bus := NewKeyBus()
	s := Open(itemWithMedia(2, true), bus, passwordVerifier("secret"), discardLogger())

	v := s.View()
	assert.True(t, v.Locked)
	assert.Nil(t, v.Media)
	_, err := s.Next()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Unlock(context.Background(), "wrong"))
	assert.Equal(t, "Incorrect password.", s.View().GateError)

	require.NoError(t, s.Unlock(context.Background(), "secret"))
	v = s.View()
	assert.False(t, v.Locked)
	require.NotNil(t, v.Media)
	assert.Equal(t, "https://images.example.com/a.jpg", v.Media.URL)
	assert.Equal(t, "1/2", v.Position)
}

func TestSession_View_Fallbacks(t *testing.T) {
	bus := NewKeyBus()
	it := itemWithMedia(1, false)
	it.Title = ""
	s := Open(it, bus, passwordVerifier("x"), discardLogger())

	v := s.View()
	assert.Equal(t, DefaultTitle, v.Title)
	assert.Equal(t, DefaultDescription, v.MetaDescription)
	assert.Equal(t, "Print, Type", v.TagLine)
	assert.Equal(t, "TBD", v.Year)
	assert.Empty(t, v.Position, "position hidden for a single asset")
	assert.Equal(t, 1, v.Total)
}
