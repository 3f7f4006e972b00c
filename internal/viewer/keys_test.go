package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingListener struct {
	keys   []Key
	handle bool
}

func (r *recordingListener) HandleKey(k Key) bool {
	r.keys = append(r.keys, k)
	return r.handle
}

func TestParseKey(t *testing.T) {
	for _, s := range []string{"ArrowRight", "ArrowLeft", "Escape"} {
		k, ok := ParseKey(s)
		assert.True(t, ok, s)
		assert.Equal(t, Key(s), k)
	}
	for _, s := range []string{"", "Enter", "arrowright", "ArrowUp"} {
		_, ok := ParseKey(s)
		assert.False(t, ok, s)
	}
}

func TestKeyBus_AttachDispatchDetach(t *testing.T) {
	bus := NewKeyBus()
	l := &recordingListener{handle: true}

	detach := bus.Attach(l)
	assert.Equal(t, 1, bus.Len())
	assert.True(t, bus.Dispatch(KeyArrowRight))
	assert.Equal(t, []Key{KeyArrowRight}, l.keys)

	detach()
	assert.Equal(t, 0, bus.Len())
	assert.False(t, bus.Dispatch(KeyArrowLeft))
	assert.Len(t, l.keys, 1, "detached listener receives nothing")
}

func TestKeyBus_DetachIsIdempotent(t *testing.T) {
	bus := NewKeyBus()
	first := bus.Attach(&recordingListener{})
	bus.Attach(&recordingListener{})

	first()
	first()
	assert.Equal(t, 1, bus.Len(), "second detach does not remove another listener")
}

func TestKeyBus_UnhandledKey(t *testing.T) {
	bus := NewKeyBus()
	bus.Attach(&recordingListener{handle: false})

	assert.False(t, bus.Dispatch(KeyEscape))
}

// selfDetaching は配信中に自身を登録解除するリスナー。
type selfDetaching struct {
	detach func()
	calls  int
}

func (s *selfDetaching) HandleKey(k Key) bool {
	s.calls++
	s.detach()
	return true
}

func TestKeyBus_ListenerMayDetachDuringDispatch(t *testing.T) {
	bus := NewKeyBus()
	l := &selfDetaching{}
	l.detach = bus.Attach(l)

	assert.True(t, bus.Dispatch(KeyEscape))
	assert.False(t, bus.Dispatch(KeyEscape))
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 0, bus.Len())
}
