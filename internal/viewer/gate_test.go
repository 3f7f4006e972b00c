package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectnyc/archive/internal/model"
)

// mockVerifier はVerifierのモック。
type mockVerifier struct {
	verifyFn func(ctx context.Context, slug, candidate string) (model.VerifyResult, error)
	calls    int
}

func (m *mockVerifier) Verify(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
	m.calls++
	return m.verifyFn(ctx, slug, candidate)
}

func passwordVerifier(correct string) *mockVerifier {
	return &mockVerifier{verifyFn: func(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
		if candidate == correct {
			return model.VerifyResult{Success: true}, nil
		}
		return model.VerifyResult{Success: false, Message: "Incorrect password."}, nil
	}}
}

func TestNewAccessGate_UnprotectedIsBypassed(t *testing.T) {
	g := NewAccessGate("open-item", false, passwordVerifier("x"))

	assert.Nil(t, g)
	assert.False(t, g.Locked())
	assert.Empty(t, g.LastError())
	assert.ErrorIs(t, g.Submit(context.Background(), "x"), ErrAlreadyUnlocked)
}

func TestAccessGate_CorrectPasswordUnlocksOnce(t *testing.T) {
	v := passwordVerifier("secret")
	g := NewAccessGate("brand-book", true, v)
	require.NotNil(t, g)
	assert.True(t, g.Locked())

	g.SetInput("secret")
	require.NoError(t, g.Submit(context.Background(), "secret"))
	assert.False(t, g.Locked())
	assert.Empty(t, g.LastError())
	assert.Empty(t, g.Input(), "input is cleared on unlock")

	assert.ErrorIs(t, g.Submit(context.Background(), "secret"), ErrAlreadyUnlocked)
	assert.Equal(t, 1, v.calls, "unlocked gate does not call the verifier")
}

func TestAccessGate_WrongPasswordStaysLocked(t *testing.T) {
	g := NewAccessGate("brand-book", true, passwordVerifier("secret"))

	require.NoError(t, g.Submit(context.Background(), "guess"))
	assert.True(t, g.Locked())
	assert.Equal(t, "Incorrect password.", g.LastError())
	assert.Equal(t, "guess", g.Input())

	require.NoError(t, g.Submit(context.Background(), "guess again"), "no lockout on repeated failures")
	assert.True(t, g.Locked())
}

func TestAccessGate_FailureWithoutMessageUsesFallback(t *testing.T) {
	v := &mockVerifier{verifyFn: func(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
		return model.VerifyResult{Success: false}, nil
	}}
	g := NewAccessGate("brand-book", true, v)

	require.NoError(t, g.Submit(context.Background(), "guess"))
	assert.Equal(t, IncorrectPasswordMessage, g.LastError())
}

func TestAccessGate_TransportErrorSetsGenericMessage(t *testing.T) {
	cause := errors.New("connection refused")
	v := &mockVerifier{verifyFn: func(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
		return model.VerifyResult{}, cause
	}}
	g := NewAccessGate("brand-book", true, v)

	err := g.Submit(context.Background(), "secret")

	var te *VerifyTransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, cause)
	assert.True(t, g.Locked())
	assert.Equal(t, GenericErrorMessage, g.LastError())
}

func TestAccessGate_SuccessClearsPreviousError(t *testing.T) {
	g := NewAccessGate("brand-book", true, passwordVerifier("secret"))

	require.NoError(t, g.Submit(context.Background(), "nope"))
	require.NotEmpty(t, g.LastError())
	require.NoError(t, g.Submit(context.Background(), "secret"))
	assert.Empty(t, g.LastError())
}

func TestAccessGate_PassesSlugToVerifier(t *testing.T) {
	var gotSlug string
	v := &mockVerifier{verifyFn: func(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
		gotSlug = slug
		return model.VerifyResult{Success: true}, nil
	}}
	g := NewAccessGate("brand-book", true, v)

	require.NoError(t, g.Submit(context.Background(), "x"))
	assert.Equal(t, "brand-book", gotSlug)
}
