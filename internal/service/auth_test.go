package service

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/auth"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
)

const testPairingCode = "correct-horse-battery"

func newAuthFixture(t *testing.T) (*AuthService, *store.Store, *sseRecorder) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(filepath.Join(t.TempDir(), "db"), log, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(hex.EncodeToString(key), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	emitter := &sseRecorder{}
	return NewAuthService(s, tokens, testPairingCode, emitter, log), s, emitter
}

func TestPair_IssuesTokens(t *testing.T) {
	svc, _, emitter := newAuthFixture(t)

	resp, err := svc.Pair(context.Background(), &PairRequest{
		PairingCode: testPairingCode,
		Label:       "Firefox on desk",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ClientID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := svc.VerifyToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.ClientID, claims.ClientID)

	// Pairing announces the new install over SSE, without the tokens.
	require.Contains(t, emitter.types(), sse.EventClientPaired)
	data := emitter.events[0].Data.(sse.ClientPairedEventData)
	assert.Equal(t, resp.ClientID, data.ClientID)
	assert.Equal(t, "Firefox on desk", data.Label)
}

func TestPair_WrongCode(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Pair(context.Background(), &PairRequest{
		PairingCode: "guess",
		Label:       "attacker",
	})
	assert.Error(t, err)
}

func TestPair_DisabledWithoutCode(t *testing.T) {
	svc, s, _ := newAuthFixture(t)
	disabled := NewAuthService(s, svc.tokenService, "", svc.emitter, svc.logger)

	_, err := disabled.Pair(context.Background(), &PairRequest{
		PairingCode: "",
		Label:       "late arrival",
	})
	assert.Error(t, err)
}

func TestRefresh_RotatesRefreshToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	paired, err := svc.Pair(ctx, &PairRequest{PairingCode: testPairingCode, Label: "ext"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, &RefreshRequest{
		ClientID:     paired.ClientID,
		RefreshToken: paired.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, paired.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is dead after rotation.
	_, err = svc.Refresh(ctx, &RefreshRequest{
		ClientID:     paired.ClientID,
		RefreshToken: paired.RefreshToken,
	})
	assert.Error(t, err)

	// The new one works.
	_, err = svc.Refresh(ctx, &RefreshRequest{
		ClientID:     paired.ClientID,
		RefreshToken: refreshed.RefreshToken,
	})
	assert.NoError(t, err)
}

func TestRefresh_UnknownClient(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Refresh(context.Background(), &RefreshRequest{
		ClientID:     "client-nope",
		RefreshToken: "whatever",
	})
	assert.Error(t, err)
}

func TestVerifyToken_RevokedClient(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	paired, err := svc.Pair(ctx, &PairRequest{PairingCode: testPairingCode, Label: "ext"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, paired.ClientID))

	_, err = svc.VerifyToken(ctx, paired.AccessToken)
	assert.Error(t, err)
}

func TestClients_ListsPairedInstalls(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Pair(ctx, &PairRequest{PairingCode: testPairingCode, Label: "laptop"})
	require.NoError(t, err)
	_, err = svc.Pair(ctx, &PairRequest{PairingCode: testPairingCode, Label: "desktop"})
	require.NoError(t, err)

	clients, err := svc.Clients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}
