package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/auth"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/id"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
)

// AuthService handles extension pairing and token verification. Pairing
// trades the daemon's pairing code for a client record plus a PASETO
// access token and an opaque refresh token.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	pairingCode  string
	emitter      EventEmitter
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service. An empty
// pairingCode disables new pairings; existing clients keep refreshing.
func NewAuthService(store *store.Store, tokenService *auth.TokenService, pairingCode string, emitter EventEmitter, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		pairingCode:  pairingCode,
		emitter:      emitter,
		logger:       logger,
	}
}

// PairRequest contains the pairing code and a human-readable label for
// the new extension install.
type PairRequest struct {
	PairingCode string `json:"pairing_code" validate:"required"`
	Label       string `json:"label" validate:"required,max=100"`
}

// PairResponse contains the new client identity and its tokens.
type PairResponse struct {
	ClientID     string    `json:"client_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Pair registers a new extension install.
func (s *AuthService) Pair(ctx context.Context, req *PairRequest) (*PairResponse, error) {
	if s.pairingCode == "" {
		return nil, errors.Forbidden("pairing is disabled on this daemon")
	}
	if subtle.ConstantTimeCompare([]byte(req.PairingCode), []byte(s.pairingCode)) != 1 {
		s.logger.Warn("pairing attempt with wrong code", "label", req.Label)
		return nil, errors.InvalidCredentials("pairing code is incorrect")
	}

	clientID, err := id.Generate("client")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate client ID")
	}

	refreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate refresh token")
	}

	secretHash, err := auth.HashSecret(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "hash refresh token")
	}

	now := time.Now()
	client := &domain.Client{
		ID:         clientID,
		Label:      req.Label,
		SecretHash: secretHash,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.GenerateAccessToken(client)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate access token")
	}

	s.emitter.Emit(sse.NewClientPairedEvent(clientID, req.Label))
	s.logger.Info("extension paired", "client_id", clientID, "label", req.Label)
	return &PairResponse{
		ClientID:     clientID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokenService.AccessTokenDuration()),
	}, nil
}

// RefreshRequest contains a client identity and its refresh token.
type RefreshRequest struct {
	ClientID     string `json:"client_id" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates a client's tokens. The old refresh token stops working
// immediately; a stolen-then-replayed token therefore surfaces as a
// failed refresh on the legitimate install.
func (s *AuthService) Refresh(ctx context.Context, req *RefreshRequest) (*PairResponse, error) {
	client, err := s.store.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, errors.InvalidCredentials("unknown client")
	}

	ok, err := auth.VerifySecret(client.SecretHash, req.RefreshToken)
	if err != nil || !ok {
		s.logger.Warn("refresh with invalid token", "client_id", client.ID)
		return nil, errors.InvalidCredentials("refresh token is invalid")
	}

	newRefresh, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate refresh token")
	}
	newHash, err := auth.HashSecret(newRefresh)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "hash refresh token")
	}

	client.SecretHash = newHash
	client.Touch()
	if err := s.store.UpdateClient(ctx, client); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenService.GenerateAccessToken(client)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate access token")
	}

	return &PairResponse{
		ClientID:     client.ID,
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    time.Now().Add(s.tokenService.AccessTokenDuration()),
	}, nil
}

// VerifyToken validates an access token and returns its claims. The
// client's last-seen timestamp is refreshed as a side effect.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, errors.Unauthorized("invalid or expired token")
	}

	// A token for a revoked client is dead even if cryptographically valid.
	if _, err := s.store.GetClient(ctx, claims.ClientID); err != nil {
		return nil, errors.Unauthorized("client has been revoked")
	}

	if err := s.store.TouchClient(ctx, claims.ClientID); err != nil {
		s.logger.Debug("failed to touch client", "client_id", claims.ClientID, "error", err)
	}
	return claims, nil
}

// Clients lists all paired installs, most recently seen first.
func (s *AuthService) Clients(ctx context.Context) ([]*domain.Client, error) {
	return s.store.ListClients(ctx)
}

// Revoke unpairs a client. Its tokens stop verifying immediately.
func (s *AuthService) Revoke(ctx context.Context, clientID string) error {
	if err := s.store.DeleteClient(ctx, clientID); err != nil {
		return err
	}
	s.logger.Info("client revoked", "client_id", clientID)
	return nil
}
