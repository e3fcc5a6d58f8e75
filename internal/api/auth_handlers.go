package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "pair",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/pair",
		Summary:     "Pair an extension install",
		Description: "Exchanges the daemon's pairing code for client credentials",
		Tags:        []string{"Authentication"},
	}, s.handlePair)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "listClients",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/clients",
		Summary:     "List paired clients",
		Tags:        []string{"Authentication"},
	}, s.handleListClients)

	huma.Register(s.api, huma.Operation{
		OperationID: "revokeClient",
		Method:      http.MethodDelete,
		Path:        "/api/v1/auth/clients/{clientID}",
		Summary:     "Revoke a paired client",
		Description: "Deletes the client; its tokens stop verifying immediately",
		Tags:        []string{"Authentication"},
	}, s.handleRevokeClient)
}

// === DTOs ===

// PairInput wraps the pairing request for Huma.
type PairInput struct {
	Body          service.PairRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// PairOutput wraps the pairing response for Huma.
type PairOutput struct {
	Body service.PairResponse
}

// RefreshInput wraps the refresh request for Huma.
type RefreshInput struct {
	Body service.RefreshRequest
}

// ClientResponse describes one paired client.
type ClientResponse struct {
	ID         string    `json:"id" doc:"Client ID"`
	Label      string    `json:"label" doc:"Human-readable install label"`
	CreatedAt  time.Time `json:"created_at" doc:"Pairing timestamp"`
	LastSeenAt time.Time `json:"last_seen_at" doc:"Most recent authenticated request"`
}

// ClientListOutput wraps the client list for Huma.
type ClientListOutput struct {
	Body []ClientResponse
}

// RevokeClientInput identifies the client to revoke.
type RevokeClientInput struct {
	ClientID string `path:"clientID" doc:"Client ID to revoke"`
}

// === Handlers ===

func (s *Server) handlePair(ctx context.Context, input *PairInput) (*PairOutput, error) {
	// Pairing is the one guessable credential exchange, so it is
	// rate-limited by IP regardless of outcome.
	if !s.pairRateLimiter.Allow(rateLimitKey(input.XForwardedFor, input.XRealIP)) {
		return nil, huma.Error429TooManyRequests("Too many pairing attempts. Try again later.")
	}

	resp, err := s.services.Auth.Pair(ctx, &input.Body)
	if err != nil {
		return nil, err
	}

	return &PairOutput{Body: *resp}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*PairOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, &input.Body)
	if err != nil {
		return nil, err
	}

	return &PairOutput{Body: *resp}, nil
}

func (s *Server) handleListClients(ctx context.Context, _ *struct{}) (*ClientListOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	clients, err := s.services.Auth.Clients(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, ClientResponse{
			ID:         c.ID,
			Label:      c.Label,
			CreatedAt:  c.CreatedAt,
			LastSeenAt: c.LastSeenAt,
		})
	}

	return &ClientListOutput{Body: out}, nil
}

func (s *Server) handleRevokeClient(ctx context.Context, input *RevokeClientInput) (*struct{}, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Auth.Revoke(ctx, input.ClientID); err != nil {
		return nil, err
	}

	return nil, nil
}
