package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/playback"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
)

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[HealthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	// No classifier key is configured, so overall health is degraded but
	// the storage components are healthy.
	assert.Equal(t, "degraded", envelope.Data.Status)
	assert.Equal(t, "healthy", envelope.Data.Components["cache"].Status)
	assert.Equal(t, "healthy", envelope.Data.Components["analytics"].Status)
}

func TestPair_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/pair", map[string]any{
		"pairing_code": testPairingCode,
		"label":        "laptop firefox",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[service.PairResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ClientID)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
}

func TestPair_WrongCode(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/pair", map[string]any{
		"pairing_code": "wrong-code",
		"label":        "intruder",
	})

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	ts := setupTestServer(t)

	pairResp := ts.api.Post("/api/v1/auth/pair", map[string]any{
		"pairing_code": testPairingCode,
		"label":        "rotating client",
	})
	require.Equal(t, http.StatusOK, pairResp.Code)

	var paired testEnvelope[service.PairResponse]
	require.NoError(t, json.Unmarshal(pairResp.Body.Bytes(), &paired))

	resp := ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"client_id":     paired.Data.ClientID,
		"refresh_token": paired.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var refreshed testEnvelope[service.PairResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refreshed))
	assert.NotEqual(t, paired.Data.RefreshToken, refreshed.Data.RefreshToken)

	// The old refresh token must stop working after rotation.
	replay := ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"client_id":     paired.Data.ClientID,
		"refresh_token": paired.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestListClients_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/auth/clients")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRevokeClient_TokenStopsVerifying(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	var clients testEnvelope[[]ClientResponse]
	listResp := ts.api.Get("/api/v1/auth/clients", "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusOK, listResp.Code)
	require.NoError(t, json.Unmarshal(listResp.Body.Bytes(), &clients))
	require.Len(t, clients.Data, 1)

	revokeResp := ts.api.Delete("/api/v1/auth/clients/"+clients.Data[0].ID, "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusNoContent, revokeResp.Code)

	// The revoked client's token no longer authenticates.
	after := ts.api.Get("/api/v1/auth/clients", "Authorization: "+authHeader(token))
	assert.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestAnalyzeVideo_MockProvider(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)
	ts.useMockProvider(t, `{"segments":[
		{"start":30,"end":95,"category":"sponsor","description":"NordVPN read","confidence":0.95},
		{"start":90,"end":110,"category":"self_promo","description":"channel merch","confidence":0.9}
	]}`)

	resp := ts.api.Post("/api/v1/videos/dQw4w9WgXcQ/analysis",
		"Authorization: "+authHeader(token),
		map[string]any{
			"transcript": []map[string]any{
				{"time": 0.0, "text": "welcome back"},
				{"time": 30.0, "text": "this video is sponsored by NordVPN"},
				{"time": 120.0, "text": "back to the content"},
			},
		})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope testEnvelope[AnalysisResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, "dQw4w9WgXcQ", envelope.Data.VideoID)
	assert.False(t, envelope.Data.Cached)
	// The overlapping sponsor and self_promo segments merge into one.
	require.Len(t, envelope.Data.Segments, 1)
	assert.InDelta(t, 30.0, envelope.Data.Segments[0].Start, 0.001)
	assert.InDelta(t, 110.0, envelope.Data.Segments[0].End, 0.001)

	// A second request serves from cache without another provider call.
	again := ts.api.Post("/api/v1/videos/dQw4w9WgXcQ/analysis",
		"Authorization: "+authHeader(token),
		map[string]any{"transcript": []map[string]any{{"time": 0.0, "text": "welcome back"}}})
	require.Equal(t, http.StatusOK, again.Code)

	var cached testEnvelope[AnalysisResponse]
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &cached))
	assert.True(t, cached.Data.Cached)
	assert.Equal(t, 1, ts.factory.Mock().Calls())
}

func TestAnalyzeVideo_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/videos/abc/analysis", map[string]any{
		"transcript": []map[string]any{{"time": 0.0, "text": "hello"}},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGetSegments_NotCached(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	resp := ts.api.Get("/api/v1/videos/unknown/segments", "Authorization: "+authHeader(token))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetSegments_AppliesSettings(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	ts.seedAnalysis(t, "vid-settings", []domain.Segment{
		{Start: 10, End: 20, Category: "sponsor", Confidence: 0.95},
		{Start: 40, End: 50, Category: "outro", Confidence: 0.95},
		{Start: 60, End: 70, Category: "sponsor", Confidence: 0.3},
	})

	// Disable outro skipping; the low-confidence sponsor drops too.
	put := ts.api.Put("/api/v1/settings",
		"Authorization: "+authHeader(token),
		map[string]any{"enabled": map[string]bool{"sponsor": true}})
	require.Equal(t, http.StatusOK, put.Code, put.Body.String())

	resp := ts.api.Get("/api/v1/videos/vid-settings/segments", "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[AnalysisResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Segments, 1)
	assert.Equal(t, "sponsor", envelope.Data.Segments[0].Category)
	assert.InDelta(t, 10.0, envelope.Data.Segments[0].Start, 0.001)
}

func TestInvalidateAnalysis(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	ts.seedAnalysis(t, "vid-del", []domain.Segment{{Start: 5, End: 15, Category: "intro", Confidence: 0.9}})

	del := ts.api.Delete("/api/v1/videos/vid-del/analysis", "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusNoContent, del.Code)

	resp := ts.api.Get("/api/v1/videos/vid-del/segments", "Authorization: "+authHeader(token))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSettings_GetDefaults(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	resp := ts.api.Get("/api/v1/settings", "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[SettingsResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.InDelta(t, 0.85, envelope.Data.Settings.ConfidenceThreshold, 0.001)
	assert.True(t, envelope.Data.Settings.AutoSkip)
	assert.NotEmpty(t, envelope.Data.Colors["sponsor"])
}

func TestSettings_UpdateRejectsOutOfRange(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	resp := ts.api.Put("/api/v1/settings",
		"Authorization: "+authHeader(token),
		map[string]any{"confidence_threshold": 1.5})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSettings_UpdateRejectsUnknownCategory(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	resp := ts.api.Put("/api/v1/settings",
		"Authorization: "+authHeader(token),
		map[string]any{"enabled": map[string]bool{"clickbait": true}})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSessionFlow_AttachTickSkip(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	ts.seedAnalysis(t, "vid-play", []domain.Segment{
		{Start: 30, End: 90, Category: "sponsor", Confidence: 0.95},
	})

	// Disable the preview countdown so the skip fires on first contact.
	put := ts.api.Put("/api/v1/settings",
		"Authorization: "+authHeader(token),
		map[string]any{"preview_enabled": false})
	require.Equal(t, http.StatusOK, put.Code)

	attach := ts.api.Post("/api/v1/sessions",
		"Authorization: "+authHeader(token),
		map[string]any{"video_id": "vid-play"})
	require.Equal(t, http.StatusOK, attach.Code, attach.Body.String())

	var session testEnvelope[SessionResponse]
	require.NoError(t, json.Unmarshal(attach.Body.Bytes(), &session))
	require.NotEmpty(t, session.Data.SessionID)
	require.Len(t, session.Data.Segments, 1)

	// Before the segment: keep playing.
	tick1 := ts.api.Post("/api/v1/sessions/"+session.Data.SessionID+"/tick",
		"Authorization: "+authHeader(token),
		map[string]any{"current_time": 10.0})
	require.Equal(t, http.StatusOK, tick1.Code)

	var d1 testEnvelope[playback.Directive]
	require.NoError(t, json.Unmarshal(tick1.Body.Bytes(), &d1))
	assert.Equal(t, playback.ActionNone, d1.Data.Action)

	// Inside the segment: seek past it.
	tick2 := ts.api.Post("/api/v1/sessions/"+session.Data.SessionID+"/tick",
		"Authorization: "+authHeader(token),
		map[string]any{"current_time": 35.0})
	require.Equal(t, http.StatusOK, tick2.Code)

	var d2 testEnvelope[playback.Directive]
	require.NoError(t, json.Unmarshal(tick2.Body.Bytes(), &d2))
	assert.Equal(t, playback.ActionSeek, d2.Data.Action)
	assert.InDelta(t, 90.0, d2.Data.SeekTo, 0.001)

	// Detach reports the saved time and a skip event was recorded.
	detach := ts.api.Delete("/api/v1/sessions/"+session.Data.SessionID,
		"Authorization: "+authHeader(token))
	require.Equal(t, http.StatusOK, detach.Code)

	summary := ts.api.Get("/api/v1/skips/summary", "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusOK, summary.Code)

	var sum testEnvelope[domain.SkipSummary]
	require.NoError(t, json.Unmarshal(summary.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.Data.TotalSkips)
	assert.InDelta(t, 55.0, sum.Data.TotalSavedSeconds, 0.001)
}

func TestAttachSession_NoAnalysis(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	resp := ts.api.Post("/api/v1/sessions",
		"Authorization: "+authHeader(token),
		map[string]any{"video_id": "never-analyzed"})

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCacheStatsAndSweep(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.pairTestClient(t)

	ts.seedAnalysis(t, "vid-a", []domain.Segment{{Start: 1, End: 2, Category: "intro", Confidence: 0.9}})
	ts.seedAnalysis(t, "vid-b", []domain.Segment{{Start: 3, End: 4, Category: "outro", Confidence: 0.9}})

	stats := ts.api.Get("/api/v1/cache/stats", "Authorization: "+authHeader(token))
	require.Equal(t, http.StatusOK, stats.Code)

	var statsEnv testEnvelope[map[string]any]
	require.NoError(t, json.Unmarshal(stats.Body.Bytes(), &statsEnv))
	assert.EqualValues(t, 2, statsEnv.Data["total_entries"])

	// Fresh entries survive a sweep at the default cutoff.
	sweep := ts.api.Post("/api/v1/cache/sweep",
		"Authorization: "+authHeader(token),
		map[string]any{})
	require.Equal(t, http.StatusOK, sweep.Code)

	var sweepEnv testEnvelope[map[string]any]
	require.NoError(t, json.Unmarshal(sweep.Body.Bytes(), &sweepEnv))
	assert.EqualValues(t, 0, sweepEnv.Data["removed"])
}

func TestSkipSummary_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/skips/summary")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
