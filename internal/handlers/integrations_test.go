package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/omnicrm/omnicrm/internal/ingest"
	"github.com/omnicrm/omnicrm/internal/platform"
	"github.com/omnicrm/omnicrm/internal/settings"
)

func logDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memorySettingsStore struct {
	saved *settings.Settings
}

func (s *memorySettingsStore) Get(context.Context) (settings.Settings, error) {
	if s.saved == nil {
		return settings.Settings{}, settings.ErrSettingsNotFound
	}
	return *s.saved, nil
}

func (s *memorySettingsStore) Save(_ context.Context, value settings.Settings) error {
	copied := value
	s.saved = &copied
	return nil
}

type testAdapter struct {
	platformType platform.Type
	testSummary  string
	testErr      error
}

func (a *testAdapter) Type() platform.Type { return a.platformType }

func (a *testAdapter) Fetch(context.Context, platform.Credentials) ([]platform.RawItem, error) {
	return nil, nil
}

func (a *testAdapter) Normalize(platform.RawItem) (platform.Record, error) {
	return platform.Record{}, platform.ErrSkipped
}

func (a *testAdapter) Send(context.Context, platform.Credentials, string, string) error {
	return nil
}

func (a *testAdapter) Test(context.Context, platform.Credentials) (string, error) {
	return a.testSummary, a.testErr
}

func newIntegrationsHandler(t *testing.T, adapters ...platform.Adapter) (*IntegrationsHandler, *settings.Service) {
	t.Helper()
	registry := platform.NewRegistry()
	for _, adapter := range adapters {
		registry.MustRegister(adapter)
	}
	settingsService := settings.NewService(logDiscard(), &memorySettingsStore{})
	orchestrator := ingest.NewOrchestrator(logDiscard(), registry, settingsService, &stubPipeline{}, time.Second)
	return NewIntegrationsHandler(logDiscard(), settingsService, orchestrator, registry), settingsService
}

func TestGetSettingsMasksSecrets(t *testing.T) {
	e := echo.New()
	handler, settingsService := newIntegrationsHandler(t)
	_, err := settingsService.Update(context.Background(), platform.TypeInstagram, settings.UpdateRequest{
		Credentials: map[string]string{"access_token": "raw-secret"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/integrations/settings", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.GetSettings(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "raw-secret")
	var overview []settings.PlatformOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview, len(platform.SyncTypes()))
}

func TestUpdateRejectsUnknownPlatform(t *testing.T) {
	e := echo.New()
	handler, _ := newIntegrationsHandler(t)

	req := httptest.NewRequest(http.MethodPatch, "/integrations/myspace", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("platform")
	c.SetParamValues("myspace")

	err := handler.Update(c)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestUpdateStoresCredentials(t *testing.T) {
	e := echo.New()
	handler, settingsService := newIntegrationsHandler(t)

	req := httptest.NewRequest(http.MethodPatch, "/integrations/telegram",
		strings.NewReader(`{"credentials":{"bot_token":"123:abc"},"enabled":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("platform")
	c.SetParamValues("telegram")
	require.NoError(t, handler.Update(c))

	var overview settings.PlatformOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.True(t, overview.Configured)
	require.True(t, overview.Enabled)
	require.Equal(t, settings.MaskedSecret, overview.Fields["bot_token"])

	creds, configured, err := settingsService.CredentialsFor(context.Background(), platform.TypeTelegram)
	require.NoError(t, err)
	require.True(t, configured)
	require.Equal(t, "123:abc", creds["bot_token"])
}

func TestTestEndpointReportsOutcome(t *testing.T) {
	e := echo.New()
	handler, settingsService := newIntegrationsHandler(t,
		&testAdapter{platformType: platform.TypeYouTube, testSummary: "connected to channel Omni"},
		&testAdapter{platformType: platform.TypeFacebook, testErr: platform.NewError(platform.ErrAuth, "bad token")},
	)
	for _, platformType := range []platform.Type{platform.TypeYouTube, platform.TypeFacebook} {
		_, err := settingsService.Update(context.Background(), platformType, settings.UpdateRequest{
			Credentials: map[string]string{"api_key": "k"},
		})
		require.NoError(t, err)
	}

	run := func(name string) map[string]any {
		req := httptest.NewRequest(http.MethodPost, "/integrations/"+name+"/test", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("platform")
		c.SetParamValues(name)
		require.NoError(t, handler.Test(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	succeeded := run("youtube")
	require.Equal(t, true, succeeded["success"])
	require.Equal(t, "connected to channel Omni", succeeded["message"])

	failed := run("facebook")
	require.Equal(t, false, failed["success"])
	require.Contains(t, failed["error"], "bad token")
}

func TestTestEndpointUnconfigured(t *testing.T) {
	e := echo.New()
	handler, _ := newIntegrationsHandler(t, &testAdapter{platformType: platform.TypeGoogleMaps})

	req := httptest.NewRequest(http.MethodPost, "/integrations/google_maps/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("platform")
	c.SetParamValues("google_maps")
	require.NoError(t, handler.Test(c))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
}

func TestSyncReturnsResult(t *testing.T) {
	e := echo.New()
	handler, _ := newIntegrationsHandler(t, &testAdapter{platformType: platform.TypeInstagram})

	req := httptest.NewRequest(http.MethodPost, "/integrations/sync", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Sync(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result ingest.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Contains(t, result.Platforms, platform.TypeInstagram)
}