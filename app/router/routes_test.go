package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/lurewatch/app/handlers"
	"github.com/amirphl/lurewatch/app/lure"
	businessflow "github.com/amirphl/lurewatch/business_flow"
	"github.com/amirphl/lurewatch/config"
	"github.com/amirphl/lurewatch/models"
	testingutil "github.com/amirphl/lurewatch/testing"
)

type fixedResolver struct{}

func (fixedResolver) Resolve(_ context.Context, ip string) models.LocationInfo {
	return models.LocationInfo{IP: ip, Country: "Brazil", City: "Recife"}
}

func testOptions() Options {
	return Options{
		Server: config.ServerConfig{
			BodyLimit:    1024 * 1024,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newCaptureApp(t *testing.T, mem *testingutil.MemoryStore) Router {
	t.Helper()
	return newCaptureAppWith(t, mem, testOptions())
}

func newCaptureAppWith(t *testing.T, mem *testingutil.MemoryStore, opts Options) Router {
	t.Helper()
	page, err := lure.NewRegistry().Render(lure.GenericTemplate)
	require.NoError(t, err)
	flow := businessflow.NewTrackingFlow(mem.Store(), fixedResolver{}, config.AttributionLatest)
	r := NewCaptureRouter(handlers.NewCaptureHandler(flow, page, "tracking_token", time.Second), opts)
	r.SetupRoutes()
	return r
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func postLogin(body, cookie string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req
}

func TestCaptureVisitThenSubmit(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	app := newCaptureApp(t, mem).GetApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, readBody(t, resp), `action="/login"`)

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == "tracking_token" {
			token = c.Value
			assert.Equal(t, "/", c.Path)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
			assert.Zero(t, c.MaxAge)
		}
	}
	require.Len(t, token, 36)

	clicks := mem.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, token, clicks[0].Token)

	resp, err = app.Test(postLogin("email=alice%40example.com&password=hunter2", "tracking_token="+token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/success", resp.Header.Get("Location"))

	creds := mem.Credentials()
	require.Len(t, creds, 1)
	assert.Equal(t, token, creds[0].TokenValue())
	assert.Equal(t, "alice@example.com", creds[0].Email)
	assert.True(t, creds[0].PasswordSubmitted)
	assert.Equal(t, "Brazil", creds[0].Location().Country)
}

func TestCaptureForwardedClientIP(t *testing.T) {
	// app.Test connections come from 0.0.0.0
	behindProxy := func(trusted ...string) Options {
		opts := testOptions()
		opts.Server.ProxyHeader = "X-Forwarded-For"
		opts.Server.TrustedProxies = trusted
		return opts
	}
	visit := func(forwarded string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		return req
	}

	t.Run("TrustedPeer", func(t *testing.T) {
		mem := testingutil.NewMemoryStore()
		app := newCaptureAppWith(t, mem, behindProxy("0.0.0.0")).GetApp()

		resp, err := app.Test(visit("203.0.113.9"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		post := postLogin("email=carol%40example.com", "")
		post.Header.Set("X-Forwarded-For", "203.0.113.9")
		resp, err = app.Test(post)
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)

		clicks := mem.Clicks()
		require.Len(t, clicks, 1)
		assert.Equal(t, "203.0.113.9", clicks[0].IP)
		assert.Equal(t, "203.0.113.9", clicks[0].Location().IP)

		creds := mem.Credentials()
		require.Len(t, creds, 1)
		assert.Equal(t, "203.0.113.9", creds[0].IP)
	})

	t.Run("UntrustedPeer", func(t *testing.T) {
		mem := testingutil.NewMemoryStore()
		app := newCaptureAppWith(t, mem, behindProxy("10.0.0.1")).GetApp()

		resp, err := app.Test(visit("203.0.113.9"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		clicks := mem.Clicks()
		require.Len(t, clicks, 1)
		assert.NotEqual(t, "203.0.113.9", clicks[0].IP)
	})

	t.Run("ForgedHeaderIsNotRecorded", func(t *testing.T) {
		mem := testingutil.NewMemoryStore()
		app := newCaptureAppWith(t, mem, behindProxy("0.0.0.0")).GetApp()

		resp, err := app.Test(visit("1.1.1.1?x="))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		clicks := mem.Clicks()
		require.Len(t, clicks, 1)
		assert.NotEqual(t, "1.1.1.1?x=", clicks[0].IP)
	})
}

func TestCaptureSubmitWithoutCookie(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	app := newCaptureApp(t, mem).GetApp()

	resp, err := app.Test(postLogin("email=bob%40example.com", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	creds := mem.Credentials()
	require.Len(t, creds, 1)
	assert.Nil(t, creds[0].Token)
	assert.Equal(t, "bob@example.com", creds[0].Email)
	assert.False(t, creds[0].PasswordSubmitted)
}

func TestCaptureSubmitMissingFields(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	app := newCaptureApp(t, mem).GetApp()

	resp, err := app.Test(postLogin("", "tracking_token=abc"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	creds := mem.Credentials()
	require.Len(t, creds, 1)
	assert.Equal(t, "", creds[0].Email)
	assert.Equal(t, "abc", creds[0].TokenValue())
}

func TestCaptureSubmitMalformedBody(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	app := newCaptureApp(t, mem).GetApp()

	resp, err := app.Test(postLogin("email=%zz&password=x", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, mem.Credentials())
}

func TestCaptureStoreFailure(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	mem.Err = errors.New("database is locked")
	app := newCaptureApp(t, mem).GetApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "database is locked")
	assert.Empty(t, resp.Cookies())
}

func TestCaptureSuccessAndNotFound(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	app := newCaptureApp(t, mem).GetApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/success", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "simulated phishing exercise")

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/admin", nil),
		httptest.NewRequest(http.MethodPost, "/", nil),
		httptest.NewRequest(http.MethodGet, "/login", nil),
	} {
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, req.Method+" "+req.URL.Path)
	}
	assert.Empty(t, mem.Clicks())
	assert.Empty(t, mem.Credentials())
}

func newDashboardApp(t *testing.T, mem *testingutil.MemoryStore) Router {
	t.Helper()
	h := handlers.NewDashboardHandler(businessflow.NewDashboardFlow(mem.Store()), time.Second)
	r := NewDashboardRouter(h, testOptions())
	r.SetupRoutes()
	return r
}

func TestDashboardIndex(t *testing.T) {
	ctx := testingutil.CreateTestContext()
	mem := testingutil.NewMemoryStore()
	store := mem.Store()
	target := &models.Target{Email: "alice@example.com", URL: "https://example.com"}
	require.NoError(t, store.Targets.Save(ctx, target))
	require.NoError(t, store.Clicks.Save(ctx, testingutil.FakeClick(&target.ID, testingutil.FakeToken())))
	orphan := uint(42)
	require.NoError(t, store.Credentials.Save(ctx, testingutil.FakeCredential(&orphan, "Brazil", "Recife")))

	app := newDashboardApp(t, mem).GetApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "<b>1</b>targets")
	assert.Contains(t, body, "<b>1</b>visits")
	assert.Contains(t, body, "<b>1</b>submissions")
	assert.Contains(t, body, "alice@example.com")
	assert.Contains(t, body, "<td>unknown</td>")
	assert.Contains(t, body, "Recife, Brazil")
}

func TestDashboardStoreError(t *testing.T) {
	mem := testingutil.NewMemoryStore()
	mem.Err = errors.New(`relation "targets" does not exist`)
	app := newDashboardApp(t, mem).GetApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `relation "targets" does not exist`)
}

func TestDashboardHealthAndMetrics(t *testing.T) {
	app := newDashboardApp(t, testingutil.NewMemoryStore()).GetApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"status":"ok"`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "http_requests_total")
}
