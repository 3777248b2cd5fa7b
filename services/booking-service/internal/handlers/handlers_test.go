package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/admin"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/testutil"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testOperator = "admin"
	testPassword = "s3cret-pass"
)

type testApp struct {
	server *httptest.Server
	client *http.Client
	store  *storage.SQLiteStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewSQLiteStore(t)
	clk := clock.NewManual(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	hours, err := availability.ParseHours("09:00-17:00", 30*time.Minute)
	require.NoError(t, err)
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	authn, err := admin.NewStaticAuthenticator(admin.Credential{Username: testOperator, Name: "Front Desk", PasswordHash: hash})
	require.NoError(t, err)
	sessions, err := admin.NewSessionManager(testSecret, time.Hour, clk, admin.NewMemoryRevocations())
	require.NoError(t, err)

	bookings := booking.NewService(store, clk, hours, logger, nil)
	adminSvc := admin.NewService(store, authn, sessions, logger, nil)
	views, err := NewRenderer(logger)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewWebHandler(bookings, adminSvc, views, CookieConfig{}, logger).Register(mux)
	NewAPIHandler(bookings, adminSvc, logger).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{server: srv, client: client, store: store}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func bookingForm(name, email, date, at string) url.Values {
	return url.Values{
		"name":    {name},
		"email":   {email},
		"phone":   {"555-0100"},
		"service": {"Consultation"},
		"date":    {date},
		"time":    {at},
		"message": {"first visit"},
	}
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	resp, _ := a.post(t, "/admin/login", url.Values{"username": {testOperator}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/dashboard", resp.Header.Get("Location"))
}
