package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paydesk/server/internal/auth"
	"github.com/paydesk/server/internal/backend"
	httphandler "github.com/paydesk/server/internal/http"
	"github.com/paydesk/server/internal/metrics"
	"github.com/paydesk/server/internal/model"
	"github.com/paydesk/server/internal/session"
)

const (
	testSecret   = "test-browser-secret-at-least-32-characters"
	testEmail    = "a@b.com"
	testPassword = "x"
	goodCode     = "123456"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeBackend is a scripted payments backend
type fakeBackend struct {
	mu sync.Mutex

	resetRequired bool
	firstTime     bool
	validToken    string
	issued        int

	otpRequests int
	resets      []map[string]string
	bulk        []model.BulkPayment
	authHeaders []string
	loginAuth   string
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login/otp", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.otpRequests++
		f.loginAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		if req["password"] != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
	})
	mux.HandleFunc("POST /api/v1/auth/otp/verify", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["otp"] != goodCode {
			writeJSON(w, http.StatusBadRequest, map[string]string{"title": "Bad Request", "detail": "Invalid OTP"})
			return
		}
		f.mu.Lock()
		f.issued++
		token := "tok-" + strconv.Itoa(f.issued)
		f.validToken = token
		res := backend.VerifyOTPResult{
			Token:                 token,
			User:                  model.User{ID: "u1", Name: "Ama Mensah", Email: req["email"], Role: "ADMIN", OrganizationName: "Acme"},
			PasswordResetRequired: f.resetRequired,
			FirstTimeUser:         f.firstTime,
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("POST /api/v1/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.resets = append(f.resets, req)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("PUT /api/v1/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		var p model.Profile
		_ = json.NewDecoder(r.Body).Decode(&p)
		writeJSON(w, http.StatusOK, p)
	})
	protected.HandleFunc("GET /api/v1/collections/status-summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.StatusSummary{Total: 4, TotalValue: 400, ByStatus: map[string]int64{"SUCCESS": 4}})
	})
	protected.HandleFunc("GET /api/v1/payments/status-summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.StatusSummary{Total: 2, TotalValue: 50, ByStatus: map[string]int64{"PENDING": 2}})
	})
	protected.HandleFunc("GET /api/v1/collections/trends", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.TrendPoint{{Period: "2026-03-01", Count: 4, Amount: 400}})
	})
	protected.HandleFunc("GET /api/v1/payments/trends", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.TrendPoint{{Period: "2026-03-01", Count: 2, Amount: 50}})
	})
	protected.HandleFunc("GET /api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.Payment{{ID: "p1", RecipientNumber: "233244123456", Amount: 25, Status: "PENDING"}})
	})
	protected.HandleFunc("POST /api/v1/payments/bulk", func(w http.ResponseWriter, r *http.Request) {
		var batch model.BulkPayment
		_ = json.NewDecoder(r.Body).Decode(&batch)
		f.mu.Lock()
		f.bulk = append(f.bulk, batch)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, batch.Payments)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("Authorization")
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, got)
		valid := f.validToken != "" && got == "Bearer "+f.validToken
		f.mu.Unlock()
		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token expired"})
			return
		}
		protected.ServeHTTP(w, r)
	})
	return mux
}

// revoke makes the backend reject every token issued so far
func (f *fakeBackend) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validToken = ""
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) otpCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otpRequests
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.authHeaders)
}

func (f *fakeBackend) resetList() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.resets...)
}

func (f *fakeBackend) bulkList() []model.BulkPayment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.BulkPayment(nil), f.bulk...)
}

func (f *fakeBackend) loginAuthHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginAuth
}

func (f *fakeBackend) lastAuthHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.authHeaders) == 0 {
		return ""
	}
	return f.authHeaders[len(f.authHeaders)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testServer is the dashboard server wired against a fake backend
type testServer struct {
	Server  *httptest.Server
	JWT     *auth.JWTService
	Backend *fakeBackend
	Store   *session.Store
	Metrics *metrics.Metrics
	client  *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	fb := &fakeBackend{}
	backendSrv := httptest.NewServer(fb.handler())
	t.Cleanup(backendSrv.Close)

	sessions, database, err := OpenSessionRepo(ctx)
	require.NoError(t, err, "session storage must open; check DATABASE_URL")
	if database != nil {
		t.Cleanup(func() { database.Close() })
	}

	registry, m := metrics.NewRegistry()
	store := session.NewStore(sessions, quietLogger)
	api := backend.NewClient(backend.Config{BaseURL: backendSrv.URL, Timeout: 5 * time.Second}, store, m, quietLogger)
	login := auth.NewLoginService(api, api, store, m, quietLogger, auth.LoginConfig{ResendCooldown: time.Minute})

	jwtService := auth.NewJWTService(testSecret)
	deps := httphandler.Deps{
		Logger:      quietLogger,
		JWT:         jwtService,
		Login:       login,
		Store:       store,
		API:         api,
		Metrics:     m,
		MetricsPage: metrics.HandlerFor(registry),
	}
	if database != nil {
		deps.DB = database
	}
	server := httptest.NewServer(httphandler.NewRouter(deps))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testServer{Server: server, JWT: jwtService, Backend: fb, Store: store, Metrics: m, client: client}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, string) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, readBody(resp)
}

// signIn runs the two-step login through the HTTP surface
func (s *testServer) signIn(t *testing.T) {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/login", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	resp, body = s.do(t, http.MethodPost, "/login/verify", map[string]string{"otp": goodCode})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
}

// readBody reads response body as string for assertion messages
func readBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m), body)
	return m
}
