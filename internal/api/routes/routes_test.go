package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeharbor/auth-go/internal/api/auth"
	"github.com/forgeharbor/auth-go/internal/api/gate"
	"github.com/forgeharbor/auth-go/internal/api/user"
	"github.com/forgeharbor/auth-go/internal/db"
	"github.com/forgeharbor/auth-go/internal/keys"
	"github.com/forgeharbor/auth-go/internal/keys/keystest"
	"github.com/forgeharbor/auth-go/internal/metrics"
	"github.com/forgeharbor/auth-go/internal/password"
	"github.com/forgeharbor/auth-go/internal/token"
)

var settings = token.Settings{Issuer: "forgeharbor", Audience: "forgeharbor-users", TTL: time.Hour}

type memStore struct {
	mu    sync.Mutex
	users map[string]db.User
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) Insert(_ context.Context, u *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return user.ErrDuplicateEmail
	}
	s.users[u.Email] = *u
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

type services struct {
	issuer       http.Handler
	relyingParty http.Handler
}

func newServices(t *testing.T) services {
	t.Helper()

	// both services read the same key files; the relying party only the public one
	privPath, pubPath := keystest.WritePair(t, t.TempDir(), keystest.GenerateKey(t))
	kp, err := keys.LoadKeyPair([]string{privPath}, []string{pubPath})
	require.NoError(t, err)
	vk, err := keys.LoadVerificationKey([]string{pubPath})
	require.NoError(t, err)

	log := zerolog.Nop()
	store := &memStore{users: make(map[string]db.User)}
	hasher := password.NewHasher(password.WithMemory(8), password.WithThreads(1))
	svc, err := auth.NewAuthService(store, hasher, token.NewIssuer(settings, kp))
	require.NoError(t, err)

	issuerMetrics := metrics.New("api")
	rpMetrics := metrics.New("relying-party")

	return services{
		issuer: SetupRoutes(Deps{
			Log:            log,
			Metrics:        issuerMetrics,
			AllowedOrigins: []string{"*"},
			Auth:           auth.NewAuthHandler(svc, keys.NewPublisher(kp), log, issuerMetrics),
			Gate:           gate.New(token.NewVerifier(settings, kp), log, issuerMetrics),
			DB:             store,
		}),
		relyingParty: SetupRelyingPartyRoutes(RelyingPartyDeps{
			Log:            log,
			Metrics:        rpMetrics,
			AllowedOrigins: []string{"*"},
			Gate:           gate.New(token.NewVerifier(settings, vk), log, rpMetrics),
		}),
	}
}

func call(h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssuerRoutes(t *testing.T) {
	s := newServices(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/auth/jwks", http.StatusOK},
		{http.MethodGet, "/auth/me", http.StatusUnauthorized},
		{http.MethodGet, "/docs", http.StatusMovedPermanently},
		{http.MethodGet, "/docs/doc.json", http.StatusOK},
		{http.MethodGet, "/auth/signup", http.StatusMethodNotAllowed},
		{http.MethodGet, "/users", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := call(s.issuer, tc.method, tc.path, "", "")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRelyingPartyRoutes(t *testing.T) {
	s := newServices(t)

	assert.Equal(t, http.StatusOK, call(s.relyingParty, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, call(s.relyingParty, http.MethodGet, "/metrics", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(s.relyingParty, http.MethodGet, "/api/whoami", "", "").Code)
	assert.Equal(t, http.StatusNotFound, call(s.relyingParty, http.MethodPost, "/auth/login", "{}", "").Code)
}

func TestTokenAcceptedByRelyingParty(t *testing.T) {
	s := newServices(t)
	creds := `{"email":"a@x.com","password":"Secret123"}`

	require.Equal(t, http.StatusCreated, call(s.issuer, http.MethodPost, "/auth/signup", creds, "").Code)

	rec := call(s.issuer, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login auth.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))

	rec = call(s.relyingParty, http.MethodGet, "/api/whoami", "", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "a@x.com", me.Email)
	assert.NotEmpty(t, me.UserID)

	metricsBody := call(s.issuer, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, metricsBody, `auth_signups_total{outcome="success",service="api"} 1`)
	assert.Contains(t, metricsBody, `auth_logins_total{outcome="success",service="api"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newServices(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.issuer.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
