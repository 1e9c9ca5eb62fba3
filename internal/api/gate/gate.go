// Package gate is the HTTP side of token verification. Both services mount
// protected handlers through Gate.Protect, which hands the verified
// Principal to the handler as an argument.
package gate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/forgeharbor/auth-go/internal/api/response"
	"github.com/forgeharbor/auth-go/internal/metrics"
	"github.com/forgeharbor/auth-go/internal/token"
)

// HandlerFunc is a handler that only runs for an authenticated principal.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, p token.Principal)

type Gate struct {
	verifier token.TokenVerifier
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func New(verifier token.TokenVerifier, log zerolog.Logger, m *metrics.Metrics) *Gate {
	return &Gate{verifier: verifier, log: log, metrics: m}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", token.ErrUnauthenticated
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", token.ErrUnauthenticated
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", token.ErrUnauthenticated
	}
	return raw, nil
}

// Authenticate runs the full check sequence for one request.
func (g *Gate) Authenticate(r *http.Request) (token.Principal, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return token.Principal{}, err
	}
	return g.verifier.Verify(raw)
}

func (g *Gate) Protect(next HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := g.Authenticate(r)
		if err != nil {
			g.reject(w, r, err)
			return
		}
		g.metrics.RecordGateDecision(metrics.OutcomeSuccess)
		next(w, r, p)
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	outcome := metrics.OutcomeInvalidToken
	challenge := `Bearer error="invalid_token"`
	if errors.Is(err, token.ErrUnauthenticated) {
		outcome = metrics.OutcomeUnauthenticated
		challenge = "Bearer"
	}
	g.metrics.RecordGateDecision(outcome)

	g.log.Warn().
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request rejected by auth gate")

	w.Header().Set("WWW-Authenticate", challenge)
	response.Error(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing authentication token")
}
