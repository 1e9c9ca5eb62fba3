package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/forgeharbor/auth-go/internal/api/response"
	"github.com/forgeharbor/auth-go/internal/api/user"
	"github.com/forgeharbor/auth-go/internal/keys"
	"github.com/forgeharbor/auth-go/internal/metrics"
	"github.com/forgeharbor/auth-go/internal/token"
)

// Request/Response structures

type SignupRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"Secret123"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"Secret123"`
}

type SignupResponse struct {
	Message string `json:"message" example:"User created successfully"`
	UserID  string `json:"user_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJSUzI1NiIsImtpZCI6Ii4uLiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int64  `json:"expires_in" example:"3600"`
}

type MeResponse struct {
	UserID string `json:"user_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email  string `json:"email" example:"a@x.com"`
}

const (
	minPasswordLen = 8
	maxPasswordLen = 1024
	maxBodyBytes   = 1 << 16
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type AuthHandler struct {
	service   *AuthService
	publisher *keys.Publisher
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

func NewAuthHandler(service *AuthService, publisher *keys.Publisher, log zerolog.Logger, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		service:   service,
		publisher: publisher,
		log:       log,
		metrics:   m,
	}
}

// Signup godoc
// @Summary		Register a new user
// @Description	Register a new user account with email and password
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		SignupRequest			true	"User registration data"
// @Success		201		{object}	SignupResponse			"User created successfully"
// @Failure		400		{object}	response.ErrorResponse	"Bad request - invalid input"
// @Failure		409		{object}	response.ErrorResponse	"Conflict - user already exists"
// @Failure		500		{object}	response.ErrorResponse	"Internal server error"
// @Router			/auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := validateSignup(req); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	log := h.requestLog(r)
	log.Info().Str("email", NormalizeEmail(req.Email)).Msg("signup attempt")

	u, err := h.service.Signup(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, user.ErrDuplicateEmail):
		h.metrics.RecordSignup(metrics.OutcomeConflict)
		response.Error(w, http.StatusConflict, "user exists", "A user with this email already exists")
		return
	case err != nil:
		h.metrics.RecordSignup(metrics.OutcomeError)
		log.Error().Err(err).Msg("signup failed")
		response.Error(w, http.StatusInternalServerError, "server error", "Error creating user account")
		return
	}

	h.metrics.RecordSignup(metrics.OutcomeSuccess)
	log.Info().Str("user_id", u.UserID.String()).Msg("user created")

	response.JSON(w, http.StatusCreated, SignupResponse{
		Message: "User created successfully",
		UserID:  u.UserID.String(),
	})
}

// Login godoc
// @Summary		User login
// @Description	Authenticate user and return an RS256 access token
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			credentials	body		LoginRequest			true	"User login credentials"
// @Success		200			{object}	LoginResponse			"Login successful"
// @Failure		400			{object}	response.ErrorResponse	"Bad request - invalid input"
// @Failure		401			{object}	response.ErrorResponse	"Unauthorized - invalid credentials"
// @Failure		500			{object}	response.ErrorResponse	"Internal server error"
// @Router			/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "validation failed", "Email and password are required")
		return
	}

	log := h.requestLog(r)
	log.Info().Str("email", NormalizeEmail(req.Email)).Msg("login attempt")

	accessToken, ttl, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		h.metrics.RecordLogin(metrics.OutcomeInvalidCredentials)
		response.Error(w, http.StatusUnauthorized, "invalid credentials", "Email or password is incorrect")
		return
	case err != nil:
		h.metrics.RecordLogin(metrics.OutcomeError)
		log.Error().Err(err).Msg("login failed")
		response.Error(w, http.StatusInternalServerError, "server error", "Error processing login")
		return
	}

	h.metrics.RecordLogin(metrics.OutcomeSuccess)

	response.JSON(w, http.StatusOK, LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// Me godoc
// @Summary		Get current user info
// @Description	Return the identity carried by the bearer token
// @Tags			auth
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	MeResponse				"User information retrieved"
// @Failure		401	{object}	response.ErrorResponse	"Unauthorized - invalid or missing token"
// @Router			/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, p token.Principal) {
	response.JSON(w, http.StatusOK, MeResponse{
		UserID: p.UserID,
		Email:  p.Email,
	})
}

// JWKS godoc
// @Summary		Token verification key
// @Description	Public key used to verify access tokens, as JWK and PEM
// @Tags			auth
// @Produce		json
// @Success		200	{object}	keys.KeySet				"Key set"
// @Failure		500	{object}	response.ErrorResponse	"Key material unavailable"
// @Router			/auth/jwks [get]
func (h *AuthHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	set, err := h.publisher.Publish()
	if err != nil {
		log := h.requestLog(r)
		log.Error().Err(err).Msg("jwks unavailable")
		response.Error(w, http.StatusInternalServerError, "server error", "Public key unavailable")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	response.JSON(w, http.StatusOK, set)
}

// Helpers

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid body", "Invalid JSON format")
		return false
	}
	return true
}

func (h *AuthHandler) requestLog(r *http.Request) zerolog.Logger {
	return h.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
}

func validateSignup(req SignupRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	if len(req.Password) < minPasswordLen {
		return errors.New("password must be at least 8 characters long")
	}
	if len(req.Password) > maxPasswordLen {
		return errors.New("password is too long")
	}
	return nil
}
