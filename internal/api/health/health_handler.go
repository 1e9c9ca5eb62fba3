package health

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/forgeharbor/auth-go/internal/api/response"
)

type StatusResponse struct {
	Status  string `json:"status" example:"online"`
	Message string `json:"message" example:"API is working correctly"`
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler godoc
//
//	@Summary		Health check endpoint
//	@Description	Check if the API is running and healthy
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse	"API is healthy"
//	@Router			/health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, StatusResponse{
		Status:  "online",
		Message: "API is working correctly",
	})
}

// ReadinessHandler answers 200 only while the database responds.
//
//	@Summary		Readiness check endpoint
//	@Description	Check that the user store is reachable
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse			"Ready to serve"
//	@Failure		503	{object}	response.ErrorResponse	"Database unreachable"
//	@Router			/health/ready [get]
func ReadinessHandler(db Pinger, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("readiness check failed")
			response.Error(w, http.StatusServiceUnavailable, "unavailable", "Database is unreachable")
			return
		}
		response.JSON(w, http.StatusOK, StatusResponse{
			Status:  "ready",
			Message: "Database is reachable",
		})
	}
}
