package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgeharbor/auth-go/internal/api/gate"
	"github.com/forgeharbor/auth-go/internal/api/routes"
	"github.com/forgeharbor/auth-go/internal/config"
	"github.com/forgeharbor/auth-go/internal/keys"
	"github.com/forgeharbor/auth-go/internal/logger"
	"github.com/forgeharbor/auth-go/internal/metrics"
	"github.com/forgeharbor/auth-go/internal/token"
)

// The relying party trusts tokens from the issuing service using only its
// public key. It never sees the private key or the user store.
func main() {
	cfg, err := config.LoadVerifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log, "relying-party")

	kp, err := keys.LoadVerificationKey(cfg.JWT.PublicKeyPaths)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading verification key")
	}

	settings := token.Settings{
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}

	m := metrics.New("relying-party")

	router := routes.SetupRelyingPartyRoutes(routes.RelyingPartyDeps{
		Log:            log,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Gate:           gate.New(token.NewVerifier(settings, kp), log, m),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.RelyingPartyPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.RelyingPartyPort).Str("key_id", keys.Thumbprint(kp.Public)).Msg("server running")
		err := server.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("error starting the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("error on server shutdown")
	}

	log.Info().Msg("server shut down successfully")
}
