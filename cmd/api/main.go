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

	"github.com/forgeharbor/auth-go/internal/api/auth"
	"github.com/forgeharbor/auth-go/internal/api/gate"
	"github.com/forgeharbor/auth-go/internal/api/routes"
	"github.com/forgeharbor/auth-go/internal/api/user"
	"github.com/forgeharbor/auth-go/internal/config"
	"github.com/forgeharbor/auth-go/internal/db"
	"github.com/forgeharbor/auth-go/internal/keys"
	"github.com/forgeharbor/auth-go/internal/logger"
	"github.com/forgeharbor/auth-go/internal/metrics"
	"github.com/forgeharbor/auth-go/internal/password"
	"github.com/forgeharbor/auth-go/internal/token"
)

// @title						Forgeharbor Authentication API
// @version					1.0
// @description				Account signup, login and RS256 access token verification
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log, "api")

	kp, err := keys.LoadKeyPair(cfg.JWT.PrivateKeyPaths, cfg.JWT.PublicKeyPaths)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading signing keys")
	}

	dsn, err := cfg.Database.ConnectionString()
	if err != nil {
		log.Fatal().Err(err).Msg("error building database connection string")
	}

	database, err := db.Connect(context.Background(), dsn, cfg.Database.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		log.Fatal().Err(err).Msg("error running migrations")
	}

	settings := token.Settings{
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}

	store := user.NewStore(database, cfg.Database.Timeout)
	hasher := password.NewHasher(
		password.WithTime(cfg.Argon2.Time),
		password.WithMemory(cfg.Argon2.MemoryKiB),
		password.WithThreads(cfg.Argon2.Threads),
	)

	service, err := auth.NewAuthService(store, hasher, token.NewIssuer(settings, kp))
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing auth service")
	}

	m := metrics.New("api")

	router := routes.SetupRoutes(routes.Deps{
		Log:            log,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Auth:           auth.NewAuthHandler(service, keys.NewPublisher(kp), log, m),
		Gate:           gate.New(token.NewVerifier(settings, kp), log, m),
		DB:             store,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// starts server in a goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("issuer", settings.Issuer).Msg("server running")
		err := server.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("error starting the server")
		}
	}()

	// channel to capture quit signals (e.g. CTRL+C)
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
