package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/logx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		logx.InitGlobalLogger(true)
		logx.Fatal(err, "Failed to load configuration")
	}

	isDevelopment := cfg.Environment == "development"
	logx.InitGlobalLogger(isDevelopment)

	logx.Info("Starting relaychat server",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"verify_relay_identity", cfg.VerifyRelayIdentity,
	)

	db, err := store.New(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer db.Close()

	if err := seedAdmin(db, cfg); err != nil {
		logx.Fatal(err, "Failed to seed bootstrap admin account")
	}

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	var verifier chat.AuthVerifier
	if cfg.VerifyRelayIdentity {
		verifier = tokenVerifier(cfg.JWTSecret)
	}

	hub := chat.NewHub(verifier)

	deps := &handler.AppDeps{
		Hub:            hub,
		Config:         cfg,
		Store:          db,
		StorageService: storageService,
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Router(deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logx.Info("HTTP server listening", "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "HTTP server terminated unexpectedly")
		}
	}()

	<-ctx.Done()
	logx.Info("Shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "HTTP server shutdown did not complete cleanly")
	}

	hub.Shutdown()

	logx.Info("Server stopped")
}

// seedAdmin creates the bootstrap admin account on an empty users table.
func seedAdmin(db *store.Store, cfg *configs.AppConfig) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return db.EnsureAdmin(ctx, cfg.AdminUsername, string(hash))
}

// tokenVerifier checks the asserted relay identity against a session
// token minted by the login endpoint.
func tokenVerifier(secretKey string) chat.AuthVerifier {
	return func(p chat.AuthPayload) error {
		if p.Token == "" {
			return errors.New("missing session token")
		}

		payload, err := jwt.ParseToken(p.Token, secretKey)
		if err != nil {
			return fmt.Errorf("invalid session token: %w", err)
		}

		if payload.UserID != p.UserID {
			return errors.New("token identity does not match asserted identity")
		}

		return nil
	}
}
