// This is a **mock authentication service**: it issues JWT tokens for
// existing placement accounts without checking credentials.
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/gartstein/placement/internal/placement/auth"
	"github.com/gartstein/placement/internal/placement/config"
	gorm "github.com/gartstein/placement/internal/placement/db"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPort = "8081" // Default port for the authentication service

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type tokenIssuer struct {
	repo   *gorm.Repository
	cfg    *config.Config
	logger *zap.Logger
}

// ServeHTTP issues a token for the account named by ?account_id=.
func (ti *tokenIssuer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		http.Error(w, "account_id must be a UUID", http.StatusBadRequest)
		return
	}

	account, err := ti.repo.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			http.Error(w, "unknown account", http.StatusNotFound)
			return
		}
		ti.logger.Error("Failed to load account", zap.Error(err))
		http.Error(w, "Failed to load account", http.StatusInternalServerError)
		return
	}
	if account.Blocked() {
		http.Error(w, "account is blocked", http.StatusForbidden)
		return
	}

	token, err := auth.GenerateToken(models.Actor{ID: account.ID, Role: account.Role}, ti.cfg.JWTSecret, ti.cfg.TokenTTL)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(TokenResponse{Token: token, Role: string(account.Role)}); err != nil {
		ti.logger.Warn("Failed to encode token", zap.Error(err))
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	repo, err := gorm.NewRepository(&gorm.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.Handle("/token", &tokenIssuer{repo: repo, cfg: cfg, logger: logger})

	logger.Info("Authentication service running", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Fatal("authentication service stopped", zap.Error(err))
	}
}
