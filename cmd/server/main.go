// Package main is the entry point for the topnews server.
//
// Its job is to read configuration from the environment, open the user
// directory store, load the full directory into the in-memory index, and
// hand everything to the server package. If the directory can't be loaded
// the process exits: serving with an empty index would silently detach
// every existing account from its login.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sakif/topnews/internal/directory"
	"github.com/sakif/topnews/internal/repository"
	"github.com/sakif/topnews/internal/repository/redisstore"
	sqliteRepo "github.com/sakif/topnews/internal/repository/sqlite"
	"github.com/sakif/topnews/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		logger.Error("SESSION_SECRET not set — generate one with: openssl rand -hex 32")
		os.Exit(1)
	}

	sessionTTL := 7 * 24 * time.Hour
	if ttlStr := os.Getenv("SESSION_EXPIRES"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			logger.Error("invalid SESSION_EXPIRES value", slog.String("value", ttlStr))
			os.Exit(1)
		}
		sessionTTL = ttl
	}

	templateDir, _ := filepath.Abs("web/templates")
	staticDir, _ := filepath.Abs("web/static")

	// === STORAGE BACKEND ===
	// redis is the production backend; sqlite needs no external process and
	// is the default for local development.
	var (
		store  repository.UserDirectory
		creds  repository.CredentialStore
		closer io.Closer
	)

	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		rs, err := redisstore.New(addr, os.Getenv("REDIS_PASSWORD"), os.Getenv("USER_TABLE"))
		if err != nil {
			logger.Error("failed to connect to redis",
				slog.String("addr", addr),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		store, creds, closer = rs, rs, rs
		logger.Info("using redis user directory", slog.String("addr", addr))

	case "sqlite":
		dbPath := os.Getenv("DB_PATH")
		if dbPath == "" {
			dbPath = "data/topnews.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", filepath.Dir(dbPath)),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		db, err := sqliteRepo.New(dbPath)
		if err != nil {
			logger.Error("failed to open database",
				slog.String("path", dbPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		store, creds, closer = db, db, db
		logger.Info("using sqlite user directory", slog.String("path", dbPath))

	default:
		logger.Error("unknown STORE_BACKEND", slog.String("value", backend))
		os.Exit(1)
	}
	defer closer.Close()

	// === LOAD THE USER DIRECTORY ===
	// One full read at boot; the index answers every lookup after this and
	// is never refreshed from the store while the process runs.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	raw, err := store.LoadAll(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load user directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	index := directory.Build(raw, logger)
	logger.Info("user directory loaded",
		slog.Int("records", len(raw)),
		slog.Int("indexed", index.Len()),
	)

	cfg := server.Config{
		Port:          port,
		TemplateDir:   templateDir,
		StaticDir:     staticDir,
		SessionSecret: sessionSecret,
		SessionTTL:    sessionTTL,

		TwitterClientID:     os.Getenv("TWITTER_CLIENT_ID"),
		TwitterClientSecret: os.Getenv("TWITTER_CLIENT_SECRET"),
		TwitterCallbackURL:  callbackURL("TWITTER_CALLBACK_URL", "twitter", port),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  callbackURL("GITHUB_CALLBACK_URL", "github", port),
	}

	srv, err := server.New(cfg, logger, index, store, creds)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// callbackURL reads the provider callback from the environment, defaulting
// to the local route the server registers.
func callbackURL(envVar, provider string, port int) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fmt.Sprintf("http://localhost:%d/login/%s/callback", port, provider)
}
