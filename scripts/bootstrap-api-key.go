package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/repository"
	"github.com/flowlet/flowlet/internal/service"
)

type output struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	KeyID     string `json:"key_id"`
	Key       string `json:"key"`
	KeyPrefix string `json:"key_prefix"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", envOr("DATABASE_URL", "sqlite://flowlet.db"), "Database URL (postgres:// or sqlite://)")
		username    = flag.String("username", envOr("SUPERUSER", "admin"), "Superuser to own the API key")
		password    = flag.String("password", envOr("SUPERUSER_PASSWORD", "admin"), "Password used if the superuser is created")
		name        = flag.String("name", "bootstrap", "API key name")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "username is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, *databaseURL, repository.Options{Migrate: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// The token issuer is unused here; keys do not depend on SECRET_KEY.
	svc := service.NewAuthService(store, nil, auth.NewTokenIssuer("bootstrap", time.Minute), service.AuthConfig{
		Superuser:         *username,
		SuperuserPassword: *password,
	}, logger, metrics.NewNoop())

	user, err := svc.EnsureSuperuser(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ensure superuser:", err)
		os.Exit(1)
	}

	created, err := svc.CreateAPIKey(ctx, user.ID, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create api key:", err)
		os.Exit(1)
	}

	out := output{
		UserID:    user.ID,
		Username:  user.Username,
		KeyID:     created.Key.ID,
		Key:       created.Plaintext,
		KeyPrefix: created.Key.KeyPrefix,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
