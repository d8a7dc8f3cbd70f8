// ABOUTME: Server-side CLI commands
// ABOUTME: Runs the pipeline REST API and issues bearer tokens for clients
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/db"
	"github.com/harperreed/pipeboard/mailer"
	"github.com/harperreed/pipeboard/web"
	"github.com/rs/zerolog"
)

// ServeCommand runs the REST API until interrupted.
func ServeCommand(cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "Listen address")
	dbPath := fs.String("db-path", cfg.Server.DBPath, "Database path")
	_ = fs.Parse(args)

	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is not set (or PIPEBOARD_JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenDatabase(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()
	logger.Info().Str("path", *dbPath).Msg("database ready")

	m, err := mailer.New(ctx, cfg.Server.Mailer, logger)
	if err != nil {
		return fmt.Errorf("failed to configure mailer: %w", err)
	}

	server, err := web.NewServer(database, m, []byte(cfg.Server.JWTSecret), logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return server.Run(ctx, *addr)
}

// TokenCommand prints a signed bearer token for the API.
func TokenCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "", "Who the token is for (required)")
	ttl := fs.Duration("ttl", cfg.Server.TokenTTL, "Token lifetime")
	_ = fs.Parse(args)

	if *subject == "" {
		return fmt.Errorf("--subject is required")
	}
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is not set (or PIPEBOARD_JWT_SECRET)")
	}

	token, err := web.IssueToken([]byte(cfg.Server.JWTSecret), *subject, *ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	_, _ = fmt.Fprintln(stdout, token)
	_, _ = fmt.Fprintf(os.Stderr, "✓ Token for %s expires %s\n", *subject, time.Now().Add(*ttl).Format(time.RFC3339))
	return nil
}
