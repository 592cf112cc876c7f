// Command main is the entry point for the Recipe Exchange backend server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipeexchange/internal/config"
	"recipeexchange/internal/observability"
	"recipeexchange/internal/server"
)

// @title Recipe Exchange API
// @version 1.0
// @description Recipe sharing service with accounts, voting and saved recipes.

// @contact.name API Support
// @contact.email support@recipe-exchange.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name recipe_session
// @description Session cookie set by /auth/login. A "Bearer" Authorization header is also accepted.

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceName:    "recipe-exchange-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Start() }()

	select {
	case err := <-listenErr:
		_ = shutdownTracing(context.Background())
		return fmt.Errorf("server stopped: %w", err)
	case <-stop.Done():
	}

	log.Println("shutting down")
	ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	return errors.Join(srv.Shutdown(ctx), shutdownTracing(ctx))
}
