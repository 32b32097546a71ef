package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-management-api/internal/audit"
	auditrepo "task-management-api/internal/audit/repository"
	authhandler "task-management-api/internal/auth/handler"
	authservice "task-management-api/internal/auth/service"
	"task-management-api/internal/config"
	"task-management-api/internal/db"
	"task-management-api/internal/security"
	"task-management-api/internal/server"
	sessionrepo "task-management-api/internal/session/repository"
	"task-management-api/internal/telemetry/otel"
	userrepo "task-management-api/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "task-management-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)

	auditLogger := audit.NewMultiLogger(
		audit.NewLogger(auditLogs),
		audit.NewOTelLogger(providers.LoggerProvider),
	)

	codec := security.NewTokenCodec(
		[]byte(cfg.JWTAccessSecret),
		[]byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	hasher := security.NewHasher(cfg.BcryptCost)

	svc := authservice.NewAuthService(users, sessions, hasher, codec, nil, auditLogger)
	auth := authhandler.NewHandler(svc, users, auditLogs, cfg.RefreshTTL(), cfg.Production())

	handler := server.New(server.Deps{
		Auth:     auth,
		Verifier: svc,
		Users:    users,
		DB:       conn,
		Tracer:   providers.TracerProvider.Tracer("task-management-api/server"),
		Meter:    providers.MeterProvider.Meter("task-management-api/server"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
