// seed inserts development sample users for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"task-management-api/internal/config"
	"task-management-api/internal/db"
	"task-management-api/internal/security"
	userdomain "task-management-api/internal/user/domain"
	userrepo "task-management-api/internal/user/repository"
)

const (
	devUserEmail   = "dev@example.com"
	devUser2Email  = "member@example.com"
	devPassword    = "password123"
	devUserName    = "Dev User"
	devUser2Name   = "Member User"
	seedTimeoutSec = 10
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeoutSec*time.Second)
	defer cancel()

	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed: check existing user: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, skipping", devUserEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	for _, u := range []*userdomain.User{
		{
			ID:           uuid.New().String(),
			Email:        devUserEmail,
			Name:         devUserName,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           uuid.New().String(),
			Email:        devUser2Email,
			Name:         devUser2Name,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("seed: create %s: %v", u.Email, err)
		}
		log.Printf("seed: created user %s (password %q)", u.Email, devPassword)
	}
}
