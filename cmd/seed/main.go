// seed creates a demo user in the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/dual-auth/internal/password"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedEmail    = "demo@example.com"
	seedPassword = "password123"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	users := postgres.NewUserRepository(pool)

	user, err := users.FindByEmail(ctx, seedEmail)
	switch {
	case err == nil:
		fmt.Println("Seed user already exists")
	case errors.Is(err, domain.ErrUserNotFound):
		hash, err := password.NewHasher(bcrypt.DefaultCost).Hash(seedPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user, err = users.Create(ctx, seedEmail, hash)
		if err != nil {
			log.Fatalf("create user: %v", err)
		}
		fmt.Println("Seed complete")
	default:
		log.Fatalf("find user: %v", err)
	}

	fmt.Println()
	fmt.Printf("  Email:    %s\n", user.Email)
	fmt.Printf("  Password: %s\n", seedPassword)
	fmt.Printf("  User ID:  %s\n", user.ID)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Browser: open http://localhost:8080/login and sign in with the credentials above.")
	fmt.Println()
	fmt.Println("  API:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/api/v1/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedPassword)
	fmt.Println("    # → {\"token\":\"eyJ...\",\"refresh_token\":\"eyJ...\",...}")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/api/v1/dashboard -H \"Authorization: Bearer $JWT\"")
}
