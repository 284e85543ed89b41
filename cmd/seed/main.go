// Package main provides a tool to seed the database with a user and sample snippets.
//
// It creates (or reuses) an account, prints an access token and a fresh API
// key for it, and inserts sample snippets spread across languages and
// categories so listing, filtering and paging have something to chew on.
//
// Usage:
//
//	DATA_PATH=~/SnipStash/data go run ./cmd/seed
//	go run ./cmd/seed --email dev@example.com --count 250 --admin
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/snipstash/snipstash-server/internal/auth"
	"github.com/snipstash/snipstash-server/internal/domain"
	domainerrors "github.com/snipstash/snipstash-server/internal/errors"
	"github.com/snipstash/snipstash-server/internal/service"
	"github.com/snipstash/snipstash-server/internal/store/sqlite"
)

var (
	dataPath = flag.String("data-path", "", "Data directory (default: $DATA_PATH or ~/SnipStash/data)")
	email    = flag.String("email", "dev@snipstash.local", "Account email")
	password = flag.String("password", "snipstash-dev", "Account password")
	admin    = flag.Bool("admin", false, "Create the account as an admin")
	count    = flag.Int("count", 120, "Number of snippets to insert")
	recycled = flag.Int("recycled", 10, "How many of the inserted snippets to recycle")
)

type sample struct {
	language string
	file     string
	code     string
}

var samples = []sample{
	{"go", "main.go", "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n"},
	{"python", "script.py", "def main():\n    print(\"hello\")\n\nif __name__ == \"__main__\":\n    main()\n"},
	{"typescript", "index.ts", "export const greet = (name: string) => `hello ${name}`;\n"},
	{"sql", "query.sql", "SELECT id, title FROM snippets WHERE expiry_date IS NULL ORDER BY updated_at DESC;\n"},
	{"bash", "deploy.sh", "#!/usr/bin/env bash\nset -euo pipefail\nrsync -av ./dist/ host:/srv/app/\n"},
	{"rust", "main.rs", "fn main() {\n    println!(\"hello\");\n}\n"},
}

var categories = []string{"cli", "http", "database", "testing", "devops", "snippets", "algorithms", "parsing"}

func main() {
	flag.Parse()

	dir := *dataPath
	if dir == "" {
		dir = os.Getenv("DATA_PATH")
	}
	if dir == "" {
		dir = os.ExpandEnv("$HOME/SnipStash/data")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dir, "snipstash.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(dbPath, quiet)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	key, err := auth.LoadOrGenerateKey(dir)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}
	tokens, err := auth.NewTokenServiceFromBytes(key, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	ctx := context.Background()
	authService := service.NewAuthService(st, tokens, quiet)
	snippets := service.NewSnippetService(st, service.SnippetServiceConfig{}, quiet)

	user, err := authService.CreateUser(ctx, service.CreateUserRequest{
		Email:       *email,
		Password:    *password,
		DisplayName: "Seed User",
		IsAdmin:     *admin,
	})
	switch {
	case errors.Is(err, domainerrors.ErrAlreadyExists):
		user, err = st.GetUserByEmail(ctx, *email)
		if err != nil {
			log.Fatalf("Failed to load existing user: %v", err)
		}
		fmt.Printf("Reusing user %s (%s)\n", user.Email, user.ID)
	case err != nil:
		log.Fatalf("Failed to create user: %v", err)
	default:
		fmt.Printf("Created user %s (%s)\n", user.Email, user.ID)
	}

	login, err := authService.IssueToken(user)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	_, apiKey, err := authService.CreateAPIKey(ctx, user.ID, service.CreateAPIKeyRequest{Name: "seed"})
	if err != nil {
		log.Fatalf("Failed to create API key: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	created := make([]*domain.Snippet, 0, *count)

	for n := range *count {
		s := samples[rng.Intn(len(samples))]
		cats := []string{categories[rng.Intn(len(categories))]}
		if rng.Intn(2) == 0 {
			cats = append(cats, categories[rng.Intn(len(categories))])
		}

		sn, err := snippets.Create(ctx, user.ID, domain.SnippetInput{
			Title:       fmt.Sprintf("%s example %03d", s.language, n+1),
			Description: "Seeded sample snippet",
			IsPublic:    rng.Intn(4) == 0,
			Categories:  cats,
			Fragments:   []domain.FragmentInput{{FileName: s.file, Language: s.language, Code: s.code}},
		})
		if err != nil {
			log.Printf("Failed to create snippet %d: %v", n+1, err)
			continue
		}
		created = append(created, sn)

		if rng.Intn(5) == 0 {
			if _, err := snippets.SetFavorite(ctx, user.ID, sn.ID, true); err != nil {
				log.Printf("Failed to favorite %s: %v", sn.ID, err)
			}
		}
	}

	recycledCount := 0
	for _, sn := range created[:min(*recycled, len(created))] {
		if err := snippets.MoveToRecycle(ctx, user.ID, sn.ID); err != nil {
			log.Printf("Failed to recycle %s: %v", sn.ID, err)
			continue
		}
		recycledCount++
	}

	fmt.Printf("Inserted %d snippets (%d recycled)\n", len(created), recycledCount)
	fmt.Printf("\nAccess token (expires %s):\n%s\n", login.ExpiresAt.Format(time.RFC3339), login.AccessToken)
	fmt.Printf("\nAPI key:\n%s\n", apiKey)
	fmt.Println("\nSeeding complete!")
}
