// Command migrate applies the database schema and seeds the default widget
// settings. It can also roll the schema back and create a session for local
// testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/bugreport/internal/model"
	"github.com/bugreport/internal/store"
)

func main() {
	_ = godotenv.Load()

	var (
		dbURL       = flag.String("database-url", envOr("DATABASE_URL", "file:bugreport.db"), "SQLite path or PostgreSQL connection string")
		down        = flag.Bool("down", false, "Roll back all migrations")
		sessionUser = flag.String("session-user", "", "Create a session for this username and print its ID")
		sessionMail = flag.String("session-email", "", "Email for -session-user")
		sessionTTL  = flag.Duration("session-ttl", store.DefaultSessionTTL, "Lifetime of the -session-user session")
	)
	flag.Parse()

	if err := run(context.Background(), *dbURL, *down, *sessionUser, *sessionMail, *sessionTTL); err != nil {
		slog.Error("migrate failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbURL string, down bool, user, email string, ttl time.Duration) error {
	// Open applies pending up migrations.
	db, err := store.Open(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if down {
		if err := db.MigrateDown(); err != nil {
			return fmt.Errorf("roll back: %w", err)
		}
		fmt.Println("migrations rolled back")
		return nil
	}

	version, dirty, err := db.Version()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	fmt.Printf("schema version %d (dirty=%t, %s)\n", version, dirty, db.Dialect())

	if err := store.NewSettingsStore(db).SeedDefaults(ctx); err != nil {
		return err
	}
	fmt.Println("default settings seeded")

	if user != "" {
		id, err := store.NewSessionStore(db).Create(ctx, model.Identity{Username: user, Email: email}, ttl)
		if err != nil {
			return err
		}
		fmt.Printf("session: %s\n", id)
	}

	fmt.Println("migrations complete")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
