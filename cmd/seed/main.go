// Seeds development data: a couple of users with opening balances and a
// small price list. Opening balances go through the adjustment log so the
// balance invariant holds from the start.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	users := []struct {
		telegramID int64
		username   string
		fullName   string
		opening    decimal.Decimal
	}{
		{111111111, "alice_dev", "Alice Dev", decimal.NewFromInt(100)},
		{222222222, "bob_dev", "Bob Dev", decimal.NewFromInt(250)},
	}

	store := postgres.NewLedgerStore(db)
	for _, u := range users {
		var id int64
		err := db.QueryRowxContext(ctx, `
			INSERT INTO users (telegram_id, username, full_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username
			RETURNING id
		`, u.telegramID, u.username, u.fullName).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.username, err)
		}

		if u.opening.IsPositive() {
			if _, err := store.ApplyAdjustment(ctx, id, u.opening, domain.ReasonAdminAdd, "seed", false); err != nil {
				log.Fatalf("Failed to seed opening balance for %s: %v", u.username, err)
			}
		}
		log.Printf("Seeded user %s (id=%d)", u.username, id)
	}

	countries := []struct {
		name  string
		emoji string
		price decimal.Decimal
	}{
		{"India", "🇮🇳", decimal.NewFromFloat(12.50)},
		{"Indonesia", "🇮🇩", decimal.NewFromFloat(9.00)},
		{"Vietnam", "🇻🇳", decimal.NewFromFloat(7.75)},
	}
	for _, c := range countries {
		_, err := db.ExecContext(ctx, `
			INSERT INTO countries (name, emoji, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING
		`, c.name, c.emoji, c.price)
		if err != nil {
			log.Fatalf("Failed to seed country %s: %v", c.name, err)
		}
	}

	log.Println("Seed data applied")
}
