// Command migrate creates the delivery log schema. Statements are
// idempotent so the command is safe to re-run on deploy.
package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/leadforge/leadforge/internal/config"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS delivery_log (
		id TEXT PRIMARY KEY,
		campaign_id TEXT,
		recipients TEXT[] NOT NULL DEFAULT '{}',
		provider TEXT NOT NULL,
		provider_message_id TEXT,
		delivery_status TEXT NOT NULL DEFAULT 'sent',
		status_code INTEGER,
		error_text TEXT,
		metadata JSONB NOT NULL DEFAULT '{}',
		webhook_data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_log_provider_message_id
		ON delivery_log (provider_message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_log_campaign_id
		ON delivery_log (campaign_id)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_log_created_at
		ON delivery_log (created_at DESC)`,
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Migration statement %d failed: %v", i+1, err)
		}
	}
	log.Printf("[migrate] Schema up to date (%d statements)", len(statements))
}
