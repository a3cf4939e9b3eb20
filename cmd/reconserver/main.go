// Command reconserver runs the ledger reconciliation session server:
// a single-mutator document endpoint with a writer lease, a websocket
// event stream, and optional Postgres persistence of finished
// reconciliation runs.
package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/ledgerrecon/session"
	"github.com/rawblock/ledgerrecon/store"
)

func main() {
	log.Println("Starting ledgerrecon session server...")

	// ─── Environment variables (all optional) ─────────────────────────
	// Credentials and connection strings come from the environment, not
	// from flags, so they never land in shell history or process lists.
	// ────────────────────────────────────────────────────────────────────

	dbURL := os.Getenv("DATABASE_URL")

	var db *store.Store
	if dbURL == "" {
		log.Println("Warning: DATABASE_URL not set, running without persistence")
	} else {
		var err error
		db, err = store.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without persisting recon runs. Error: %v", err)
			db = nil
		} else {
			defer db.Close()
			if err := db.InitSchema(context.Background()); err != nil {
				log.Printf("Warning: schema init failed: %v", err)
			}
		}
	}

	srv := session.NewServer()

	r := gin.Default()
	r.Use(session.AuthMiddleware())

	rateLimiter := session.NewRateLimiter(60, 30)
	api := r.Group("/")
	api.Use(rateLimiter.Middleware())
	srv.Routes(api)

	registerReconRoutes(api, db)

	port := getEnvOrDefault("PORT", "5340")

	log.Printf("ledgerrecon session server running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
