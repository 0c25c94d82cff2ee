/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the agency finance period engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite store
  3. Create API handler (engine + scheduler) with dependencies
  4. Configure HTTP router
  5. Start the auto-sync scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS / ENVIRONMENT:
  -port          HTTP server port (default: 8080, env PORT)
  -db            SQLite database path (default: finance.db, env SQLITE_DB_PATH)
                 Use ":memory:" for in-memory database
  -sync-interval Auto-sync refresh interval (default: 1m, env SYNC_INTERVAL)
  -rules         JSON rule-table file overriding the built-in category
                 classification rules (env RULES_PATH)
  -no-autosync   Disable the periodic refresh entirely

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for an in-flight pass)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/agency.db"

  # Run with in-memory database and fast refresh
  ./server -db=":memory:" -sync-interval=10s

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Periodic auto-sync
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/finance-engine/api"
	"github.com/warp/finance-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Flags, with environment fallbacks
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("SQLITE_DB_PATH", "finance.db"), "SQLite database path")
	syncInterval := flag.Duration("sync-interval", envDuration("SYNC_INTERVAL", time.Minute), "auto-sync refresh interval")
	rulesPath := flag.String("rules", envStr("RULES_PATH", ""), "JSON rule-table file overriding the built-in category rules")
	noAutoSync := flag.Bool("no-autosync", false, "disable periodic refresh of open period views")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler (engine + scheduler)
	handler := api.NewHandler(store)

	// Optional rule-table override; the built-in rules stay in effect
	// without one.
	if *rulesPath != "" {
		doc, err := os.ReadFile(*rulesPath)
		if err != nil {
			log.Fatalf("Failed to read rule table %s: %v", *rulesPath, err)
		}
		if err := handler.ApplyRuleTable(context.Background(), string(doc)); err != nil {
			log.Fatalf("Failed to apply rule table %s: %v", *rulesPath, err)
		}
		log.Printf("Loaded %d category rules from %s", len(handler.Engine.Registry.Rules), *rulesPath)
	}
	handler.Scheduler.Interval = *syncInterval
	handler.Scheduler.Enabled = !*noAutoSync
	handler.Scheduler.Start()
	defer handler.Scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
