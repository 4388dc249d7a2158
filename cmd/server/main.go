package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dynaforms/dynaforms/internal/api"
	dbstore "github.com/dynaforms/dynaforms/internal/db"
	"github.com/dynaforms/dynaforms/internal/middleware"
	"github.com/dynaforms/dynaforms/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	addr := utils.SafeEnv("DYNAFORMS_ADDR", ":8080")
	sqlitePath := os.Getenv("DYNAFORMS_SQLITE_PATH")
	migrationsDir := os.Getenv("DYNAFORMS_MIGRATIONS_DIR")

	store, cleanup, err := openStore(sqlitePath, migrationsDir)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	defer cleanup()

	mux := http.NewServeMux()
	api.NewRouter(store).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"name": "Dynaforms API",
		})
	})

	handler := middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux)))

	log.Printf("Dynaforms server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore opens the SQLite-backed store when a path is configured and
// falls back to the in-memory store otherwise.
func openStore(sqlitePath, migrationsDir string) (api.Store, func(), error) {
	if sqlitePath == "" {
		log.Printf("DYNAFORMS_SQLITE_PATH not set, using in-memory store")
		return api.NewMemoryStore(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	cleanup := func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}

	if err := dbstore.RunMigrations(sqliteDB, migrationsDir); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := dbstore.NewSQLiteStore(sqliteDB)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init sqlite store: %w", err)
	}
	return store, cleanup, nil
}
