package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"voiceagent-server/internal/observability"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// TestDBType represents the type of database to use for testing
type TestDBType string

const (
	TestDBTypeSQLite   TestDBType = "sqlite"
	TestDBTypePostgres TestDBType = "postgres"
)

// TestDB wraps a test database instance
type TestDB struct {
	db     *sqlx.DB
	logger *observability.Logger
	Store  Store
	dbType TestDBType
}

// SetupTestDB creates a migrated test database. An empty dbType falls back to
// TEST_DB_TYPE and then to an in-memory SQLite database.
func SetupTestDB(t *testing.T, dbType TestDBType) *TestDB {
	t.Helper()

	if dbType == "" {
		dbType = TestDBType(os.Getenv("TEST_DB_TYPE"))
		if dbType == "" {
			dbType = TestDBTypeSQLite
		}
	}

	logger := observability.NewLoggerFromZap(zap.NewNop())

	var db *sqlx.DB
	var err error

	switch dbType {
	case TestDBTypeSQLite:
		db, err = setupSQLiteDB(t)
	case TestDBTypePostgres:
		db, err = setupPostgresDB(t)
	default:
		t.Fatalf("unsupported database type: %s", dbType)
	}

	if err != nil {
		t.Fatalf("failed to setup test database: %v", err)
	}

	store := Store{db: db, logger: logger}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return &TestDB{
		db:     db,
		logger: logger,
		Store:  store,
		dbType: dbType,
	}
}

// setupSQLiteDB opens a private in-memory database named after the test.
func setupSQLiteDB(t *testing.T) (*sqlx.DB, error) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		db.Close()
	})
	return db, nil
}

// setupPostgresDB connects to the PostgreSQL instance described by TEST_DB_* variables.
func setupPostgresDB(t *testing.T) (*sqlx.DB, error) {
	t.Helper()

	dbHost := envOr("TEST_DB_HOST", "localhost")
	dbPort := envOr("TEST_DB_PORT", "5432")
	dbUser := envOr("TEST_DB_USER", "voiceagent_user")
	dbPass := envOr("TEST_DB_PASSWORD", "voiceagent_password")
	dbName := envOr("TEST_DB_NAME", "voiceagent_db")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	db, err := sqlx.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Truncate clears all data from tables while preserving schema
func (tdb *TestDB) Truncate(t *testing.T, tables ...string) {
	t.Helper()

	if len(tables) == 0 {
		tables = []string{"saved_lists", "contacts"}
	}
	for _, table := range tables {
		if _, err := tdb.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}

// GetDB returns the underlying sqlx.DB for direct access if needed
func (tdb *TestDB) GetDB() *sqlx.DB {
	return tdb.db
}

// MustExec executes SQL and fails the test if there's an error
func (tdb *TestDB) MustExec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	if _, err := tdb.db.Exec(tdb.db.Rebind(query), args...); err != nil {
		t.Fatalf("failed to execute SQL: %v", err)
	}
}
