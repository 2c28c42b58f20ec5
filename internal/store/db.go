package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to the database named by databaseURL. postgres:// and
// postgresql:// URLs use pgx; sqlite://path and file: URLs use SQLite.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	driver, dsn, err := driverFor(databaseURL)
	if err != nil {
		return nil, err
	}
	if path, ok := strings.CutPrefix(databaseURL, "sqlite://"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(20)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func driverFor(databaseURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("open db: sqlite url without path")
		}
		return "sqlite", "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	case strings.HasPrefix(databaseURL, "file:"):
		return "sqlite", databaseURL, nil
	default:
		return "", "", fmt.Errorf("open db: unsupported url %q", databaseURL)
	}
}
