package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "modernc.org/sqlite"
)

// pragmas applied to every connection in the pool.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
}

// DB wraps the SQLite database holding the active profile, API listen
// address and dispatch history.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the database at path, or at the per-user default
// location when path is empty. A leading ~ is expanded.
func Open(path string) (*DB, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dsn(resolved))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", resolved, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect to database %s: %w", resolved, err)
	}
	return &DB{DB: sqlDB, path: resolved}, nil
}

func dsn(path string) string {
	var b strings.Builder
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

func resolvePath(path string) (string, error) {
	if path == "" {
		p, err := defaultDBPath()
		if err != nil {
			return "", fmt.Errorf("determine database path: %w", err)
		}
		return p, nil
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand home directory: %w", err)
		}
		return filepath.Join(home, rest), nil
	}
	return path, nil
}

// Path returns the resolved database file path.
func (db *DB) Path() string { return db.path }

// Close closes the pool.
func (db *DB) Close() error { return db.DB.Close() }

// Tx runs fn inside a transaction, committing when fn returns nil and
// rolling back on error or panic.
func (db *DB) Tx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v (after: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// defaultDBPath returns $XDG_CONFIG_HOME/glowcup/glowcup.db, using
// ~/.config when the variable is unset and always on darwin.
func defaultDBPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" || runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "glowcup", "glowcup.db"), nil
}
