package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"calllab/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps a sql.DB with the driver it was opened on so callers can
// rebind placeholders and branch on dialect-only statements.
type DB struct {
	*sql.DB
	Driver string
	// Host is the address the connection actually landed on when
	// fallback hosts were tried.
	Host string
}

// Open connects to Postgres, trying the configured host and then each
// fallback host serially until one answers a ping.
func Open(cfg config.DBConfig) (*DB, error) {
	if cfg.URL != "" {
		conn, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("connect %s: %w", redactURL(cfg.URL), err)
		}
		return &DB{DB: conn, Driver: DriverPostgres, Host: hostFromURL(cfg.URL)}, nil
	}

	hosts := append([]string{cfg.Host}, cfg.FallbackHosts...)
	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			host, cfg.Port, cfg.Database, cfg.User, cfg.Password)
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			lastErr = err
			continue
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			lastErr = fmt.Errorf("connect %s: %w", host, err)
			continue
		}
		return &DB{DB: conn, Driver: DriverPostgres, Host: host}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no database host configured")
	}
	return nil, lastErr
}

// OpenLocal opens the embedded single-file SQLite database, creating the
// parent directory if missing.
func OpenLocal(path string) (*DB, error) {
	if path == "" {
		path = "data/calllab.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{DB: conn, Driver: DriverSQLite, Host: path}, nil
}

// Rebind converts ?-style placeholders to the driver's form. Queries in
// this codebase are written with ? and rebound for Postgres.
func (d *DB) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hostFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "database url"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
