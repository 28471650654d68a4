package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqlite "github.com/glebarez/sqlite"
	"github.com/peernotes/peernotes/internal/logging"
	"github.com/peernotes/peernotes/internal/notes"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrNotConfigured is returned by Open when the driver is "none".
var ErrNotConfigured = errors.New("database: no backing store configured")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Config selects and addresses the relational store.
type Config struct {
	Driver string
	Path   string
	DSN    string
	// TLS requests an encrypted postgres connection when the DSN does not set sslmode itself.
	TLS bool
}

// Open connects to the configured store and performs schema migrations.
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return OpenSQLite(cfg.Path, logger)
	case DriverPostgres:
		return OpenPostgres(cfg.DSN, cfg.TLS, logger)
	case DriverNone, "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logging.NewGormLogger(logger)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", DriverSQLite), zap.String("path", path))
	}

	return db, nil
}

// OpenPostgres establishes a PostgreSQL connection and performs schema migrations.
func OpenPostgres(dsn string, requireTLS bool, logger *zap.Logger) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	connectionString, err := applySSLMode(dsn, requireTLS)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: logging.NewGormLogger(logger)})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", DriverPostgres), zap.Bool("tls", requireTLS))
	}

	return db, nil
}

// Migrate creates the note store tables and applies pending named migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	models := append(notes.Models(), &migrationRecord{})
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}

// applySSLMode appends sslmode=require to URL or key/value DSNs that do not
// already choose a mode.
func applySSLMode(dsn string, requireTLS bool) (string, error) {
	if !requireTLS {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("database: invalid dsn: %w", err)
		}
		query := parsed.Query()
		if query.Get("sslmode") == "" {
			query.Set("sslmode", "require")
			parsed.RawQuery = query.Encode()
		}
		return parsed.String(), nil
	}
	if strings.Contains(dsn, "sslmode=") {
		return dsn, nil
	}
	return strings.TrimSpace(dsn) + " sslmode=require", nil
}
