package clickhouse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse" // migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"         // file:// source
	"go.uber.org/zap"
)

// Migrate applies every pending migration found in dir to the database at dsn.
func Migrate(dsn, dir string, logger *zap.Logger) error {
	m, err := newMigrator(dsn, dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMigrator(m); err != nil {
			logger.Warn("close migrator", zap.Error(err))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("clickhouse schema is up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("clickhouse schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func newMigrator(dsn, dir string) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve migrations dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat migrations dir %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(abs))
	m, err := migrate.New(sourceURL, withMultiStatement(dsn))
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

func withMultiStatement(dsn string) string {
	if strings.Contains(dsn, "x-multi-statement=") {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "x-multi-statement=true"
}

func closeMigrator(m *migrate.Migrate) error {
	sourceErr, dbErr := m.Close()
	return errors.Join(sourceErr, dbErr)
}
