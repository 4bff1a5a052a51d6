package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationSources maps a database driver to its migrations subdirectory and URL scheme.
var migrationSources = map[string]struct {
	dir    string
	scheme string
}{
	"postgres": {dir: "postgresql"},
	"mysql":    {dir: "mysql", scheme: "mysql://"},
}

// RunMigrations applies every pending migration found under migrationsDir for dbDriver.
// An up to date schema is not an error.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString, migrationsDir string) error {
	source, ok := migrationSources[dbDriver]
	if !ok {
		return fmt.Errorf("unsupported database driver: %s", dbDriver)
	}

	path := filepath.Join(migrationsDir, source.dir)
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
		slog.String("path", path),
	)

	m, err := migrate.New("file://"+path, source.scheme+dbConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Error("failed to close migrations",
				slog.Any("source_error", srcErr),
				slog.Any("database_error", dbErr),
			)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("migrations completed",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
