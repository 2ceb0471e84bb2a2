package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"tender-server/migrations"
)

// Migrate applies all pending SQL migrations bundled with the service.
func Migrate(ctx context.Context, gormDB *gorm.DB, log zerolog.Logger) (err error) {
	migrator, closeFn, err := newMigrator(ctx, gormDB)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	version, dirty, verr := migrator.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
		log.Info().Msg("No migrations have been applied yet")
	case verr != nil:
		log.Warn().Err(verr).Msg("Error getting migration version")
	default:
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration state")
	}

	if dirty {
		log.Warn().Uint("version", version).Msg("Database is in dirty state, forcing version")
		if forceErr := migrator.Force(int(version)); forceErr != nil {
			return fmt.Errorf("force version %d to clear dirty state: %w", version, forceErr)
		}
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if finalVersion, _, versionErr := migrator.Version(); versionErr == nil {
		log.Info().Uint("version", finalVersion).Msg("Migrations applied")
	}
	return nil
}

// Rollback reverts the given number of migration steps.
func Rollback(ctx context.Context, gormDB *gorm.DB, steps int, log zerolog.Logger) (err error) {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}
	migrator, closeFn, err := newMigrator(ctx, gormDB)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	log.Info().Int("steps", steps).Msg("Migrations rolled back")
	return nil
}

func newMigrator(ctx context.Context, gormDB *gorm.DB) (*migrate.Migrate, func() error, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve sql db: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire dedicated connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("initialize postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = driver.Close()
		return nil, nil, fmt.Errorf("load migrations: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}

	closeFn := func() error {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil {
			return fmt.Errorf("close migration source: %w", sourceErr)
		}
		if dbErr != nil {
			return fmt.Errorf("close migration connection: %w", dbErr)
		}
		return nil
	}
	return migrator, closeFn, nil
}
