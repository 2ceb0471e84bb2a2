// Package databasetest connects integration tests to a real PostgreSQL.
// Tests using it run with `go test -tags integration` and TEST_DATABASE_URL set.
package databasetest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"tender-server/internal/domain/company"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/database/entities"
	"tender-server/internal/utils/idgen"
)

// EnvDSN names the variable holding the test database DSN.
const EnvDSN = "TEST_DATABASE_URL"

// Open connects to the test database and applies every migration. The test is
// skipped when EnvDSN is unset.
func Open(t testing.TB) *database.DB {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}

	gormDB, err := database.Connect(database.Config{DSN: dsn, MaxOpenConns: 20, LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), gormDB, zerolog.Nop()))

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database.NewDB(gormDB)
}

// SeedCompanies inserts n companies with fresh ids, so tests sharing the database
// never see each other's rows.
func SeedCompanies(t testing.TB, db *database.DB, n int) []*company.Company {
	t.Helper()
	now := time.Now().UTC()
	out := make([]*company.Company, 0, n)
	for i := 0; i < n; i++ {
		id := idgen.New(idgen.PrefixCompany)
		c := &company.Company{
			ID:           id,
			OwnerSubject: "subject-" + id,
			Name:         fmt.Sprintf("Company %d", i),
			Email:        fmt.Sprintf("%s@example.test", id),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, db.GetTx(context.Background()).Create(entities.NewCompany(c)).Error)
		out = append(out, c)
	}
	return out
}
