package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"tender-server/internal/utils/platformerrors"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestAsRepositoryError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want platformerrors.ErrorType
	}{
		{"not found", gorm.ErrRecordNotFound, platformerrors.ErrorTypeNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, platformerrors.ErrorTypeConflict},
		{"canceled", context.Canceled, platformerrors.ErrorTypeInternal},
		{"other", errors.New("connection reset"), platformerrors.ErrorTypeDatabaseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsRepositoryError(ctx, tt.err, "op", "")
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, platformerrors.LayerRepository, got.Layer)
		})
	}
	assert.Nil(t, AsRepositoryError(ctx, nil, "op", ""))
}

func TestEnsureDatabaseExistsIgnoresKeywordDSN(t *testing.T) {
	assert.NoError(t, ensureDatabaseExists("host=localhost user=postgres dbname=marketplace"))
	assert.NoError(t, ensureDatabaseExists("postgres://localhost:5432/postgres"))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"market""place"`, pqQuoteIdentifier(`market"place`))
}
