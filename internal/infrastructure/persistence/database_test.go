package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens GORM on a sqlmock connection speaking the postgres dialect
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("successful ping", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		db := &Database{DB: gormDB}

		mock.ExpectPing()

		require.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed ping", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		db := &Database{DB: gormDB}

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err := db.Ping(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDatabase_Stats(t *testing.T) {
	gormDB, _, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	db := &Database{DB: gormDB}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestDatabase_Close(t *testing.T) {
	gormDB, mock, _ := newMockGormDB(t)
	db := &Database{DB: gormDB}

	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
