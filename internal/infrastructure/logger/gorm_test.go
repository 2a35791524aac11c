package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(cfg GormConfig) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), cfg), recorded
}

func sqlFunc(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")

	t.Run("errors are logged with the request id", func(t *testing.T) {
		l, recorded := newObservedGormLogger(GormConfig{Level: gormlogger.Warn})
		l.Trace(ctx, time.Now(), sqlFunc("UPDATE published_products"), errors.New("deadlock"))

		entries := recorded.FilterMessage("SQL Error").All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, recorded := newObservedGormLogger(GormConfig{Level: gormlogger.Info})
		l.Trace(ctx, time.Now(), sqlFunc("SELECT 1"), gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, recorded := newObservedGormLogger(GormConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})
		l.Trace(ctx, time.Now().Add(-time.Second), sqlFunc("SELECT pg_sleep(1)"), nil)
		assert.Equal(t, 1, recorded.FilterMessage("Slow SQL").Len())
	})

	t.Run("queries are traced only at info", func(t *testing.T) {
		l, recorded := newObservedGormLogger(GormConfig{Level: gormlogger.Warn})
		l.Trace(ctx, time.Now(), sqlFunc("SELECT 1"), nil)
		assert.Zero(t, recorded.Len())

		l.LogMode(gormlogger.Info).Trace(ctx, time.Now(), sqlFunc("SELECT 1"), nil)
		assert.Equal(t, 1, recorded.FilterMessage("SQL Query").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, recorded := newObservedGormLogger(GormConfig{Level: gormlogger.Silent})
		l.Trace(ctx, time.Now(), sqlFunc("SELECT 1"), errors.New("boom"))
		assert.Zero(t, recorded.Len())
	})
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	hidden, _ := newObservedGormLogger(GormConfig{})
	sql, params := hidden.ParamsFilter(context.Background(), "SELECT * FROM tenant_connections WHERE id = $1", "secret")
	assert.Equal(t, "SELECT * FROM tenant_connections WHERE id = $1", sql)
	assert.Nil(t, params)

	shown, _ := newObservedGormLogger(GormConfig{LogParams: true})
	_, params = shown.ParamsFilter(context.Background(), "SELECT $1", "value")
	assert.Equal(t, []any{"value"}, params)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
}
