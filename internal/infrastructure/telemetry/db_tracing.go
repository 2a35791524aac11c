package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing configuration.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables in db.statement
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
}

// DefaultDBTracingConfig returns tracing disabled with variables hidden.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "catalog",
	}
}

// DBTracingPlugin registers otelgorm and annotates slow statements.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a DBTracingPlugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the otelgorm plugin and the timing callbacks on db.
// Tracing disabled is a no-op.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("catalog_timing:before_create", markQueryStart) },
		func() error { return cb.Query().Before("gorm:query").Register("catalog_timing:before_query", markQueryStart) },
		func() error { return cb.Update().Before("gorm:update").Register("catalog_timing:before_update", markQueryStart) },
		func() error { return cb.Delete().Before("gorm:delete").Register("catalog_timing:before_delete", markQueryStart) },
		func() error { return cb.Row().Before("gorm:row").Register("catalog_timing:before_row", markQueryStart) },
		func() error { return cb.Raw().Before("gorm:raw").Register("catalog_timing:before_raw", markQueryStart) },
		func() error { return cb.Create().After("gorm:create").Register("catalog_timing:after_create", p.annotateSpan) },
		func() error { return cb.Query().After("gorm:query").Register("catalog_timing:after_query", p.annotateSpan) },
		func() error { return cb.Update().After("gorm:update").Register("catalog_timing:after_update", p.annotateSpan) },
		func() error { return cb.Delete().After("gorm:delete").Register("catalog_timing:after_delete", p.annotateSpan) },
		func() error { return cb.Row().After("gorm:row").Register("catalog_timing:after_row", p.annotateSpan) },
		func() error { return cb.Raw().After("gorm:raw").Register("catalog_timing:after_raw", p.annotateSpan) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

type queryStartKey struct{}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// annotateSpan adds row counts, errors and a slow_query marker to the
// active span. Record-not-found is not an error here.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
