package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds database connection configuration
type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN builds the driver-specific connection string
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres, "":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host,
			c.Port,
			c.User,
			c.Password,
			c.Database,
			c.SSLMode,
		), nil
	case DriverSQLite:
		return c.Path, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// DB wraps sqlx.DB with query metrics and logging. Queries are written
// with ? placeholders and rebound for the active driver.
type DB struct {
	db      *sqlx.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	config  *Config

	stop     chan struct{}
	stopOnce sync.Once
}

// Open connects to the configured database and starts pool monitoring
func Open(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info(context.Background(), "[DB_INIT] Database connection established", logging.Fields{
		"driver":            cfg.Driver,
		"host":              cfg.Host,
		"database":          cfg.Database,
		"path":              cfg.Path,
		"max_open_conns":    cfg.MaxOpenConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	d := &DB{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
		config:  cfg,
		stop:    make(chan struct{}),
	}

	go d.monitorConnectionPool(10 * time.Second)

	return d, nil
}

// Close stops pool monitoring and closes the connection
func (d *DB) Close() error {
	d.stopOnce.Do(func() { close(d.stop) })
	d.logger.Info(context.Background(), "[DB_CLOSE] Closing database connection", logging.Fields{
		"driver": d.config.Driver,
	})
	return d.db.Close()
}

// Driver returns the driver name in use
func (d *DB) Driver() string {
	return d.config.Driver
}

// DB returns the underlying sqlx.DB instance
func (d *DB) DB() *sqlx.DB {
	return d.db
}

// ExecContext executes a command with context and metrics
func (d *DB) ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		d.logger.Debug(ctx, "[DB_EXEC] Command executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	result, err := d.db.ExecContext(ctx, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("exec_error")
		d.logger.Error(ctx, "[DB_EXEC_ERROR] Command failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return nil, err
	}

	return result, nil
}

// GetContext executes a query that returns a single row
func (d *DB) GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(timer).Seconds())
	}()

	err := d.db.GetContext(ctx, dest, d.db.Rebind(query), args...)
	if err != nil && err != sql.ErrNoRows {
		d.metrics.RecordDBError("get_error")
		d.logger.Error(ctx, "[DB_GET_ERROR] Get query failed", logging.Fields{
			"query_type": queryType,
		}, err)
	}

	return err
}

// SelectContext executes a query that returns multiple rows
func (d *DB) SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		d.logger.Debug(ctx, "[DB_SELECT] Query executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	err := d.db.SelectContext(ctx, dest, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("select_error")
		d.logger.Error(ctx, "[DB_SELECT_ERROR] Select query failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return err
	}

	return nil
}

// BeginTx begins a new transaction. Postgres runs it serializable;
// sqlite transactions are serializable already.
func (d *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	var opts *sql.TxOptions
	if d.config.Driver == DriverPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}

	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		d.metrics.RecordDBError("transaction_begin_error")
		d.logger.Error(ctx, "[DB_TX_ERROR] Failed to begin transaction", logging.Fields{}, err)
		return nil, err
	}

	return tx, nil
}

// monitorConnectionPool periodically updates connection pool metrics until Close
func (d *DB) monitorConnectionPool(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}

		stats := d.db.Stats()
		d.metrics.UpdateDBConnectionPool(stats.InUse, stats.Idle, stats.OpenConnections)

		if d.config.MaxOpenConns <= 0 {
			continue
		}

		utilization := float64(stats.InUse) / float64(d.config.MaxOpenConns)
		if utilization > 0.8 {
			d.logger.Warn(context.Background(), "[DB_POOL_WARNING] Connection pool utilization high", logging.Fields{
				"in_use":      stats.InUse,
				"idle":        stats.Idle,
				"total":       stats.OpenConnections,
				"max_open":    d.config.MaxOpenConns,
				"utilization": fmt.Sprintf("%.2f%%", utilization*100),
			})
		}
	}
}

// HealthCheck performs a database health check
func (d *DB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
