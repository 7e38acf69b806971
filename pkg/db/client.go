package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client owns the process-wide GORM handle and the dialect it speaks.
type Client struct {
	conn   *gorm.DB
	driver string
}

// Pinger is what the health endpoints need.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens cfg's database, applies pool limits and verifies it answers.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	driver := cfg.NormalizedDriver()
	dialector, err := dialectorFor(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	conn, err := open(dialector, newQueryLogger(logg, cfg.SlowQueryThreshold))
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", driver, err)
	}
	client := &Client{conn: conn, driver: driver}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := client.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging %s: %w", driver, err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":         driver,
			"max_open_conns": cfg.MaxOpenConns,
		}), "database connection established")
	}
	return client, nil
}

// NewFromGorm wraps a handle opened elsewhere, typically a test database.
func NewFromGorm(conn *gorm.DB, driver string) *Client {
	return &Client{conn: conn, driver: driver}
}

// Open opens a GORM handle that logs nothing.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return open(dialector, gormlogger.Discard)
}

func open(dialector gorm.Dialector, queryLog gormlogger.Interface) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:                 queryLog,
		SkipDefaultTransaction: true,
	})
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DBDriverPostgres:
		// simple protocol keeps pgbouncer in transaction mode happy
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), nil
	case config.DBDriverMySQL:
		return mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 255}), nil
	case config.DBDriverSQLite:
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func configurePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if n := cfg.MaxOpenConns; n > 0 {
		sqlDB.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		sqlDB.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		sqlDB.SetConnMaxIdleTime(d)
	}
}

func (c *Client) DB() *gorm.DB { return c.conn }

func (c *Client) Driver() string { return c.driver }

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats exposes the pool counters, e.g. for the readiness check.
func (c *Client) Stats() (sql.DBStats, error) {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction. An error from fn or a panic rolls back; the
// panic is re-raised after the rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
