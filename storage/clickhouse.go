package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"regexp"
	"time"

	"dhikr/config"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

var (
	// validDatabaseNameRegex ensures database names are safe to interpolate
	validDatabaseNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// ClickHouse holds the ClickHouse connection used for analytics events
type ClickHouse struct {
	Conn     driver.Conn
	Database string
	Logger   *zap.SugaredLogger
}

// NewClickHouse connects, pings and ensures the database exists
func NewClickHouse(cfg *config.Config, logger *zap.SugaredLogger) (*ClickHouse, error) {
	if err := validateDatabaseName(cfg.ClickHouse.Database); err != nil {
		return nil, fmt.Errorf("invalid database name: %w", err)
	}

	options := &clickhouse.Options{
		Addr: []string{cfg.ClickHouse.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:     cfg.ClickHouse.MaxPoolSize,
		MaxIdleConns:     cfg.ClickHouse.MaxPoolSize / 2,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		DialContext: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			d.Timeout = 10 * time.Second
			d.KeepAlive = 30 * time.Second
			return d.DialContext(ctx, "tcp", addr)
		},
	}

	if cfg.ClickHouse.TLS {
		options.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := ensureDatabase(ctx, conn, cfg.ClickHouse.Database, logger); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ensure database exists: %w", err)
	}

	logger.Infow("Connected to ClickHouse", "addr", cfg.ClickHouse.Addr, "database", cfg.ClickHouse.Database)
	return &ClickHouse{
		Conn:     conn,
		Database: cfg.ClickHouse.Database,
		Logger:   logger,
	}, nil
}

// validateDatabaseName ensures the database name is safe from SQL injection
func validateDatabaseName(database string) error {
	if database == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if len(database) > 64 {
		return fmt.Errorf("database name too long (max 64 characters)")
	}
	if !validDatabaseNameRegex.MatchString(database) {
		return fmt.Errorf("database name contains invalid characters (only alphanumeric and underscore allowed)")
	}
	return nil
}

// ensureDatabase creates the database if it doesn't exist
func ensureDatabase(ctx context.Context, conn driver.Conn, database string, logger *zap.SugaredLogger) error {
	query := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", database)
	if err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	logger.Debugw("ClickHouse database ready", "database", database)
	return nil
}

// HealthCheck performs a health check on the ClickHouse connection
func (ch *ClickHouse) HealthCheck(ctx context.Context) error {
	return ch.Conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (ch *ClickHouse) Close() error {
	return ch.Conn.Close()
}
