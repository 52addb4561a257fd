/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db           *sql.DB
	dialect      dialect
	queries      queries
	currencies   *store.CurrencyRegistry
	queryTimeout time.Duration
	now          func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig, currencies *store.CurrencyRegistry) (*Service, error) {
	// Validate configuration
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if d.driver == DriverSQLite && cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if d.driver == DriverPostgres && cfg.URL == "" {
		return nil, fmt.Errorf("database url cannot be empty for postgres")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if currencies == nil {
		currencies = store.DefaultCurrencyRegistry()
	}

	var db *sql.DB
	switch d.driver {
	case DriverSQLite:
		zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
		db, err = sql.Open(DriverSQLite, fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d",
			cfg.Path, cfg.BusyTimeout.Milliseconds()))
	case DriverPostgres:
		zap.L().Info("Opening PostgreSQL database")
		db, err = sql.Open(DriverPostgres, cfg.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db, d, currencies, cfg.QueryTimeout)
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully",
		zap.String("driver", d.driver),
		zap.Int("currencies", currencies.Len()))
	return service, nil
}

func newService(db *sql.DB, d dialect, currencies *store.CurrencyRegistry, queryTimeout time.Duration) *Service {
	return &Service{
		db:           db,
		dialect:      d,
		queries:      newQueries(d),
		currencies:   currencies,
		queryTimeout: queryTimeout,
		now:          time.Now,
	}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return s.storageError("ping", err)
	}
	return nil
}

func (s *Service) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.schema)
	return err
}

// withTimeout applies the configured per-call storage timeout.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// timestamp returns the current time at the precision both engines store.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) storageError(op string, err error) error {
	return &store.StorageError{Op: op, Err: err, Transient: s.dialect.isTransient(err)}
}
