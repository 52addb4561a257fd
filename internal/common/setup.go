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


package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"transaction-ledger-go/internal/api"
	"transaction-ledger-go/internal/database"
	"transaction-ledger-go/internal/events"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService     *database.Service
	Publisher     events.Publisher
	LedgerService *api.LedgerService
}

// InitializeLogger installs a production zap logger as the global logger at the given level
func InitializeLogger(level string) (*zap.Logger, func()) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		atomicLevel, err := zap.ParseAtomicLevel(level)
		if err != nil {
			log.Printf("Unknown LOG_LEVEL %q, using info\n", level)
		} else {
			cfg.Level = atomicLevel
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store, connects the event publisher and builds the ledger service
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService:     dbService,
		Publisher:     publisher,
		LedgerService: api.NewLedgerService(dbService, publisher),
	}, nil
}

// InitializeDatabaseOnly opens just the store, without event publishing.
// Useful for read-only tooling such as reports
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	currencies, err := loadCurrencies(cfg.Ledger.CurrenciesFile)
	if err != nil {
		return nil, err
	}

	dbService, err := database.NewService(ctx, cfg.Database, currencies)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Publisher != nil {
		cs.Publisher.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func loadCurrencies(file string) (*store.CurrencyRegistry, error) {
	if file == "" {
		return store.DefaultCurrencyRegistry(), nil
	}

	codes, err := LoadCurrencyCodes(file)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded currency registry", zap.String("file", file), zap.Int("count", len(codes)))
	return store.NewCurrencyRegistry(codes)
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
