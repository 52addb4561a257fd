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


package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"transaction-ledger-go/internal/common"
	"transaction-ledger-go/internal/config"
	"transaction-ledger-go/internal/server"
	"transaction-ledger-go/internal/settlement"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting transaction ledger",
		zap.String("driver", cfg.Database.Driver),
		zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var expirer *settlement.Expirer
	if cfg.Settlement.ExpiryEnabled {
		expirer, err = settlement.NewExpirer(services.LedgerService, cfg.Settlement)
		if err != nil {
			zap.L().Fatal("Failed to configure pending expiry", zap.Error(err))
		}
		if err := expirer.Start(); err != nil {
			zap.L().Fatal("Failed to start pending expiry", zap.Error(err))
		}
	}

	srv := server.New(cfg.Server, services.LedgerService)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping server...")
	case err := <-serverErr:
		if err != nil {
			zap.L().Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	}
	if expirer != nil {
		expirer.Stop(shutdownCtx)
	}

	zap.L().Info("Transaction ledger stopped")
}
