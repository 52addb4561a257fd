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
	"flag"
	"fmt"

	"transaction-ledger-go/internal/common"
	"transaction-ledger-go/internal/config"
	"transaction-ledger-go/internal/database"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var reportStatuses = []models.Status{models.StatusPending, models.StatusCompleted, models.StatusFailed}

type statusStats struct {
	count  int
	totals map[string]decimal.Decimal
}

func formatTransactionId(txId string) string {
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func printTransaction(tx models.Transaction, isLast bool) {
	fmt.Printf("%s %-11s %s -> %s: %20s %s (created: %s)\n",
		common.BoxPrefix(isLast),
		formatTransactionId(tx.Id),
		tx.SenderAccountId,
		tx.ReceiverAccountId,
		tx.Amount.String(),
		tx.Currency,
		tx.CreatedAt.Format("2006-01-02 15:04:05"))
}

func processStatus(ctx context.Context, status models.Status, limit int, dbService *database.Service) (statusStats, error) {
	stats := statusStats{totals: make(map[string]decimal.Decimal)}

	txs, err := dbService.ListTransactionsByStatus(ctx, store.ListParams{Status: status, Limit: limit})
	if err != nil {
		return stats, fmt.Errorf("failed to list %s transactions: %w", status, err)
	}

	common.PrintSection("Status: "+status.String(), map[string]string{
		"Transactions": fmt.Sprintf("%d", len(txs)),
	}, common.ReportWidth)

	for i, tx := range txs {
		printTransaction(tx, i == len(txs)-1)
		stats.count++
		stats.totals[tx.Currency] = stats.totals[tx.Currency].Add(tx.Amount)
	}

	return stats, nil
}

func main() {
	ctx := context.Background()

	statusFlag := flag.String("status", "", "Only report this status: PENDING, COMPLETED or FAILED (default: all)")
	limit := flag.Int("limit", 100, "Maximum transactions listed per status")
	flag.Parse()

	statuses := reportStatuses
	if *statusFlag != "" {
		status, ok := models.ParseStatus(*statusFlag)
		if !ok {
			fmt.Printf("Unknown status %q\n", *statusFlag)
			return
		}
		statuses = []models.Status{status}
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	// Read-only report, so no event publisher is needed
	logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	common.PrintHeader("TRANSACTION STATUS REPORT", common.ReportWidth)

	total := 0
	for _, status := range statuses {
		stats, err := processStatus(ctx, status, *limit, dbService)
		if err != nil {
			logger.Error("Failed to process status", zap.String("status", status.String()), zap.Error(err))
			continue
		}
		total += stats.count
		for currency, sum := range stats.totals {
			fmt.Printf("   total %s: %s\n", currency, sum.String())
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d transactions listed (up to %d per status)", total, *limit), common.ReportWidth)

	logger.Info("Report completed", zap.Int("transactions", total))
}
