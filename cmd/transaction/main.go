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
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"transaction-ledger-go/internal/common"
	"transaction-ledger-go/internal/config"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	action := flag.String("action", "", "One of: create, get, transition")
	id := flag.String("id", "", "Transaction ID (get, transition)")
	sender := flag.String("sender", "", "Sender account ID (create)")
	receiver := flag.String("receiver", "", "Receiver account ID (create)")
	amountStr := flag.String("amount", "", "Amount, e.g. 100.00 (create)")
	currency := flag.String("currency", "", "ISO currency code, e.g. USD (create)")
	idempotencyKey := flag.String("key", "", "Optional idempotency key (create)")
	target := flag.String("to", "", "Target status: COMPLETED or FAILED (transition)")
	expected := flag.String("expect", string(models.StatusPending), "Expected current status (transition)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	ledger := services.LedgerService

	var tx *models.Transaction
	switch *action {
	case "create":
		amount, err := decimal.NewFromString(*amountStr)
		if err != nil {
			logger.Fatal("Invalid amount", zap.String("amount", *amountStr), zap.Error(err))
		}
		result, err := ledger.CreateTransaction(ctx, models.CreateTransactionRequest{
			SenderAccountId:   *sender,
			ReceiverAccountId: *receiver,
			Amount:            amount,
			Currency:          *currency,
			IdempotencyKey:    *idempotencyKey,
		})
		if err != nil {
			logger.Fatal("Failed to create transaction", zap.String("kind", store.Kind(err)), zap.Error(err))
		}
		if !result.Created {
			logger.Info("Idempotency key already used, returning existing transaction",
				zap.String("transaction_id", result.Transaction.Id))
		}
		tx = result.Transaction
	case "get":
		tx, err = ledger.GetTransaction(ctx, *id)
		if err != nil {
			logger.Fatal("Failed to get transaction", zap.String("id", *id), zap.Error(err))
		}
	case "transition":
		targetStatus, ok := models.ParseStatus(*target)
		if !ok {
			logger.Fatal("Unknown target status", zap.String("to", *target))
		}
		expectedStatus, ok := models.ParseStatus(*expected)
		if !ok {
			logger.Fatal("Unknown expected status", zap.String("expect", *expected))
		}
		tx, err = ledger.TransitionTransaction(ctx, store.TransitionParams{
			Id:                    *id,
			TargetStatus:          targetStatus,
			ExpectedCurrentStatus: expectedStatus,
		})
		if err != nil {
			logger.Fatal("Failed to transition transaction", zap.String("kind", store.Kind(err)), zap.Error(err))
		}
	default:
		fmt.Fprintln(os.Stderr, "Usage: transaction -action create|get|transition [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	out, err := json.MarshalIndent(tx.ToRecord(), "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode transaction", zap.Error(err))
	}
	fmt.Println(string(out))
}
