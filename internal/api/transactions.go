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

package api

import (
	"context"
	"time"

	"transaction-ledger-go/internal/events"
	"transaction-ledger-go/internal/metrics"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"go.uber.org/zap"
)

const (
	opCreate     = "create"
	opGet        = "get"
	opTransition = "transition"
	opList       = "list"
)

// CreateTransaction records a new PENDING transfer, or returns the stored record when the
// idempotency key was already used with the same payload
func (s *LedgerService) CreateTransaction(ctx context.Context, req models.CreateTransactionRequest) (result *models.CreateResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opCreate, start, store.Kind(err)) }()

	tx, created, err := s.store.CreateTransaction(ctx, store.CreateTransactionParams{
		SenderAccountId:   req.SenderAccountId,
		ReceiverAccountId: req.ReceiverAccountId,
		Amount:            req.Amount,
		Currency:          req.Currency,
		IdempotencyKey:    req.IdempotencyKey,
	})
	if err != nil {
		zap.L().Warn("Create transaction failed",
			zap.String("sender_account_id", req.SenderAccountId),
			zap.String("receiver_account_id", req.ReceiverAccountId),
			zap.String("amount", req.Amount.String()),
			zap.String("currency", req.Currency),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("kind", store.Kind(err)),
			zap.Error(err))
		return nil, err
	}

	if created {
		metrics.TransactionsCreated.WithLabelValues("created").Inc()
		s.publish(ctx, events.NewTransactionEvent(events.EventCreated, tx, ""))
	} else {
		metrics.TransactionsCreated.WithLabelValues("replayed").Inc()
	}

	return &models.CreateResult{Transaction: tx, Created: created}, nil
}

// GetTransaction returns the current snapshot of one record
func (s *LedgerService) GetTransaction(ctx context.Context, id string) (tx *models.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opGet, start, store.Kind(err)) }()

	return s.store.GetTransactionById(ctx, id)
}

// TransitionTransaction applies a guarded status change and announces the new state
func (s *LedgerService) TransitionTransaction(ctx context.Context, params store.TransitionParams) (tx *models.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opTransition, start, store.Kind(err)) }()

	tx, err = s.store.TransitionTransaction(ctx, params)
	if err != nil {
		zap.L().Warn("Transition transaction failed",
			zap.String("transaction_id", params.Id),
			zap.String("expected_status", params.ExpectedCurrentStatus.String()),
			zap.String("target_status", params.TargetStatus.String()),
			zap.String("kind", store.Kind(err)),
			zap.Error(err))
		return nil, err
	}

	metrics.Transitions.WithLabelValues(tx.Status.String()).Inc()
	s.publish(ctx, events.NewTransactionEvent(events.EventTypeFor(tx.Status), tx, params.ExpectedCurrentStatus))

	return tx, nil
}

// ListTransactions returns records in one status, oldest first
func (s *LedgerService) ListTransactions(ctx context.Context, params store.ListParams) (txs []models.Transaction, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opList, start, store.Kind(err)) }()

	return s.store.ListTransactionsByStatus(ctx, params)
}
