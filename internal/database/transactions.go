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
	"errors"
	"fmt"
	"time"

	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateTransaction validates params and records a new PENDING transaction. A repeated
// idempotency key returns the stored record when the payload matches, and ErrConflict
// otherwise.
func (s *Service) CreateTransaction(ctx context.Context, params store.CreateTransactionParams) (*models.Transaction, bool, error) {
	normalized, err := store.NormalizeCreate(params, s.currencies)
	if err != nil {
		zap.L().Warn("Rejected transaction request", zap.Error(err))
		return nil, false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.timestamp()
	transaction := normalized.ToTransaction()
	transaction.Id = uuid.New().String()
	transaction.Status = models.StatusPending
	transaction.CreatedAt = now
	transaction.UpdatedAt = now

	zap.L().Info("Creating transaction",
		zap.String("transaction_id", transaction.Id),
		zap.String("sender_account_id", transaction.SenderAccountId),
		zap.String("receiver_account_id", transaction.ReceiverAccountId),
		zap.String("amount", transaction.Amount.String()),
		zap.String("currency", transaction.Currency),
		zap.String("idempotency_key", transaction.IdempotencyKey))

	result, err := s.db.ExecContext(ctx, s.queries.insertTransaction,
		transaction.Id, transaction.SenderAccountId, transaction.ReceiverAccountId,
		transaction.Amount.String(), transaction.Currency, string(transaction.Status),
		nullString(transaction.IdempotencyKey), transaction.CreatedAt, transaction.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to insert transaction", zap.String("transaction_id", transaction.Id), zap.Error(err))
		return nil, false, s.storageError("insert transaction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, s.storageError("insert transaction rows affected", err)
	}
	if rowsAffected == 1 {
		zap.L().Info("Transaction created successfully",
			zap.String("transaction_id", transaction.Id),
			zap.String("status", transaction.Status.String()))
		return transaction, true, nil
	}

	// Only the idempotency key can make the insert a no-op.
	if transaction.IdempotencyKey == "" {
		return nil, false, s.storageError("insert transaction", fmt.Errorf("insert affected no rows"))
	}

	existing, err := s.getTransactionByIdempotencyKey(ctx, transaction.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}

	if !existing.SamePayload(transaction) {
		zap.L().Warn("Idempotency key reused with a different payload",
			zap.String("idempotency_key", transaction.IdempotencyKey),
			zap.String("existing_transaction_id", existing.Id))
		return nil, false, fmt.Errorf("%w: idempotency key %q already used for transaction %s with a different payload",
			store.ErrConflict, transaction.IdempotencyKey, existing.Id)
	}

	zap.L().Info("Idempotent replay, returning existing transaction",
		zap.String("idempotency_key", transaction.IdempotencyKey),
		zap.String("transaction_id", existing.Id))
	return existing, false, nil
}

func (s *Service) GetTransactionById(ctx context.Context, id string) (*models.Transaction, error) {
	zap.L().Debug("Querying transaction by ID", zap.String("transaction_id", id))

	if id == "" {
		return nil, fmt.Errorf("%w: empty id", store.ErrNotFound)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, s.queries.getTransactionById, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		zap.L().Error("Failed to query transaction by ID", zap.String("transaction_id", id), zap.Error(err))
		return nil, s.storageError("get transaction", err)
	}

	zap.L().Debug("Retrieved transaction by ID",
		zap.String("transaction_id", id),
		zap.String("status", transaction.Status.String()))
	return transaction, nil
}

func (s *Service) getTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, s.queries.getTransactionByIdempotencyKey, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The conflicting row cannot vanish: records are never deleted.
			return nil, s.storageError("get transaction by idempotency key", fmt.Errorf("no row for key %q after conflict", key))
		}
		zap.L().Error("Failed to query transaction by idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		return nil, s.storageError("get transaction by idempotency key", err)
	}
	return transaction, nil
}

// TransitionTransaction moves a record along the state machine with a compare-and-swap on
// the caller's expected status. Exactly one of several concurrent callers wins; the rest
// get ErrConflict.
func (s *Service) TransitionTransaction(ctx context.Context, params store.TransitionParams) (*models.Transaction, error) {
	if !params.TargetStatus.IsValid() || !params.ExpectedCurrentStatus.IsValid() {
		return nil, store.ValidateTransition(params)
	}

	current, err := s.GetTransactionById(ctx, params.Id)
	if err != nil {
		return nil, err
	}

	if err := store.ValidateTransition(params); err != nil {
		zap.L().Warn("Rejected status transition",
			zap.String("transaction_id", params.Id),
			zap.String("expected_status", params.ExpectedCurrentStatus.String()),
			zap.String("target_status", params.TargetStatus.String()),
			zap.String("stored_status", current.Status.String()))
		return nil, err
	}

	now := s.timestamp()
	if !now.After(current.UpdatedAt) {
		now = current.UpdatedAt.Add(time.Microsecond)
	}

	zap.L().Info("Transitioning transaction",
		zap.String("transaction_id", params.Id),
		zap.String("from", params.ExpectedCurrentStatus.String()),
		zap.String("to", params.TargetStatus.String()))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updated, err := scanTransaction(s.db.QueryRowContext(ctx, s.queries.transitionTransaction,
		string(params.TargetStatus), now, params.Id, string(params.ExpectedCurrentStatus)))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			zap.L().Error("Failed to update transaction status", zap.String("transaction_id", params.Id), zap.Error(err))
			return nil, s.storageError("transition transaction", err)
		}

		// Lost the compare-and-swap: report what is stored now.
		latest, getErr := s.GetTransactionById(ctx, params.Id)
		if getErr != nil {
			return nil, getErr
		}
		zap.L().Info("Status transition lost to a concurrent update",
			zap.String("transaction_id", params.Id),
			zap.String("expected_status", params.ExpectedCurrentStatus.String()),
			zap.String("stored_status", latest.Status.String()))
		return nil, fmt.Errorf("%w: transaction %s is %s, expected %s",
			store.ErrConflict, params.Id, latest.Status, params.ExpectedCurrentStatus)
	}

	zap.L().Info("Transaction transitioned successfully",
		zap.String("transaction_id", updated.Id),
		zap.String("status", updated.Status.String()))
	return updated, nil
}

// ListTransactionsByStatus returns records in one status created before a cutoff, oldest first.
func (s *Service) ListTransactionsByStatus(ctx context.Context, params store.ListParams) ([]models.Transaction, error) {
	if !params.Status.IsValid() {
		return nil, &store.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", params.Status)}
	}
	limit := params.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	createdBefore := params.CreatedBefore
	if createdBefore.IsZero() {
		createdBefore = s.timestamp().Add(time.Microsecond)
	}

	zap.L().Debug("Listing transactions by status",
		zap.String("status", params.Status.String()),
		zap.Time("created_before", createdBefore),
		zap.Int("limit", limit))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.queries.listTransactionsByStatus,
		string(params.Status), createdBefore.UTC(), limit)
	if err != nil {
		zap.L().Error("Failed to list transactions", zap.Error(err))
		return nil, s.storageError("list transactions", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, s.storageError("scan transaction", err)
		}
		transactions = append(transactions, *transaction)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, s.storageError("iterate transactions", err)
	}

	return transactions, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var transaction models.Transaction
	var amountStr, status string
	var idempotencyKey sql.NullString

	err := row.Scan(&transaction.Id, &transaction.SenderAccountId, &transaction.ReceiverAccountId,
		&amountStr, &transaction.Currency, &status, &idempotencyKey,
		&transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	transaction.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	transaction.Status = models.Status(status)
	transaction.IdempotencyKey = idempotencyKey.String
	transaction.CreatedAt = transaction.CreatedAt.UTC()
	transaction.UpdatedAt = transaction.UpdatedAt.UTC()

	return &transaction, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
