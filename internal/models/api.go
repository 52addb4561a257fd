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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest is the body of a transaction creation call
type CreateTransactionRequest struct {
	SenderAccountId   string          `json:"senderAccountId"`
	ReceiverAccountId string          `json:"receiverAccountId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	IdempotencyKey    string          `json:"idempotencyKey,omitempty"`
}

// TransitionTransactionRequest is the body of a status change call
type TransitionTransactionRequest struct {
	TargetStatus          string `json:"targetStatus"`
	ExpectedCurrentStatus string `json:"expectedCurrentStatus"`
}

// TransactionRecord is the external representation of a transaction
type TransactionRecord struct {
	Id                string          `json:"id"`
	SenderAccountId   string          `json:"senderAccountId"`
	ReceiverAccountId string          `json:"receiverAccountId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            Status          `json:"status"`
	IdempotencyKey    string          `json:"idempotencyKey,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CreateResult pairs the stored record with whether this call inserted it
type CreateResult struct {
	Transaction *Transaction
	Created     bool // false when an idempotent replay returned an existing record
}

// TransactionEvent is published after a committed lifecycle change
type TransactionEvent struct {
	Type          string            `json:"type"` // "created", "completed", "failed"
	Transaction   TransactionRecord `json:"transaction"`
	PreviousState Status            `json:"previousStatus,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// ErrorResponse is the JSON body returned for failed API calls
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ToRecord converts a stored transaction into its API representation
func (t *Transaction) ToRecord() TransactionRecord {
	return TransactionRecord{
		Id:                t.Id,
		SenderAccountId:   t.SenderAccountId,
		ReceiverAccountId: t.ReceiverAccountId,
		Amount:            t.Amount,
		Currency:          t.Currency,
		Status:            t.Status,
		IdempotencyKey:    t.IdempotencyKey,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}
