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

// Transaction is a money transfer record between two accounts
type Transaction struct {
	Id                string          `db:"id"`
	SenderAccountId   string          `db:"sender_account_id"`
	ReceiverAccountId string          `db:"receiver_account_id"`
	Amount            decimal.Decimal `db:"amount"`
	Currency          string          `db:"currency"`
	Status            Status          `db:"status"`
	IdempotencyKey    string          `db:"idempotency_key"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// SamePayload reports whether two records describe the same transfer request.
// Amounts compare numerically, so 100 and 100.00 are equal.
func (t *Transaction) SamePayload(other *Transaction) bool {
	return t.SenderAccountId == other.SenderAccountId &&
		t.ReceiverAccountId == other.ReceiverAccountId &&
		t.Currency == other.Currency &&
		t.Amount.Equal(other.Amount)
}
