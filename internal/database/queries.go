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

// Queries use '?' placeholders; the PostgreSQL dialect rebinds them to $n.
const (
	transactionColumns = `
		id, sender_account_id, receiver_account_id, amount, currency, status,
		idempotency_key, created_at, updated_at`

	// The unique index on idempotency_key arbitrates concurrent creates; a losing insert
	// affects no rows and the caller reads the winner.
	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING`

	queryGetTransactionById = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryGetTransactionByIdempotencyKey = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE idempotency_key = ?`

	// Compare-and-swap on status.
	queryTransitionTransaction = `
		UPDATE transactions
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING ` + transactionColumns

	queryListTransactionsByStatus = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = ? AND created_at < ?
		ORDER BY created_at, id
		LIMIT ?`
)

type queries struct {
	insertTransaction              string
	getTransactionById             string
	getTransactionByIdempotencyKey string
	transitionTransaction          string
	listTransactionsByStatus       string
}

func newQueries(d dialect) queries {
	return queries{
		insertTransaction:             d.rebind(queryInsertTransaction),
		getTransactionById:            d.rebind(queryGetTransactionById),
		getTransactionByIdempotencyKey: d.rebind(queryGetTransactionByIdempotencyKey),
		transitionTransaction:         d.rebind(queryTransitionTransaction),
		listTransactionsByStatus:      d.rebind(queryListTransactionsByStatus),
	}
}
