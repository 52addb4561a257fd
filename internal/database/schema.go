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

// Amounts are TEXT in SQLite so decimals round-trip exactly.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		sender_account_id TEXT NOT NULL,
		receiver_account_id TEXT NOT NULL,
		amount TEXT NOT NULL CHECK (CAST(amount AS REAL) > 0),
		currency TEXT NOT NULL CHECK (length(currency) = 3),
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED')),
		idempotency_key TEXT UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK (sender_account_id <> receiver_account_id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_status_created_at ON transactions(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_account_id);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		sender_account_id TEXT NOT NULL,
		receiver_account_id TEXT NOT NULL,
		amount NUMERIC(18, 6) NOT NULL CHECK (amount > 0),
		currency CHAR(3) NOT NULL,
		status VARCHAR(32) NOT NULL CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED')),
		idempotency_key TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (sender_account_id <> receiver_account_id),
		CHECK (created_at <= updated_at)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_status_created_at ON transactions(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_account_id);
	`
