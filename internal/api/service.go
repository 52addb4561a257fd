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
	"fmt"

	"transaction-ledger-go/internal/events"
	"transaction-ledger-go/internal/metrics"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"go.uber.org/zap"
)

// LedgerService fronts a LedgerStore with logging, metrics and lifecycle events
type LedgerService struct {
	store     store.LedgerStore
	publisher events.Publisher
}

func NewLedgerService(s store.LedgerStore, publisher events.Publisher) *LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &LedgerService{
		store:     s,
		publisher: publisher,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// publish never fails the calling operation; the state change is already committed.
func (s *LedgerService) publish(ctx context.Context, event models.TransactionEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		metrics.EventPublishFailures.Inc()
		zap.L().Warn("Failed to publish transaction event",
			zap.String("type", event.Type),
			zap.String("transaction_id", event.Transaction.Id),
			zap.Error(err))
	}
}
