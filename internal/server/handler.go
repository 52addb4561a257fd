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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"transaction-ledger-go/internal/api"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
	healthCheckTimeout   = 2 * time.Second
)

type Handler struct {
	ledger *api.LedgerService
}

func NewHandler(ledger *api.LedgerService) *Handler {
	return &Handler{ledger: ledger}
}

// CreateTransaction answers 201 for a new record and 200 for an idempotent replay
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	if header := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)); header != "" {
		body := strings.TrimSpace(req.IdempotencyKey)
		if body != "" && body != header {
			respondWithError(w, r, &store.ValidationError{
				Field:  "idempotencyKey",
				Reason: "does not match the Idempotency-Key header",
			})
			return
		}
		req.IdempotencyKey = header
	}

	result, err := h.ledger.CreateTransaction(r.Context(), req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, result.Transaction.ToRecord())
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx.ToRecord())
}

func (h *Handler) TransitionTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.TransitionTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	tx, err := h.ledger.TransitionTransaction(r.Context(), store.TransitionParams{
		Id:                    mux.Vars(r)["id"],
		TargetStatus:          parseStatus(req.TargetStatus),
		ExpectedCurrentStatus: parseStatus(req.ExpectedCurrentStatus),
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tx.ToRecord())
}

// ListTransactions serves GET ?status=PENDING&limit=50
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	status := models.StatusPending
	if raw := query.Get("status"); raw != "" {
		status = parseStatus(raw)
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, r, &store.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		limit = n
	}

	txs, err := h.ledger.ListTransactions(r.Context(), store.ListParams{Status: status, Limit: limit})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	records := make([]models.TransactionRecord, len(txs))
	for i := range txs {
		records[i] = txs[i].ToRecord()
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.ledger.HealthCheck(ctx); err != nil {
		zap.L().Warn("Health check failed", zap.Error(err))
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseStatus normalizes a wire status; unknown values pass through so the store rejects them
// with the offending field named.
func parseStatus(raw string) models.Status {
	if status, ok := models.ParseStatus(raw); ok {
		return status
	}
	return models.Status(raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		return &store.ValidationError{Field: "body", Reason: fmt.Sprintf("is not valid JSON: %v", err)}
	}
	return nil
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch store.Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "invalid_transition":
		return http.StatusUnprocessableEntity
	case "storage":
		if store.IsTransient(err) {
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := models.ErrorResponse{Error: store.Kind(err), Message: err.Error()}

	var ve *store.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body.Message = "the ledger is temporarily unable to serve this request"
	}

	respondWithJSON(w, status, body)
}

func respondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}
