package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"transaction-ledger-go/internal/api"
	"transaction-ledger-go/internal/database"
	"transaction-ledger-go/internal/events"
	"transaction-ledger-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const testSecret = "test-secret"

func setupTestRouter(t *testing.T, jwtSecret string) (*mux.Router, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:       database.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
		QueryTimeout: 5 * time.Second,
		BusyTimeout:  5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	ledger := api.NewLedgerService(db, events.NopPublisher{})
	return NewRouter(ledger, jwtSecret), db.Close
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeRecord(t *testing.T, rec *httptest.ResponseRecorder) models.TransactionRecord {
	t.Helper()
	var record models.TransactionRecord
	if err := json.NewDecoder(rec.Body).Decode(&record); err != nil {
		t.Fatalf("Failed to decode record: %v (body %q)", err, rec.Body.String())
	}
	return record
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body
}

var createBody = map[string]any{
	"senderAccountId":   "A",
	"receiverAccountId": "B",
	"amount":            "100.00",
	"currency":          "USD",
}

func TestCreateAndReplay(t *testing.T) {
	router, cleanup := setupTestRouter(t, "")
	defer cleanup()

	headers := map[string]string{"Idempotency-Key": "k1"}
	first := doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", first.Code, first.Body.String())
	}
	created := decodeRecord(t, first)
	if created.Status != models.StatusPending {
		t.Errorf("Expected PENDING, got %s", created.Status)
	}
	if created.IdempotencyKey != "k1" {
		t.Errorf("Expected idempotency key k1, got %q", created.IdempotencyKey)
	}

	replay := doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody, headers)
	if replay.Code != http.StatusOK {
		t.Fatalf("Expected 200 on replay, got %d", replay.Code)
	}
	if decodeRecord(t, replay).Id != created.Id {
		t.Error("Expected replay to return the original record")
	}

	changed := map[string]any{
		"senderAccountId":   "A",
		"receiverAccountId": "B",
		"amount":            "101.00",
		"currency":          "USD",
	}
	conflict := doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", changed, headers)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for reused key, got %d", conflict.Code)
	}
	if body := decodeError(t, conflict); body.Error != "conflict" {
		t.Errorf("Expected conflict error kind, got %q", body.Error)
	}
}

func TestCreate_ValidationAndKeyMismatch(t *testing.T) {
	router, cleanup := setupTestRouter(t, "")
	defer cleanup()

	invalid := map[string]any{
		"senderAccountId":   "A",
		"receiverAccountId": "B",
		"amount":            "-1",
		"currency":          "USD",
	}
	rec := doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", invalid, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Field != "amount" {
		t.Errorf("Expected field amount, got %q", body.Field)
	}

	withKey := map[string]any{
		"senderAccountId":   "A",
		"receiverAccountId": "B",
		"amount":            "1",
		"currency":          "USD",
		"idempotencyKey":    "body-key",
	}
	rec = doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", withKey,
		map[string]string{"Idempotency-Key": "header-key"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for mismatched keys, got %d", rec.Code)
	}
}

func TestGetAndTransition(t *testing.T) {
	router, cleanup := setupTestRouter(t, "")
	defer cleanup()

	created := decodeRecord(t, doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody, nil))

	for _, path := range []string{apiPrefix + "/" + created.Id, apiPrefix + "/transactions/" + created.Id} {
		rec := doRequest(t, router, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
		if got := decodeRecord(t, rec); got.Id != created.Id {
			t.Errorf("GET %s: expected id %s, got %s", path, created.Id, got.Id)
		}
	}

	missing := doRequest(t, router, http.MethodGet, apiPrefix+"/does-not-exist", nil, nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing id, got %d", missing.Code)
	}

	transitionPath := apiPrefix + "/transactions/" + created.Id + "/transition"
	rec := doRequest(t, router, http.MethodPost, transitionPath,
		map[string]string{"targetStatus": "completed", "expectedCurrentStatus": "PENDING"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on transition, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeRecord(t, rec); got.Status != models.StatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", got.Status)
	}

	stale := doRequest(t, router, http.MethodPost, transitionPath,
		map[string]string{"targetStatus": "FAILED", "expectedCurrentStatus": "PENDING"}, nil)
	if stale.Code != http.StatusConflict {
		t.Errorf("Expected 409 for stale expected status, got %d", stale.Code)
	}

	illegal := doRequest(t, router, http.MethodPost, transitionPath,
		map[string]string{"targetStatus": "FAILED", "expectedCurrentStatus": "COMPLETED"}, nil)
	if illegal.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for terminal transition, got %d", illegal.Code)
	}

	unknown := doRequest(t, router, http.MethodPost, transitionPath,
		map[string]string{"targetStatus": "SETTLED", "expectedCurrentStatus": "PENDING"}, nil)
	if unknown.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", unknown.Code)
	}
}

func TestListTransactions(t *testing.T) {
	router, cleanup := setupTestRouter(t, "")
	defer cleanup()

	doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody, nil)
	doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody, nil)

	rec := doRequest(t, router, http.MethodGet, apiPrefix+"/transactions?status=pending&limit=10", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var records []models.TransactionRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 pending records, got %d", len(records))
	}

	bad := doRequest(t, router, http.MethodGet, apiPrefix+"/transactions?limit=abc", nil, nil)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", bad.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, cleanup := setupTestRouter(t, testSecret)
	defer cleanup()

	rec := doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", rec.Code)
	}

	wrong := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "svc"})
	wrongSigned, err := wrong.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	rec = doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody,
		map[string]string{"Authorization": "Bearer " + wrongSigned})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 with wrong signature, got %d", rec.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "svc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	rec = doRequest(t, router, http.MethodPost, apiPrefix+"/transactions", createBody,
		map[string]string{"Authorization": "Bearer " + signed})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 with valid token, got %d", rec.Code)
	}

	health := doRequest(t, router, http.MethodGet, "/healthz", nil, nil)
	if health.Code != http.StatusOK {
		t.Errorf("Expected public /healthz to return 200, got %d", health.Code)
	}
}

func TestRequestIdHeader(t *testing.T) {
	router, cleanup := setupTestRouter(t, "")
	defer cleanup()

	rec := doRequest(t, router, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-Id": "req-123"})
	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Errorf("Expected echoed request id req-123, got %q", got)
	}

	rec = doRequest(t, router, http.MethodGet, "/healthz", nil, nil)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("Expected a generated request id")
	}
}
