package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// setupTestDb opens a file-backed SQLite database so concurrent connections share state.
func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Driver:       DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		PingTimeout:  time.Second,
		QueryTimeout: 10 * time.Second,
		BusyTimeout:  10 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func usdParams(key string) store.CreateTransactionParams {
	return store.CreateTransactionParams{
		SenderAccountId:   "A",
		ReceiverAccountId: "B",
		Amount:            decimal.RequireFromString("100.00"),
		Currency:          "USD",
		IdempotencyKey:    key,
	}
}

func countTransactions(t *testing.T, service *Service) int {
	t.Helper()
	var n int
	if err := service.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		t.Fatalf("Failed to count transactions: %v", err)
	}
	return n
}

func TestCreateTransaction_Pending(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	tx, created, err := service.CreateTransaction(context.Background(), usdParams(""))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true for a new record")
	}
	if tx.Id == "" {
		t.Error("Expected a generated id")
	}
	if tx.Status != models.StatusPending {
		t.Errorf("Expected status PENDING, got %s", tx.Status)
	}
	if !tx.CreatedAt.Equal(tx.UpdatedAt) {
		t.Errorf("Expected createdAt == updatedAt, got %v and %v", tx.CreatedAt, tx.UpdatedAt)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected amount 100.00, got %s", tx.Amount.String())
	}

	stored, err := service.GetTransactionById(context.Background(), tx.Id)
	if err != nil {
		t.Fatalf("GetTransactionById failed: %v", err)
	}
	if stored.Id != tx.Id || stored.Status != models.StatusPending || stored.Currency != "USD" {
		t.Errorf("Stored record does not match: %+v", stored)
	}
	if !stored.CreatedAt.Equal(tx.CreatedAt) || !stored.UpdatedAt.Equal(tx.UpdatedAt) {
		t.Errorf("Expected stored timestamps %v/%v, got %v/%v", tx.CreatedAt, tx.UpdatedAt, stored.CreatedAt, stored.UpdatedAt)
	}
}

func TestCreateTransaction_ValidationErrors(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	zero := usdParams("")
	zero.Amount = decimal.Zero
	if _, _, err := service.CreateTransaction(context.Background(), zero); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error for zero amount, got %v", err)
	}

	self := usdParams("")
	self.ReceiverAccountId = self.SenderAccountId
	if _, _, err := service.CreateTransaction(context.Background(), self); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error for sender == receiver, got %v", err)
	}

	if n := countTransactions(t, service); n != 0 {
		t.Errorf("Expected no stored records, got %d", n)
	}
}

func TestCreateTransaction_IdempotentReplay(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	first, created, err := service.CreateTransaction(ctx, usdParams("retry-1"))
	if err != nil {
		t.Fatalf("First CreateTransaction failed: %v", err)
	}
	if !created {
		t.Error("Expected first call to create")
	}

	// Same payload with a different but numerically equal amount representation.
	replay := usdParams("retry-1")
	replay.Amount = decimal.RequireFromString("100")
	second, created, err := service.CreateTransaction(ctx, replay)
	if err != nil {
		t.Fatalf("Replay CreateTransaction failed: %v", err)
	}
	if created {
		t.Error("Expected replay to return created=false")
	}
	if second.Id != first.Id {
		t.Errorf("Expected same id %s, got %s", first.Id, second.Id)
	}
	if n := countTransactions(t, service); n != 1 {
		t.Errorf("Expected exactly one record, got %d", n)
	}
}

func TestCreateTransaction_IdempotencyConflict(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if _, _, err := service.CreateTransaction(ctx, usdParams("key-x")); err != nil {
		t.Fatalf("First CreateTransaction failed: %v", err)
	}

	different := usdParams("key-x")
	different.Amount = decimal.RequireFromString("100.01")
	_, _, err := service.CreateTransaction(ctx, different)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected conflict error, got %v", err)
	}
	if n := countTransactions(t, service); n != 1 {
		t.Errorf("Expected exactly one record, got %d", n)
	}
}

func TestCreateTransaction_ConcurrentSameKey(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, _, err := service.CreateTransaction(context.Background(), usdParams("concurrent-key"))
			errs[i] = err
			if tx != nil {
				ids[i] = tx.Id
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Worker %d failed: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("Worker %d got id %s, expected %s", i, ids[i], ids[0])
		}
	}
	if n := countTransactions(t, service); n != 1 {
		t.Errorf("Expected exactly one record, got %d", n)
	}
}

func TestGetTransactionById_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	for _, id := range []string{"does-not-exist", "", "00000000-0000-0000-0000-000000000000"} {
		tx, err := service.GetTransactionById(context.Background(), id)
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("GetTransactionById(%q): expected not found, got %v", id, err)
		}
		if tx != nil {
			t.Errorf("GetTransactionById(%q): expected nil record, got %+v", id, tx)
		}
	}
}

func TestTransitionTransaction_Scenario(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	// Freeze the clock so updatedAt must be pushed past createdAt.
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	service.now = func() time.Time { return frozen }

	ctx := context.Background()
	tx, _, err := service.CreateTransaction(ctx, usdParams(""))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	completed, err := service.TransitionTransaction(ctx, store.TransitionParams{
		Id:                    tx.Id,
		TargetStatus:          models.StatusCompleted,
		ExpectedCurrentStatus: models.StatusPending,
	})
	if err != nil {
		t.Fatalf("TransitionTransaction failed: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Errorf("Expected status COMPLETED, got %s", completed.Status)
	}
	if !completed.UpdatedAt.After(completed.CreatedAt) {
		t.Errorf("Expected updatedAt > createdAt, got %v <= %v", completed.UpdatedAt, completed.CreatedAt)
	}
	if !completed.CreatedAt.Equal(tx.CreatedAt) {
		t.Errorf("Expected createdAt unchanged %v, got %v", tx.CreatedAt, completed.CreatedAt)
	}

	_, err = service.TransitionTransaction(ctx, store.TransitionParams{
		Id:                    tx.Id,
		TargetStatus:          models.StatusFailed,
		ExpectedCurrentStatus: models.StatusCompleted,
	})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("Expected invalid transition, got %v", err)
	}

	stored, err := service.GetTransactionById(ctx, tx.Id)
	if err != nil {
		t.Fatalf("GetTransactionById failed: %v", err)
	}
	if stored.Status != models.StatusCompleted {
		t.Errorf("Expected stored status COMPLETED, got %s", stored.Status)
	}
}

func TestTransitionTransaction_TerminalStates(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	for _, terminal := range []models.Status{models.StatusCompleted, models.StatusFailed} {
		tx, _, err := service.CreateTransaction(ctx, usdParams(""))
		if err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		if _, err := service.TransitionTransaction(ctx, store.TransitionParams{
			Id: tx.Id, TargetStatus: terminal, ExpectedCurrentStatus: models.StatusPending,
		}); err != nil {
			t.Fatalf("TransitionTransaction to %s failed: %v", terminal, err)
		}

		for _, target := range []models.Status{models.StatusPending, models.StatusCompleted, models.StatusFailed} {
			_, err := service.TransitionTransaction(ctx, store.TransitionParams{
				Id: tx.Id, TargetStatus: target, ExpectedCurrentStatus: terminal,
			})
			if !errors.Is(err, store.ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected invalid transition, got %v", terminal, target, err)
			}
		}
	}
}

func TestTransitionTransaction_StaleExpectedStatus(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	tx, _, err := service.CreateTransaction(ctx, usdParams(""))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	params := store.TransitionParams{Id: tx.Id, TargetStatus: models.StatusFailed, ExpectedCurrentStatus: models.StatusPending}
	if _, err := service.TransitionTransaction(ctx, params); err != nil {
		t.Fatalf("First transition failed: %v", err)
	}

	params.TargetStatus = models.StatusCompleted
	if _, err := service.TransitionTransaction(ctx, params); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Expected conflict for stale expected status, got %v", err)
	}
}

func TestTransitionTransaction_NotFoundAndUnknownStatus(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	_, err := service.TransitionTransaction(ctx, store.TransitionParams{
		Id: "missing", TargetStatus: models.StatusCompleted, ExpectedCurrentStatus: models.StatusPending,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}

	_, err = service.TransitionTransaction(ctx, store.TransitionParams{
		Id: "missing", TargetStatus: models.Status("SETTLED"), ExpectedCurrentStatus: models.StatusPending,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error for unknown status, got %v", err)
	}
}

func TestTransitionTransaction_ConcurrentSingleWinner(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	tx, _, err := service.CreateTransaction(context.Background(), usdParams(""))
	if err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.TransitionTransaction(context.Background(), store.TransitionParams{
				Id:                    tx.Id,
				TargetStatus:          models.StatusCompleted,
				ExpectedCurrentStatus: models.StatusPending,
			})
		}(i)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		default:
			t.Errorf("Worker %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Errorf("Expected exactly one winner, got %d", winners)
	}
	if conflicts != workers-1 {
		t.Errorf("Expected %d conflicts, got %d", workers-1, conflicts)
	}
}

func TestListTransactionsByStatus(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	service.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		tx, _, err := service.CreateTransaction(ctx, usdParams(""))
		if err != nil {
			t.Fatalf("CreateTransaction failed: %v", err)
		}
		ids = append(ids, tx.Id)
	}

	// Complete the second one so it drops out of the PENDING listing.
	if _, err := service.TransitionTransaction(ctx, store.TransitionParams{
		Id: ids[1], TargetStatus: models.StatusCompleted, ExpectedCurrentStatus: models.StatusPending,
	}); err != nil {
		t.Fatalf("TransitionTransaction failed: %v", err)
	}

	pending, err := service.ListTransactionsByStatus(ctx, store.ListParams{
		Status:        models.StatusPending,
		CreatedBefore: base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ListTransactionsByStatus failed: %v", err)
	}
	if len(pending) != 2 || pending[0].Id != ids[0] || pending[1].Id != ids[2] {
		t.Errorf("Expected pending [%s %s], got %+v", ids[0], ids[2], pending)
	}

	// Only the first record was created before minute two.
	older, err := service.ListTransactionsByStatus(ctx, store.ListParams{
		Status:        models.StatusPending,
		CreatedBefore: base.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("ListTransactionsByStatus failed: %v", err)
	}
	if len(older) != 1 || older[0].Id != ids[0] {
		t.Errorf("Expected only %s, got %+v", ids[0], older)
	}

	if _, err := service.ListTransactionsByStatus(ctx, store.ListParams{Status: "BOGUS"}); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected validation error for unknown status, got %v", err)
	}
}
