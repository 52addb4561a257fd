package store

import (
	"context"
	"time"

	"transaction-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// CreateTransactionParams contains the parameters for recording a new transfer.
type CreateTransactionParams struct {
	SenderAccountId   string
	ReceiverAccountId string
	Amount            decimal.Decimal
	Currency          string
	IdempotencyKey    string // optional; empty means no deduplication
}

// TransitionParams asks for a status change guarded by the caller's view of the current status.
type TransitionParams struct {
	Id                    string
	TargetStatus          models.Status
	ExpectedCurrentStatus models.Status
}

// ListParams selects records in one status created strictly before CreatedBefore, oldest first.
type ListParams struct {
	Status        models.Status
	CreatedBefore time.Time
	Limit         int
}

// LedgerStore defines the contract that every backend (SQLite, PostgreSQL) must satisfy.
type LedgerStore interface {
	// CreateTransaction validates and persists a new PENDING record. When an idempotency key
	// matches a stored record with the same payload, that record is returned with created=false.
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (tx *models.Transaction, created bool, err error)
	GetTransactionById(ctx context.Context, id string) (*models.Transaction, error)
	TransitionTransaction(ctx context.Context, params TransitionParams) (*models.Transaction, error)
	ListTransactionsByStatus(ctx context.Context, params ListParams) ([]models.Transaction, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
