package store

import (
	"fmt"
	"strings"

	"transaction-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	MaxAmountScale       = 6
	MaxAccountIdLength   = 64
	MaxIdempotencyKeyLen = 255
)

// maxAmount is the exclusive upper bound imposed by NUMERIC(18,6).
var maxAmount = decimal.New(1, 12)

// defaultCurrencies is the ISO-4217 subset recognized when no currencies file is configured.
var defaultCurrencies = []string{
	"AED", "ARS", "AUD", "BRL", "CAD", "CHF", "CLP", "CNY", "COP", "CZK",
	"DKK", "EGP", "EUR", "GBP", "GHS", "HKD", "HUF", "IDR", "ILS", "INR",
	"JPY", "KES", "KRW", "MAD", "MXN", "MYR", "NGN", "NOK", "NZD", "PEN",
	"PHP", "PKR", "PLN", "RON", "SAR", "SEK", "SGD", "THB", "TRY", "TWD",
	"UAH", "USD", "VND", "ZAR",
}

// CurrencyRegistry is the set of currency codes the ledger accepts.
type CurrencyRegistry struct {
	codes map[string]struct{}
}

func DefaultCurrencyRegistry() *CurrencyRegistry {
	registry, _ := NewCurrencyRegistry(defaultCurrencies)
	return registry
}

func NewCurrencyRegistry(codes []string) (*CurrencyRegistry, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("currency registry cannot be empty")
	}
	registry := &CurrencyRegistry{codes: make(map[string]struct{}, len(codes))}
	for i, code := range codes {
		normalized := normalizeCurrency(code)
		if !isCurrencyCode(normalized) {
			return nil, fmt.Errorf("currency at index %d is not a 3-letter code: %q", i, code)
		}
		registry.codes[normalized] = struct{}{}
	}
	return registry, nil
}

func (r *CurrencyRegistry) Contains(code string) bool {
	_, ok := r.codes[code]
	return ok
}

func (r *CurrencyRegistry) Len() int {
	return len(r.codes)
}

// NormalizeCreate trims and validates params, returning the canonical form that is persisted
// and compared for idempotent replays.
func NormalizeCreate(params CreateTransactionParams, currencies *CurrencyRegistry) (CreateTransactionParams, error) {
	out := CreateTransactionParams{
		SenderAccountId:   strings.TrimSpace(params.SenderAccountId),
		ReceiverAccountId: strings.TrimSpace(params.ReceiverAccountId),
		Amount:            params.Amount,
		Currency:          normalizeCurrency(params.Currency),
		IdempotencyKey:    strings.TrimSpace(params.IdempotencyKey),
	}

	if err := validateAccountId("senderAccountId", out.SenderAccountId); err != nil {
		return out, err
	}
	if err := validateAccountId("receiverAccountId", out.ReceiverAccountId); err != nil {
		return out, err
	}
	if out.SenderAccountId == out.ReceiverAccountId {
		return out, invalid("receiverAccountId", "must differ from senderAccountId")
	}

	if !out.Amount.IsPositive() {
		return out, invalid("amount", "must be greater than zero")
	}
	if !out.Amount.Equal(out.Amount.Truncate(MaxAmountScale)) {
		return out, invalid("amount", fmt.Sprintf("must have at most %d fractional digits", MaxAmountScale))
	}
	if out.Amount.GreaterThanOrEqual(maxAmount) {
		return out, invalid("amount", "exceeds the maximum supported value")
	}

	if out.Currency == "" {
		return out, invalid("currency", "is required")
	}
	if !isCurrencyCode(out.Currency) {
		return out, invalid("currency", "must be a 3-letter code")
	}
	if currencies != nil && !currencies.Contains(out.Currency) {
		return out, invalid("currency", fmt.Sprintf("%s is not a recognized currency", out.Currency))
	}

	if len(out.IdempotencyKey) > MaxIdempotencyKeyLen {
		return out, invalid("idempotencyKey", fmt.Sprintf("must be at most %d characters", MaxIdempotencyKeyLen))
	}

	return out, nil
}

// ValidateTransition checks the requested edge against the state machine using the
// status the caller expects to be current.
func ValidateTransition(params TransitionParams) error {
	if !params.TargetStatus.IsValid() {
		return invalid("targetStatus", fmt.Sprintf("unknown status %q", params.TargetStatus))
	}
	if !params.ExpectedCurrentStatus.IsValid() {
		return invalid("expectedCurrentStatus", fmt.Sprintf("unknown status %q", params.ExpectedCurrentStatus))
	}
	if !params.ExpectedCurrentStatus.CanTransitionTo(params.TargetStatus) {
		return &TransitionError{From: params.ExpectedCurrentStatus, To: params.TargetStatus}
	}
	return nil
}

func validateAccountId(field, id string) error {
	if id == "" {
		return invalid(field, "is required")
	}
	if len(id) > MaxAccountIdLength {
		return invalid(field, fmt.Sprintf("must be at most %d characters", MaxAccountIdLength))
	}
	return nil
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// ToTransaction builds the record a successful create would persist, used to compare
// a request against a stored record.
func (p CreateTransactionParams) ToTransaction() *models.Transaction {
	return &models.Transaction{
		SenderAccountId:   p.SenderAccountId,
		ReceiverAccountId: p.ReceiverAccountId,
		Amount:            p.Amount,
		Currency:          p.Currency,
		IdempotencyKey:    p.IdempotencyKey,
	}
}
