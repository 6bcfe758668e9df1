package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/ledger-be/internal/models"
)

// Validation failure kinds. A *ValidationError always wraps exactly one of them.
var (
	ErrMissingField    = errors.New("missing field")
	ErrInvalidType     = errors.New("invalid type")
	ErrSignMismatch    = errors.New("sign mismatch")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrFutureDate      = errors.New("future date")
)

// ValidationError carries the client-facing description of the violated rule.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(kind error, message string) error {
	return &ValidationError{Kind: kind, Message: message}
}

// Draft is an unvalidated transaction payload.
type Draft struct {
	Amount   *decimal.Decimal
	Type     string
	Category string
	Note     string
	Date     string
}

// Validated holds the normalised fields of a draft that passed every rule.
type Validated struct {
	Amount   decimal.Decimal
	Type     models.TransactionType
	Category models.Category
	Note     string
	Date     time.Time
}

// Amounts are stored as NUMERIC(24,2): at most two fractional digits and
// an absolute value below 10^22.
const AmountScale = 2

var maxAmount = decimal.New(1, 22)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validate applies the ledger rules in order and stops at the first failure:
// required fields, type and sign, amount precision and range, category, then
// date not after now.
func Validate(d Draft, now time.Time) (Validated, error) {
	kind := strings.TrimSpace(d.Type)
	category := strings.TrimSpace(d.Category)
	date := strings.TrimSpace(d.Date)

	if d.Amount == nil || d.Amount.IsZero() || kind == "" || category == "" || date == "" {
		return Validated{}, invalid(ErrMissingField, "amount, type, category and date are required")
	}

	t := models.TransactionType(kind)
	if !t.Valid() {
		return Validated{}, invalid(ErrInvalidType, `type must be "income" or "expense"`)
	}
	if t == models.Expense && !d.Amount.IsNegative() {
		return Validated{}, invalid(ErrSignMismatch, "expense amount should be negative")
	}
	if t == models.Income && !d.Amount.IsPositive() {
		return Validated{}, invalid(ErrSignMismatch, "income amount should be positive")
	}

	if !d.Amount.Equal(d.Amount.Round(AmountScale)) {
		return Validated{}, invalid(ErrInvalidAmount, "amount must have at most 2 decimal places")
	}
	if d.Amount.Abs().GreaterThanOrEqual(maxAmount) {
		return Validated{}, invalid(ErrInvalidAmount, "amount is too large")
	}

	c := models.Category(category)
	if !c.Valid() {
		return Validated{}, invalid(ErrInvalidCategory, "invalid category")
	}

	when, err := ParseDate(date)
	if err != nil {
		return Validated{}, invalid(ErrInvalidDate, "date must be YYYY-MM-DD or RFC 3339")
	}
	if when.After(now) {
		return Validated{}, invalid(ErrFutureDate, "date cannot be in the future")
	}

	return Validated{
		Amount:   d.Amount.Round(AmountScale),
		Type:     t,
		Category: c,
		Note:     strings.TrimSpace(d.Note),
		Date:     when,
	}, nil
}

// ParseDate accepts a calendar date (UTC midnight) or a full timestamp.
func ParseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
