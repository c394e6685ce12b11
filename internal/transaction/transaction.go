package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

var ErrNotFound = errors.New("transaction not found")

// Transaction represents a persisted financial transaction owned by a user.
// Income transactions never carry a category.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Type        Type
	Description string
	Date        time.Time
	CategoryID  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}
