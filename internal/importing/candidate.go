package importing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/billfold/internal/parser"
	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

// SourcePastedText is the source label for text input, which skips the OCR
// stage.
const SourcePastedText = "pasted text"

// Candidate is an extracted transaction under review. It is never persisted
// directly; overrides live in a separate Overlay so the original extracted
// values survive for diffing.
type Candidate struct {
	ID uuid.UUID
	parser.ParsedTransaction

	SourceLabel           string
	IsIntraDuplicate      bool
	DuplicateOfIndex      *int
	IsExistingDuplicate   bool
	ExistingTransactionID *uuid.UUID
}

func newCandidate(p parser.ParsedTransaction, sourceLabel string) *Candidate {
	return &Candidate{
		ID:                uuid.New(),
		ParsedTransaction: p,
		SourceLabel:       sourceLabel,
	}
}

// Key returns the candidate's comparison fingerprint.
func (c *Candidate) Key() string {
	return ComparisonKey(c.Amount, c.Description, c.Date, string(c.Type))
}

// ComparisonKey derives the equality fingerprint used by both dedup passes.
// It is pure: amounts are rendered at two decimal places so 5.5 and 5.50
// collide, and descriptions are lowercased with internal whitespace
// collapsed. Two transactions with the same key are considered the same
// real-world event.
func ComparisonKey(amount decimal.Decimal, description string, date time.Time, txType string) string {
	return strings.Join([]string{
		amount.Round(2).StringFixed(2),
		normalizeDescription(description),
		date.Format(time.DateOnly),
		txType,
	}, "|")
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func existingKey(tx *transaction.Transaction) string {
	return ComparisonKey(tx.Amount, tx.Description, tx.Date, string(tx.Type))
}
