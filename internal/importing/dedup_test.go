package importing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/billfold/internal/parser"
	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

func testCandidate(amount string, description string, date time.Time, txType parser.Type) *Candidate {
	return newCandidate(parser.ParsedTransaction{
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Date:        date,
		Type:        txType,
	}, "statement.png")
}

func TestComparisonKey(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		a    *Candidate
		b    *Candidate
		same bool
	}{
		"IdenticalFields": {
			a:    testCandidate("5.50", "Coffee", date, parser.TypeExpense),
			b:    testCandidate("5.50", "Coffee", date, parser.TypeExpense),
			same: true,
		},
		"AmountScaleCollides": {
			a:    testCandidate("5.5", "Coffee", date, parser.TypeExpense),
			b:    testCandidate("5.50", "Coffee", date, parser.TypeExpense),
			same: true,
		},
		"CaseAndWhitespaceCollide": {
			a:    testCandidate("12.00", "  STARBUCKS   Coffee ", date, parser.TypeExpense),
			b:    testCandidate("12.00", "starbucks coffee", date, parser.TypeExpense),
			same: true,
		},
		"DifferentAmount": {
			a:    testCandidate("5.50", "Coffee", date, parser.TypeExpense),
			b:    testCandidate("5.51", "Coffee", date, parser.TypeExpense),
			same: false,
		},
		"DifferentDate": {
			a:    testCandidate("5.50", "Coffee", date, parser.TypeExpense),
			b:    testCandidate("5.50", "Coffee", date.AddDate(0, 0, 1), parser.TypeExpense),
			same: false,
		},
		"DifferentType": {
			a:    testCandidate("5.50", "Refund coffee", date, parser.TypeExpense),
			b:    testCandidate("5.50", "Refund coffee", date, parser.TypeIncome),
			same: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, tt.a.Key(), tt.b.Key())
			} else {
				assert.NotEqual(t, tt.a.Key(), tt.b.Key())
			}
		})
	}
}

func TestMarkIntraBatch(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	// A, B, A', C, A'' where A, A', A'' share a key.
	candidates := []*Candidate{
		testCandidate("5.50", "Coffee", date, parser.TypeExpense),
		testCandidate("30.00", "Groceries", date, parser.TypeExpense),
		testCandidate("5.5", "coffee", date, parser.TypeExpense),
		testCandidate("9.99", "Streaming", date, parser.TypeExpense),
		testCandidate("5.50", " Coffee ", date, parser.TypeExpense),
	}

	MarkIntraBatch(candidates)

	assert.False(t, candidates[0].IsIntraDuplicate)
	assert.False(t, candidates[1].IsIntraDuplicate)
	assert.False(t, candidates[3].IsIntraDuplicate)

	require.True(t, candidates[2].IsIntraDuplicate)
	require.NotNil(t, candidates[2].DuplicateOfIndex)
	assert.Equal(t, 0, *candidates[2].DuplicateOfIndex)

	require.True(t, candidates[4].IsIntraDuplicate)
	require.NotNil(t, candidates[4].DuplicateOfIndex)
	assert.Equal(t, 0, *candidates[4].DuplicateOfIndex)
}

func TestMarkExisting(t *testing.T) {
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	newest := &transaction.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      decimal.RequireFromString("5.50"),
		Type:        transaction.TypeExpense,
		Description: "Coffee",
		Date:        date,
	}
	older := &transaction.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      decimal.RequireFromString("5.50"),
		Type:        transaction.TypeExpense,
		Description: "coffee",
		Date:        date,
	}
	unrelated := &transaction.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      decimal.RequireFromString("100.00"),
		Type:        transaction.TypeExpense,
		Description: "Rent",
		Date:        date,
	}

	candidates := []*Candidate{
		testCandidate("5.50", "Coffee", date, parser.TypeExpense),
		testCandidate("42.00", "New purchase", date, parser.TypeExpense),
		testCandidate("5.5", "COFFEE", date, parser.TypeExpense),
	}

	// An intra duplicate still gets checked against history.
	MarkIntraBatch(candidates)
	require.True(t, candidates[2].IsIntraDuplicate)

	// Window arrives newest-first, so the newest stored row wins the key.
	MarkExisting(candidates, []*transaction.Transaction{newest, older, unrelated})

	require.True(t, candidates[0].IsExistingDuplicate)
	require.NotNil(t, candidates[0].ExistingTransactionID)
	assert.Equal(t, newest.ID, *candidates[0].ExistingTransactionID)

	assert.False(t, candidates[1].IsExistingDuplicate)
	assert.Nil(t, candidates[1].ExistingTransactionID)

	require.True(t, candidates[2].IsExistingDuplicate)
	assert.Equal(t, newest.ID, *candidates[2].ExistingTransactionID)
}
