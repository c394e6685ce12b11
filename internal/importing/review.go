package importing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

// ErrNothingToSave means the selection emptied out after duplicate and
// no-op filtering; commit short-circuits instead of issuing a zero-row
// batch.
var ErrNothingToSave = errors.New("nothing to save")

// mergeTolerance is the amount difference below which a merge is considered
// a no-op.
var mergeTolerance = decimal.NewFromFloat(0.01)

// Overlay holds the user's review-stage overrides for one candidate,
// addressed by the candidate's stable id. The candidate's extracted values
// are never mutated; amount, date, and type start out mirroring them.
type Overlay struct {
	Amount     decimal.Decimal  `json:"amount"`
	Date       time.Time        `json:"date"`
	Type       transaction.Type `json:"type"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	// Merge opts an existing-duplicate into reconciliation with its
	// matched stored transaction. Meaningless for other candidates.
	Merge bool `json:"merge"`
}

// FileStatus records the per-file outcome of a multi-file run. Errors here
// are non-fatal details; the run continued past them.
type FileStatus struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// ReviewSet is everything the review stage needs: the ordered candidates,
// their overlays, the default selection, and per-file outcomes. Discarding
// it cancels the import with no persisted side effects.
type ReviewSet struct {
	Candidates    []*Candidate
	Overlays      map[uuid.UUID]*Overlay
	Selected      map[uuid.UUID]bool
	FileStatuses  []FileStatus
	ExtractedText string
}

// MergeUpdate is one queued partial update against a stored transaction.
type MergeUpdate struct {
	ID    uuid.UUID
	Patch transaction.Patch
}

// CommitPlan is the outcome of the pure planning pass: a batch of inserts,
// individually-executed merge updates, and a count of skipped selections.
type CommitPlan struct {
	Inserts []transaction.CreateParams
	Updates []MergeUpdate
	Skipped int
}

// BuildPlan runs the commit algorithm over the selected candidates, in
// candidate order. Intra-batch duplicates are never persisted regardless of
// selection. Existing duplicates are persisted only via explicit merge
// opt-in, and a merge whose effective amount (within 0.01) and category
// match the stored transaction is suppressed as a no-op. existing maps
// stored-transaction id to the stored row for merge diffing.
func BuildPlan(
	candidates []*Candidate,
	overlays map[uuid.UUID]*Overlay,
	selected map[uuid.UUID]bool,
	existing map[uuid.UUID]*transaction.Transaction,
) (*CommitPlan, error) {
	plan := &CommitPlan{}

	for _, c := range candidates {
		if !selected[c.ID] {
			continue
		}

		// Guard even against a selected intra duplicate.
		if c.IsIntraDuplicate {
			plan.Skipped++
			continue
		}

		amount, date, txType, categoryID := effectiveValues(c, overlays[c.ID])

		if c.IsExistingDuplicate && c.ExistingTransactionID != nil {
			ov := overlays[c.ID]
			if ov == nil || !ov.Merge {
				plan.Skipped++
				continue
			}

			stored, ok := existing[*c.ExistingTransactionID]
			if !ok {
				// Matched row vanished since review; nothing to merge.
				plan.Skipped++
				continue
			}

			patch := diffPatch(stored, amount, categoryID)
			if patch.Empty() {
				plan.Skipped++
				continue
			}

			plan.Updates = append(plan.Updates, MergeUpdate{ID: stored.ID, Patch: patch})

			continue
		}

		plan.Inserts = append(plan.Inserts, transaction.CreateParams{
			Amount:      amount,
			Type:        txType,
			Description: c.Description,
			Date:        date,
			CategoryID:  categoryID,
		})
	}

	if len(plan.Inserts) == 0 && len(plan.Updates) == 0 {
		return nil, ErrNothingToSave
	}

	return plan, nil
}

// effectiveValues resolves the overlay against the original extracted
// values. Income forces the category to nil.
func effectiveValues(c *Candidate, ov *Overlay) (decimal.Decimal, time.Time, transaction.Type, *uuid.UUID) {
	amount := c.Amount
	date := c.Date
	txType := transaction.Type(c.Type)

	var categoryID *uuid.UUID

	if ov != nil {
		amount = ov.Amount
		date = ov.Date
		txType = ov.Type
		categoryID = ov.CategoryID
	}

	if txType == transaction.TypeIncome {
		categoryID = nil
	}

	return amount, date, txType, categoryID
}

func diffPatch(stored *transaction.Transaction, amount decimal.Decimal, categoryID *uuid.UUID) transaction.Patch {
	var patch transaction.Patch

	if stored.Amount.Sub(amount).Abs().GreaterThan(mergeTolerance) {
		a := amount
		patch.Amount = &a
	}

	if !uuidPtrEqual(stored.CategoryID, categoryID) {
		nullable := uuid.NullUUID{}
		if categoryID != nil {
			nullable = uuid.NullUUID{UUID: *categoryID, Valid: true}
		}

		patch.Category = &nullable
	}

	return patch
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
