package importing

import (
	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

// MarkIntraBatch flags duplicates within one import run. The first
// occurrence of a key wins; every later occurrence is flagged with the index
// of the first. Order is extraction order: file submission order, then
// within-file order.
func MarkIntraBatch(candidates []*Candidate) {
	seen := make(map[string]int, len(candidates))

	for i, c := range candidates {
		key := c.Key()

		first, ok := seen[key]
		if !ok {
			seen[key] = i
			continue
		}

		firstIdx := first
		c.IsIntraDuplicate = true
		c.DuplicateOfIndex = &firstIdx
	}
}

// MarkExisting flags candidates whose key matches an already-persisted
// transaction from the recent-history window. Every candidate is checked
// regardless of its intra-batch status. The window is newest-first; when two
// stored rows share a key the newest wins.
func MarkExisting(candidates []*Candidate, existing []*transaction.Transaction) {
	byKey := make(map[string]*transaction.Transaction, len(existing))

	for _, tx := range existing {
		key := existingKey(tx)
		if _, ok := byKey[key]; !ok {
			byKey[key] = tx
		}
	}

	for _, c := range candidates {
		tx, ok := byKey[c.Key()]
		if !ok {
			continue
		}

		id := tx.ID
		c.IsExistingDuplicate = true
		c.ExistingTransactionID = &id
	}
}
