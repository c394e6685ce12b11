package importing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/billfold/internal/category"
	"github.com/MrJamesThe3rd/billfold/internal/parser"
	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

// State names the orchestrator's pipeline stages, surfaced through progress
// reporting.
type State string

const (
	StateIdle             State = "idle"
	StateUploading        State = "uploading"
	StateExtracting       State = "extracting"
	StateDeduping         State = "deduping"
	StateCheckingExisting State = "checking_existing"
	StateReadyForReview   State = "ready_for_review"
	StateSaving           State = "saving"
)

var (
	// ErrNoInput means the call carried no files or empty text.
	ErrNoInput = errors.New("no input provided")
	// ErrNoTransactions is the only run-fatal upload condition: zero
	// transactions extracted across all inputs.
	ErrNoTransactions = errors.New("no transactions found in any input")
)

// TextExtractor is the OCR boundary.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte) (string, error)
}

// TransactionParser is the LLM structured-extraction boundary.
type TransactionParser interface {
	Parse(ctx context.Context, text string, categoryNames []string) ([]parser.ParsedTransaction, error)
}

// CategoryLister supplies the user's categories for suggestion bias and
// resolution.
type CategoryLister interface {
	List(ctx context.Context, userID uuid.UUID) ([]category.Category, error)
}

// TransactionStore is the persistence collaborator.
type TransactionStore interface {
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*transaction.Transaction, error)
	GetMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*transaction.Transaction, error)
	InsertMany(ctx context.Context, userID uuid.UUID, params []transaction.CreateParams) ([]*transaction.Transaction, error)
	UpdatePartial(ctx context.Context, userID, id uuid.UUID, patch transaction.Patch) error
}

// ProgressFunc receives incremental pipeline status so long runs are never
// silent. current/total are per-unit (one file at a time).
type ProgressFunc func(state State, current, total int, detail string)

// Service drives the import pipeline end to end: extraction, both dedup
// passes, category resolution, and the final commit.
type Service struct {
	ocr          TextExtractor
	parser       TransactionParser
	categories   CategoryLister
	store        TransactionStore
	recentWindow int
	fileTimeout  time.Duration

	// OnProgress, when set, is invoked on stage transitions.
	OnProgress ProgressFunc
}

func NewService(
	ocr TextExtractor,
	txParser TransactionParser,
	categories CategoryLister,
	store TransactionStore,
	recentWindow int,
	fileTimeout time.Duration,
) *Service {
	return &Service{
		ocr:          ocr,
		parser:       txParser,
		categories:   categories,
		store:        store,
		recentWindow: recentWindow,
		fileTimeout:  fileTimeout,
	}
}

// File is one uploaded statement image.
type File struct {
	Name string
	Data []byte
}

// ImportFiles runs the pipeline over one or more uploaded images. Files are
// processed sequentially: OCR backends are memory-heavy and one-at-a-time
// keeps progress reporting deterministic. Per-file failures are recorded in
// the file's status and processing continues; the run fails only when every
// file yields nothing.
func (s *Service) ImportFiles(ctx context.Context, userID uuid.UUID, files []File) (*ReviewSet, error) {
	if len(files) == 0 {
		return nil, ErrNoInput
	}

	s.notify(StateUploading, 0, len(files), "")

	categories, err := s.categories.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	names := categoryNames(categories)

	var (
		candidates []*Candidate
		statuses   = make([]FileStatus, 0, len(files))
		texts      []string
	)

	for i, f := range files {
		s.notify(StateExtracting, i+1, len(files), f.Name)

		status := FileStatus{Name: f.Name}

		parsed, text, err := s.processFile(ctx, f, names)
		if err != nil {
			slog.Error("failed to process file", "file", f.Name, "error", err)

			status.Error = err.Error()
			statuses = append(statuses, status)

			continue
		}

		status.Count = len(parsed)
		statuses = append(statuses, status)

		if text != "" {
			texts = append(texts, text)
		}

		for _, p := range parsed {
			candidates = append(candidates, newCandidate(p, f.Name))
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNoTransactions
	}

	set, err := s.buildReview(ctx, userID, candidates, categories)
	if err != nil {
		return nil, err
	}

	set.FileStatuses = statuses
	set.ExtractedText = strings.Join(texts, "\n\n")

	return set, nil
}

// processFile is the fused OCR+parse path for one file, bounded by the
// end-to-end per-file ceiling.
func (s *Service) processFile(ctx context.Context, f File, categoryNames []string) ([]parser.ParsedTransaction, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fileTimeout)
	defer cancel()

	text, err := s.ocr.Extract(ctx, f.Data)
	if err != nil {
		return nil, "", fmt.Errorf("extracting text: %w", err)
	}

	parsed, err := s.parser.Parse(ctx, text, categoryNames)
	if err != nil {
		return nil, "", fmt.Errorf("parsing transactions: %w", err)
	}

	return parsed, text, nil
}

// ImportText runs the pipeline on pasted statement text: same stages minus
// OCR and the per-file loop.
func (s *Service) ImportText(ctx context.Context, userID uuid.UUID, text string) (*ReviewSet, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoInput
	}

	categories, err := s.categories.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	s.notify(StateExtracting, 1, 1, SourcePastedText)

	parsed, err := s.parser.Parse(ctx, text, categoryNames(categories))
	if err != nil {
		return nil, fmt.Errorf("parsing transactions: %w", err)
	}

	if len(parsed) == 0 {
		return nil, ErrNoTransactions
	}

	candidates := make([]*Candidate, 0, len(parsed))
	for _, p := range parsed {
		candidates = append(candidates, newCandidate(p, SourcePastedText))
	}

	set, err := s.buildReview(ctx, userID, candidates, categories)
	if err != nil {
		return nil, err
	}

	set.FileStatuses = []FileStatus{{Name: SourcePastedText, Count: len(candidates)}}
	set.ExtractedText = text

	return set, nil
}

// buildReview runs both dedup passes and category resolution over the
// concatenated candidate list, then assembles the default selection and
// overlays.
func (s *Service) buildReview(ctx context.Context, userID uuid.UUID, candidates []*Candidate, categories []category.Category) (*ReviewSet, error) {
	s.notify(StateDeduping, len(candidates), len(candidates), "")
	MarkIntraBatch(candidates)

	s.notify(StateCheckingExisting, len(candidates), len(candidates), "")

	recent, err := s.store.ListRecent(ctx, userID, s.recentWindow)
	if err != nil {
		return nil, fmt.Errorf("loading recent transactions: %w", err)
	}

	MarkExisting(candidates, recent)

	overlays := make(map[uuid.UUID]*Overlay, len(candidates))
	selected := make(map[uuid.UUID]bool)

	for _, c := range candidates {
		ov := &Overlay{
			Amount: c.Amount,
			Date:   c.Date,
			Type:   transaction.Type(c.Type),
		}

		if c.Type == parser.TypeExpense && c.SuggestedCategory != "" {
			if id, ok := category.Resolve(c.SuggestedCategory, categories); ok {
				ov.CategoryID = &id
			}
		}

		overlays[c.ID] = ov

		// Duplicates of either flavor start deselected: plain insertion
		// is never the default for them.
		if !c.IsIntraDuplicate && !c.IsExistingDuplicate {
			selected[c.ID] = true
		}
	}

	s.notify(StateReadyForReview, len(candidates), len(candidates), "")

	return &ReviewSet{
		Candidates: candidates,
		Overlays:   overlays,
		Selected:   selected,
	}, nil
}

// CommitResult summarizes a commit run. Merge updates are best-effort:
// FailedUpdates counts the ones that errored while the rest proceeded.
type CommitResult struct {
	Inserted      int
	Updated       int
	FailedUpdates int
	Skipped       int
}

// Commit persists the reviewed selection: one all-or-nothing insert batch,
// then individual merge updates that continue past per-item failures.
func (s *Service) Commit(ctx context.Context, userID uuid.UUID, set *ReviewSet) (*CommitResult, error) {
	s.notify(StateSaving, 0, len(set.Candidates), "")

	existing, err := s.loadMergeTargets(ctx, userID, set)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(set.Candidates, set.Overlays, set.Selected, existing)
	if err != nil {
		return nil, err
	}

	result := &CommitResult{Skipped: plan.Skipped}

	if len(plan.Inserts) > 0 {
		inserted, err := s.store.InsertMany(ctx, userID, plan.Inserts)
		if err != nil {
			return nil, fmt.Errorf("inserting transactions: %w", err)
		}

		result.Inserted = len(inserted)
	}

	for _, update := range plan.Updates {
		if err := s.store.UpdatePartial(ctx, userID, update.ID, update.Patch); err != nil {
			slog.Error("failed to merge transaction", "id", update.ID, "error", err)

			result.FailedUpdates++

			continue
		}

		result.Updated++
	}

	s.notify(StateIdle, len(set.Candidates), len(set.Candidates), "")

	return result, nil
}

// loadMergeTargets fetches the stored transactions referenced by
// merge-flagged existing duplicates, for the no-op diff.
func (s *Service) loadMergeTargets(ctx context.Context, userID uuid.UUID, set *ReviewSet) (map[uuid.UUID]*transaction.Transaction, error) {
	var ids []uuid.UUID

	for _, c := range set.Candidates {
		if !set.Selected[c.ID] || !c.IsExistingDuplicate || c.ExistingTransactionID == nil {
			continue
		}

		if ov := set.Overlays[c.ID]; ov != nil && ov.Merge {
			ids = append(ids, *c.ExistingTransactionID)
		}
	}

	if len(ids) == 0 {
		return nil, nil
	}

	stored, err := s.store.GetMany(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("loading merge targets: %w", err)
	}

	byID := make(map[uuid.UUID]*transaction.Transaction, len(stored))
	for _, tx := range stored {
		byID[tx.ID] = tx
	}

	return byID, nil
}

func (s *Service) notify(state State, current, total int, detail string) {
	if s.OnProgress == nil {
		return
	}

	s.OnProgress(state, current, total, detail)
}

func categoryNames(categories []category.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	return names
}
