package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	PatchTransaction(ctx context.Context, userID, id uuid.UUID, patch Patch) error

	ListTransactions(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error)
	ListRecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Amount      decimal.Decimal
	Type        Type
	Description string
	Date        time.Time
	CategoryID  *uuid.UUID
}

type ListFilter struct {
	Type      *Type
	StartDate *time.Time
	EndDate   *time.Time
}

// Patch describes a partial update. Nil fields are left untouched; a
// Category with Valid=false clears the stored category.
type Patch struct {
	Amount   *decimal.Decimal
	Category *uuid.NullUUID
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Amount == nil && p.Category == nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Transaction, error) {
	tx := paramsToTransaction(userID, params)
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// InsertMany persists a batch of new transactions in a single database
// transaction. The batch is all-or-nothing.
func (s *Service) InsertMany(ctx context.Context, userID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = paramsToTransaction(userID, p)
	}

	if err := s.repo.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	return txs, nil
}

// UpdatePartial applies a partial update to a stored transaction.
func (s *Service) UpdatePartial(ctx context.Context, userID, id uuid.UUID, patch Patch) error {
	if patch.Empty() {
		return nil
	}

	return s.repo.PatchTransaction(ctx, userID, id, patch)
}

// ListRecent returns the most recent transactions for duplicate comparison,
// newest first, bounded by limit.
func (s *Service) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error) {
	return s.repo.ListRecentTransactions(ctx, userID, limit)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

// GetMany loads the referenced transactions; ids that no longer exist are
// silently absent from the result.
func (s *Service) GetMany(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return s.repo.GetTransactions(ctx, userID, ids)
}

func (s *Service) Update(ctx context.Context, tx *Transaction) error {
	return s.repo.UpdateTransaction(ctx, tx)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, userID, id)
}

func paramsToTransaction(userID uuid.UUID, p CreateParams) *Transaction {
	categoryID := p.CategoryID
	if p.Type == TypeIncome {
		categoryID = nil
	}

	return &Transaction{
		UserID:      userID,
		Amount:      p.Amount,
		Type:        p.Type,
		Description: p.Description,
		Date:        p.Date,
		CategoryID:  categoryID,
	}
}
