package category

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("category not found")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the user's categories ordered by name.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

// Names returns the category names in list order, used to bias the LLM's
// category suggestions.
func (s *Service) Names(ctx context.Context, userID uuid.UUID) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	return names, nil
}

type CreateParams struct {
	Name  string
	Color *string
	Icon  *string
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Category, error) {
	c := &Category{
		UserID: userID,
		Name:   params.Name,
		Color:  params.Color,
		Icon:   params.Icon,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Update(ctx context.Context, c *Category) error {
	return s.repo.UpdateCategory(ctx, c)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, userID, id)
}
