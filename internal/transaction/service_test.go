package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/billfold/internal/transaction"
)

func TestService_Create(t *testing.T) {
	type args struct {
		params transaction.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{
				params: transaction.CreateParams{
					Amount:      decimal.NewFromFloat(10.00),
					Type:        transaction.TypeExpense,
					Description: "Test Transaction",
					Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()
						return nil
					})
			},
			wantErr: false,
		},
		{
			name: "RepoError",
			args: args{
				params: transaction.CreateParams{
					Amount: decimal.NewFromFloat(5.00),
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.Create(context.Background(), uuid.New(), tt.args.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, got)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_Create_IncomeForcesNilCategory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	categoryID := uuid.New()

	repo.EXPECT().
		CreateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
			assert.Nil(t, tx.CategoryID)
			tx.ID = uuid.New()
			return nil
		})

	_, err := svc.Create(context.Background(), uuid.New(), transaction.CreateParams{
		Amount:      decimal.NewFromFloat(2000.00),
		Type:        transaction.TypeIncome,
		Description: "Salary Deposit",
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CategoryID:  &categoryID,
	})
	require.NoError(t, err)
}

func TestService_InsertMany(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	userID := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{
			Amount:      decimal.NewFromFloat(5.50),
			Type:        transaction.TypeExpense,
			Description: "Coffee Shop",
			Date:        date,
		},
		{
			Amount:      decimal.NewFromFloat(2000.00),
			Type:        transaction.TypeIncome,
			Description: "Salary Deposit",
			Date:        date,
		},
	}

	repo.EXPECT().
		CreateTransactions(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
			require.Len(t, txs, 2)
			assert.Equal(t, userID, txs[0].UserID)
			assert.Equal(t, "Coffee Shop", txs[0].Description)
			return nil
		})

	txs, err := svc.InsertMany(context.Background(), userID, params)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestService_InsertMany_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	// No repository call expected for an empty batch.
	txs, err := svc.InsertMany(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestService_UpdatePartial(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	userID := uuid.New()
	id := uuid.New()
	amount := decimal.NewFromFloat(45.20)
	patch := transaction.Patch{Amount: &amount}

	repo.EXPECT().
		PatchTransaction(gomock.Any(), userID, id, patch).
		Return(nil)

	require.NoError(t, svc.UpdatePartial(context.Background(), userID, id, patch))
}

func TestService_UpdatePartial_EmptyPatchSkipsRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	require.NoError(t, svc.UpdatePartial(context.Background(), uuid.New(), uuid.New(), transaction.Patch{}))
}

func TestService_ListRecent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	userID := uuid.New()

	repo.EXPECT().
		ListRecentTransactions(gomock.Any(), userID, 500).
		Return([]*transaction.Transaction{
			{ID: uuid.New()},
			{ID: uuid.New()},
		}, nil)

	txs, err := svc.ListRecent(context.Background(), userID, 500)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
