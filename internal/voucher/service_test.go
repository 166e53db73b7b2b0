package voucher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(repo voucher.Repository) *voucher.Service {
	return voucher.NewService(repo, voucher.WithClock(func() time.Time { return fixedNow }))
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		in        voucher.Input
		setupMock func(m *voucher.MockRepository)
		wantErr   error
	}

	valid := voucher.Input{Code: " NEWYEAR ", DiscountPercent: "15", ExpiryDate: "2025-12-31"}

	tests := []testCase{
		{
			name: "Success",
			in:   valid,
			setupMock: func(m *voucher.MockRepository) {
				m.EXPECT().CodeExists(gomock.Any(), "NEWYEAR", int64(0)).Return(false, nil)
				m.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, v *voucher.Voucher) error {
						v.ID = 7
						return nil
					})
			},
		},
		{
			name:    "Invalid",
			in:      voucher.Input{Code: "X", DiscountPercent: "101", ExpiryDate: "2025-12-31"},
			wantErr: voucher.ErrValidation,
		},
		{
			name: "Duplicate",
			in:   valid,
			setupMock: func(m *voucher.MockRepository) {
				m.EXPECT().CodeExists(gomock.Any(), "NEWYEAR", int64(0)).Return(true, nil)
			},
			wantErr: voucher.ErrDuplicateCode,
		},
		{
			name: "RepoError",
			in:   valid,
			setupMock: func(m *voucher.MockRepository) {
				m.EXPECT().CodeExists(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := voucher.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := newService(repo).Create(context.Background(), tt.in)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, voucher.ErrValidation) || errors.Is(tt.wantErr, voucher.ErrDuplicateCode) {
					assert.ErrorIs(t, err, tt.wantErr)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(7), got.ID)
			assert.Equal(t, "NEWYEAR", got.Code)
			assert.Equal(t, 15, got.DiscountPercent)
			assert.Equal(t, fixedNow, got.CreatedAt)
			assert.Equal(t, fixedNow, got.UpdatedAt)
		})
	}
}

func TestService_Update(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := voucher.Input{Code: "SPRING", DiscountPercent: "50", ExpiryDate: "2025-05-01"}

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := voucher.NewMockRepository(ctrl)
		existing := &voucher.Voucher{ID: 3, Code: "OLD", DiscountPercent: 5, CreatedAt: created, UpdatedAt: created}

		repo.EXPECT().Get(gomock.Any(), int64(3)).Return(existing, nil)
		repo.EXPECT().CodeExists(gomock.Any(), "SPRING", int64(3)).Return(false, nil)
		repo.EXPECT().Update(gomock.Any(), existing).Return(nil)

		got, err := newService(repo).Update(context.Background(), 3, in)
		require.NoError(t, err)

		assert.Equal(t, int64(3), got.ID)
		assert.Equal(t, "SPRING", got.Code)
		assert.Equal(t, 50, got.DiscountPercent)
		assert.Equal(t, created, got.CreatedAt)
		assert.Equal(t, fixedNow, got.UpdatedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := voucher.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), int64(9)).Return(nil, voucher.ErrNotFound)

		_, err := newService(repo).Update(context.Background(), 9, in)
		assert.ErrorIs(t, err, voucher.ErrNotFound)
	})

	t.Run("DuplicateOfAnotherVoucher", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := voucher.NewMockRepository(ctrl)
		repo.EXPECT().Get(gomock.Any(), int64(3)).Return(&voucher.Voucher{ID: 3}, nil)
		repo.EXPECT().CodeExists(gomock.Any(), "SPRING", int64(3)).Return(true, nil)

		_, err := newService(repo).Update(context.Background(), 3, in)
		assert.ErrorIs(t, err, voucher.ErrDuplicateCode)
	})
}

func TestService_List_NormalizesQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := voucher.NewMockRepository(ctrl)
	want := voucher.Page{Items: []*voucher.Voucher{{ID: 1}}}

	repo.EXPECT().List(gomock.Any(), voucher.DefaultQuery()).Return(want, nil)

	got, err := newService(repo).List(context.Background(), voucher.Query{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := voucher.NewMockRepository(ctrl)
	itx := voucher.NewMockImportTx(ctrl)

	rows := []voucher.Row{
		row(1, "A1", "10", "2025-01-01"),
		row(2, "EXISTING", "20", "2025-02-01"),
	}

	repo.EXPECT().BeginImport(gomock.Any()).Return(itx, nil)
	itx.EXPECT().Codes(gomock.Any()).Return([]string{"existing"}, nil)
	itx.EXPECT().
		CreateVouchers(gomock.Any(), gomock.Len(1)).
		DoAndReturn(func(_ context.Context, vs []*voucher.Voucher) error {
			vs[0].ID = 100
			return nil
		})
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	got, err := newService(repo).Import(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalRows)
	assert.Equal(t, 1, got.SuccessCount)
	assert.Equal(t, []voucher.RowFailure{{Row: 2, Reason: "voucher_code already exists"}}, got.Failures)
	assert.Equal(t, int64(100), got.Created[0].ID)
}

func TestService_Import_NothingToCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := voucher.NewMockRepository(ctrl)
	itx := voucher.NewMockImportTx(ctrl)

	repo.EXPECT().BeginImport(gomock.Any()).Return(itx, nil)
	itx.EXPECT().Codes(gomock.Any()).Return(nil, nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	got, err := newService(repo).Import(context.Background(), []voucher.Row{row(1, "", "", "")})
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailureCount)
	assert.Zero(t, got.SuccessCount)
}

func TestService_Import_CreateFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := voucher.NewMockRepository(ctrl)
	itx := voucher.NewMockImportTx(ctrl)

	repo.EXPECT().BeginImport(gomock.Any()).Return(itx, nil)
	itx.EXPECT().Codes(gomock.Any()).Return(nil, nil)
	itx.EXPECT().CreateVouchers(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))
	itx.EXPECT().Rollback().Return(nil)

	_, err := newService(repo).Import(context.Background(), []voucher.Row{row(1, "A", "5", "2025-01-01")})
	assert.Error(t, err)
}

func TestService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := voucher.NewMockRepository(ctrl)
	repo.EXPECT().ListAll(gomock.Any(), voucher.DefaultQuery()).Return([]*voucher.Voucher{
		{DiscountPercent: 10, ExpiryDate: fixedNow.AddDate(0, 0, -1)},
		{DiscountPercent: 30, ExpiryDate: fixedNow.AddDate(0, 2, 0)},
	}, nil)

	got, err := newService(repo).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, voucher.Stats{Total: 2, Active: 1, Expired: 1, AverageDiscount: 20}, got)
}
