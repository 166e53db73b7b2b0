package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name string
		q    voucher.Query
		want string
	}{
		{
			name: "Default",
			q:    voucher.DefaultQuery(),
			want: " ORDER BY expiry_date ASC, id ASC",
		},
		{
			name: "DiscountDesc",
			q:    voucher.Query{Sort: voucher.SortDiscount, Order: voucher.OrderDesc},
			want: " ORDER BY discount_percent DESC, id ASC",
		},
		{
			name: "UnknownColumnFallsBack",
			q:    voucher.Query{Sort: "id; DROP TABLE vouchers", Order: voucher.OrderAsc},
			want: " ORDER BY expiry_date ASC, id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.q))
		})
	}
}

func TestMapWriteErr(t *testing.T) {
	dup := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "vouchers_code_lower_idx"})
	assert.ErrorIs(t, mapWriteErr("creating voucher", dup), voucher.ErrDuplicateCode)

	other := errors.New("connection reset")
	err := mapWriteErr("creating voucher", other)
	assert.ErrorIs(t, err, other)
	assert.EqualError(t, err, "creating voucher: connection reset")
}
