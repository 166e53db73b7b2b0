package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/browse"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/client"
	voucherhttp "github.com/mhakimsaputra17/discount-voucher-management/internal/http"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/login"
	voucherHandler "github.com/mhakimsaputra17/discount-voucher-management/internal/http/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher/memstore"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()

	issuer := auth.NewIssuer("secret", time.Hour)
	svc := voucher.NewService(memstore.New())

	srv := httptest.NewServer(voucherhttp.New(
		voucherhttp.Options{AllowedOrigins: []string{"*"}},
		issuer,
		login.NewHandler(issuer),
		voucherHandler.NewHandler(svc, 1<<20),
	))
	t.Cleanup(srv.Close)

	return srv
}

func loggedIn(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()

	c := client.New(client.Session{BaseURL: srv.URL + "/"}, 5*time.Second)
	require.NoError(t, c.Login(context.Background(), auth.Credentials{Email: "admin@example.com", Password: "pw"}))
	require.NotEmpty(t, c.Session().Token)

	return c
}

func TestClient_Unauthenticated(t *testing.T) {
	srv := newAPI(t)
	c := client.New(client.Session{BaseURL: srv.URL}, 5*time.Second)

	_, err := c.List(context.Background(), voucher.DefaultQuery())
	require.Error(t, err)

	var te *client.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.True(t, client.IsTransport(err))
}

func TestClient_CRUD(t *testing.T) {
	ctx := context.Background()
	c := loggedIn(t, newAPI(t))

	created, err := c.Create(ctx, voucher.Input{Code: "PROMO", DiscountPercent: "15", ExpiryDate: "2099-01-01"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC), created.ExpiryDate)

	_, err = c.Create(ctx, voucher.Input{Code: "promo", DiscountPercent: "5", ExpiryDate: "2099-01-01"})
	assert.ErrorIs(t, err, voucher.ErrDuplicateCode)

	_, err = c.Create(ctx, voucher.Input{Code: "", DiscountPercent: "5", ExpiryDate: "2099-01-01"})
	assert.ErrorIs(t, err, voucher.ErrValidation)

	var ve *voucher.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "voucher_code is required", ve.Fields[voucher.FieldCode])

	updated, err := c.Update(ctx, created.ID, voucher.Input{Code: "PROMO", DiscountPercent: "25", ExpiryDate: "2099-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.DiscountPercent)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.DiscountPercent)

	page, err := c.List(ctx, voucher.Query{Search: "pro", Page: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Pagination.Limit)

	require.NoError(t, c.Delete(ctx, created.ID))
	assert.ErrorIs(t, c.Delete(ctx, created.ID), voucher.ErrNotFound)
}

func TestClient_ImportExportStats(t *testing.T) {
	ctx := context.Background()
	c := loggedIn(t, newAPI(t))

	csv := "voucher_code,discount_percent,expiry_date\nA1,10,2099-01-01\nA1,20,2099-02-01\nB2,150,2099-03-01\nC3,30,2000-04-01\n"

	res, err := c.Import(ctx, "vouchers.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalRows)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, []voucher.RowFailure{
		{Row: 2, Reason: "duplicate voucher_code in file"},
		{Row: 3, Reason: "discount_percent must be between 1 and 100"},
	}, res.Failures)

	_, err = c.Import(ctx, "bad.csv", strings.NewReader("nope\n"))
	assert.ErrorIs(t, err, voucher.ErrFormat)
	assert.NotErrorIs(t, err, voucher.ErrValidation)

	var buf bytes.Buffer
	require.NoError(t, c.Export(ctx, voucher.Query{Sort: voucher.SortDiscount, Order: voucher.OrderDesc}, &buf))
	assert.Equal(t, "voucher_code,discount_percent,expiry_date\nC3,30,2000-04-01\nA1,10,2099-01-01\n", buf.String())

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, voucher.Stats{Total: 2, Active: 1, Expired: 1, AverageDiscount: 20}, st)
}

func TestClient_ErrorsMatchLocalSource(t *testing.T) {
	ctx := context.Background()
	remote := loggedIn(t, newAPI(t))
	local := browse.NewLocal(voucher.NewService(memstore.New()))

	sources := map[string]browse.Source{"remote": remote, "local": local}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			_, err := src.Import(ctx, "bad.csv", strings.NewReader("code,pct\nA,1\n"))
			assert.ErrorIs(t, err, voucher.ErrFormat)

			_, err = src.Create(ctx, voucher.Input{Code: "X", DiscountPercent: "0", ExpiryDate: "2099-01-01"})
			assert.ErrorIs(t, err, voucher.ErrValidation)

			_, err = src.Update(ctx, 999, voucher.Input{Code: "X", DiscountPercent: "5", ExpiryDate: "2099-01-01"})
			assert.ErrorIs(t, err, voucher.ErrNotFound)
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := newAPI(t)
	url := srv.URL
	srv.Close()

	c := client.New(client.Session{BaseURL: url, Token: "x"}, time.Second)

	_, err := c.List(context.Background(), voucher.DefaultQuery())

	var te *client.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.False(t, errors.Is(err, voucher.ErrNotFound))
}
