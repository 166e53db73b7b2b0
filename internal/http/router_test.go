package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/api"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	voucherhttp "github.com/mhakimsaputra17/discount-voucher-management/internal/http"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/login"
	voucherHandler "github.com/mhakimsaputra17/discount-voucher-management/internal/http/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher/memstore"
)

var now = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

type server struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newServer(t *testing.T, seed ...*voucher.Voucher) *server {
	t.Helper()

	clock := func() time.Time { return now }
	issuer := auth.NewIssuer("test-secret", time.Hour).WithClock(clock)
	svc := voucher.NewService(memstore.New(seed...), voucher.WithClock(clock))

	router := voucherhttp.New(
		voucherhttp.Options{AllowedOrigins: []string{"*"}},
		issuer,
		login.NewHandler(issuer),
		voucherHandler.NewHandler(svc, 1<<20),
	)

	tok, err := issuer.Issue("admin@example.com")
	require.NoError(t, err)

	return &server{t: t, router: router, token: tok.Value}
}

func (s *server) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec
}

func (s *server) upload(content string) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "vouchers.csv")
	require.NoError(s.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/vouchers/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func seedVouchers(n int) []*voucher.Voucher {
	out := make([]*voucher.Voucher, 0, n)
	for i := range n {
		out = append(out, &voucher.Voucher{
			Code:            fmt.Sprintf("SEED%02d", i+1),
			DiscountPercent: i%100 + 1,
			ExpiryDate:      now.AddDate(0, 0, i-2),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	s := newServer(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		return rec
	}

	rec := post(`{"email":"someone@example.com","password":"whatever"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.LoginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, now.Add(time.Hour), resp.ExpiresAt.UTC())

	rec = post(`{"email":"nope","password":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errResp := decode[api.Error](t, rec)
	assert.Equal(t, "Invalid email format", errResp.Fields["email"])
	assert.Equal(t, "Password is required", errResp.Fields["password"])
}

func TestVouchers_RequireToken(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "Missing", header: ""},
		{name: "WrongScheme", header: "Basic abc"},
		{name: "Invalid", header: "Bearer dummy-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/vouchers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestVouchers_List(t *testing.T) {
	s := newServer(t, seedVouchers(25)...)

	rec := s.do(http.MethodGet, "/vouchers?page=3&limit=10&sort=expiry_date&order=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.ListResponse](t, rec)
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, api.Pagination{Page: 3, Limit: 10, Total: 25, TotalPages: 3}, resp.Pagination)

	rec = s.do(http.MethodGet, "/vouchers?page=4&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[api.ListResponse](t, rec).Data)

	rec = s.do(http.MethodGet, fmt.Sprintf("/vouchers?page=%d&limit=10", math.MaxInt), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp = decode[api.ListResponse](t, rec)
	assert.Empty(t, resp.Data)
	assert.Equal(t, voucher.MaxPage, resp.Pagination.Page)
	assert.Equal(t, 25, resp.Pagination.Total)

	rec = s.do(http.MethodGet, "/vouchers?q=seed0&sort=discount_percent&order=desc&limit=abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp = decode[api.ListResponse](t, rec)
	require.Len(t, resp.Data, 9)
	assert.Equal(t, "SEED09", resp.Data[0].VoucherCode)
	assert.Equal(t, 10, resp.Pagination.Limit)

	rec = s.do(http.MethodGet, "/vouchers", nil)
	resp = decode[api.ListResponse](t, rec)
	assert.Equal(t, voucher.StatusExpired, resp.Data[0].Status)
	assert.Equal(t, now.AddDate(0, 0, -2).Format(time.DateOnly), resp.Data[0].ExpiryDate)
}

func TestVouchers_CRUD(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/vouchers", map[string]any{
		"voucher_code":     " SUMMER2025 ",
		"discount_percent": 20,
		"expiry_date":      "2025-08-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[api.Voucher](t, rec)
	assert.Equal(t, "SUMMER2025", created.VoucherCode)
	assert.Equal(t, voucher.StatusActive, created.Status)

	rec = s.do(http.MethodPost, "/vouchers", map[string]any{
		"voucher_code":     "summer2025",
		"discount_percent": "10",
		"expiry_date":      "2025-08-31",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/vouchers", map[string]any{
		"voucher_code":     "BAD",
		"discount_percent": 0,
		"expiry_date":      "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errResp := decode[api.Error](t, rec)
	assert.Equal(t, "discount_percent must be between 1 and 100", errResp.Error)
	assert.Contains(t, errResp.Fields, "expiry_date")
	assert.Equal(t, api.CodeValidation, errResp.Code)

	path := fmt.Sprintf("/vouchers/%d", created.ID)

	rec = s.do(http.MethodPut, path, map[string]any{
		"voucher_code":     "SUMMER2025",
		"discount_percent": 35,
		"expiry_date":      "2025-09-30",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[api.Voucher](t, rec)
	assert.Equal(t, 35, updated.DiscountPercent)
	assert.Equal(t, "2025-09-30", updated.ExpiryDate)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	rec = s.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 35, decode[api.Voucher](t, rec).DiscountPercent)

	rec = s.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/vouchers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVouchers_UploadCSV(t *testing.T) {
	s := newServer(t, &voucher.Voucher{Code: "EXISTING", DiscountPercent: 5, ExpiryDate: now})

	rec := s.upload("voucher_code,discount_percent,expiry_date\n" +
		"A1,10,2025-01-01\n" +
		"A1,20,2025-02-01\n" +
		"B2,150,2025-03-01\n" +
		"C3,30,2025-04-01\n" +
		"existing,30,2025-04-01\n")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.ImportResponse](t, rec)
	assert.Equal(t, api.ImportResponse{
		TotalRows:    5,
		SuccessCount: 2,
		FailureCount: 3,
		Failures: []api.RowFailure{
			{Row: 2, Reason: "duplicate voucher_code in file"},
			{Row: 3, Reason: "discount_percent must be between 1 and 100"},
			{Row: 5, Reason: "voucher_code already exists"},
		},
	}, resp)

	list := decode[api.ListResponse](t, s.do(http.MethodGet, "/vouchers", nil))
	assert.Equal(t, 3, list.Pagination.Total)
}

func TestVouchers_UploadCSV_Rejected(t *testing.T) {
	s := newServer(t)

	rec := s.upload("code,discount\nA,1\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[api.Error](t, rec)
	assert.Contains(t, errResp.Error, "missing required columns: voucher_code, discount_percent, expiry_date")
	assert.Equal(t, api.CodeFormat, errResp.Code)

	req := httptest.NewRequest(http.MethodPost, "/vouchers/upload-csv", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+s.token)

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVouchers_Export(t *testing.T) {
	s := newServer(t,
		&voucher.Voucher{Code: "B", DiscountPercent: 20, ExpiryDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		&voucher.Voucher{Code: "A", DiscountPercent: 10, ExpiryDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	)

	rec := s.do(http.MethodGet, "/vouchers/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=vouchers.csv", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "voucher_code,discount_percent,expiry_date\nA,10,2025-01-01\nB,20,2025-02-01\n", rec.Body.String())

	rec = s.do(http.MethodGet, "/vouchers/export?sort=discount_percent&order=desc&q=b", nil)
	assert.Equal(t, "voucher_code,discount_percent,expiry_date\nB,20,2025-02-01\n", rec.Body.String())
}

func TestVouchers_Stats(t *testing.T) {
	s := newServer(t, seedVouchers(4)...)

	rec := s.do(http.MethodGet, "/vouchers/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, api.Stats{
		Total:           4,
		Active:          1,
		Expired:         3,
		ExpiringSoon:    1,
		AverageDiscount: 3,
	}, decode[api.Stats](t, rec))
}
