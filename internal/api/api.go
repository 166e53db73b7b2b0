// Package api holds the JSON shapes exchanged between the HTTP server and
// its clients.
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

type Voucher struct {
	ID              int64          `json:"id"`
	VoucherCode     string         `json:"voucher_code"`
	DiscountPercent int            `json:"discount_percent"`
	ExpiryDate      string         `json:"expiry_date"`
	Status          voucher.Status `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func FromVoucher(v *voucher.Voucher, now time.Time) Voucher {
	return Voucher{
		ID:              v.ID,
		VoucherCode:     v.Code,
		DiscountPercent: v.DiscountPercent,
		ExpiryDate:      v.ExpiryDate.Format(voucher.DateLayout),
		Status:          v.Status(now),
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func FromVouchers(vs []*voucher.Voucher, now time.Time) []Voucher {
	out := make([]Voucher, len(vs))
	for i, v := range vs {
		out[i] = FromVoucher(v, now)
	}

	return out
}

// ToVoucher converts back to the domain type. An unparsable expiry date
// yields the zero time.
func (v Voucher) ToVoucher() *voucher.Voucher {
	expiry, _ := voucher.ParseExpiry(v.ExpiryDate)

	return &voucher.Voucher{
		ID:              v.ID,
		Code:            v.VoucherCode,
		DiscountPercent: v.DiscountPercent,
		ExpiryDate:      expiry,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

// Text accepts either a JSON string or a bare JSON number, so form clients
// may send discount_percent as 10 or "10".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		*t = Text(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	*t = Text(n.String())

	return nil
}

type VoucherRequest struct {
	VoucherCode     string `json:"voucher_code"`
	DiscountPercent Text   `json:"discount_percent"`
	ExpiryDate      string `json:"expiry_date"`
}

func (r VoucherRequest) Input() voucher.Input {
	return voucher.Input{
		Code:            r.VoucherCode,
		DiscountPercent: string(r.DiscountPercent),
		ExpiryDate:      r.ExpiryDate,
	}
}

func NewVoucherRequest(in voucher.Input) VoucherRequest {
	return VoucherRequest{
		VoucherCode:     in.Code,
		DiscountPercent: Text(in.DiscountPercent),
		ExpiryDate:      in.ExpiryDate,
	}
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ListResponse struct {
	Data       []Voucher  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func FromPage(p voucher.Page, now time.Time) ListResponse {
	return ListResponse{
		Data: FromVouchers(p.Items, now),
		Pagination: Pagination{
			Page:       p.Pagination.Page,
			Limit:      p.Pagination.Limit,
			Total:      p.Pagination.Total,
			TotalPages: p.Pagination.TotalPages,
		},
	}
}

func (l ListResponse) ToPage() voucher.Page {
	items := make([]*voucher.Voucher, len(l.Data))
	for i, v := range l.Data {
		items[i] = v.ToVoucher()
	}

	return voucher.Page{
		Items: items,
		Pagination: voucher.Pagination{
			Page:       l.Pagination.Page,
			Limit:      l.Pagination.Limit,
			Total:      l.Pagination.Total,
			TotalPages: l.Pagination.TotalPages,
		},
	}
}

type RowFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResponse struct {
	TotalRows    int          `json:"total_rows"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
	Failures     []RowFailure `json:"failures"`
}

func FromImportResult(r *voucher.ImportResult) ImportResponse {
	failures := make([]RowFailure, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = RowFailure{Row: f.Row, Reason: f.Reason}
	}

	return ImportResponse{
		TotalRows:    r.TotalRows,
		SuccessCount: r.SuccessCount,
		FailureCount: r.FailureCount,
		Failures:     failures,
	}
}

func (r ImportResponse) ToImportResult() *voucher.ImportResult {
	failures := make([]voucher.RowFailure, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = voucher.RowFailure{Row: f.Row, Reason: f.Reason}
	}

	return &voucher.ImportResult{
		TotalRows:    r.TotalRows,
		SuccessCount: r.SuccessCount,
		FailureCount: r.FailureCount,
		Failures:     failures,
	}
}

type Stats struct {
	Total           int `json:"total"`
	Active          int `json:"active"`
	Expired         int `json:"expired"`
	ExpiringSoon    int `json:"expiring_soon"`
	AverageDiscount int `json:"average_discount"`
}

func FromStats(s voucher.Stats) Stats {
	return Stats(s)
}

func (s Stats) ToStats() voucher.Stats {
	return voucher.Stats(s)
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Error codes let clients tell 400s apart without parsing messages.
const (
	CodeValidation = "validation"
	CodeFormat     = "format"
	CodeDuplicate  = "duplicate"
	CodeNotFound   = "not_found"
)

type Error struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}
