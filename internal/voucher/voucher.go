package voucher

import (
	"strings"
	"time"
)

// DateLayout is the wire and CSV representation of an expiry date.
const DateLayout = time.DateOnly

// Status is derived from the expiry date at read time; it is never stored.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Voucher represents one discount code.
type Voucher struct {
	ID              int64
	Code            string
	DiscountPercent int
	ExpiryDate      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Status reports whether the voucher is still usable at now.
// A voucher expiring exactly at now is already expired.
func (v *Voucher) Status(now time.Time) Status {
	if v.ExpiryDate.After(now) {
		return StatusActive
	}

	return StatusExpired
}

// Input is an unvalidated voucher candidate, either a form body or a CSV row.
// All fields stay strings until Normalize promotes them.
type Input struct {
	Code            string
	DiscountPercent string
	ExpiryDate      string
}

// Fields are the typed, mutable attributes of a voucher.
type Fields struct {
	Code            string
	DiscountPercent int
	ExpiryDate      time.Time
}

// Row is a CSV import candidate. Line is the 1-indexed data line in the
// uploaded file, header excluded.
type Row struct {
	Line  int
	Input Input
}

// CodeKey returns the case-insensitive identity of a voucher code.
func CodeKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// SameCode reports whether two codes collide under case-insensitive uniqueness.
func SameCode(a, b string) bool {
	return CodeKey(a) == CodeKey(b)
}

// Apply overwrites the mutable fields. ID and CreatedAt are left alone.
func (v *Voucher) Apply(f Fields, now time.Time) {
	v.Code = f.Code
	v.DiscountPercent = f.DiscountPercent
	v.ExpiryDate = f.ExpiryDate
	v.UpdatedAt = now
}

// Clone returns a copy that does not share memory with v.
func (v *Voucher) Clone() *Voucher {
	c := *v
	return &c
}
