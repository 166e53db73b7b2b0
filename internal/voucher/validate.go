package voucher

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	FieldCode     = "voucher_code"
	FieldDiscount = "discount_percent"
	FieldExpiry   = "expiry_date"
)

const (
	MinDiscount = 1
	MaxDiscount = 100
)

// fieldOrder fixes which error is reported first for a row.
var fieldOrder = []string{FieldCode, FieldDiscount, FieldExpiry}

var (
	minDiscount = decimal.NewFromInt(MinDiscount)
	maxDiscount = decimal.NewFromInt(MaxDiscount)
)

// ValidationErrors maps a field name to a human-readable message.
// An empty map means the candidate is valid.
type ValidationErrors map[string]string

// First returns the first failing field in column order.
func (ve ValidationErrors) First() (string, string) {
	for _, f := range fieldOrder {
		if msg, ok := ve[f]; ok {
			return f, msg
		}
	}

	return "", ""
}

// Validate checks a candidate without touching any state.
// The expiry date is only checked for presence here; Normalize parses it.
func Validate(in Input) ValidationErrors {
	errs := ValidationErrors{}

	switch {
	case strings.TrimSpace(in.Code) == "":
		errs[FieldCode] = "voucher_code is required"
	case !utf8.ValidString(in.Code):
		errs[FieldCode] = "voucher_code must be valid UTF-8"
	}

	if msg := validateDiscount(in.DiscountPercent); msg != "" {
		errs[FieldDiscount] = msg
	}

	if strings.TrimSpace(in.ExpiryDate) == "" {
		errs[FieldExpiry] = "expiry_date is required"
	}

	return errs
}

func validateDiscount(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "discount_percent is required"
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "discount_percent must be a number"
	}

	if !d.IsInteger() {
		return "discount_percent must be a whole number"
	}

	if d.LessThan(minDiscount) || d.GreaterThan(maxDiscount) {
		return "discount_percent must be between 1 and 100"
	}

	return ""
}

// Normalize validates the candidate and promotes it to typed fields.
func (in Input) Normalize() (Fields, error) {
	if errs := Validate(in); len(errs) > 0 {
		return Fields{}, &ValidationError{Fields: errs}
	}

	expiry, err := ParseExpiry(in.ExpiryDate)
	if err != nil {
		return Fields{}, &ValidationError{Fields: ValidationErrors{
			FieldExpiry: "expiry_date must be a date in YYYY-MM-DD format",
		}}
	}

	// Validate already proved this is an integer in range.
	d, _ := decimal.NewFromString(strings.TrimSpace(in.DiscountPercent))

	return Fields{
		Code:            strings.TrimSpace(in.Code),
		DiscountPercent: int(d.IntPart()),
		ExpiryDate:      expiry,
	}, nil
}

// ParseExpiry accepts a plain date or an RFC 3339 timestamp.
// Plain dates are interpreted as midnight UTC.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	t, err := time.Parse(DateLayout, s)
	if err == nil {
		return t, nil
	}

	t, rfcErr := time.Parse(time.RFC3339, s)
	if rfcErr != nil {
		return time.Time{}, err
	}

	return t.UTC(), nil
}

// Input renders the voucher back into an editable candidate.
func (v *Voucher) Input() Input {
	return Input{
		Code:            v.Code,
		DiscountPercent: decimal.NewFromInt(int64(v.DiscountPercent)).String(),
		ExpiryDate:      v.ExpiryDate.Format(DateLayout),
	}
}
