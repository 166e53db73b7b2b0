package voucher

import (
	"errors"
	"time"
)

const (
	reasonCodeExists  = "voucher_code already exists"
	reasonCodeInFile  = "duplicate voucher_code in file"
	reasonInvalidData = "invalid row"
)

// RowFailure explains why one CSV row was not imported.
type RowFailure struct {
	Row    int
	Reason string
}

// ImportResult reports a bulk import. Created holds the vouchers to persist;
// they carry no ID until the repository stores them.
type ImportResult struct {
	TotalRows    int
	SuccessCount int
	FailureCount int
	Failures     []RowFailure
	Created      []*Voucher
}

func (r *ImportResult) fail(row int, reason string) {
	r.FailureCount++
	r.Failures = append(r.Failures, RowFailure{Row: row, Reason: reason})
}

// Plan decides, row by row and in file order, which candidates become vouchers.
// Each row either succeeds or fails on its own; earlier successes are kept when
// a later row fails. Codes are checked against existingCodes and against codes
// accepted earlier in the same batch.
func Plan(existingCodes []string, rows []Row, now time.Time) ImportResult {
	result := ImportResult{
		TotalRows: len(rows),
		Failures:  []RowFailure{},
		Created:   make([]*Voucher, 0, len(rows)),
	}

	existing := make(map[string]struct{}, len(existingCodes))
	for _, c := range existingCodes {
		existing[CodeKey(c)] = struct{}{}
	}

	accepted := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		fields, err := row.Input.Normalize()
		if err != nil {
			result.fail(row.Line, failureReason(err))
			continue
		}

		key := CodeKey(fields.Code)

		if _, ok := existing[key]; ok {
			result.fail(row.Line, reasonCodeExists)
			continue
		}

		if _, ok := accepted[key]; ok {
			result.fail(row.Line, reasonCodeInFile)
			continue
		}

		accepted[key] = struct{}{}

		result.Created = append(result.Created, &Voucher{
			Code:            fields.Code,
			DiscountPercent: fields.DiscountPercent,
			ExpiryDate:      fields.ExpiryDate,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		result.SuccessCount++
	}

	return result
}

func failureReason(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	return reasonInvalidData
}
