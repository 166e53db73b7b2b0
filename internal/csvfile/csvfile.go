// Package csvfile reads and writes the voucher CSV exchange format.
//
// The format is deliberately minimal: a header row naming the columns, then
// one comma-separated line per voucher. There is no quoting, so a field that
// itself contains a comma cannot be represented.
package csvfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/encoding"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

const (
	ColumnCode     = voucher.FieldCode
	ColumnDiscount = voucher.FieldDiscount
	ColumnExpiry   = voucher.FieldExpiry
)

// Columns are the required header columns, in export order.
var Columns = []string{ColumnCode, ColumnDiscount, ColumnExpiry}

// Header is the first line of every exported file.
var Header = strings.Join(Columns, ",")

// Document is a parsed upload.
type Document struct {
	Rows    []voucher.Row
	Skipped []int // data line numbers dropped for having the wrong field count
	Charset encoding.Charset
}

// Parse reads an upload and returns its candidate rows in file order.
func Parse(r io.Reader) ([]voucher.Row, error) {
	doc, err := Read(r)
	if err != nil {
		return nil, err
	}

	return doc.Rows, nil
}

// Read decodes r to UTF-8 and splits it into rows. It fails with a
// *voucher.FormatError when the header lacks a required column. Lines whose
// field count differs from the header's are skipped without error.
func Read(r io.Reader) (*Document, error) {
	utf8r, cs, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	content, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	lines := strings.Split(string(content), "\n")

	header := splitLine(lines[0])

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Rows:    make([]voucher.Row, 0, len(lines)-1),
		Skipped: []int{},
		Charset: cs,
	}

	for i, line := range lines[1:] {
		lineNo := i + 1

		if i == len(lines)-2 && strings.TrimRight(line, "\r") == "" {
			// trailing newline
			break
		}

		fields := splitLine(line)
		if len(fields) != len(header) {
			doc.Skipped = append(doc.Skipped, lineNo)
			continue
		}

		doc.Rows = append(doc.Rows, voucher.Row{
			Line: lineNo,
			Input: voucher.Input{
				Code:            fields[index[ColumnCode]],
				DiscountPercent: fields[index[ColumnDiscount]],
				ExpiryDate:      fields[index[ColumnExpiry]],
			},
		})
	}

	return doc, nil
}

func splitLine(line string) []string {
	fields := strings.Split(strings.TrimRight(line, "\r"), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	return fields
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, &voucher.FormatError{Missing: missing}
	}

	return index, nil
}

// Write renders vouchers in input order with a header line. Expiry dates are
// written as plain dates; time of day and zone are dropped.
func Write(w io.Writer, vs []*voucher.Voucher) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, v := range vs {
		line := v.Code + "," + strconv.Itoa(v.DiscountPercent) + "," + v.ExpiryDate.Format(voucher.DateLayout) + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("writing voucher %d: %w", v.ID, err)
		}
	}

	return bw.Flush()
}

// Marshal is Write into memory.
func Marshal(vs []*voucher.Voucher) []byte {
	var buf bytes.Buffer

	_ = Write(&buf, vs)

	return buf.Bytes()
}
