package voucher

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// SortField names a column a voucher list can be ordered by.
type SortField string

const (
	SortExpiryDate SortField = "expiry_date"
	SortDiscount   SortField = "discount_percent"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (Page-1)*Limit within an int for every valid limit.
	MaxPage = math.MaxInt / MaxLimit
)

// Query describes one page of a filtered, sorted voucher list.
type Query struct {
	Search string
	Sort   SortField
	Order  SortOrder
	Page   int
	Limit  int
}

// DefaultQuery is the list a fresh session starts on.
func DefaultQuery() Query {
	return Query{
		Sort:  SortExpiryDate,
		Order: OrderAsc,
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}
}

// ParseSortField falls back to the expiry date for unknown names.
func ParseSortField(s string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case SortDiscount:
		return SortDiscount
	default:
		return SortExpiryDate
	}
}

// ParseSortOrder treats anything other than "desc" as ascending.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(OrderDesc)) {
		return OrderDesc
	}

	return OrderAsc
}

// Normalize clamps the query into its valid range.
func (q Query) Normalize() Query {
	q.Search = strings.TrimSpace(q.Search)
	q.Sort = ParseSortField(string(q.Sort))
	q.Order = ParseSortOrder(string(q.Order))

	switch {
	case q.Page < 1:
		q.Page = DefaultPage
	case q.Page > MaxPage:
		q.Page = MaxPage
	}

	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	return q
}

// Offset is the number of matching records before the requested page.
// It is only meaningful on a normalized query.
func (q Query) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}

	return (min(q.Page, MaxPage) - 1) * min(q.Limit, MaxLimit)
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// NewPagination computes the page count. An empty result still has one page
// so that page 1 is always valid.
func NewPagination(page, limit, total int) Pagination {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}

// Page is one slice of a query result.
type Page struct {
	Items      []*Voucher
	Pagination Pagination
}

// Filter keeps the vouchers whose code contains search, ignoring case.
// It always returns a new slice.
func Filter(all []*Voucher, search string) []*Voucher {
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]*Voucher, 0, len(all))
	for _, v := range all {
		if needle == "" || strings.Contains(strings.ToLower(v.Code), needle) {
			out = append(out, v)
		}
	}

	return out
}

// Sort orders vs in place. The sort is stable in both directions, so equal
// records keep their incoming relative order.
func Sort(vs []*Voucher, field SortField, order SortOrder) {
	compare := func(a, b *Voucher) int {
		if field == SortDiscount {
			return cmp.Compare(a.DiscountPercent, b.DiscountPercent)
		}

		return a.ExpiryDate.Compare(b.ExpiryDate)
	}

	if order == OrderDesc {
		slices.SortStableFunc(vs, func(a, b *Voucher) int { return compare(b, a) })
		return
	}

	slices.SortStableFunc(vs, compare)
}

// Run filters, sorts and paginates a snapshot. The snapshot is not modified.
// A page past the end yields no items rather than an error.
func Run(all []*Voucher, q Query) Page {
	q = q.Normalize()

	matched := Filter(all, q.Search)
	Sort(matched, q.Sort, q.Order)

	total := len(matched)
	items := []*Voucher{}

	if start := q.Offset(); start >= 0 && start < total {
		end := min(start+q.Limit, total)
		items = matched[start:end]
	}

	return Page{
		Items:      items,
		Pagination: NewPagination(q.Page, q.Limit, total),
	}
}
