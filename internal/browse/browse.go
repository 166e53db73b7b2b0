// Package browse keeps a client-side view of one voucher list in step with
// its backing collection.
//
// Every mutation is followed by a re-query with the active parameters, since
// the collection never pushes changes. Responses are sequenced: a page is
// only accepted if no newer request was issued after it was requested.
package browse

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

// ErrStale is returned when a response was superseded by a newer request
// and therefore discarded.
var ErrStale = errors.New("browse: response superseded by a newer request")

// Source is a voucher collection, remote or local.
//
//go:generate mockgen -source=browse.go -destination=source_mock.go -package=browse
type Source interface {
	List(ctx context.Context, q voucher.Query) (voucher.Page, error)
	Create(ctx context.Context, in voucher.Input) (*voucher.Voucher, error)
	Update(ctx context.Context, id int64, in voucher.Input) (*voucher.Voucher, error)
	Delete(ctx context.Context, id int64) error
	Import(ctx context.Context, filename string, r io.Reader) (*voucher.ImportResult, error)
	Export(ctx context.Context, q voucher.Query, w io.Writer) error
	Stats(ctx context.Context) (voucher.Stats, error)
}

// RefreshError reports that a mutation succeeded but the list could not be
// re-queried afterwards.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "browse: refresh after change failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Ticket identifies one issued list request.
type Ticket uint64

type Browser struct {
	src Source

	mu    sync.Mutex
	query voucher.Query
	page  voucher.Page
	seq   Ticket
}

func New(src Source) *Browser {
	q := voucher.DefaultQuery()

	return &Browser{
		src:   src,
		query: q,
		page:  voucher.Page{Items: []*voucher.Voucher{}, Pagination: voucher.NewPagination(q.Page, q.Limit, 0)},
	}
}

func (b *Browser) Query() voucher.Query {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.query
}

// Page is the last accepted page.
func (b *Browser) Page() voucher.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.page
}

// SetSearch changes the search term and returns to the first page.
func (b *Browser) SetSearch(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.query.Search = s
	b.query.Page = 1
}

// SetSort changes the ordering and returns to the first page.
func (b *Browser) SetSort(field voucher.SortField, order voucher.SortOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.query.Sort = field
	b.query.Order = order
	b.query.Page = 1
}

// SetPage moves to page n, clamped to the known page range.
func (b *Browser) SetPage(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.query.Page = max(1, min(n, b.page.Pagination.TotalPages))
}

// SetLimit changes the page size and returns to the first page.
func (b *Browser) SetLimit(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.query.Limit = n
	b.query.Page = 1
}

// Begin issues a new request ticket for the active query. Any ticket issued
// earlier becomes stale.
func (b *Browser) Begin() (Ticket, voucher.Query) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.query = b.query.Normalize()

	return b.seq, b.query
}

// Accept stores p if t is still the newest ticket and reports whether it did.
func (b *Browser) Accept(t Ticket, p voucher.Page) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t != b.seq {
		return false
	}

	b.page = p

	return true
}

// Fetch runs the query a ticket was issued for.
func (b *Browser) Fetch(ctx context.Context, t Ticket, q voucher.Query) (voucher.Page, error) {
	p, err := b.src.List(ctx, q)
	if err != nil {
		return voucher.Page{}, err
	}

	if !b.Accept(t, p) {
		return p, ErrStale
	}

	return p, nil
}

// Refresh re-queries with the active parameters.
func (b *Browser) Refresh(ctx context.Context) (voucher.Page, error) {
	t, q := b.Begin()
	return b.Fetch(ctx, t, q)
}

func (b *Browser) Search(ctx context.Context, s string) (voucher.Page, error) {
	b.SetSearch(s)
	return b.Refresh(ctx)
}

func (b *Browser) SortBy(ctx context.Context, field voucher.SortField, order voucher.SortOrder) (voucher.Page, error) {
	b.SetSort(field, order)
	return b.Refresh(ctx)
}

func (b *Browser) Goto(ctx context.Context, page int) (voucher.Page, error) {
	b.SetPage(page)
	return b.Refresh(ctx)
}

func (b *Browser) Next(ctx context.Context) (voucher.Page, error) {
	return b.Goto(ctx, b.Query().Page+1)
}

func (b *Browser) Prev(ctx context.Context) (voucher.Page, error) {
	return b.Goto(ctx, b.Query().Page-1)
}

// requery refreshes after a mutation. A stale result means a newer request
// is already on its way, which satisfies the refresh.
func (b *Browser) requery(ctx context.Context) error {
	if _, err := b.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		return &RefreshError{Err: err}
	}

	return nil
}

// Create adds a voucher and re-queries. On failure nothing is re-queried and
// the source's error is returned unchanged. If only the re-query fails, the
// created voucher is returned together with a *RefreshError.
func (b *Browser) Create(ctx context.Context, in voucher.Input) (*voucher.Voucher, error) {
	v, err := b.src.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	return v, b.requery(ctx)
}

func (b *Browser) Update(ctx context.Context, id int64, in voucher.Input) (*voucher.Voucher, error) {
	v, err := b.src.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	return v, b.requery(ctx)
}

// Delete removes a voucher and re-queries. When the deleted voucher was the
// only one on a page past the first, the view steps back one page first.
func (b *Browser) Delete(ctx context.Context, id int64) error {
	if err := b.src.Delete(ctx, id); err != nil {
		return err
	}

	b.mu.Lock()
	if len(b.page.Items) == 1 && b.query.Page > 1 {
		b.query.Page--
	}
	b.mu.Unlock()

	return b.requery(ctx)
}

func (b *Browser) Import(ctx context.Context, filename string, r io.Reader) (*voucher.ImportResult, error) {
	res, err := b.src.Import(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	return res, b.requery(ctx)
}

// Export writes every voucher matching the active search and sort.
func (b *Browser) Export(ctx context.Context, w io.Writer) error {
	return b.src.Export(ctx, b.Query(), w)
}

func (b *Browser) Stats(ctx context.Context) (voucher.Stats, error) {
	return b.src.Stats(ctx)
}
