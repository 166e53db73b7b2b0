// Package memstore is an in-process voucher repository. It backs the API when
// no database is configured and the terminal client's local mode.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

type Store struct {
	mu       sync.RWMutex
	vouchers []*voucher.Voucher // insertion order
	nextID   int64

	// importMu serializes bulk imports the way the Postgres advisory lock does.
	importMu sync.Mutex
}

func New(seed ...*voucher.Voucher) *Store {
	s := &Store{nextID: 1}
	for _, v := range seed {
		c := v.Clone()
		c.ID = s.nextID
		s.nextID++
		s.vouchers = append(s.vouchers, c)
	}

	return s
}

func (s *Store) snapshot() []*voucher.Voucher {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*voucher.Voucher, len(s.vouchers))
	for i, v := range s.vouchers {
		out[i] = v.Clone()
	}

	return out
}

func (s *Store) List(_ context.Context, q voucher.Query) (voucher.Page, error) {
	return voucher.Run(s.snapshot(), q), nil
}

func (s *Store) ListAll(_ context.Context, q voucher.Query) ([]*voucher.Voucher, error) {
	vs := voucher.Filter(s.snapshot(), q.Search)
	voucher.Sort(vs, q.Sort, q.Order)

	return vs, nil
}

func (s *Store) Get(_ context.Context, id int64) (*voucher.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, voucher.ErrNotFound
	}

	return s.vouchers[i].Clone(), nil
}

func (s *Store) Create(_ context.Context, v *voucher.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeTaken(v.Code, 0) {
		return voucher.ErrDuplicateCode
	}

	v.ID = s.nextID
	s.nextID++
	s.vouchers = append(s.vouchers, v.Clone())

	return nil
}

func (s *Store) Update(_ context.Context, v *voucher.Voucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(v.ID)
	if i < 0 {
		return voucher.ErrNotFound
	}

	if s.codeTaken(v.Code, v.ID) {
		return voucher.ErrDuplicateCode
	}

	stored := s.vouchers[i]
	updated := v.Clone()
	updated.CreatedAt = stored.CreatedAt
	s.vouchers[i] = updated

	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return voucher.ErrNotFound
	}

	s.vouchers = slices.Delete(s.vouchers, i, i+1)

	return nil
}

func (s *Store) CodeExists(_ context.Context, code string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.codeTaken(code, excludeID), nil
}

// indexOf expects s.mu to be held.
func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.vouchers, func(v *voucher.Voucher) bool { return v.ID == id })
}

// codeTaken expects s.mu to be held.
func (s *Store) codeTaken(code string, excludeID int64) bool {
	return slices.ContainsFunc(s.vouchers, func(v *voucher.Voucher) bool {
		return v.ID != excludeID && voucher.SameCode(v.Code, code)
	})
}

func (s *Store) BeginImport(_ context.Context) (voucher.ImportTx, error) {
	s.importMu.Lock()

	return &importTx{s: s}, nil
}

// importTx stages created vouchers and publishes them on Commit. Plain
// Create and Update do not wait for an open import, so Commit checks the
// staged codes again before publishing.
type importTx struct {
	s      *Store
	staged []*voucher.Voucher
	done   bool
}

func (itx *importTx) Codes(_ context.Context) ([]string, error) {
	itx.s.mu.RLock()
	defer itx.s.mu.RUnlock()

	codes := make([]string, 0, len(itx.s.vouchers))
	for _, v := range itx.s.vouchers {
		codes = append(codes, v.Code)
	}

	return codes, nil
}

func (itx *importTx) CreateVouchers(_ context.Context, vs []*voucher.Voucher) error {
	itx.s.mu.Lock()
	defer itx.s.mu.Unlock()

	for _, v := range vs {
		if itx.s.codeTaken(v.Code, 0) || slices.ContainsFunc(itx.staged, func(st *voucher.Voucher) bool {
			return voucher.SameCode(st.Code, v.Code)
		}) {
			return voucher.ErrDuplicateCode
		}

		v.ID = itx.s.nextID
		itx.s.nextID++
		itx.staged = append(itx.staged, v.Clone())
	}

	return nil
}

func (itx *importTx) Commit() error {
	if itx.done {
		return nil
	}

	defer itx.finish()

	itx.s.mu.Lock()
	defer itx.s.mu.Unlock()

	for _, v := range itx.staged {
		if itx.s.codeTaken(v.Code, 0) {
			return voucher.ErrDuplicateCode
		}
	}

	itx.s.vouchers = append(itx.s.vouchers, itx.staged...)

	return nil
}

func (itx *importTx) Rollback() error {
	if itx.done {
		return nil
	}

	itx.finish()

	return nil
}

func (itx *importTx) finish() {
	itx.done = true
	itx.staged = nil
	itx.s.importMu.Unlock()
}
