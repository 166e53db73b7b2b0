package voucher

import (
	"context"
	"fmt"
	"time"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=voucher
type Repository interface {
	List(ctx context.Context, q Query) (Page, error)
	ListAll(ctx context.Context, q Query) ([]*Voucher, error)
	Get(ctx context.Context, id int64) (*Voucher, error)
	Create(ctx context.Context, v *Voucher) error
	Update(ctx context.Context, v *Voucher) error
	Delete(ctx context.Context, id int64) error
	CodeExists(ctx context.Context, code string, excludeID int64) (bool, error)

	BeginImport(ctx context.Context) (ImportTx, error)
}

// ImportTx is an isolated unit of work for one bulk import.
type ImportTx interface {
	Codes(ctx context.Context) ([]string, error)
	CreateVouchers(ctx context.Context, vs []*Voucher) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for timestamps and expiry status.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now is the service clock, exposed so transports render status consistently.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	return s.repo.List(ctx, q.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (*Voucher, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*Voucher, error) {
	fields, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.CodeExists(ctx, fields.Code, 0)
	if err != nil {
		return nil, fmt.Errorf("checking voucher code: %w", err)
	}

	if exists {
		return nil, ErrDuplicateCode
	}

	now := s.now()
	v := &Voucher{CreatedAt: now}
	v.Apply(fields, now)

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	return v, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*Voucher, error) {
	fields, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.CodeExists(ctx, fields.Code, id)
	if err != nil {
		return nil, fmt.Errorf("checking voucher code: %w", err)
	}

	if exists {
		return nil, ErrDuplicateCode
	}

	v.Apply(fields, s.now())

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	return v, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Import applies a batch of parsed CSV rows. Rows that pass validation and
// do not collide with an existing or earlier code are created; the rest are
// reported as failures.
func (s *Service) Import(ctx context.Context, rows []Row) (*ImportResult, error) {
	itx, err := s.repo.BeginImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	codes, err := itx.Codes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading existing codes: %w", err)
	}

	result := Plan(codes, rows, s.now())

	if len(result.Created) > 0 {
		if err := itx.CreateVouchers(ctx, result.Created); err != nil {
			return nil, fmt.Errorf("create vouchers: %w", err)
		}
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &result, nil
}

// Export returns every voucher matching the query's search, in its sort
// order. Paging is ignored.
func (s *Service) Export(ctx context.Context, q Query) ([]*Voucher, error) {
	return s.repo.ListAll(ctx, q.Normalize())
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.repo.ListAll(ctx, DefaultQuery())
	if err != nil {
		return Stats{}, fmt.Errorf("listing vouchers: %w", err)
	}

	return Summarize(all, s.now()), nil
}
