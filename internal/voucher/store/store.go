package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, voucher_code, discount_percent, expiry_date, created_at, updated_at
func scanVoucher(s scanner) (*voucher.Voucher, error) {
	var v voucher.Voucher

	if err := s.Scan(&v.ID, &v.Code, &v.DiscountPercent, &v.ExpiryDate, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}

	v.ExpiryDate = v.ExpiryDate.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()

	return &v, nil
}

const selectVoucherColumns = `id, voucher_code, discount_percent, expiry_date, created_at, updated_at`

// sortColumns whitelists ORDER BY targets.
var sortColumns = map[voucher.SortField]string{
	voucher.SortExpiryDate: "expiry_date",
	voucher.SortDiscount:   "discount_percent",
}

// orderBy breaks ties on id so equal keys keep insertion order in both directions.
func orderBy(q voucher.Query) string {
	col, ok := sortColumns[q.Sort]
	if !ok {
		col = sortColumns[voucher.SortExpiryDate]
	}

	dir := "ASC"
	if q.Order == voucher.OrderDesc {
		dir = "DESC"
	}

	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}

// strpos keeps the match a literal substring; ILIKE would treat % and _ as wildcards.
const searchClause = ` WHERE ($1 = '' OR STRPOS(LOWER(voucher_code), LOWER($1)) > 0)`

func (s *Store) List(ctx context.Context, q voucher.Query) (voucher.Page, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vouchers`+searchClause, q.Search).Scan(&total); err != nil {
		return voucher.Page{}, fmt.Errorf("counting vouchers: %w", err)
	}

	query := `SELECT ` + selectVoucherColumns + ` FROM vouchers` + searchClause + orderBy(q) + ` LIMIT $2 OFFSET $3`

	items, err := s.query(ctx, query, q.Search, q.Limit, q.Offset())
	if err != nil {
		return voucher.Page{}, err
	}

	return voucher.Page{
		Items:      items,
		Pagination: voucher.NewPagination(q.Page, q.Limit, total),
	}, nil
}

func (s *Store) ListAll(ctx context.Context, q voucher.Query) ([]*voucher.Voucher, error) {
	query := `SELECT ` + selectVoucherColumns + ` FROM vouchers` + searchClause + orderBy(q)

	return s.query(ctx, query, q.Search)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*voucher.Voucher, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing vouchers: %w", err)
	}
	defer rows.Close()

	vs := []*voucher.Voucher{}

	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning voucher: %w", err)
		}

		vs = append(vs, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vouchers: %w", err)
	}

	return vs, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*voucher.Voucher, error) {
	query := `SELECT ` + selectVoucherColumns + ` FROM vouchers WHERE id = $1`

	v, err := scanVoucher(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}

		return nil, fmt.Errorf("getting voucher: %w", err)
	}

	return v, nil
}

const insertVoucher = `
	INSERT INTO vouchers (voucher_code, discount_percent, expiry_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id
`

func (s *Store) Create(ctx context.Context, v *voucher.Voucher) error {
	err := s.db.QueryRowContext(ctx, insertVoucher,
		v.Code,
		v.DiscountPercent,
		v.ExpiryDate,
		v.CreatedAt,
		v.UpdatedAt,
	).Scan(&v.ID)
	if err != nil {
		return mapWriteErr("creating voucher", err)
	}

	return nil
}

func (s *Store) Update(ctx context.Context, v *voucher.Voucher) error {
	query := `
		UPDATE vouchers
		SET voucher_code = $1, discount_percent = $2, expiry_date = $3, updated_at = $4
		WHERE id = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		v.Code,
		v.DiscountPercent,
		v.ExpiryDate,
		v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return mapWriteErr("updating voucher", err)
	}

	return requireAffected(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting voucher: %w", err)
	}

	return requireAffected(res)
}

func (s *Store) CodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM vouchers WHERE LOWER(voucher_code) = LOWER($1) AND id <> $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, code, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking voucher code: %w", err)
	}

	return exists, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return voucher.ErrNotFound
	}

	return nil
}

// mapWriteErr turns a unique violation on the code index into ErrDuplicateCode.
func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return voucher.ErrDuplicateCode
	}

	return fmt.Errorf("%s: %w", op, err)
}

var importLockKey = func() int64 {
	h := fnv.New64a()
	h.Write([]byte("vouchers:import"))

	return int64(h.Sum64())
}()

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a transaction holding an advisory lock, so concurrent
// imports see each other's codes instead of racing on the unique index.
func (s *Store) BeginImport(ctx context.Context) (voucher.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error { return itx.tx.Commit() }

func (itx *importTx) Rollback() error {
	if err := itx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

func (itx *importTx) Codes(ctx context.Context) ([]string, error) {
	rows, err := itx.tx.QueryContext(ctx, `SELECT voucher_code FROM vouchers`)
	if err != nil {
		return nil, fmt.Errorf("loading voucher codes: %w", err)
	}
	defer rows.Close()

	var codes []string

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning voucher code: %w", err)
		}

		codes = append(codes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating voucher codes: %w", err)
	}

	return codes, nil
}

func (itx *importTx) CreateVouchers(ctx context.Context, vs []*voucher.Voucher) error {
	stmt, err := itx.tx.PrepareContext(ctx, insertVoucher)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vs {
		err := stmt.QueryRowContext(ctx,
			v.Code,
			v.DiscountPercent,
			v.ExpiryDate,
			v.CreatedAt,
			v.UpdatedAt,
		).Scan(&v.ID)
		if err != nil {
			return mapWriteErr("creating voucher", err)
		}
	}

	return nil
}
