package browse

import (
	"context"
	"io"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/csvfile"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

// Local adapts an in-process voucher service to Source.
type Local struct {
	*voucher.Service
}

func NewLocal(svc *voucher.Service) *Local {
	return &Local{Service: svc}
}

func (l *Local) Import(ctx context.Context, _ string, r io.Reader) (*voucher.ImportResult, error) {
	rows, err := csvfile.Parse(r)
	if err != nil {
		return nil, err
	}

	return l.Service.Import(ctx, rows)
}

func (l *Local) Export(ctx context.Context, q voucher.Query, w io.Writer) error {
	vs, err := l.Service.Export(ctx, q)
	if err != nil {
		return err
	}

	return csvfile.Write(w, vs)
}
