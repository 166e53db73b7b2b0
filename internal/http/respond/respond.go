// Package respond writes JSON bodies and maps domain errors to status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/api"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/logging"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func Message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, api.Error{Error: msg})
}

// Error picks the status for err. Unknown errors are logged and reported
// as a bare 500 so internals do not leak.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *voucher.ValidationError
		fe *voucher.FormatError
	)

	switch {
	case errors.As(err, &ve):
		JSON(w, r, http.StatusBadRequest, api.Error{Error: ve.Error(), Code: api.CodeValidation, Fields: ve.Fields})
	case errors.As(err, &fe):
		JSON(w, r, http.StatusBadRequest, api.Error{Error: fe.Error(), Code: api.CodeFormat})
	case errors.Is(err, voucher.ErrValidation):
		JSON(w, r, http.StatusBadRequest, api.Error{Error: err.Error(), Code: api.CodeValidation})
	case errors.Is(err, voucher.ErrDuplicateCode):
		JSON(w, r, http.StatusConflict, api.Error{Error: voucher.ErrDuplicateCode.Error(), Code: api.CodeDuplicate})
	case errors.Is(err, voucher.ErrNotFound):
		JSON(w, r, http.StatusNotFound, api.Error{Error: voucher.ErrNotFound.Error(), Code: api.CodeNotFound})
	default:
		logging.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Message(w, r, http.StatusInternalServerError, "internal server error")
	}
}
