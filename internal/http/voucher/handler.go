package voucher

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/api"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/csvfile"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/middleware"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/respond"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/logging"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

const exportFilename = "vouchers.csv"

type Handler struct {
	svc           *voucher.Service
	maxUploadSize int64
}

func NewHandler(svc *voucher.Service, maxUploadSize int64) *Handler {
	return &Handler{svc: svc, maxUploadSize: maxUploadSize}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats", h.stats)
	r.Get("/export", h.export)
	r.Post("/upload-csv", h.uploadCSV)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// queryFrom reads q, sort, order, page and limit. Malformed numbers fall
// back to their defaults instead of failing the request.
func queryFrom(r *http.Request) voucher.Query {
	v := r.URL.Query()

	return voucher.Query{
		Search: v.Get("q"),
		Sort:   voucher.ParseSortField(v.Get("sort")),
		Order:  voucher.ParseSortOrder(v.Get("order")),
		Page:   intParam(v.Get("page"), voucher.DefaultPage),
		Limit:  intParam(v.Get("limit"), voucher.DefaultLimit),
	}.Normalize()
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}

	return n
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), queryFrom(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, api.FromPage(page, h.svc.Now()))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respond.Message(w, r, http.StatusBadRequest, "invalid voucher id")
		return
	}

	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, api.FromVoucher(v, h.svc.Now()))
}

func decodeVoucher(r *http.Request) (voucher.Input, error) {
	var req api.VoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return voucher.Input{}, err
	}

	return req.Input(), nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeVoucher(r)
	if err != nil {
		respond.Message(w, r, http.StatusBadRequest, "invalid request payload")
		return
	}

	v, err := h.svc.Create(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, api.FromVoucher(v, h.svc.Now()))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respond.Message(w, r, http.StatusBadRequest, "invalid voucher id")
		return
	}

	in, err := decodeVoucher(r)
	if err != nil {
		respond.Message(w, r, http.StatusBadRequest, "invalid request payload")
		return
	}

	v, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, api.FromVoucher(v, h.svc.Now()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respond.Message(w, r, http.StatusBadRequest, "invalid voucher id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	requestLogger(r).Info("voucher deleted", "voucher_id", id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, api.FromStats(st))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.Export(r.Context(), queryFrom(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename)
	w.WriteHeader(http.StatusOK)

	if err := csvfile.Write(w, vs); err != nil {
		requestLogger(r).Error("failed to write export", "error", err)
	}
}

func (h *Handler) uploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Message(w, r, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
			return
		}

		respond.Message(w, r, http.StatusBadRequest, "file is required")

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Message(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	log := requestLogger(r).With(
		"import_id", uuid.NewString(),
		"filename", header.Filename,
		"size", header.Size,
	)

	doc, err := csvfile.Read(file)
	if err != nil {
		log.Warn("csv rejected", "error", err)
		respond.Error(w, r, err)

		return
	}

	result, err := h.svc.Import(r.Context(), doc.Rows)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	log.Info("csv imported",
		"charset", doc.Charset,
		"rows", result.TotalRows,
		"skipped_lines", len(doc.Skipped),
		"success", result.SuccessCount,
		"failed", result.FailureCount,
	)

	respond.JSON(w, r, http.StatusOK, api.FromImportResult(result))
}

// requestLogger tags the request logger with the authenticated subject.
func requestLogger(r *http.Request) *slog.Logger {
	log := logging.FromContext(r.Context())
	if c, ok := middleware.ClaimsFrom(r.Context()); ok {
		log = log.With("subject", c.Subject)
	}

	return log
}
