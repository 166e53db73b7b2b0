package login

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/api"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/respond"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/logging"
)

type Handler struct {
	issuer *auth.Issuer
}

func NewHandler(issuer *auth.Issuer) *Handler {
	return &Handler{issuer: issuer}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.login)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respond.Message(w, r, http.StatusBadRequest, "invalid request payload")
		return
	}

	if fields := creds.Validate(); len(fields) > 0 {
		respond.JSON(w, r, http.StatusBadRequest, api.Error{Error: "invalid credentials", Fields: fields})
		return
	}

	tok, err := h.issuer.Issue(creds.Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("login", "email", creds.Email)

	respond.JSON(w, r, http.StatusOK, api.LoginResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt})
}
