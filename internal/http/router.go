package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/login"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/middleware"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/respond"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/voucher"
)

type Options struct {
	Timeout        time.Duration
	AllowedOrigins []string
}

func New(
	opts Options,
	verifier middleware.Verifier,
	loginV1 *login.Handler,
	vouchersV1 *voucher.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(chimiddleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(chimiddleware.Timeout(opts.Timeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/login", func(r chi.Router) {
		r.Use(chimiddleware.AllowContentType("application/json"))
		loginV1.Routes(r)
	})

	router.Route("/vouchers", func(r chi.Router) {
		r.Use(middleware.BearerAuth(verifier))
		vouchersV1.Routes(r)
	})

	return router
}
