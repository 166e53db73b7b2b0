package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/config"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/database"
	voucherHttp "github.com/mhakimsaputra17/discount-voucher-management/internal/http"
	loginHandler "github.com/mhakimsaputra17/discount-voucher-management/internal/http/login"
	voucherHandler "github.com/mhakimsaputra17/discount-voucher-management/internal/http/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/logging"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher/memstore"
	voucherStore "github.com/mhakimsaputra17/discount-voucher-management/internal/voucher/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("failed to open voucher store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	var (
		voucherService = voucher.NewService(repo)
		issuer         = auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	)

	var (
		loginH   = loginHandler.NewHandler(issuer)
		voucherH = voucherHandler.NewHandler(voucherService, cfg.Upload.MaxFileSize)
	)

	router := voucherHttp.New(voucherHttp.Options{
		Timeout:        cfg.Server.Timeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, issuer, loginH, voucherH)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		slog.Info("starting server", "name", cfg.App.Name, "env", cfg.App.Env, "addr", srv.Addr, "backend", cfg.Store.Backend)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return
	}

	slog.Info("server stopped")
}

func openRepository(ctx context.Context, cfg *config.Config) (voucher.Repository, func(), error) {
	if cfg.Store.Backend == config.BackendMemory {
		return memstore.New(), func() {}, nil
	}

	db, err := database.New(ctx, cfg.ConnectionString(), database.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}

	if err := database.Migrate(ctx, db); err != nil {
		closeDB()
		return nil, nil, err
	}

	return voucherStore.New(db), closeDB, nil
}

