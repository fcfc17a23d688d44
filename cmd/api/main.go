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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/ventas/internal/config"
	"github.com/MrJamesThe3rd/ventas/internal/database"
	ventasHttp "github.com/MrJamesThe3rd/ventas/internal/http"
	invoiceHandler "github.com/MrJamesThe3rd/ventas/internal/http/invoice"
	productHandler "github.com/MrJamesThe3rd/ventas/internal/http/product"
	saleHandler "github.com/MrJamesThe3rd/ventas/internal/http/sale"
	"github.com/MrJamesThe3rd/ventas/internal/idempotency"
	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/ventas/internal/invoice/store"
	"github.com/MrJamesThe3rd/ventas/internal/product"
	"github.com/MrJamesThe3rd/ventas/internal/product/importer"
	productStore "github.com/MrJamesThe3rd/ventas/internal/product/store"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
	saleStore "github.com/MrJamesThe3rd/ventas/internal/sale/store"
	"github.com/MrJamesThe3rd/ventas/internal/user"
	userStore "github.com/MrJamesThe3rd/ventas/internal/user/store"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("api stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled. Every resource it opens is closed
// before it returns, including on startup failures.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	var guard idempotency.Guard

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}

		guard = idempotency.NewRedisGuard(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		slog.Warn("REDIS_ADDR not set, idempotency keys disabled")
	}

	var (
		userService    = user.NewService(userStore.New(db))
		productService = product.NewService(productStore.New(db))
		invoiceService = invoice.NewService(invoiceStore.New(db), cfg.Invoice.Prefix)
		saleService    = sale.NewService(saleStore.New(db), userService, productService, invoiceService)
	)

	var (
		saleH    = saleHandler.NewHandler(saleService, invoiceService)
		productH = productHandler.NewHandler(productService, importer.New())
		invoiceH = invoiceHandler.NewHandler(invoiceService)
	)

	router := ventasHttp.New(ventasHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		Guard:          guard,
	}, saleH, productH, invoiceH)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	return nil
}
