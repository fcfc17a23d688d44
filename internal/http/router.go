package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/ventas/internal/http/invoice"
	ventasMiddleware "github.com/MrJamesThe3rd/ventas/internal/http/middleware"
	"github.com/MrJamesThe3rd/ventas/internal/http/product"
	"github.com/MrJamesThe3rd/ventas/internal/http/sale"
	"github.com/MrJamesThe3rd/ventas/internal/idempotency"
)

type Options struct {
	AllowedOrigins []string
	// JWTSecret empty disables authentication.
	JWTSecret string
	// Guard nil disables Idempotency-Key handling on sale creation.
	Guard idempotency.Guard
}

func New(
	opts Options,
	salesV1 *sale.Handler,
	productsV1 *product.Handler,
	invoicesV1 *invoice.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ventasMiddleware.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", health)

	router.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(ventasMiddleware.Auth([]byte(opts.JWTSecret)))
		}

		r.Route("/ventas", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))

			if opts.Guard != nil {
				r.Use(ventasMiddleware.Idempotency(opts.Guard))
			}

			salesV1.Routes(r)
		})

		r.Route("/productos", productsV1.Routes)
		r.Route("/facturas", invoicesV1.Routes)
	})

	return router
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
