package middleware

import (
	"context"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/ventas/internal/idempotency"
)

const IdempotencyHeader = "Idempotency-Key"

// Idempotency lets a client retry a POST safely: the first request carrying a
// given Idempotency-Key is served, repeats get 409 Conflict. A key whose
// request fails (status >= 400 or a panic) is released so the client can try
// again.
// Requests without the header, and non-POST requests, pass through.
func Idempotency(guard idempotency.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			claimed, err := guard.Claim(r.Context(), key)
			if err != nil {
				slog.Error("claiming idempotency key", "key", key, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)

				return
			}

			if !claimed {
				http.Error(w, "duplicate request: idempotency key already used", http.StatusConflict)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				rvr := recover()

				if rvr != nil || ww.Status() >= http.StatusBadRequest {
					if err := guard.Release(context.WithoutCancel(r.Context()), key); err != nil {
						slog.Error("releasing idempotency key", "key", key, "error", err)
					}
				}

				if rvr != nil {
					panic(rvr)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
