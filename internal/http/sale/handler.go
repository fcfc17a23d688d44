package sale

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	svc      *sale.Service
	invoices *invoice.Service
}

func NewHandler(svc *sale.Service, invoices *invoice.Service) *Handler {
	return &Handler{svc: svc, invoices: invoices}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/factura", h.getInvoice)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createSaleRequest struct {
	// Unknown ids, zero included, are reported by the workflow as not found.
	UserID         int64   `json:"usuario_id"`
	ProductIDs     []int64 `json:"productos" validate:"required,min=1"`
	Notes          string  `json:"notas"`
	ClientName     string  `json:"cliente_nombre" validate:"max=200"`
	ClientDocument string  `json:"cliente_documento" validate:"max=50"`
	InvoiceType    string  `json:"tipo" validate:"required,oneof=A B C"`

	// Accepted for client compatibility; the total is always computed.
	Total json.Number `json:"importe_total,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.svc.Create(r.Context(), sale.CreateParams{
		UserID:         req.UserID,
		ProductIDs:     req.ProductIDs,
		Notes:          req.Notes,
		ClientName:     req.ClientName,
		ClientDocument: req.ClientDocument,
		InvoiceType:    invoice.Type(req.InvoiceType),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(s))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(sales))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	inv, err := h.invoices.GetBySale(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice for sale "+strconv.FormatInt(id, 10)+" not found", http.StatusNotFound)
			return
		}

		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type updateSaleRequest struct {
	UserID     *int64  `json:"usuario_id,omitempty"`
	ProductIDs []int64 `json:"productos,omitempty"`
	Notes      *string `json:"notas,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateSaleRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.svc.Update(r.Context(), id, sale.UpdateParams{
		UserID:     req.UserID,
		ProductIDs: req.ProductIDs,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

// writeError maps domain errors to status codes. Unexpected errors are logged
// and hidden behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sale.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sale.ErrInsufficientStock),
		errors.Is(err, sale.ErrNoProducts),
		errors.Is(err, invoice.ErrInvalidType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("sale request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
