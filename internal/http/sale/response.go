package sale

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
)

type saleResponse struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"usuario_id"`
	Buyer     *buyerResponse   `json:"usuario,omitempty"`
	Products  []itemResponse   `json:"productos"`
	Total     json.Number      `json:"importe_total"`
	Notes     string           `json:"notas,omitempty"`
	Invoice   *invoiceResponse `json:"factura,omitempty"`
	CreatedAt time.Time        `json:"fecha_creacion"`
	UpdatedAt *time.Time       `json:"fecha_actualizacion,omitempty"`
}

type buyerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email,omitempty"`
	Phone string `json:"telefono,omitempty"`
}

type itemResponse struct {
	ID       int64       `json:"id"`
	Name     string      `json:"nombre"`
	Price    json.Number `json:"precio"`
	Quantity int         `json:"cantidad"`
}

type invoiceResponse struct {
	ID             int64        `json:"id"`
	SaleID         int64        `json:"venta_id"`
	Number         string       `json:"numero"`
	ClientName     string       `json:"cliente_nombre"`
	ClientDocument string       `json:"cliente_documento"`
	Type           invoice.Type `json:"tipo"`
	Reference      uuid.UUID    `json:"referencia"`
	CreatedAt      time.Time    `json:"fecha_emision"`
}

// money renders an amount with exactly two decimals as a JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func toResponse(s *sale.Sale) saleResponse {
	resp := saleResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Products:  make([]itemResponse, len(s.Items)),
		Total:     money(s.Total),
		Notes:     s.Notes,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}

	if s.Buyer != nil {
		resp.Buyer = &buyerResponse{
			ID:    s.Buyer.ID,
			Name:  s.Buyer.Name,
			Email: s.Buyer.Email,
			Phone: s.Buyer.Phone,
		}
	}

	for i, item := range s.Items {
		resp.Products[i] = itemResponse{
			ID:       item.ProductID,
			Name:     item.Name,
			Price:    money(item.Price),
			Quantity: item.Quantity,
		}
	}

	if s.Invoice != nil {
		inv := toInvoiceResponse(s.Invoice)
		resp.Invoice = &inv
	}

	return resp
}

func toResponseList(sales []*sale.Sale) []saleResponse {
	resp := make([]saleResponse, len(sales))
	for i, s := range sales {
		resp[i] = toResponse(s)
	}

	return resp
}

func toInvoiceResponse(inv *invoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:             inv.ID,
		SaleID:         inv.SaleID,
		Number:         inv.Number,
		ClientName:     inv.ClientName,
		ClientDocument: inv.ClientDocument,
		Type:           inv.Type,
		Reference:      inv.Reference,
		CreatedAt:      inv.CreatedAt,
	}
}
