package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
)

type checkoutState int

const (
	checkoutStateForm checkoutState = iota
	checkoutStateSaving
	checkoutStateDone
)

// CheckoutModel records a new sale from the counter.
type CheckoutModel struct {
	CommonModel
	saleService *sale.Service

	state checkoutState
	form  *huh.Form

	result *sale.Sale
	err    error

	// Shared by every copy of the model so the form writes where we read.
	fields *checkoutFields
}

type checkoutFields struct {
	buyer          string
	products       string
	notes          string
	clientName     string
	clientDocument string
	invoiceType    string
}

func NewCheckoutModel(saleSvc *sale.Service) CheckoutModel {
	f := &checkoutFields{invoiceType: string(invoice.TypeB)}

	return CheckoutModel{
		saleService: saleSvc,
		form:        buildCheckoutForm(f),
		fields:      f,
	}
}

func buildCheckoutForm(f *checkoutFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("buyer").
				Title("ID de usuario").
				Value(&f.buyer).
				Validate(func(s string) error {
					if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil || id <= 0 {
						return errors.New("ingrese un id numérico")
					}

					return nil
				}),

			huh.NewInput().
				Key("products").
				Title("Productos").
				Description("Repita un id para vender más de una unidad.").
				Placeholder("2, 2, 3").
				Value(&f.products).
				Validate(func(s string) error {
					_, err := ParseIDs(s)
					return err
				}),

			huh.NewText().
				Key("notes").
				Title("Notas").
				Lines(2).
				Value(&f.notes),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("client_name").
				Title("Cliente (factura)").
				Value(&f.clientName),

			huh.NewInput().
				Key("client_document").
				Title("Documento").
				Placeholder("20-12345678-9").
				Value(&f.clientDocument),

			huh.NewSelect[string]().
				Key("invoice_type").
				Title("Tipo de factura").
				Options(huh.NewOptions(string(invoice.TypeA), string(invoice.TypeB), string(invoice.TypeC))...).
				Value(&f.invoiceType),
		),
	).WithWidth(50).WithShowHelp(true)
}

func (m CheckoutModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m CheckoutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case checkoutResultMsg:
		m.state = checkoutStateDone
		m.result = msg.sale
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

		if m.state == checkoutStateDone {
			if msg.String() == "n" {
				next := NewCheckoutModel(m.saleService)
				return next, next.Init()
			}

			return m, nil
		}
	}

	if m.state != checkoutStateForm {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.state = checkoutStateSaving
		return m, m.createCmd()
	}

	return m, cmd
}

func (m CheckoutModel) View() string {
	switch m.state {
	case checkoutStateSaving:
		return padded("Registrando venta...")
	case checkoutStateDone:
		if m.err != nil {
			return padded(fmt.Sprintf("No se pudo registrar la venta:\n\n%v\n\n%s", m.err, faint("n: nueva venta | Esc: volver")))
		}

		return padded(m.receipt() + "\n\n" + faint("n: nueva venta | Esc: volver"))
	}

	return padded("Nueva venta\n\n" + m.form.View())
}

func (m CheckoutModel) receipt() string {
	s := m.result

	var b strings.Builder

	fmt.Fprintf(&b, "Venta %d registrada\n\n", s.ID)

	for _, item := range s.Items {
		fmt.Fprintf(&b, "  %3d x %-30s %s\n", item.Quantity, item.Name, FormatMoney(item.Price))
	}

	fmt.Fprintf(&b, "\n  Total: %s", FormatMoney(s.Total))

	if s.Invoice != nil {
		fmt.Fprintf(&b, "\n  Factura %s %s", s.Invoice.Type, s.Invoice.Number)
	}

	return b.String()
}

type checkoutResultMsg struct {
	sale *sale.Sale
	err  error
}

func (m CheckoutModel) createCmd() tea.Cmd {
	f := m.fields
	buyer, _ := strconv.ParseInt(strings.TrimSpace(f.buyer), 10, 64)
	ids, _ := ParseIDs(f.products)

	params := sale.CreateParams{
		UserID:         buyer,
		ProductIDs:     ids,
		Notes:          strings.TrimSpace(f.notes),
		ClientName:     strings.TrimSpace(f.clientName),
		ClientDocument: strings.TrimSpace(f.clientDocument),
		InvoiceType:    invoice.Type(f.invoiceType),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		s, err := m.saleService.Create(ctx, params)

		return checkoutResultMsg{sale: s, err: err}
	}
}
