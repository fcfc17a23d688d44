package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ventas/internal/invoice"
)

type InvoicesModel struct {
	CommonModel
	invoiceService *invoice.Service

	table    table.Model
	invoices []*invoice.Invoice
	loading  bool
	err      error
}

func NewInvoicesModel(invoiceSvc *invoice.Service) InvoicesModel {
	return InvoicesModel{
		invoiceService: invoiceSvc,
		loading:        true,
		table: newTable([]table.Column{
			{Title: "Número", Width: 12},
			{Title: "Tipo", Width: 5},
			{Title: "Venta", Width: 7},
			{Title: "Cliente", Width: 24},
			{Title: "Documento", Width: 15},
			{Title: "Fecha", Width: 17},
		}),
	}
}

func (m InvoicesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadInvoicesMsg:
		m.loading = false
		m.err = msg.err
		m.invoices = msg.invoices
		m.table.SetRows(invoiceRows(m.invoices))

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InvoicesModel) View() string {
	if m.loading {
		return padded("Cargando facturas...")
	}

	if m.err != nil {
		return padded(fmt.Sprintf("Error: %v\n\n%s", m.err, faint("Esc: volver | r: reintentar")))
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(fmt.Sprintf("Facturas (%d)", len(m.invoices))),
		boxed(m.table.View()),
		faint("Esc: volver | r: refrescar"),
	))
}

func invoiceRows(invoices []*invoice.Invoice) []table.Row {
	rows := make([]table.Row, 0, len(invoices))

	for _, inv := range invoices {
		client := inv.ClientName
		if client == "" {
			client = "Consumidor final"
		}

		rows = append(rows, table.Row{
			inv.Number,
			string(inv.Type),
			strconv.FormatInt(inv.SaleID, 10),
			client,
			inv.ClientDocument,
			FormatDate(inv.CreatedAt),
		})
	}

	return rows
}

type loadInvoicesMsg struct {
	invoices []*invoice.Invoice
	err      error
}

func (m InvoicesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		invoices, err := m.invoiceService.List(ctx)

		return loadInvoicesMsg{invoices: invoices, err: err}
	}
}
