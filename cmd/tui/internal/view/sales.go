package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ventas/internal/sale"
)

type salesState int

const (
	salesStateBrowse salesState = iota
	salesStateEdit
	salesStateDelete
)

type SalesModel struct {
	CommonModel
	saleService *sale.Service

	state salesState
	table table.Model
	sales []*sale.Sale
	form  *huh.Form

	loading bool
	err     error
	status  string

	// Shared by every copy of the model so the form writes where we read.
	fields *salesFields
}

type salesFields struct {
	notes    string
	products string
	confirm  bool
}

func NewSalesModel(saleSvc *sale.Service) SalesModel {
	return SalesModel{
		saleService: saleSvc,
		loading:     true,
		fields:      &salesFields{},
		table: newTable([]table.Column{
			{Title: "ID", Width: 6},
			{Title: "Fecha", Width: 17},
			{Title: "Cliente", Width: 20},
			{Title: "Productos", Width: 30},
			{Title: "Total", Width: 18},
			{Title: "Factura", Width: 12},
		}),
	}
}

func (m SalesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m SalesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadSalesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.sales = msg.sales
		m.refreshTable()

		return m, nil

	case saleActionMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.state = salesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == salesStateBrowse {
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m SalesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "e":
			return m.enterEdit()
		case "x":
			return m.enterDelete()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SalesModel) selected() *sale.Sale {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.sales) {
		return nil
	}

	return m.sales[idx]
}

func (m SalesModel) enterEdit() (tea.Model, tea.Cmd) {
	s := m.selected()
	if s == nil {
		return m, nil
	}

	m.fields.notes = s.Notes
	m.fields.products = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("notes").
				Title("Notas").
				Value(&m.fields.notes),

			huh.NewInput().
				Key("products").
				Title("Reemplazar productos").
				Description("Vacío conserva los actuales. El stock no se modifica.").
				Placeholder("2, 2, 3").
				Value(&m.fields.products).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}

					_, err := ParseIDs(s)

					return err
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = salesStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m SalesModel) enterDelete() (tea.Model, tea.Cmd) {
	s := m.selected()
	if s == nil {
		return m, nil
	}

	m.fields.confirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("¿Eliminar la venta %d y su factura?", s.ID)).
				Description("El stock no se repone.").
				Affirmative("Eliminar").
				Negative("Cancelar").
				Value(&m.fields.confirm),
		),
	).WithShowHelp(false)

	m.state = salesStateDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m SalesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = salesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == salesStateDelete {
		if !m.fields.confirm {
			m.state = salesStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}

		return m, m.deleteCmd()
	}

	return m, m.saveCmd()
}

func (m SalesModel) View() string {
	if m.loading {
		return padded("Cargando ventas...")
	}

	if m.err != nil {
		return padded(fmt.Sprintf("Error: %v", m.err))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(fmt.Sprintf("Ventas (%d)", len(m.sales))),
		boxed(m.table.View()),
		faint("Esc: volver | e: editar | x: eliminar | r: refrescar"),
	)

	if m.state != salesStateBrowse && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faint(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *SalesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.sales))

	for _, s := range m.sales {
		buyer := strconv.FormatInt(s.UserID, 10)
		if s.Buyer != nil {
			buyer = s.Buyer.Name
		}

		invoiceNumber := "-"
		if s.Invoice != nil {
			invoiceNumber = s.Invoice.Number
		}

		rows = append(rows, table.Row{
			strconv.FormatInt(s.ID, 10),
			FormatDate(s.CreatedAt),
			buyer,
			itemsSummary(s.Items),
			FormatMoney(s.Total),
			invoiceNumber,
		})
	}

	m.table.SetRows(rows)
}

func itemsSummary(items []sale.Item) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	}

	return strings.Join(parts, ", ")
}

// Messages

type loadSalesMsg struct {
	sales []*sale.Sale
	err   error
}

func (m SalesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		sales, err := m.saleService.List(ctx)

		return loadSalesMsg{sales: sales, err: err}
	}
}

type saleActionMsg struct {
	status string
	err    error
}

func (m SalesModel) saveCmd() tea.Cmd {
	s := m.selected()
	if s == nil {
		return nil
	}

	id := s.ID
	notes := m.fields.notes
	products := strings.TrimSpace(m.fields.products)

	return func() tea.Msg {
		params := sale.UpdateParams{Notes: &notes}

		if products != "" {
			ids, err := ParseIDs(products)
			if err != nil {
				return saleActionMsg{err: err}
			}

			params.ProductIDs = ids
		}

		ctx, cancel := DbCtx()
		defer cancel()

		updated, err := m.saleService.Update(ctx, id, params)
		if err != nil {
			return saleActionMsg{err: err}
		}

		return saleActionMsg{status: fmt.Sprintf("Venta %d actualizada, total %s", id, FormatMoney(updated.Total))}
	}
}

func (m SalesModel) deleteCmd() tea.Cmd {
	s := m.selected()
	if s == nil {
		return nil
	}

	id := s.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.saleService.Remove(ctx, id); err != nil {
			return saleActionMsg{err: err}
		}

		return saleActionMsg{status: fmt.Sprintf("Venta %d eliminada", id)}
	}
}
