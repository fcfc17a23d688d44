package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ventas/internal/product"
)

// ProductsModel shows the catalogue with current stock.
type ProductsModel struct {
	CommonModel
	productService *product.Service

	table    table.Model
	products []*product.Product
	loading  bool
	err      error
}

func NewProductsModel(productSvc *product.Service) ProductsModel {
	return ProductsModel{
		productService: productSvc,
		loading:        true,
		table: newTable([]table.Column{
			{Title: "ID", Width: 6},
			{Title: "Nombre", Width: 35},
			{Title: "Precio", Width: 18},
			{Title: "Stock", Width: 7},
			{Title: "Estado", Width: 9},
		}),
	}
}

func (m ProductsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ProductsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadProductsMsg:
		m.loading = false
		m.err = msg.err
		m.products = msg.products
		m.table.SetRows(productRows(m.products))

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

func (m ProductsModel) View() string {
	if m.loading {
		return padded("Cargando productos...")
	}

	if m.err != nil {
		return padded(fmt.Sprintf("Error: %v\n\n%s", m.err, faint("Esc: volver | r: reintentar")))
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(fmt.Sprintf("Productos (%d)", len(m.products))),
		boxed(m.table.View()),
		faint("Esc: volver | r: refrescar"),
	))
}

func productRows(products []*product.Product) []table.Row {
	rows := make([]table.Row, 0, len(products))

	for _, p := range products {
		status := "activo"
		if !p.Active {
			status = "inactivo"
		}

		rows = append(rows, table.Row{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			FormatMoney(p.Price),
			strconv.Itoa(p.Stock),
			status,
		})
	}

	return rows
}

type loadProductsMsg struct {
	products []*product.Product
	err      error
}

func (m ProductsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		products, err := m.productService.List(ctx)

		return loadProductsMsg{products: products, err: err}
	}
}
