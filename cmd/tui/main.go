package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ventas/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/ventas/internal/config"
	"github.com/MrJamesThe3rd/ventas/internal/database"
	"github.com/MrJamesThe3rd/ventas/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/ventas/internal/invoice/store"
	"github.com/MrJamesThe3rd/ventas/internal/product"
	productStore "github.com/MrJamesThe3rd/ventas/internal/product/store"
	"github.com/MrJamesThe3rd/ventas/internal/sale"
	saleStore "github.com/MrJamesThe3rd/ventas/internal/sale/store"
	"github.com/MrJamesThe3rd/ventas/internal/user"
	userStore "github.com/MrJamesThe3rd/ventas/internal/user/store"
)

// model routes input to the active screen; a nil screen means the menu.
type model struct {
	sales    *sale.Service
	products *product.Service
	invoices *invoice.Service

	screen tea.Model
	width  int
	height int
}

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	users := user.NewService(userStore.New(db))
	products := product.NewService(productStore.New(db))
	invoices := invoice.NewService(invoiceStore.New(db), cfg.Invoice.Prefix)

	return model{
		sales:    sale.NewService(saleStore.New(db), users, products, invoices),
		products: products,
		invoices: invoices,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

// open builds a fresh screen for a menu key so every visit reloads its data.
func (m model) open(key string) tea.Model {
	switch key {
	case "1":
		return view.NewCheckoutModel(m.sales)
	case "2":
		return view.NewSalesModel(m.sales)
	case "3":
		return view.NewProductsModel(m.products)
	case "4":
		return view.NewInvoicesModel(m.invoices)
	}

	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case view.BackMsg:
		m.screen = nil
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.screen == nil {
			if msg.String() == "q" {
				return m, tea.Quit
			}

			next := m.open(msg.String())
			if next == nil {
				return m, nil
			}

			m.screen = next
			cmds := []tea.Cmd{next.Init()}

			if m.height > 0 {
				sized := tea.WindowSizeMsg{Width: m.width, Height: m.height}
				cmds = append(cmds, func() tea.Msg { return sized })
			}

			return m, tea.Batch(cmds...)
		}
	}

	if m.screen == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.screen, cmd = m.screen.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.screen != nil {
		return m.screen.View()
	}

	return lipgloss.NewStyle().Padding(2).Render(
		"Ventas\n\n" +
			"1. Nueva venta\n" +
			"2. Ventas\n" +
			"3. Productos\n" +
			"4. Facturas\n\n" +
			"q. Salir",
	)
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
