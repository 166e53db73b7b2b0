package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mhakimsaputra17/discount-voucher-management/cmd/tui/internal/view"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/browse"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/client"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/config"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/logging"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher/memstore"
)

type model struct {
	browser *browse.Browser
	source  string

	currentView View

	dashboardView view.DashboardModel
	vouchersView  view.VouchersModel
	importView    view.ImportModel
	exportView    view.ExportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewDashboard View = 1
	ViewVouchers  View = 2
	ViewImport    View = 3
	ViewExport    View = 4
)

func initialModel(src browse.Source, label string) model {
	return model{
		browser:     browse.New(src),
		source:      label,
		currentView: ViewMenu,
	}
}

// openSource signs in to the API, or runs an in-process service over an
// in-memory store when TUI_MODE=local.
func openSource(cfg *config.Config) (browse.Source, string, error) {
	if cfg.Client.Mode == config.ModeLocal {
		return browse.NewLocal(voucher.NewService(memstore.New())), "local (in-memory)", nil
	}

	c := client.New(client.Session{BaseURL: cfg.Client.APIURL}, cfg.Client.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout)
	defer cancel()

	if err := c.Login(ctx, auth.Credentials{Email: cfg.Client.Email, Password: cfg.Client.Password}); err != nil {
		return nil, "", fmt.Errorf("login to %s: %w", cfg.Client.APIURL, err)
	}

	return c, cfg.Client.APIURL, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDashboard
				m.dashboardView = view.NewDashboardModel(m.browser)

				return m, m.dashboardView.Init()
			case "2":
				m.currentView = ViewVouchers
				m.vouchersView = view.NewVouchersModel(m.browser)

				return m, m.vouchersView.Init()
			case "3":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.browser)

				return m, m.importView.Init()
			case "4":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.browser)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewVouchers:
		var newModel tea.Model
		newModel, cmd = m.vouchersView.Update(msg)
		m.vouchersView = newModel.(view.VouchersModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Voucher Manager\n" +
				lipgloss.NewStyle().Faint(true).Render("Source: "+m.source) + "\n\n" +
				"1. Dashboard\n" +
				"2. Browse Vouchers\n" +
				"3. Import CSV\n" +
				"4. Export CSV\n\n" +
				"q. Quit",
		)
	}

	if v := m.active(); v != nil {
		crumb := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render("Voucher Manager › " + v.Title())
		return crumb + "\n" + v.View()
	}

	return "Unknown View"
}

// active is the screen shown for the current view, nil on the menu.
func (m model) active() view.View {
	switch m.currentView {
	case ViewDashboard:
		return m.dashboardView
	case ViewVouchers:
		return m.vouchersView
	case ViewImport:
		return m.importView
	case ViewExport:
		return m.exportView
	}

	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	src, label, err := openSource(cfg)
	if err != nil {
		slog.Error("failed to open voucher source", "mode", cfg.Client.Mode, "error", err)
		os.Exit(1)
	}

	// Log to a file once the screen is taken over.
	if f, err := tea.LogToFile("tui.log", "tui"); err == nil {
		defer f.Close()
		slog.SetDefault(logging.New(f, cfg.App.LogLevel, cfg.App.LogFormat))
	}

	p := tea.NewProgram(initialModel(src, label), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
