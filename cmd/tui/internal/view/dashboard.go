package view

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/browse"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

type DashboardModel struct {
	CommonModel
	browser *browse.Browser

	stats   voucher.Stats
	loading bool
	err     error
}

func NewDashboardModel(b *browse.Browser) DashboardModel {
	return DashboardModel{browser: b, loading: true}
}

func (m DashboardModel) Title() string     { return "Dashboard" }
func (m DashboardModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m DashboardModel) Init() tea.Cmd {
	return m.loadStatsCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsMsg:
		m.loading = false
		m.stats = msg.stats
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadStatsCmd()
		}
	}

	return m, nil
}

func (m DashboardModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading statistics...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	card := lipgloss.NewStyle().
		Padding(0, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63"))

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card.Render(fmt.Sprintf("Total\n%s", activeStyle(fmt.Sprint(m.stats.Total)))),
		card.Render(fmt.Sprintf("Active\n%s", okStyle.Render(fmt.Sprint(m.stats.Active)))),
		card.Render(fmt.Sprintf("Expired\n%s", errorStyle.Render(fmt.Sprint(m.stats.Expired)))),
		card.Render(fmt.Sprintf("Expiring soon\n%s", activeStyle(fmt.Sprint(m.stats.ExpiringSoon)))),
		card.Render(fmt.Sprintf("Avg discount\n%s", activeStyle(fmt.Sprintf("%d%%", m.stats.AverageDiscount)))),
	)

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render("Voucher Dashboard"),
			"",
			cards,
			"",
			faintStyle.Render(m.ShortHelp()),
		),
	)
}

type statsMsg struct {
	stats voucher.Stats
	err   error
}

func (m DashboardModel) loadStatsCmd() tea.Cmd {
	b := m.browser

	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()

		st, err := b.Stats(ctx)

		return statsMsg{stats: st, err: err}
	}
}
