package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/browse"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

// maxListedFailures caps the failure lines shown under an import report.
const maxListedFailures = 15

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	browser *browse.Browser

	state      importState
	filePicker filepicker.Model
	spinner    spinner.Model
	path       string

	result *voucher.ImportResult
	err    error
}

func NewImportModel(b *browse.Browser) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ImportModel{
		browser:    b,
		filePicker: fp,
		spinner:    s,
	}
}

func (m ImportModel) Title() string { return "Import Vouchers" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateImporting:
		return "Importing..."
	case importStateResult:
		return "Esc: back | Enter: import another file"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case importStateImporting:
			return m, nil
		case importStateResult:
			switch msg.Type {
			case tea.KeyEsc:
				return m, Back
			case tea.KeyEnter:
				m.state = importStateFilePick
				m.result = nil
				m.err = nil

				return m, m.filePicker.Init()
			}

			return m, nil
		}

		if msg.Type == tea.KeyEsc {
			return m, Back
		}

	case importResultMsg:
		m.state = importStateResult
		m.result = msg.result
		m.err = msg.err

		return m, nil

	case spinner.TickMsg:
		if m.state != importStateImporting {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.path = path

		return m, tea.Batch(m.spinner.Tick, m.importCmd(path))
	}

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s\n\nColumns: voucher_code, discount_percent, expiry_date\n\n%s",
				headerStyle.Render("Select a CSV file to import"), m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("%s Importing %s...", m.spinner.View(), filepath.Base(m.path)),
		)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)

	if m.err != nil {
		return style.Render(errorStyle.Render(describeError(m.err)) + "\n\n" + faintStyle.Render(m.ShortHelp()))
	}

	return style.Render(FormatImportReport(m.result) + "\n\n" + faintStyle.Render(m.ShortHelp()))
}

// FormatImportReport renders counts and the first failures of an import.
func FormatImportReport(r *voucher.ImportResult) string {
	var sb strings.Builder

	sb.WriteString(okStyle.Render(fmt.Sprintf("Imported %d of %d rows.", r.SuccessCount, r.TotalRows)))

	if r.FailureCount == 0 {
		return sb.String()
	}

	sb.WriteString("\n")
	sb.WriteString(errorStyle.Render(fmt.Sprintf("%d rows failed:", r.FailureCount)))

	for i, f := range r.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&sb, "\n  ... and %d more", len(r.Failures)-maxListedFailures)
			break
		}

		fmt.Fprintf(&sb, "\n  row %d: %s", f.Row, f.Reason)
	}

	return sb.String()
}

// Messages

type importResultMsg struct {
	result *voucher.ImportResult
	err    error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	b := m.browser

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
		defer cancel()

		res, err := b.Import(ctx, filepath.Base(path), f)

		return importResultMsg{result: res, err: err}
	}
}
