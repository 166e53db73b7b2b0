package view

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/browse"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/voucher"
)

const searchDebounce = 300 * time.Millisecond

// pageSizes are the limits the L key cycles through.
var pageSizes = []int{voucher.DefaultLimit, 25, 50, voucher.MaxLimit}

func nextPageSize(current int) int {
	for i, n := range pageSizes {
		if n == current {
			return pageSizes[(i+1)%len(pageSizes)]
		}
	}

	return pageSizes[0]
}

type vouchersState int

const (
	vouchersStateBrowse vouchersState = iota
	vouchersStateSearch
	vouchersStateForm
	vouchersStateDelete
)

// voucherForm lives on the heap so huh can bind to it across model copies.
type voucherForm struct {
	id       int64
	code     string
	discount string
	expiry   string
	confirm  bool
}

type VouchersModel struct {
	CommonModel
	browser *browse.Browser

	state  vouchersState
	table  table.Model
	search textinput.Model
	form   *huh.Form
	fields *voucherForm

	items     []*voucher.Voucher
	searchGen int
	loading   bool
	status    string
	err       error
}

func NewVouchersModel(b *browse.Browser) VouchersModel {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Code", Width: 24},
		{Title: "Discount", Width: 10},
		{Title: "Expiry", Width: 12},
		{Title: "Status", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(voucher.DefaultLimit+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	in := textinput.New()
	in.Placeholder = "search by code"
	in.Prompt = "/ "
	in.CharLimit = 64
	in.SetValue(b.Query().Search)

	return VouchersModel{
		browser: b,
		table:   t,
		search:  in,
		loading: true,
	}
}

func (m VouchersModel) Title() string { return "Vouchers" }

func (m VouchersModel) ShortHelp() string {
	switch m.state {
	case vouchersStateSearch:
		return "Type to search | Enter/Esc: done"
	case vouchersStateForm, vouchersStateDelete:
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | /: search | s: sort field | o: order | ←/→: page | L: page size | n: new | e: edit | x: delete | r: refresh"
}

func (m VouchersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m VouchersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pageMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.refreshTable()
		}

		return m, nil

	case searchTickMsg:
		if msg.gen != m.searchGen {
			return m, nil
		}

		m.browser.SetSearch(m.search.Value())
		m.loading = true

		return m, m.loadCmd()

	case mutationMsg:
		m.state = vouchersStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle.Render(describeError(msg.err))
			return m, nil
		}

		m.err = nil
		m.status = okStyle.Render(msg.status)

		if msg.refreshErr != nil {
			m.status += " " + errorStyle.Render(fmt.Sprintf("List not refreshed: %v", msg.refreshErr))
			return m, nil
		}

		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		return m, nil
	}

	switch m.state {
	case vouchersStateSearch:
		return m.updateSearch(msg)
	case vouchersStateForm, vouchersStateDelete:
		return m.updateForm(msg)
	}

	return m.updateBrowse(msg)
}

func (m VouchersModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		q := m.browser.Query()

		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "/":
			m.state = vouchersStateSearch
			m.table.Blur()

			return m, m.search.Focus()
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			field := voucher.SortDiscount
			if q.Sort == voucher.SortDiscount {
				field = voucher.SortExpiryDate
			}

			m.browser.SetSort(field, q.Order)

			return m, m.loadCmd()
		case "o":
			order := voucher.OrderDesc
			if q.Order == voucher.OrderDesc {
				order = voucher.OrderAsc
			}

			m.browser.SetSort(q.Sort, order)

			return m, m.loadCmd()
		case "L":
			m.browser.SetLimit(nextPageSize(q.Limit))
			return m, m.loadCmd()
		case "right", "l":
			m.browser.SetPage(q.Page + 1)
			return m, m.loadCmd()
		case "left", "h":
			m.browser.SetPage(q.Page - 1)
			return m, m.loadCmd()
		case "n":
			return m.openForm(&voucherForm{})
		case "e":
			v := m.selected()
			if v == nil {
				return m, nil
			}

			in := v.Input()

			return m.openForm(&voucherForm{id: v.ID, code: in.Code, discount: in.DiscountPercent, expiry: in.ExpiryDate})
		case "x":
			v := m.selected()
			if v == nil {
				return m, nil
			}

			return m.openDelete(v)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m VouchersModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.state = vouchersStateBrowse
			m.search.Blur()
			m.table.Focus()

			return m, nil
		}
	}

	before := m.search.Value()

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)

	if m.search.Value() == before {
		return m, cmd
	}

	m.searchGen++
	gen := m.searchGen

	return m, tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{gen: gen}
	}))
}

func (m VouchersModel) openForm(f *voucherForm) (tea.Model, tea.Cmd) {
	title := "New Voucher"
	if f.id != 0 {
		title = fmt.Sprintf("Edit Voucher #%d", f.id)
	}

	m.fields = f
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key(voucher.FieldCode).
				Title("Voucher code").
				Value(&f.code),

			huh.NewInput().
				Key(voucher.FieldDiscount).
				Title("Discount percent").
				Description("Whole number from 1 to 100").
				Value(&f.discount).
				Validate(func(s string) error {
					if _, err := strconv.Atoi(s); err != nil {
						return errors.New("discount must be a whole number")
					}

					return nil
				}),

			huh.NewInput().
				Key(voucher.FieldExpiry).
				Title("Expiry date").
				Placeholder("YYYY-MM-DD").
				Value(&f.expiry).
				Validate(func(s string) error {
					if _, err := voucher.ParseExpiry(s); err != nil {
						return errors.New("use the YYYY-MM-DD format")
					}

					return nil
				}),
		).Title(title),
	).WithWidth(45).WithShowHelp(false)

	m.state = vouchersStateForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m VouchersModel) openDelete(v *voucher.Voucher) (tea.Model, tea.Cmd) {
	f := &voucherForm{id: v.ID, code: v.Code}

	m.fields = f
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete voucher %s?", v.Code)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&f.confirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = vouchersStateDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m VouchersModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = vouchersStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
	case huh.StateAborted:
		m.state = vouchersStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	default:
		return m, cmd
	}

	if m.state == vouchersStateDelete {
		if !m.fields.confirm {
			m.state = vouchersStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}

		return m, m.deleteCmd(m.fields.id, m.fields.code)
	}

	return m, m.saveCmd(m.fields)
}

func (m VouchersModel) View() string {
	q := m.browser.Query()
	p := m.browser.Page().Pagination

	header := fmt.Sprintf(
		"%s  [s] Sort: %s | [o] Order: %s | [L] %s per page | Page %s of %d (%d total)",
		m.search.View(),
		activeStyle(string(q.Sort)),
		activeStyle(string(q.Order)),
		activeStyle(strconv.Itoa(q.Limit)),
		activeStyle(strconv.Itoa(q.Page)),
		p.TotalPages,
		p.Total,
	)

	body := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if len(m.items) == 0 && !m.loading {
		body = lipgloss.NewStyle().Padding(1).Render(faintStyle.Render("No vouchers found."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("Vouchers"),
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		body,
	)

	if m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	footer := []string{content}

	switch {
	case m.err != nil:
		footer = append(footer, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.loading:
		footer = append(footer, faintStyle.Render("Loading..."))
	case m.status != "":
		footer = append(footer, m.status)
	}

	footer = append(footer, faintStyle.Render(m.ShortHelp()))

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, footer...))
}

func (m VouchersModel) selected() *voucher.Voucher {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return nil
	}

	return m.items[idx]
}

func (m *VouchersModel) refreshTable() {
	m.items = m.browser.Page().Items

	now := time.Now()
	rows := make([]table.Row, 0, len(m.items))

	for _, v := range m.items {
		rows = append(rows, table.Row{
			strconv.FormatInt(v.ID, 10),
			v.Code,
			fmt.Sprintf("%d%%", v.DiscountPercent),
			FormatDate(v.ExpiryDate),
			string(v.Status(now)),
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// describeError flattens field errors into one line for the status bar.
func describeError(err error) string {
	var ve *voucher.ValidationError
	if errors.As(err, &ve) {
		if _, msg := ve.Fields.First(); msg != "" {
			return "Error: " + msg
		}
	}

	return fmt.Sprintf("Error: %v", err)
}

// Messages

type pageMsg struct {
	err error
}

type searchTickMsg struct {
	gen int
}

type mutationMsg struct {
	status     string
	err        error
	refreshErr error
}

// mutated builds the message for a finished mutation. A *browse.RefreshError
// means the change itself went through and only the list reload failed.
func mutated(status string, err error) mutationMsg {
	var re *browse.RefreshError
	if errors.As(err, &re) {
		return mutationMsg{status: status, refreshErr: re.Err}
	}

	if err != nil {
		return mutationMsg{err: err}
	}

	return mutationMsg{status: status}
}

// loadCmd issues a ticket for the active query. Responses overtaken by a
// newer request produce no message.
func (m VouchersModel) loadCmd() tea.Cmd {
	b := m.browser
	t, q := b.Begin()

	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()

		_, err := b.Fetch(ctx, t, q)
		if errors.Is(err, browse.ErrStale) {
			return nil
		}

		return pageMsg{err: err}
	}
}

func (m VouchersModel) saveCmd(f *voucherForm) tea.Cmd {
	b := m.browser
	in := voucher.Input{Code: f.code, DiscountPercent: f.discount, ExpiryDate: f.expiry}
	id := f.id

	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()

		if id == 0 {
			v, err := b.Create(ctx, in)
			if v == nil {
				return mutationMsg{err: err}
			}

			return mutated(fmt.Sprintf("Created %s.", v.Code), err)
		}

		v, err := b.Update(ctx, id, in)
		if v == nil {
			return mutationMsg{err: err}
		}

		return mutated(fmt.Sprintf("Updated %s.", v.Code), err)
	}
}

func (m VouchersModel) deleteCmd(id int64, code string) tea.Cmd {
	b := m.browser

	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()

		return mutated(fmt.Sprintf("Deleted %s.", code), b.Delete(ctx, id))
	}
}
