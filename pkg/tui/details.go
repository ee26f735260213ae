package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/render"
)

type detailsMode int

const (
	detailsBrowse detailsMode = iota
	detailsNoteInput
	detailsPickNote
	detailsPickSeller
)

type pickerItem struct {
	id    int
	label string
}

// picker is a small cursor list used for choosing a note or a seller
type picker struct {
	title  string
	items  []pickerItem
	cursor int
}

func (p *picker) move(delta int) {
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= len(p.items) {
		p.cursor = len(p.items) - 1
	}
}

func (p *picker) selected() (pickerItem, bool) {
	if p.cursor < 0 || p.cursor >= len(p.items) {
		return pickerItem{}, false
	}
	return p.items[p.cursor], true
}

func (p *picker) View(width int) string {
	var b strings.Builder
	b.WriteString(renderHeading(p.title, width, HeaderStyle))
	b.WriteString("\n\n")
	if len(p.items) == 0 {
		b.WriteString(EmptyStyle.Render("Nothing to choose from"))
		return b.String()
	}
	for i, it := range p.items {
		line := truncate(it.label, width-2)
		if i == p.cursor {
			b.WriteString(SelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(NormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// DetailsModel shows one card's full record in a scrollable pane
type DetailsModel struct {
	card  models.Card
	stage models.Stage

	details     *models.CardDetails
	sellers     []models.Seller
	suggestions []string
	loading     bool
	err         error

	mode     detailsMode
	input    textinput.Model
	picker   picker
	viewport viewport.Model
	style    string

	width  int
	height int
}

func NewDetailsModel(style string) *DetailsModel {
	ti := textinput.New()
	ti.Placeholder = "Write a note and press enter"
	ti.Prompt = "✎ "
	ti.CharLimit = 2000

	return &DetailsModel{
		input:    ti,
		viewport: viewport.New(80, 20),
		style:    style,
	}
}

func (m *DetailsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 8
	m.viewport.Width = width - 4
	vh := height - 6
	if vh < 3 {
		vh = 3
	}
	m.viewport.Height = vh
	m.renderContent()
}

// Open resets the pane for a card; content arrives with SetDetails
func (m *DetailsModel) Open(card models.Card, stage models.Stage) {
	m.card = card
	m.stage = stage
	m.details = nil
	m.sellers = nil
	m.suggestions = nil
	m.err = nil
	m.loading = true
	m.mode = detailsBrowse
	m.input.Blur()
	m.input.SetValue("")
	m.viewport.GotoTop()
	m.viewport.SetContent(DescriptionStyle.Render("Loading card details..."))
}

func (m *DetailsModel) CardID() int {
	return m.card.ID
}

// SetDetails applies a finished load
func (m *DetailsModel) SetDetails(msg detailsLoadedMsg) {
	m.loading = false
	m.err = msg.err
	if msg.err != nil {
		m.viewport.SetContent(ErrorStyle.Render("Failed to load card: " + msg.err.Error()))
		return
	}
	m.details = msg.details
	if msg.sellers != nil {
		m.sellers = msg.sellers
	}
	if msg.suggestions != nil {
		m.suggestions = msg.suggestions
	}
	if msg.details != nil && msg.details.Stage.Valid() {
		m.stage = msg.details.Stage
	}
	m.renderContent()
}

func (m *DetailsModel) SetSuggestions(list []string) {
	m.suggestions = list
	m.renderContent()
}

func (m *DetailsModel) renderContent() {
	if m.details == nil {
		return
	}
	md := render.CardMarkdown(render.Details{
		Card:        *m.details,
		Potential:   m.card.SalesPotential,
		Industry:    m.card.Industry,
		SellerEmail: m.sellerEmail(),
		Suggestions: m.suggestions,
	})
	out, err := render.Markdown(md, m.style, m.viewport.Width-2)
	if err != nil {
		// Plain markdown is still readable
		out = md
	}
	m.viewport.SetContent(out)
}

func (m *DetailsModel) assignedSeller() (models.Seller, bool) {
	if m.details == nil || m.details.SellerID == nil {
		return models.Seller{}, false
	}
	for _, s := range m.sellers {
		if s.ID == *m.details.SellerID {
			return s, true
		}
	}
	return models.Seller{ID: *m.details.SellerID}, true
}

func (m *DetailsModel) sellerEmail() string {
	s, ok := m.assignedSeller()
	if !ok {
		return ""
	}
	return s.Email
}

func (m *DetailsModel) startNote() tea.Cmd {
	m.mode = detailsNoteInput
	m.input.SetValue("")
	return m.input.Focus()
}

// pickNote lists notes newest first
func (m *DetailsModel) pickNote() bool {
	if m.details == nil || len(m.details.Notes) == 0 {
		return false
	}
	items := make([]pickerItem, 0, len(m.details.Notes))
	for i := len(m.details.Notes) - 1; i >= 0; i-- {
		n := m.details.Notes[i]
		label := fmt.Sprintf("#%d %s", n.ID, strings.ReplaceAll(n.Content, "\n", " "))
		items = append(items, pickerItem{id: n.ID, label: label})
	}
	m.picker = picker{title: "DELETE NOTE", items: items}
	m.mode = detailsPickNote
	return true
}

func (m *DetailsModel) pickSeller() bool {
	if len(m.sellers) == 0 {
		return false
	}
	current, _ := m.assignedSeller()
	items := make([]pickerItem, len(m.sellers))
	cursor := 0
	for i, s := range m.sellers {
		label := fmt.Sprintf("%s (%s)", s.Email, s.Role)
		if s.ID == current.ID {
			label += " ✓"
			cursor = i
		}
		items[i] = pickerItem{id: s.ID, label: label}
	}
	m.picker = picker{title: "ASSIGN SELLER", items: items, cursor: cursor}
	m.mode = detailsPickSeller
	return true
}

func (m *DetailsModel) sellerByID(id int) (models.Seller, bool) {
	for _, s := range m.sellers {
		if s.ID == id {
			return s, true
		}
	}
	return models.Seller{}, false
}

func (m *DetailsModel) endMode() {
	m.mode = detailsBrowse
	m.input.Blur()
}

func (m *DetailsModel) View() string {
	var b strings.Builder
	title := fmt.Sprintf("%s #%d · %s", strings.ToUpper(m.card.DisplayTitle()), m.card.ID, m.stage.Label())
	b.WriteString(renderHeading(truncate(title, m.width-10), m.width-4, HeaderStyle))
	b.WriteString("\n\n")

	switch m.mode {
	case detailsPickNote, detailsPickSeller:
		b.WriteString(m.picker.View(m.width - 4))
	default:
		b.WriteString(m.viewport.View())
	}

	if m.mode == detailsNoteInput {
		b.WriteString("\n")
		b.WriteString(InputStyle.Width(m.width - 6).Render(m.input.View()))
	}

	return ContentPaddingStyle.Render(
		ActiveBorderStyle.Width(m.width - 2).Render(b.String()),
	)
}

// scrollPercent is shown in the help line
func (m *DetailsModel) scrollPercent() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)).
		Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100))
}
