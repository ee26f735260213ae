package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/models"
	"github.com/leadboard/leadboard-cli/pkg/search"
)

const (
	minColumnWidth = 18
	cardHeight     = 2
)

// BoardModel renders the stage columns and owns the cursor, the keyboard
// drag and the filter. Card data always comes from the synchronizer.
type BoardModel struct {
	sync   *board.Synchronizer
	stages []models.Stage

	snapshot models.Snapshot
	columns  models.Pipeline // snapshot after the filter

	col int
	row int

	dragging   bool
	dragID     int
	dragOrigin models.Stage
	target     int

	filter    textinput.Model
	filtering bool
	query     string
	filterErr error

	width  int
	height int
}

func NewBoardModel(sync *board.Synchronizer) *BoardModel {
	ti := textinput.New()
	ti.Placeholder = "industry:energy potential:alto NOT enriched:yes"
	ti.Prompt = "/ "
	ti.CharLimit = 200

	m := &BoardModel{
		sync:   sync,
		stages: models.Stages(),
		filter: ti,
	}
	m.refresh()
	return m
}

func (m *BoardModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.filter.Width = width - 6
}

// refresh re-reads the board and re-applies the filter, keeping the cursor
// on the same card when it is still visible
func (m *BoardModel) refresh() {
	selected, hadSelection := m.Selected()

	m.snapshot = m.sync.Snapshot()
	m.applyFilter()

	if m.dragging {
		if _, _, ok := m.snapshot.Pipeline.Find(m.dragID); !ok {
			m.dragging = false
			m.sync.CancelDrag()
		}
	}
	if hadSelection && m.focus(selected.ID) {
		return
	}
	m.clamp()
}

func (m *BoardModel) applyFilter() {
	filtered, err := search.Filter(m.snapshot.Pipeline, m.query)
	if err != nil {
		// Keep showing the last valid result while the query is being typed
		m.filterErr = err
		if m.columns == nil {
			m.columns = m.snapshot.Pipeline.Clone()
		}
		return
	}
	m.filterErr = nil
	m.columns = filtered
}

// focus puts the cursor on card id, if it is visible
func (m *BoardModel) focus(id int) bool {
	for c, stage := range m.stages {
		for r, card := range m.columns[stage] {
			if card.ID == id {
				m.col, m.row = c, r
				return true
			}
		}
	}
	return false
}

func (m *BoardModel) clamp() {
	if m.col < 0 {
		m.col = 0
	}
	if m.col >= len(m.stages) {
		m.col = len(m.stages) - 1
	}
	n := len(m.columns[m.stages[m.col]])
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// Selected returns the card under the cursor
func (m *BoardModel) Selected() (models.Card, bool) {
	if m.col < 0 || m.col >= len(m.stages) {
		return models.Card{}, false
	}
	cards := m.columns[m.stages[m.col]]
	if m.row < 0 || m.row >= len(cards) {
		return models.Card{}, false
	}
	return cards[m.row], true
}

func (m *BoardModel) Stage() models.Stage {
	return m.stages[m.col]
}

func (m *BoardModel) Dragging() bool {
	return m.dragging
}

func (m *BoardModel) Filtering() bool {
	return m.filtering
}

func (m *BoardModel) moveColumn(delta int) {
	if m.dragging {
		m.target = (m.target + delta + len(m.stages)) % len(m.stages)
		return
	}
	m.col = (m.col + delta + len(m.stages)) % len(m.stages)
	m.clamp()
}

func (m *BoardModel) moveRow(delta int) {
	if m.dragging {
		return
	}
	m.row += delta
	m.clamp()
}

// pickUp starts a keyboard drag of the selected card
func (m *BoardModel) pickUp() (models.Card, error) {
	card, ok := m.Selected()
	if !ok {
		return models.Card{}, errors.New("no card selected")
	}
	card, err := m.sync.BeginDrag(card.ID)
	if err != nil {
		return models.Card{}, err
	}
	m.dragging = true
	m.dragID = card.ID
	m.dragOrigin = m.stages[m.col]
	m.target = m.col
	return card, nil
}

func (m *BoardModel) cancelDrag() {
	if !m.dragging {
		return
	}
	m.dragging = false
	m.sync.CancelDrag()
}

// chooseTarget jumps the carried card to the n-th column (1-based)
func (m *BoardModel) chooseTarget(n int) {
	if m.dragging && n >= 1 && n <= len(m.stages) {
		m.target = n - 1
	}
}

// drop applies the carried card's move locally. The caller submits it.
func (m *BoardModel) drop() (*board.Move, error) {
	if !m.dragging {
		return nil, errors.New("no card picked up")
	}
	id, target := m.dragID, m.stages[m.target]
	m.dragging = false

	mv, err := m.sync.Move(id, target)
	if err != nil {
		m.sync.CancelDrag()
		return nil, err
	}
	m.refresh()
	m.focus(id)
	return mv, nil
}

// shift moves the selected card one stage left or right without a drag
func (m *BoardModel) shift(delta int) (*board.Move, error) {
	card, ok := m.Selected()
	if !ok {
		return nil, errors.New("no card selected")
	}
	idx := m.col + delta
	if idx < 0 || idx >= len(m.stages) {
		return nil, board.ErrSameStage
	}
	mv, err := m.sync.Move(card.ID, m.stages[idx])
	if err != nil {
		return nil, err
	}
	m.refresh()
	m.focus(card.ID)
	return mv, nil
}

func (m *BoardModel) startFilter() tea.Cmd {
	m.filtering = true
	m.filter.SetValue(m.query)
	m.filter.CursorEnd()
	return m.filter.Focus()
}

// updateFilter edits the query live. Enter keeps it, esc drops it.
func (m *BoardModel) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return nil
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.setQuery("")
		return nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.setQuery(m.filter.Value())
	return cmd
}

func (m *BoardModel) setQuery(q string) {
	m.query = strings.TrimSpace(q)
	if m.query == "" {
		m.filter.SetValue("")
	}
	m.applyFilter()
	m.clamp()
}

func (m *BoardModel) visibleCount() int {
	n := 0
	for _, cards := range m.columns {
		n += len(cards)
	}
	return n
}

func (m *BoardModel) View() string {
	if len(m.stages) == 0 {
		return ""
	}
	gap := 1
	colWidth := (m.width - gap*(len(m.stages)-1)) / len(m.stages)
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}
	// border takes two columns and two rows
	inner := colWidth - 2
	height := m.height - 2
	if height < 6 {
		height = 6
	}

	var draggedCard models.Card
	if m.dragging {
		draggedCard, _, _ = m.snapshot.Pipeline.Find(m.dragID)
	}

	cols := make([]string, len(m.stages))
	for i, stage := range m.stages {
		cols[i] = m.renderColumn(i, stage, inner, height, draggedCard)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(cols, gap)...)
}

func (m *BoardModel) renderColumn(idx int, stage models.Stage, width, height int, dragged models.Card) string {
	cards := m.columns[stage]
	active := idx == m.col && !m.dragging
	dropTarget := m.dragging && idx == m.target

	var b strings.Builder
	info := stage.Info()
	title := fmt.Sprintf("%s %s (%d)", info.Icon, strings.ToUpper(info.Label), len(cards))
	b.WriteString(renderHeading(truncate(title, width-2), width, StageHeaderStyle(stage, active || dropTarget)))
	b.WriteString("\n\n")

	lines := 2
	if dropTarget && dragged.ID != 0 && stage != m.dragOrigin {
		b.WriteString(DraggingStyle.Render(truncate("▶ "+dragged.DisplayTitle(), width)))
		b.WriteString("\n")
		b.WriteString(DescriptionStyle.Render(truncate("  drop here", width)))
		b.WriteString("\n")
		lines += cardHeight
	}

	if len(cards) == 0 {
		b.WriteString(EmptyStyle.Render("No cards"))
	}

	// Keep the cursor row in view
	capacity := (height - lines) / cardHeight
	if capacity < 1 {
		capacity = 1
	}
	start := 0
	if idx == m.col && m.row >= capacity {
		start = m.row - capacity + 1
	}
	end := start + capacity
	if end > len(cards) {
		end = len(cards)
	}

	for r := start; r < end; r++ {
		card := cards[r]
		titleLine := truncate(card.DisplayTitle(), width)
		switch {
		case m.dragging && card.ID == m.dragID:
			if stage == m.stages[m.target] {
				titleLine = DraggingStyle.Render(truncate("▶ "+card.DisplayTitle(), width))
			} else {
				titleLine = EmptyStyle.Render(truncate("⋯ "+card.DisplayTitle(), width))
			}
		case idx == m.col && r == m.row && !m.dragging:
			titleLine = SelectedStyle.Render(titleLine)
		default:
			titleLine = NormalStyle.Render(titleLine)
		}
		b.WriteString(titleLine)
		b.WriteString("\n")
		b.WriteString(cardMeta(card, width))
		if r < end-1 {
			b.WriteString("\n")
		}
	}
	if end < len(cards) {
		b.WriteString("\n")
		b.WriteString(DescriptionStyle.Render(fmt.Sprintf("+%d more", len(cards)-end)))
	}

	return ColumnBorderStyle(active, dropTarget).
		Width(width).
		Height(height).
		Render(b.String())
}

// cardMeta is the second line of a card: potential, industry and an
// enrichment mark
func cardMeta(card models.Card, width int) string {
	var parts []string
	if card.SalesPotential != "" {
		parts = append(parts, PotentialBadgeStyle(card).Render(card.SalesPotential))
	}
	if card.Industry != "" {
		parts = append(parts, DescriptionStyle.Render(card.Industry))
	}
	if card.HasEnrichment {
		parts = append(parts, DescriptionStyle.Render("✦"))
	}
	if len(parts) == 0 {
		return DescriptionStyle.Render(truncate("#"+fmt.Sprint(card.ID), width))
	}
	line := strings.Join(parts, " ")
	if lipgloss.Width(line) > width {
		return DescriptionStyle.Render(truncate(card.SalesPotential+" "+card.Industry, width))
	}
	return line
}

func joinWithGap(cols []string, gap int) []string {
	out := make([]string, 0, len(cols)*2)
	spacer := strings.Repeat(" ", gap)
	for i, c := range cols {
		if i > 0 {
			out = append(out, spacer)
		}
		out = append(out, c)
	}
	return out
}
