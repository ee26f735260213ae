package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/board/boardtest"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

func loadedBoard(t *testing.T) (*BoardModel, *board.Synchronizer) {
	t.Helper()
	sync := board.New(boardtest.NewFakeBackend(boardtest.SamplePipeline()), boardtest.Admin())
	require.NoError(t, sync.Load(context.Background()))
	m := NewBoardModel(sync)
	m.SetSize(150, 30)
	return m, sync
}

func TestBoardModel_CursorNavigation(t *testing.T) {
	m, _ := loadedBoard(t)

	card, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, 1, card.ID)

	m.moveRow(1)
	card, _ = m.Selected()
	assert.Equal(t, 2, card.ID)

	// Rows clamp at the column end
	m.moveRow(5)
	card, _ = m.Selected()
	assert.Equal(t, 2, card.ID)

	// Columns wrap around and clamp the row
	m.moveColumn(1)
	card, _ = m.Selected()
	assert.Equal(t, 3, card.ID)
	m.moveColumn(-2)
	assert.Equal(t, models.StageClosed, m.Stage())
}

func TestBoardModel_EmptyColumnHasNoSelection(t *testing.T) {
	sync := board.New(boardtest.NewFakeBackend(boardtest.PipelineOf(
		boardtest.NewCard(1).InStage(models.StageProposal).Build(),
	)), boardtest.Admin())
	require.NoError(t, sync.Load(context.Background()))
	m := NewBoardModel(sync)
	m.SetSize(150, 30)

	_, ok := m.Selected()
	assert.False(t, ok)
	_, err := m.pickUp()
	assert.Error(t, err)
	assert.Contains(t, m.View(), "No cards")
}

func TestBoardModel_RefreshKeepsCursorOnCard(t *testing.T) {
	m, sync := loadedBoard(t)
	m.moveRow(1) // Globex

	mv, err := sync.Move(1, models.StageClosed)
	require.NoError(t, err)
	require.NotNil(t, mv)
	m.refresh()

	card, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, 2, card.ID)
	assert.Equal(t, 0, m.row)
}

func TestBoardModel_DragTargetWraps(t *testing.T) {
	m, _ := loadedBoard(t)

	_, err := m.pickUp()
	require.NoError(t, err)
	m.moveColumn(-1)
	assert.Equal(t, 4, m.target)
	m.moveRow(1)
	assert.Equal(t, 0, m.row, "rows are frozen while carrying a card")

	m.chooseTarget(9)
	assert.Equal(t, 4, m.target, "out of range targets are ignored")
	m.chooseTarget(3)
	assert.Equal(t, 2, m.target)

	mv, err := m.drop()
	require.NoError(t, err)
	assert.Equal(t, models.StageProposal, mv.To)
	assert.Equal(t, models.StageProposal, m.Stage())
}

func TestCardMeta(t *testing.T) {
	high := boardtest.NewCard(1).WithPotential("Alto").WithIndustry("Energy").Enriched().Build()
	meta := cardMeta(high, 40)
	assert.Contains(t, meta, "Alto")
	assert.Contains(t, meta, "Energy")
	assert.Contains(t, meta, "✦")

	bare := models.Card{ID: 12}
	assert.Contains(t, cardMeta(bare, 40), "#12")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Globex", truncate("Globex", 10))
	assert.Equal(t, "Stark…", truncate("Stark Industries", 6))
	assert.Equal(t, "", truncate("anything", 0))
}

func TestRenderHeading(t *testing.T) {
	h := renderHeading("NEXT STEPS", 30, HeaderStyle)
	assert.True(t, strings.HasPrefix(h, "NEXT STEPS "))
	assert.Equal(t, 17, strings.Count(h, ":"))
}
