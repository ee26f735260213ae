package search

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboard/leadboard-cli/pkg/board/boardtest"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	e.now = func() time.Time { return boardtest.FixtureTime.Add(48 * time.Hour) }

	cards := boardtest.SampleCards()
	cards = append(cards, boardtest.NewCard(7).
		WithTitle("Wayne Enterprises").
		InStage(models.StageQualified).
		CreatedAt(boardtest.FixtureTime.Add(-90*24*time.Hour)).
		Build())
	e.Index(boardtest.PipelineOf(cards...))
	return e
}

func resultIDs(results []Result) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Card.ID
	}
	sort.Ints(out)
	return out
}

func TestEngineSearch(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"empty matches everything", "", []int{1, 2, 3, 4, 5, 6, 7}},
		{"free word in title", "globex", []int{2}},
		{"free word in summary", "reporting", []int{3}},
		{"free word in url", "company4.example", []int{4}},
		{"quoted phrase", `"stark industries"`, []int{6}},
		{"stage", "stage:qualified", []int{3, 7}},
		{"stage OR stage", "stage:lead OR stage:closed", []int{1, 2, 6}},
		{"potential uses both languages", "potential:high", []int{1, 4}},
		{"enriched", "enriched:yes", []int{1, 5}},
		{"NOT enriched", "NOT enriched:yes stage:lead", []int{2}},
		{"industry substring", "industry:pharm", []int{4}},
		{"owner", "owner:seller@", []int{5}},
		{"created older than", "created:>30d", []int{7}},
		{"created newer than", "created:<7d", []int{1, 2, 3, 4, 5, 6}},
		{"no match", "initrode", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := e.Search(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultIDs(results))
		})
	}
}

func TestEngineSearch_TitleMatchesRankFirst(t *testing.T) {
	e := NewEngine()
	e.Index(boardtest.PipelineOf(
		boardtest.NewCard(1).WithTitle("Northwind Traders").WithSummary("acme reseller").Build(),
		boardtest.NewCard(2).WithTitle("Acme").Build(),
		boardtest.NewCard(3).WithTitle("Acme Labs").Build(),
	))

	results, err := e.Search("acme")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Card.ID)
	assert.Equal(t, 3, results[1].Card.ID)
	assert.Equal(t, []string{"acme reseller"}, results[2].Highlights["summary"])
}

func TestEngineSearch_ParseError(t *testing.T) {
	_, err := NewEngine().Search("stage:nowhere")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	p := boardtest.SamplePipeline()

	filtered, err := Filter(p, "potential:high")
	require.NoError(t, err)

	assert.Len(t, filtered, len(models.Stages()), "every column survives filtering")
	assert.Equal(t, 2, filtered.Len())
	assert.Len(t, filtered[models.StageLead], 1)
	assert.Len(t, filtered[models.StageProposal], 1)
	assert.Empty(t, filtered[models.StageClosed])
	require.NoError(t, filtered.Validate())

	// The source pipeline is untouched
	assert.Equal(t, 6, p.Len())
}

func TestFilter_EmptyQueryCopies(t *testing.T) {
	p := boardtest.SamplePipeline()
	out, err := Filter(p, "   ")
	require.NoError(t, err)
	out[models.StageLead][0].Title = "changed"
	assert.Equal(t, "Acme Corp", p[models.StageLead][0].Title)
}
