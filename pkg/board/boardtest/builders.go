// Package boardtest provides fixtures and fake backends for exercising the
// board synchronizer and the code built on it.
package boardtest

import (
	"fmt"
	"time"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// Fixed creation time so rendered output is stable across runs
var FixtureTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// CardBuilder provides a fluent interface for building test cards
type CardBuilder struct {
	card models.Card
}

// NewCard creates a card builder with default values
func NewCard(id int) *CardBuilder {
	return &CardBuilder{
		card: models.Card{
			ID:             id,
			Title:          fmt.Sprintf("Company %d", id),
			URL:            fmt.Sprintf("https://company%d.example.com", id),
			Stage:          models.StageLead,
			CreatedAt:      models.Timestamp{Time: FixtureTime},
			SalesPotential: "Médio",
			Industry:       "Software",
		},
	}
}

func (b *CardBuilder) WithTitle(title string) *CardBuilder {
	b.card.Title = title
	return b
}

func (b *CardBuilder) WithURL(url string) *CardBuilder {
	b.card.URL = url
	return b
}

func (b *CardBuilder) InStage(stage models.Stage) *CardBuilder {
	b.card.Stage = stage
	return b
}

func (b *CardBuilder) WithSummary(summary string) *CardBuilder {
	b.card.Summary = &summary
	return b
}

func (b *CardBuilder) WithPotential(potential string) *CardBuilder {
	b.card.SalesPotential = potential
	return b
}

func (b *CardBuilder) WithIndustry(industry string) *CardBuilder {
	b.card.Industry = industry
	return b
}

func (b *CardBuilder) Enriched() *CardBuilder {
	b.card.HasEnrichment = true
	return b
}

func (b *CardBuilder) OwnedBy(email string) *CardBuilder {
	b.card.OwnerEmail = email
	return b
}

func (b *CardBuilder) CreatedAt(t time.Time) *CardBuilder {
	b.card.CreatedAt = models.Timestamp{Time: t}
	return b
}

// Build returns the card
func (b *CardBuilder) Build() models.Card {
	return b.card
}

// PipelineOf groups cards by their Stage field into a full pipeline
func PipelineOf(cards ...models.Card) models.Pipeline {
	p := models.NewPipeline()
	for _, c := range cards {
		p.Append(c.Stage, c)
	}
	return p
}

// SnapshotOf wraps a pipeline with matching stats, as the backend sends it
func SnapshotOf(p models.Pipeline) *models.Snapshot {
	cp := p.Clone()
	return &models.Snapshot{Pipeline: cp, Stats: cp.Stats()}
}

// SampleCards returns a small board with one or two cards in most stages
func SampleCards() []models.Card {
	return []models.Card{
		NewCard(1).WithTitle("Acme Corp").WithIndustry("Manufacturing").WithPotential("Alto").Enriched().Build(),
		NewCard(2).WithTitle("Globex").WithIndustry("Energy").Build(),
		NewCard(3).WithTitle("Initech").InStage(models.StageQualified).WithSummary("Legacy TPS reporting, keen to modernise").Build(),
		NewCard(4).WithTitle("Umbrella").InStage(models.StageProposal).WithIndustry("Pharma").WithPotential("Alto").Build(),
		NewCard(5).WithTitle("Hooli").InStage(models.StageNegotiation).Enriched().OwnedBy("seller@example.com").Build(),
		NewCard(6).WithTitle("Stark Industries").InStage(models.StageClosed).WithPotential("Baixo").Build(),
	}
}

// SamplePipeline is SampleCards grouped into a pipeline
func SamplePipeline() models.Pipeline {
	return PipelineOf(SampleCards()...)
}
