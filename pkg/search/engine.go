// Package search filters board cards with a small query language:
// free words, field:value conditions, NOT and OR.
package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// Result is a matching card with its relevance score
type Result struct {
	Card       models.Card
	Stage      models.Stage
	Score      float64
	Highlights map[string][]string // field -> excerpts
}

type item struct {
	card  models.Card
	stage models.Stage
	text  string // lowercased searchable text
}

// Engine indexes one board snapshot at a time
type Engine struct {
	mu    sync.RWMutex
	items []item

	parser *Parser
	now    func() time.Time
}

// NewEngine creates an engine with an empty index
func NewEngine() *Engine {
	return &Engine{
		parser: NewParser(),
		now:    time.Now,
	}
}

// Index replaces the indexed cards with the pipeline's contents
func (e *Engine) Index(p models.Pipeline) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = e.items[:0]

	for _, stage := range orderedStages(p) {
		for _, card := range p[stage] {
			text := strings.ToLower(strings.Join([]string{
				card.Title, card.URL, card.SummaryText(), card.Industry,
			}, " "))
			e.items = append(e.items, item{card: card, stage: stage, text: text})
		}
	}
}

// Search returns matching cards, best first. An empty query matches all.
func (e *Engine) Search(queryStr string) ([]Result, error) {
	query, err := e.parser.Parse(queryStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var matches []int
	if len(query.Conditions) == 0 {
		matches = make([]int, len(e.items))
		for i := range e.items {
			matches[i] = i
		}
	} else {
		sets := make([][]int, 0, len(query.Conditions))
		for _, cond := range query.Conditions {
			sets = append(sets, e.evaluateCondition(cond))
		}
		matches = combineMatches(sets, query.Logic)
	}

	results := make([]Result, 0, len(matches))
	for _, idx := range matches {
		it := e.items[idx]
		results = append(results, Result{
			Card:       it.card,
			Stage:      it.stage,
			Score:      e.calculateScore(it, query),
			Highlights: generateHighlights(it, query),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Card.ID < results[j].Card.ID
	})
	return results, nil
}

func (e *Engine) evaluateCondition(cond Condition) []int {
	var matches []int
	each := func(pred func(item) bool) {
		for i, it := range e.items {
			if pred(it) {
				matches = append(matches, i)
			}
		}
	}

	switch cond.Field {
	case FieldContent:
		term := strings.ToLower(cond.Value.(string))
		each(func(it item) bool { return strings.Contains(it.text, term) })
	case FieldTitle:
		term := strings.ToLower(cond.Value.(string))
		each(func(it item) bool { return strings.Contains(strings.ToLower(it.card.DisplayTitle()), term) })
	case FieldIndustry:
		term := strings.ToLower(cond.Value.(string))
		each(func(it item) bool { return strings.Contains(strings.ToLower(it.card.Industry), term) })
	case FieldOwner:
		term := strings.ToLower(cond.Value.(string))
		each(func(it item) bool { return strings.Contains(strings.ToLower(it.card.OwnerEmail), term) })
	case FieldPotential:
		want := cond.Value.(string)
		each(func(it item) bool { return NormalizePotential(it.card.SalesPotential) == want })
	case FieldStage:
		want := cond.Value.(models.Stage)
		each(func(it item) bool { return it.stage == want })
	case FieldEnriched:
		want := cond.Value.(bool)
		each(func(it item) bool { return it.card.HasEnrichment == want })
	case FieldCreated:
		cutoff := e.now().Add(-cond.Value.(time.Duration))
		each(func(it item) bool {
			if it.card.CreatedAt.IsZero() {
				return false
			}
			if cond.Operator == OperatorGreaterThan {
				return it.card.CreatedAt.Before(cutoff)
			}
			return it.card.CreatedAt.After(cutoff)
		})
	}

	if cond.Negate {
		matches = e.invertMatches(matches)
	}
	return matches
}

func (e *Engine) invertMatches(matches []int) []int {
	set := make(map[int]bool, len(matches))
	for _, m := range matches {
		set[m] = true
	}
	var inverted []int
	for i := range e.items {
		if !set[i] {
			inverted = append(inverted, i)
		}
	}
	return inverted
}

func (e *Engine) calculateScore(it item, query *Query) float64 {
	score := 1.0
	title := strings.ToLower(it.card.DisplayTitle())
	for _, cond := range query.Conditions {
		if cond.Negate {
			continue
		}
		switch cond.Field {
		case FieldTitle, FieldContent:
			term := strings.ToLower(cond.Value.(string))
			if title == term {
				score += 2.0
			} else if strings.HasPrefix(title, term) {
				score += 1.0
			}
		}
	}
	if it.card.HasEnrichment {
		score += 0.25
	}
	if !it.card.CreatedAt.IsZero() && e.now().Sub(it.card.CreatedAt.Time) < 7*24*time.Hour {
		score += 0.5
	}
	return score
}

func generateHighlights(it item, query *Query) map[string][]string {
	highlights := make(map[string][]string)
	for _, cond := range query.Conditions {
		if cond.Negate {
			continue
		}
		switch cond.Field {
		case FieldContent:
			if ex := extractExcerpts(it.card.SummaryText(), cond.Value.(string), 2, 40); len(ex) > 0 {
				highlights["summary"] = ex
			}
		case FieldTitle:
			highlights["title"] = []string{it.card.DisplayTitle()}
		}
	}
	return highlights
}

// Filter returns a pipeline holding only the cards that match the query,
// keeping every stage column and the original order inside each stage.
func Filter(p models.Pipeline, query string) (models.Pipeline, error) {
	if strings.TrimSpace(query) == "" {
		return p.Clone(), nil
	}
	e := NewEngine()
	e.Index(p)
	results, err := e.Search(query)
	if err != nil {
		return nil, err
	}

	keep := make(map[int]bool, len(results))
	for _, r := range results {
		keep[r.Card.ID] = true
	}
	out := make(models.Pipeline, len(p))
	for stage, cards := range p {
		filtered := make([]models.Card, 0, len(cards))
		for _, c := range cards {
			if keep[c.ID] {
				filtered = append(filtered, c)
			}
		}
		out[stage] = filtered
	}
	return out, nil
}

func orderedStages(p models.Pipeline) []models.Stage {
	stages := models.Stages()
	for s := range p {
		if !s.Valid() {
			stages = append(stages, s)
		}
	}
	return stages
}

func combineMatches(sets [][]int, operators []Operator) []int {
	if len(sets) == 0 {
		return []int{}
	}
	result := sets[0]
	for i := 1; i < len(sets); i++ {
		if i-1 >= len(operators) {
			break
		}
		switch operators[i-1] {
		case OperatorAND:
			result = intersectSlices(result, sets[i])
		case OperatorOR:
			result = unionSlices(result, sets[i])
		}
	}
	return result
}

func intersectSlices(a, b []int) []int {
	set := make(map[int]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var result []int
	for _, v := range b {
		if set[v] {
			result = append(result, v)
		}
	}
	return result
}

func unionSlices(a, b []int) []int {
	set := make(map[int]bool, len(a)+len(b))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		set[v] = true
	}
	result := make([]int, 0, len(set))
	for v := range set {
		result = append(result, v)
	}
	sort.Ints(result)
	return result
}

func extractExcerpts(content, term string, maxExcerpts, contextChars int) []string {
	var excerpts []string
	lowerContent := strings.ToLower(content)
	lowerTerm := strings.ToLower(term)
	if lowerTerm == "" || len(lowerContent) != len(content) {
		// Lowercasing changed byte offsets; excerpts would be cut mid-rune.
		return nil
	}

	index := 0
	for i := 0; i < maxExcerpts; i++ {
		pos := strings.Index(lowerContent[index:], lowerTerm)
		if pos == -1 {
			break
		}
		pos += index

		start := pos - contextChars
		if start < 0 {
			start = 0
		}
		end := pos + len(term) + contextChars
		if end > len(content) {
			end = len(content)
		}

		excerpt := strings.ToValidUTF8(content[start:end], "")
		if start > 0 {
			excerpt = "..." + excerpt
		}
		if end < len(content) {
			excerpt += "..."
		}
		excerpts = append(excerpts, excerpt)
		index = pos + len(term)
	}
	return excerpts
}
