package board

import (
	"fmt"
	"sort"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// Change is one card whose stage differs between two boards. From is empty
// for a card that appeared, To is empty for one that disappeared.
type Change struct {
	CardID int          `json:"card_id" yaml:"card_id"`
	Title  string       `json:"title" yaml:"title"`
	From   models.Stage `json:"from,omitempty" yaml:"from,omitempty"`
	To     models.Stage `json:"to,omitempty" yaml:"to,omitempty"`
}

func (c Change) String() string {
	switch {
	case c.From == "":
		return fmt.Sprintf("+ %s (%s)", c.Title, c.To.Label())
	case c.To == "":
		return fmt.Sprintf("- %s (was %s)", c.Title, c.From.Label())
	default:
		return fmt.Sprintf("%s: %s → %s", c.Title, c.From.Label(), c.To.Label())
	}
}

// Diff lists the cards that were added, removed or moved between prev and
// next, ordered by card id. Field edits within a stage are not reported.
func Diff(prev, next models.Pipeline) []Change {
	type place struct {
		stage models.Stage
		title string
	}
	index := func(p models.Pipeline) map[int]place {
		out := make(map[int]place, p.Len())
		for stage, cards := range p {
			for _, c := range cards {
				out[c.ID] = place{stage: stage, title: c.DisplayTitle()}
			}
		}
		return out
	}

	before, after := index(prev), index(next)
	var changes []Change
	for id, b := range before {
		a, ok := after[id]
		switch {
		case !ok:
			changes = append(changes, Change{CardID: id, Title: b.title, From: b.stage})
		case a.stage != b.stage:
			changes = append(changes, Change{CardID: id, Title: a.title, From: b.stage, To: a.stage})
		}
	}
	for id, a := range after {
		if _, ok := before[id]; !ok {
			changes = append(changes, Change{CardID: id, Title: a.title, To: a.stage})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].CardID < changes[j].CardID })
	return changes
}
