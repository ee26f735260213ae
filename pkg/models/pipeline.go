package models

import "fmt"

// Pipeline groups cards by stage. Order inside a stage is display order only.
type Pipeline map[Stage][]Card

// Stats is derived from a Pipeline and never authoritative on its own
type Stats struct {
	Total   int           `json:"total" yaml:"total"`
	ByStage map[Stage]int `json:"by_stage" yaml:"by_stage"`
}

// Snapshot is the wire shape of the pipeline endpoints
type Snapshot struct {
	Pipeline Pipeline `json:"pipeline" yaml:"pipeline"`
	Stats    Stats    `json:"stats" yaml:"stats"`
}

// NewPipeline returns a pipeline with an empty column for every stage
func NewPipeline() Pipeline {
	p := make(Pipeline, len(stageOrder))
	for _, s := range stageOrder {
		p[s] = []Card{}
	}
	return p
}

// Find scans every stage for the card
func (p Pipeline) Find(id int) (Card, Stage, bool) {
	for _, s := range stageOrder {
		for _, c := range p[s] {
			if c.ID == id {
				return c, s, true
			}
		}
	}
	// Stages outside the known set are still searched so a malformed
	// pipeline cannot hide a card.
	for s, cards := range p {
		if s.Valid() {
			continue
		}
		for _, c := range cards {
			if c.ID == id {
				return c, s, true
			}
		}
	}
	return Card{}, "", false
}

// Remove deletes the card from the given stage and reports whether it was there
func (p Pipeline) Remove(stage Stage, id int) (Card, bool) {
	cards := p[stage]
	for i, c := range cards {
		if c.ID == id {
			rest := make([]Card, 0, len(cards)-1)
			rest = append(rest, cards[:i]...)
			rest = append(rest, cards[i+1:]...)
			p[stage] = rest
			return c, true
		}
	}
	return Card{}, false
}

// Append puts the card at the end of the stage and sets its stage field
func (p Pipeline) Append(stage Stage, card Card) {
	card.Stage = stage
	p[stage] = append(p[stage], card)
}

// Relocate moves a card to target wherever it currently is.
// It returns the origin stage and false when the card is unknown.
func (p Pipeline) Relocate(id int, target Stage) (Stage, bool) {
	_, origin, ok := p.Find(id)
	if !ok {
		return "", false
	}
	if origin == target {
		return origin, true
	}
	card, _ := p.Remove(origin, id)
	p.Append(target, card)
	return origin, true
}

// Stats derives counts from the pipeline contents
func (p Pipeline) Stats() Stats {
	stats := Stats{ByStage: make(map[Stage]int, len(stageOrder))}
	for _, s := range stageOrder {
		stats.ByStage[s] = 0
	}
	for s, cards := range p {
		stats.ByStage[s] = len(cards)
		stats.Total += len(cards)
	}
	return stats
}

// Len returns the number of cards across all stages
func (p Pipeline) Len() int {
	n := 0
	for _, cards := range p {
		n += len(cards)
	}
	return n
}

// Clone returns a deep copy so callers cannot alias internal slices
func (p Pipeline) Clone() Pipeline {
	out := make(Pipeline, len(p))
	for s, cards := range p {
		cp := make([]Card, len(cards))
		copy(cp, cards)
		for i := range cp {
			if cp[i].Summary != nil {
				summary := *cp[i].Summary
				cp[i].Summary = &summary
			}
		}
		out[s] = cp
	}
	return out
}

// Validate checks the partition invariant: each card id appears in exactly
// one stage and carries that stage in its Stage field.
func (p Pipeline) Validate() error {
	seen := make(map[int]Stage)
	for s, cards := range p {
		for _, c := range cards {
			if prev, dup := seen[c.ID]; dup {
				return fmt.Errorf("card %d appears in both %s and %s", c.ID, prev, s)
			}
			seen[c.ID] = s
			if c.Stage != s {
				return fmt.Errorf("card %d is listed under %s but carries stage %s", c.ID, s, c.Stage)
			}
		}
	}
	return nil
}

// Equal reports whether two stats values agree on every stage
func (s Stats) Equal(other Stats) bool {
	if s.Total != other.Total {
		return false
	}
	for _, st := range stageOrder {
		if s.ByStage[st] != other.ByStage[st] {
			return false
		}
	}
	return true
}
