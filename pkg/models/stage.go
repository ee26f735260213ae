package models

import (
	"fmt"
	"strings"
)

// Stage is one step of the sales pipeline.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosed      Stage = "closed"
)

// StageInfo holds the presentational metadata of a stage
type StageInfo struct {
	Label string
	Color string // 256-colour terminal code
	Icon  string
}

var stageOrder = []Stage{
	StageLead,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageClosed,
}

var stageInfo = map[Stage]StageInfo{
	StageLead:        {Label: "Lead", Color: "62", Icon: "🎯"},
	StageQualified:   {Label: "Qualified", Color: "39", Icon: "✅"},
	StageProposal:    {Label: "Proposal", Color: "213", Icon: "📄"},
	StageNegotiation: {Label: "Negotiation", Color: "84", Icon: "🤝"},
	StageClosed:      {Label: "Closed", Color: "35", Icon: "🎉"},
}

// Stages returns every stage in board order
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Valid reports whether s belongs to the closed stage set
func (s Stage) Valid() bool {
	_, ok := stageInfo[s]
	return ok
}

// Info returns the display metadata. Unknown stages get their raw id as label.
func (s Stage) Info() StageInfo {
	if info, ok := stageInfo[s]; ok {
		return info
	}
	return StageInfo{Label: string(s), Color: "245", Icon: "•"}
}

// Label is shorthand for Info().Label
func (s Stage) Label() string {
	return s.Info().Label
}

// Index returns the board position of the stage, or -1
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage accepts a stage id or label, case-insensitively
func ParseStage(raw string) (Stage, error) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "closed-won" {
		return StageClosed, nil
	}
	for _, s := range stageOrder {
		if string(s) == needle || strings.ToLower(stageInfo[s].Label) == needle {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (valid: %s)", raw, StageList())
}

// StageList returns the stage ids joined for help and error text
func StageList() string {
	names := make([]string, len(stageOrder))
	for i, s := range stageOrder {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
