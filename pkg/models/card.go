package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Card is one analyzed company on the board
type Card struct {
	ID             int       `json:"id" yaml:"id"`
	Title          string    `json:"title" yaml:"title"`
	URL            string    `json:"url" yaml:"url"`
	Stage          Stage     `json:"stage" yaml:"stage"`
	CreatedAt      Timestamp `json:"created_at" yaml:"created_at"`
	Summary        *string   `json:"summary" yaml:"summary,omitempty"`
	SalesPotential string    `json:"sales_potential" yaml:"sales_potential"`
	Industry       string    `json:"industry" yaml:"industry"`
	HasEnrichment  bool      `json:"has_enrichment" yaml:"has_enrichment"`
	OwnerEmail     string    `json:"owner_email,omitempty" yaml:"owner_email,omitempty"`
}

// SummaryText returns the summary or an empty string
func (c Card) SummaryText() string {
	if c.Summary == nil {
		return ""
	}
	return *c.Summary
}

// DisplayTitle falls back to the URL when the backend sent no title
func (c Card) DisplayTitle() string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return c.URL
}

// HighPotential reports whether the backend classified the lead as high potential.
// The backend speaks Portuguese ("Alto") and English depending on the model output.
func (c Card) HighPotential() bool {
	switch strings.ToLower(c.SalesPotential) {
	case "alto", "high":
		return true
	}
	return false
}

// Timestamp decodes the backend's isoformat() output, which carries no zone
// for naive datetimes. Zoneless values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses any of the layouts the backend is known to emit
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC().Format(time.RFC3339), nil
}
