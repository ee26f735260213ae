package models

// Analysis is the backend's result for one submitted URL. Each analysis is
// also a card on the board, starting in lead.
type Analysis struct {
	ID        int                    `json:"id" yaml:"id"`
	URL       string                 `json:"url" yaml:"url"`
	Title     *string                `json:"title" yaml:"title,omitempty"`
	Summary   *string                `json:"summary" yaml:"summary,omitempty"`
	KeyPoints []string               `json:"key_points" yaml:"key_points,omitempty"`
	Entities  map[string]interface{} `json:"entities" yaml:"entities,omitempty"`
	CreatedAt Timestamp              `json:"created_at" yaml:"created_at"`
}

// DisplayTitle falls back to the URL when the page had no title
func (a Analysis) DisplayTitle() string {
	if a.Title != nil && *a.Title != "" {
		return *a.Title
	}
	return a.URL
}

// Details converts the analysis into the record shown for a card in stage
func (a Analysis) Details(stage Stage) CardDetails {
	d := CardDetails{
		ID:          a.ID,
		URL:         a.URL,
		Summary:     a.Summary,
		KeyPoints:   a.KeyPoints,
		Entities:    a.Entities,
		Stage:       stage,
		CreatedAt:   a.CreatedAt,
		Notes:       []Note{},
		Attachments: []Attachment{},
	}
	if a.Title != nil {
		d.Title = *a.Title
	}
	return d
}
