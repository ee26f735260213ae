package models

// CardDetails is the full record behind a card, as shown in the details pane
type CardDetails struct {
	ID          int                    `json:"id" yaml:"id"`
	Title       string                 `json:"title" yaml:"title"`
	URL         string                 `json:"url" yaml:"url"`
	Summary     *string                `json:"summary" yaml:"summary,omitempty"`
	RawText     *string                `json:"raw_text" yaml:"-"`
	KeyPoints   []string               `json:"key_points" yaml:"key_points,omitempty"`
	Entities    map[string]interface{} `json:"entities" yaml:"entities,omitempty"`
	Stage       Stage                  `json:"stage" yaml:"stage"`
	SellerID    *int                   `json:"seller_id" yaml:"seller_id,omitempty"`
	CreatedAt   Timestamp              `json:"created_at" yaml:"created_at"`
	Notes       []Note                 `json:"notes" yaml:"notes"`
	Attachments []Attachment           `json:"attachments" yaml:"attachments"`
}

// SummaryText returns the summary or an empty string
func (d CardDetails) SummaryText() string {
	if d.Summary == nil {
		return ""
	}
	return *d.Summary
}

// Entity returns a string-valued entity or the fallback
func (d CardDetails) Entity(key, fallback string) string {
	if v, ok := d.Entities[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

type Note struct {
	ID        int       `json:"id" yaml:"id"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
	UpdatedAt Timestamp `json:"updated_at" yaml:"updated_at"`
	UserEmail string    `json:"user_email,omitempty" yaml:"user_email,omitempty"`
}

type Attachment struct {
	ID        int       `json:"id" yaml:"id"`
	Filename  string    `json:"filename" yaml:"filename"`
	FileURL   string    `json:"file_url" yaml:"file_url"`
	FileType  *string   `json:"file_type" yaml:"file_type,omitempty"`
	FileSize  *int64    `json:"file_size" yaml:"file_size,omitempty"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
	UserEmail string    `json:"user_email,omitempty" yaml:"user_email,omitempty"`
}

// NewAttachment is the request body for linking an attachment
type NewAttachment struct {
	Filename string  `json:"filename"`
	FileURL  string  `json:"file_url"`
	FileType *string `json:"file_type,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`
}

type Seller struct {
	ID        int       `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
}

// SellerAssignment is returned by assign-seller
type SellerAssignment struct {
	Status      string `json:"status" yaml:"status"`
	AnalysisID  int    `json:"analysis_id" yaml:"analysis_id"`
	SellerID    int    `json:"seller_id" yaml:"seller_id"`
	SellerEmail string `json:"seller_email" yaml:"seller_email"`
}

// StageUpdate is the response to a stage PATCH
type StageUpdate struct {
	Status     string   `json:"status" yaml:"status"`
	AnalysisID int      `json:"analysis_id" yaml:"analysis_id"`
	OldStage   *Stage   `json:"old_stage" yaml:"old_stage,omitempty"`
	NewStage   Stage    `json:"new_stage" yaml:"new_stage"`
	Suggestion []string `json:"suggestion" yaml:"suggestion,omitempty"`
}

// BulkUpdate is the response to bulk-update-stage
type BulkUpdate struct {
	Status       string `json:"status" yaml:"status"`
	UpdatedCount int    `json:"updated_count" yaml:"updated_count"`
	NewStage     Stage  `json:"new_stage" yaml:"new_stage"`
}

// PipelineStats is the detailed statistics endpoint
type PipelineStats struct {
	TotalAnalyses   int                `json:"total_analyses" yaml:"total_analyses"`
	ByStage         map[Stage]int      `json:"by_stage" yaml:"by_stage"`
	ConversionRates map[string]float64 `json:"conversion_rates" yaml:"conversion_rates"`
	AvgTimeByStage  map[Stage]string   `json:"avg_time_by_stage" yaml:"avg_time_by_stage"`
}
