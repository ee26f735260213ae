package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

const (
	pathPipeline     = "/kanban/pipeline"
	pathMyPipeline   = "/kanban/my-pipeline"
	pathBulkUpdate   = "/kanban/bulk-update-stage"
	pathStats        = "/kanban/stats"
	pathSellers      = "/kanban/sellers"
	pathAnalysisRoot = "/kanban/analysis"

	// MaxBulkUpdate mirrors the backend's per-request limit
	MaxBulkUpdate = 50
)

func analysisPath(id int, parts ...string) string {
	p := fmt.Sprintf("%s/%d", pathAnalysisRoot, id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// PipelinePath returns the endpoint for a scope
func PipelinePath(scope models.Scope) string {
	if scope == models.ScopeRestricted {
		return pathMyPipeline
	}
	return pathPipeline
}

// FetchPipeline loads the whole board grouped by stage
func (c *Client) FetchPipeline(ctx context.Context, scope models.Scope) (*models.Snapshot, error) {
	path := PipelinePath(scope)
	var snap models.Snapshot
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &snap); err != nil {
		return nil, err
	}
	if snap.Pipeline == nil {
		return nil, fmt.Errorf("GET %s: missing pipeline: %w", path, ErrMalformedResponse)
	}
	return &snap, nil
}

// UpdateStage moves one card on the backend
func (c *Client) UpdateStage(ctx context.Context, id int, stage models.Stage) (*models.StageUpdate, error) {
	body := struct {
		Stage models.Stage `json:"stage"`
	}{Stage: stage}

	var update models.StageUpdate
	if err := c.do(ctx, http.MethodPatch, analysisPath(id, "stage"), nil, body, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// FetchSuggestions asks the backend for next-action hints for a card
func (c *Client) FetchSuggestions(ctx context.Context, id int) ([]string, error) {
	path := analysisPath(id, "suggestions")
	var resp struct {
		Suggestions *[]string `json:"suggestions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Suggestions == nil {
		return nil, fmt.Errorf("GET %s: missing suggestions: %w", path, ErrMalformedResponse)
	}
	return *resp.Suggestions, nil
}

// BulkUpdateStage moves up to MaxBulkUpdate cards at once
func (c *Client) BulkUpdateStage(ctx context.Context, ids []int, stage models.Stage) (*models.BulkUpdate, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no cards to update")
	}
	if len(ids) > MaxBulkUpdate {
		return nil, fmt.Errorf("at most %d cards can be moved at once, got %d", MaxBulkUpdate, len(ids))
	}

	query := url.Values{}
	query.Set("new_stage", string(stage))

	var result models.BulkUpdate
	if err := c.do(ctx, http.MethodPost, pathBulkUpdate, query, ids, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PipelineStats returns counts and conversion rates
func (c *Client) PipelineStats(ctx context.Context) (*models.PipelineStats, error) {
	var stats models.PipelineStats
	if err := c.do(ctx, http.MethodGet, pathStats, nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CardDetails returns the full record with notes and attachments
func (c *Client) CardDetails(ctx context.Context, id int) (*models.CardDetails, error) {
	var details models.CardDetails
	if err := c.do(ctx, http.MethodGet, analysisPath(id, "details"), nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

type noteBody struct {
	Content string `json:"content"`
}

// AddNote attaches a note to a card
func (c *Client) AddNote(ctx context.Context, id int, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("note content cannot be empty")
	}
	var note models.Note
	if err := c.do(ctx, http.MethodPost, analysisPath(id, "notes"), nil, noteBody{Content: content}, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote replaces the content of a note
func (c *Client) UpdateNote(ctx context.Context, id, noteID int, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("note content cannot be empty")
	}
	var note models.Note
	path := analysisPath(id, "notes", fmt.Sprint(noteID))
	if err := c.do(ctx, http.MethodPut, path, nil, noteBody{Content: content}, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote removes a note
func (c *Client) DeleteNote(ctx context.Context, id, noteID int) error {
	return c.do(ctx, http.MethodDelete, analysisPath(id, "notes", fmt.Sprint(noteID)), nil, nil, nil)
}

// AddAttachment links a file or URL to a card
func (c *Client) AddAttachment(ctx context.Context, id int, att models.NewAttachment) (*models.Attachment, error) {
	if strings.TrimSpace(att.Filename) == "" || strings.TrimSpace(att.FileURL) == "" {
		return nil, fmt.Errorf("attachment needs both a name and a URL")
	}
	var created models.Attachment
	if err := c.do(ctx, http.MethodPost, analysisPath(id, "attachments"), nil, att, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAttachment removes an attachment
func (c *Client) DeleteAttachment(ctx context.Context, id, attachmentID int) error {
	return c.do(ctx, http.MethodDelete, analysisPath(id, "attachments", fmt.Sprint(attachmentID)), nil, nil, nil)
}

// Sellers lists users that can own a card
func (c *Client) Sellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := c.do(ctx, http.MethodGet, pathSellers, nil, nil, &sellers); err != nil {
		return nil, err
	}
	return sellers, nil
}

// AssignSeller hands a card to a seller
func (c *Client) AssignSeller(ctx context.Context, id, sellerID int) (*models.SellerAssignment, error) {
	body := struct {
		SellerID int `json:"seller_id"`
	}{SellerID: sellerID}

	var result models.SellerAssignment
	if err := c.do(ctx, http.MethodPatch, analysisPath(id, "assign-seller"), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UnassignSeller clears the seller of a card
func (c *Client) UnassignSeller(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPatch, analysisPath(id, "unassign-seller"), nil, struct{}{}, nil)
}
