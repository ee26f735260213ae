package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// The backend mounts these routers at "/", so the trailing slash avoids a
// redirect on every call.
const (
	pathAnalyze = "/analyze/"
	pathHistory = "/history/"
)

// Analyze submits a page URL for analysis. The backend scrapes and
// summarizes it synchronously and creates a lead card for it.
func (c *Client) Analyze(ctx context.Context, pageURL string) (*models.Analysis, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}
	body := struct {
		URL string `json:"url"`
	}{URL: pageURL}

	var analysis models.Analysis
	if err := c.do(ctx, http.MethodPost, pathAnalyze, nil, body, &analysis); err != nil {
		return nil, err
	}
	if analysis.ID <= 0 {
		return nil, fmt.Errorf("POST %s: missing analysis id: %w", pathAnalyze, ErrMalformedResponse)
	}
	return &analysis, nil
}

// History lists the caller's latest analyses, newest first. Admins see
// everyone's.
func (c *Client) History(ctx context.Context) ([]models.Analysis, error) {
	var items []models.Analysis
	if err := c.do(ctx, http.MethodGet, pathHistory, nil, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Analysis{}
	}
	return items, nil
}
