package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

const pipelineJSON = `{
  "pipeline": {
    "lead": [{"id": 1, "title": "Acme", "url": "https://acme.test", "stage": "lead",
              "created_at": "2024-05-01T12:00:00.123456", "summary": null,
              "sales_potential": "Alto", "industry": "SaaS", "has_enrichment": false}],
    "qualified": [],
    "proposal": [],
    "negotiation": [],
    "closed": []
  },
  "stats": {"total": 1, "by_stage": {"lead": 1, "qualified": 0, "proposal": 0, "negotiation": 0, "closed": 0}}
}`

func newTestClient(t *testing.T, r chi.Router, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, StaticToken(token), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestFetchPipelineSelectsEndpointByScope(t *testing.T) {
	var hits []string
	r := chi.NewRouter()
	handler := func(w http.ResponseWriter, req *http.Request) {
		hits = append(hits, req.URL.Path)
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, pipelineJSON)
	}
	r.Get("/kanban/pipeline", handler)
	r.Get("/kanban/my-pipeline", handler)

	c := newTestClient(t, r, "secret")

	snap, err := c.FetchPipeline(context.Background(), models.ScopeFull)
	require.NoError(t, err)
	require.Len(t, snap.Pipeline[models.StageLead], 1)
	card := snap.Pipeline[models.StageLead][0]
	assert.Equal(t, "Acme", card.Title)
	assert.Nil(t, card.Summary)
	assert.True(t, card.HighPotential())
	assert.Equal(t, 2024, card.CreatedAt.Year())
	assert.Equal(t, 1, snap.Stats.Total)

	_, err = c.FetchPipeline(context.Background(), models.ScopeRestricted)
	require.NoError(t, err)

	assert.Equal(t, []string{"/kanban/pipeline", "/kanban/my-pipeline"}, hits)
}

func TestAnonymousRequestOmitsAuthorization(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/kanban/pipeline", func(w http.ResponseWriter, req *http.Request) {
		assert.Empty(t, req.Header.Get("Authorization"))
		http.Error(w, `{"detail":"Not authenticated"}`, http.StatusUnauthorized)
	})

	c := newTestClient(t, r, "")
	_, err := c.FetchPipeline(context.Background(), models.ScopeFull)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Not authenticated", apiErr.Detail)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestUpdateStageSendsBodyAndDecodesSuggestion(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/kanban/analysis/{id}/stage", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "7", chi.URLParam(req, "id"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "qualified", body["stage"])
		io.WriteString(w, `{"status":"success","analysis_id":7,"old_stage":"lead","new_stage":"qualified",
			"suggestion":["Schedule discovery call","Prepare ROI analysis"]}`)
	})

	c := newTestClient(t, r, "tok")
	update, err := c.UpdateStage(context.Background(), 7, models.StageQualified)
	require.NoError(t, err)
	assert.Equal(t, models.StageQualified, update.NewStage)
	require.NotNil(t, update.OldStage)
	assert.Equal(t, models.StageLead, *update.OldStage)
	assert.Len(t, update.Suggestion, 2)
}

func TestUpdateStageRejectedByServer(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/kanban/analysis/{id}/stage", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Analysis not found"}`)
	})

	c := newTestClient(t, r, "tok")
	_, err := c.UpdateStage(context.Background(), 9, models.StageClosed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Analysis not found")
}

func TestValidationErrorDetailIsFlattened(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/kanban/bulk-update-stage", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"loc":["query","new_stage"],"msg":"field required","type":"value_error.missing"}]}`)
	})

	c := newTestClient(t, r, "tok")
	_, err := c.BulkUpdateStage(context.Background(), []int{1}, models.StageLead)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "new_stage: field required", apiErr.Detail)
}

func TestMalformedResponses(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/kanban/pipeline", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"stats":{"total":0}}`)
	})
	r.Get("/kanban/analysis/{id}/suggestions", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `not json`)
	})

	c := newTestClient(t, r, "tok")

	_, err := c.FetchPipeline(context.Background(), models.ScopeFull)
	assert.True(t, errors.Is(err, ErrMalformedResponse), "missing pipeline: %v", err)

	_, err = c.FetchSuggestions(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrMalformedResponse), "bad json: %v", err)
}

func TestFetchSuggestions(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/kanban/analysis/{id}/suggestions", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"suggestions":["Send proposal","Prepare pricing"]}`)
	})

	c := newTestClient(t, r, "tok")
	got, err := c.FetchSuggestions(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Send proposal", "Prepare pricing"}, got)
}

func TestBulkUpdateStage(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/kanban/bulk-update-stage", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "proposal", req.URL.Query().Get("new_stage"))
		var ids []int
		require.NoError(t, json.NewDecoder(req.Body).Decode(&ids))
		assert.Equal(t, []int{1, 2, 3}, ids)
		io.WriteString(w, `{"status":"success","updated_count":3,"new_stage":"proposal"}`)
	})

	c := newTestClient(t, r, "tok")
	res, err := c.BulkUpdateStage(context.Background(), []int{1, 2, 3}, models.StageProposal)
	require.NoError(t, err)
	assert.Equal(t, 3, res.UpdatedCount)

	tooMany := make([]int, MaxBulkUpdate+1)
	_, err = c.BulkUpdateStage(context.Background(), tooMany, models.StageProposal)
	assert.Error(t, err)
	_, err = c.BulkUpdateStage(context.Background(), nil, models.StageProposal)
	assert.Error(t, err)
}

func TestNotesAttachmentsAndSellers(t *testing.T) {
	var deleted []string
	r := chi.NewRouter()
	r.Route("/kanban/analysis/{id}", func(r chi.Router) {
		r.Get("/details", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, `{"id":4,"title":"Acme","url":"https://acme.test","summary":"**Strong** fit",
				"key_points":["Series B"],"entities":{"industry":"SaaS"},"stage":"proposal","seller_id":12,
				"created_at":"2024-01-02T03:04:05","notes":[{"id":1,"content":"Called CFO",
				"created_at":"2024-01-03T00:00:00","updated_at":"2024-01-03T00:00:00","user_email":"a@b.c"}],
				"attachments":[]}`)
		})
		r.Post("/notes", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "Follow up Friday", body["content"])
			io.WriteString(w, `{"id":2,"content":"Follow up Friday","created_at":"2024-01-04T00:00:00","updated_at":"2024-01-04T00:00:00"}`)
		})
		r.Put("/notes/{note}", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "2", chi.URLParam(req, "note"))
			io.WriteString(w, `{"id":2,"content":"Edited","created_at":"2024-01-04T00:00:00","updated_at":"2024-01-05T00:00:00"}`)
		})
		r.Delete("/notes/{note}", func(w http.ResponseWriter, req *http.Request) {
			deleted = append(deleted, "note:"+chi.URLParam(req, "note"))
			io.WriteString(w, `{"status":"success"}`)
		})
		r.Post("/attachments", func(w http.ResponseWriter, req *http.Request) {
			var body models.NewAttachment
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "deck.pdf", body.Filename)
			io.WriteString(w, `{"id":5,"filename":"deck.pdf","file_url":"https://files.test/deck.pdf","file_type":"link","file_size":null,"created_at":"2024-01-04T00:00:00"}`)
		})
		r.Delete("/attachments/{att}", func(w http.ResponseWriter, req *http.Request) {
			deleted = append(deleted, "att:"+chi.URLParam(req, "att"))
			io.WriteString(w, `{"status":"success"}`)
		})
		r.Patch("/assign-seller", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, `{"status":"success","analysis_id":4,"seller_id":12,"seller_email":"s@b.c"}`)
		})
		r.Patch("/unassign-seller", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, `{"status":"success"}`)
		})
	})
	r.Get("/kanban/sellers", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `[{"id":12,"email":"s@b.c","role":"seller","created_at":"2024-01-01T00:00:00"}]`)
	})

	c := newTestClient(t, r, "tok")
	ctx := context.Background()

	details, err := c.CardDetails(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "**Strong** fit", details.SummaryText())
	assert.Equal(t, "SaaS", details.Entity("industry", "N/A"))
	assert.Equal(t, "N/A", details.Entity("sales_potential", "N/A"))
	require.NotNil(t, details.SellerID)
	assert.Equal(t, 12, *details.SellerID)
	require.Len(t, details.Notes, 1)

	note, err := c.AddNote(ctx, 4, "  Follow up Friday ")
	require.NoError(t, err)
	assert.Equal(t, 2, note.ID)

	_, err = c.AddNote(ctx, 4, "   ")
	assert.Error(t, err, "blank notes are rejected client side")

	edited, err := c.UpdateNote(ctx, 4, 2, "Edited")
	require.NoError(t, err)
	assert.Equal(t, "Edited", edited.Content)

	att, err := c.AddAttachment(ctx, 4, models.NewAttachment{Filename: "deck.pdf", FileURL: "https://files.test/deck.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 5, att.ID)

	_, err = c.AddAttachment(ctx, 4, models.NewAttachment{Filename: "deck.pdf"})
	assert.Error(t, err)

	require.NoError(t, c.DeleteNote(ctx, 4, 2))
	require.NoError(t, c.DeleteAttachment(ctx, 4, 5))
	assert.Equal(t, []string{"note:2", "att:5"}, deleted)

	sellers, err := c.Sellers(ctx)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, "seller", sellers[0].Role)

	assigned, err := c.AssignSeller(ctx, 4, 12)
	require.NoError(t, err)
	assert.Equal(t, "s@b.c", assigned.SellerEmail)
	require.NoError(t, c.UnassignSeller(ctx, 4))
}

func TestPipelineStats(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/kanban/stats", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"total_analyses":4,"by_stage":{"lead":2,"qualified":1,"proposal":1,"negotiation":0,"closed":0},
			"conversion_rates":{"lead_to_qualified":50.0},"avg_time_by_stage":{"lead":"2-3 days"}}`)
	})

	c := newTestClient(t, r, "tok")
	stats, err := c.PipelineStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAnalyses)
	assert.InDelta(t, 50.0, stats.ConversionRates["lead_to_qualified"], 0.001)
	assert.Equal(t, "2-3 days", stats.AvgTimeByStage[models.StageLead])
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	r := chi.NewRouter()
	r.Get("/kanban/pipeline", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	})

	c := newTestClient(t, r, "tok")
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchPipeline(ctx, models.ScopeFull)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", nil)
	assert.Error(t, err)

	c, err := NewClient("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c, err = NewClient("http://api.test/base/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/base", c.BaseURL())
}
