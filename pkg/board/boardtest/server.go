package boardtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// Server serves the kanban REST API over HTTP on top of a FakeBackend, with
// notes, attachments and sellers kept in memory. Requests must carry Token
// as a bearer credential.
type Server struct {
	*FakeBackend
	URL   string
	Token string

	mu          sync.Mutex
	notes       map[int][]models.Note
	attachments map[int][]models.Attachment
	sellers     []models.Seller
	assigned    map[int]int
	nextID      int
	requests    []string
	analyzeErr  error
}

// NewServer starts a server for p, closed when the test ends
func NewServer(t testing.TB, p models.Pipeline) *Server {
	t.Helper()
	s := &Server{
		FakeBackend: NewFakeBackend(p),
		Token:       "test-token",
		notes:       make(map[int][]models.Note),
		attachments: make(map[int][]models.Attachment),
		assigned:    make(map[int]int),
		sellers: []models.Seller{
			{ID: 7, Email: "seller@example.com", Role: "seller", CreatedAt: models.Timestamp{Time: FixtureTime}},
			{ID: 8, Email: "closer@example.com", Role: "seller", CreatedAt: models.Timestamp{Time: FixtureTime}},
		},
		nextID: 100,
	}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

// Requests returns "METHOD /path" for every request served, in order
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Notes returns the notes stored for a card
func (s *Server) Notes(id int) []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Note(nil), s.notes[id]...)
}

// Attachments returns the attachments stored for a card
func (s *Server) Attachments(id int) []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Attachment(nil), s.attachments[id]...)
}

// AssignedSeller returns the seller id of a card, zero when unassigned
func (s *Server) AssignedSeller(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assigned[id]
}

// AddNote seeds a note on a card and returns it
func (s *Server) AddNote(id int, content string) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	note := models.Note{
		ID:        s.allocID(),
		Content:   content,
		CreatedAt: models.Timestamp{Time: FixtureTime},
		UpdatedAt: models.Timestamp{Time: FixtureTime},
		UserEmail: "admin@example.com",
	}
	s.notes[id] = append(s.notes[id], note)
	return note
}

func (s *Server) allocID() int {
	s.nextID++
	return s.nextID
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.authorize)

	r.Post("/analyze/", s.handleAnalyze)
	r.Get("/history/", s.handleHistory)

	r.Route("/kanban", func(r chi.Router) {
		r.Get("/pipeline", s.handlePipeline(models.ScopeFull))
		r.Get("/my-pipeline", s.handlePipeline(models.ScopeRestricted))
		r.Get("/stats", s.handleStats)
		r.Get("/sellers", s.handleSellers)
		r.Post("/bulk-update-stage", s.handleBulk)

		r.Route("/analysis/{id}", func(r chi.Router) {
			r.Patch("/stage", s.handleStage)
			r.Get("/suggestions", s.handleSuggestions)
			r.Get("/details", s.handleDetails)
			r.Post("/notes", s.handleAddNote)
			r.Put("/notes/{noteID}", s.handleUpdateNote)
			r.Delete("/notes/{noteID}", s.handleDeleteNote)
			r.Post("/attachments", s.handleAddAttachment)
			r.Delete("/attachments/{attachmentID}", s.handleDeleteAttachment)
			r.Patch("/assign-seller", s.handleAssign)
			r.Patch("/unassign-seller", s.handleUnassign)
		})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathID(r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	return id, err == nil && id > 0
}

// cardID resolves {id} to a card on the board, answering 404 otherwise
func (s *Server) cardID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := pathID(r, "id")
	if ok {
		_, _, ok = s.FakeBackend.ServerPipeline().Find(id)
	}
	if !ok {
		writeDetail(w, http.StatusNotFound, "Analysis not found")
		return 0, false
	}
	return id, true
}

func (s *Server) handlePipeline(scope models.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.FakeBackend.FetchPipeline(r.Context(), scope)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p := s.FakeBackend.ServerPipeline()
	stats := p.Stats()
	rates := map[string]float64{}
	stages := models.Stages()
	for i := 1; i < len(stages); i++ {
		prev := stats.ByStage[stages[i-1]]
		if prev > 0 {
			rates[string(stages[i-1])+"_to_"+string(stages[i])] = float64(stats.ByStage[stages[i]]) / float64(prev) * 100
		}
	}
	writeJSON(w, http.StatusOK, models.PipelineStats{
		TotalAnalyses:   stats.Total,
		ByStage:         stats.ByStage,
		ConversionRates: rates,
		AvgTimeByStage:  map[models.Stage]string{},
	})
}

func (s *Server) handleSellers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sellers := append([]models.Seller(nil), s.sellers...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sellers)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	stage := models.Stage(r.URL.Query().Get("new_stage"))
	if !stage.Valid() {
		writeDetail(w, http.StatusBadRequest, "Invalid stage")
		return
	}
	var ids []int
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "body must be a list of ids")
		return
	}
	result, err := s.FakeBackend.BulkUpdateStage(r.Context(), ids, stage)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	var body struct {
		Stage models.Stage `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Stage.Valid() {
		writeDetail(w, http.StatusBadRequest, "Invalid stage")
		return
	}
	update, err := s.FakeBackend.UpdateStage(r.Context(), id, body.Stage)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	list, err := s.FakeBackend.FetchSuggestions(r.Context(), id)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": list})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	card, stage, _ := s.FakeBackend.ServerPipeline().Find(id)

	s.mu.Lock()
	details := models.CardDetails{
		ID:          card.ID,
		Title:       card.Title,
		URL:         card.URL,
		Summary:     card.Summary,
		KeyPoints:   []string{},
		Entities:    map[string]interface{}{"industry": card.Industry, "sales_potential": card.SalesPotential},
		Stage:       stage,
		CreatedAt:   card.CreatedAt,
		Notes:       append([]models.Note{}, s.notes[id]...),
		Attachments: append([]models.Attachment{}, s.attachments[id]...),
	}
	if seller, ok := s.assigned[id]; ok {
		details.SellerID = &seller
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, details)
}

func decodeNote(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "content is required")
		return "", false
	}
	return body.Content, true
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	content, ok := decodeNote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, s.AddNote(id, content))
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	noteID, _ := pathID(r, "noteID")
	content, ok := decodeNote(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notes[id] {
		if n.ID == noteID {
			s.notes[id][i].Content = content
			writeJSON(w, http.StatusOK, s.notes[id][i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Note not found")
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	noteID, _ := pathID(r, "noteID")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notes[id] {
		if n.ID == noteID {
			s.notes[id] = append(s.notes[id][:i], s.notes[id][i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Note not found")
}

func (s *Server) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	var body models.NewAttachment
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Filename == "" || body.FileURL == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "filename and file_url are required")
		return
	}

	s.mu.Lock()
	att := models.Attachment{
		ID:        s.allocID(),
		Filename:  body.Filename,
		FileURL:   body.FileURL,
		FileType:  body.FileType,
		FileSize:  body.FileSize,
		CreatedAt: models.Timestamp{Time: FixtureTime},
		UserEmail: "admin@example.com",
	}
	s.attachments[id] = append(s.attachments[id], att)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	attID, _ := pathID(r, "attachmentID")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.attachments[id] {
		if a.ID == attID {
			s.attachments[id] = append(s.attachments[id][:i], s.attachments[id][i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Attachment not found")
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	var body struct {
		SellerID int `json:"seller_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "seller_id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seller := range s.sellers {
		if seller.ID == body.SellerID {
			s.assigned[id] = seller.ID
			writeJSON(w, http.StatusOK, models.SellerAssignment{
				Status:      "success",
				AnalysisID:  id,
				SellerID:    seller.ID,
				SellerEmail: seller.Email,
			})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Seller not found")
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	id, ok := s.cardID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.assigned, id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// RejectMoves makes every single-card stage update fail with err
func (s *Server) RejectMoves(err error) {
	s.FakeBackend.mu.Lock()
	defer s.FakeBackend.mu.Unlock()
	s.FakeBackend.BeforeUpdate = func(context.Context, int, models.Stage) error { return err }
}

// FailLoads makes every pipeline fetch fail with err; nil restores them
func (s *Server) FailLoads(err error) {
	s.FakeBackend.mu.Lock()
	defer s.FakeBackend.mu.Unlock()
	if err == nil {
		s.FakeBackend.BeforeFetch = nil
		return
	}
	s.FakeBackend.BeforeFetch = func(context.Context, int) error { return err }
}

// FailAnalyses makes URL submissions fail with err; nil restores them
func (s *Server) FailAnalyses(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzeErr = err
}

// handleAnalyze creates a lead card for the submitted page, titled after its host
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "url is required")
		return
	}
	u, err := url.Parse(body.URL)
	if err != nil || u.Host == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid url")
		return
	}

	s.mu.Lock()
	if s.analyzeErr != nil {
		err := s.analyzeErr
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	id := s.allocID()
	s.mu.Unlock()

	title := u.Host
	summary := "Company website " + u.Host
	card := models.Card{
		ID:             id,
		Title:          title,
		URL:            body.URL,
		Stage:          models.StageLead,
		CreatedAt:      models.Timestamp{Time: FixtureTime.Add(time.Duration(id) * time.Minute)},
		Summary:        &summary,
		SalesPotential: "Médio",
		Industry:       "Software",
	}
	s.FakeBackend.mu.Lock()
	s.FakeBackend.pipeline.Append(models.StageLead, card)
	s.FakeBackend.mu.Unlock()

	writeJSON(w, http.StatusOK, analysisOf(card))
}

// handleHistory lists every card as an analysis, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	p := s.FakeBackend.ServerPipeline()
	items := []models.Analysis{}
	for _, stage := range models.Stages() {
		for _, c := range p[stage] {
			items = append(items, analysisOf(c))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt.Time) {
			return items[i].CreatedAt.After(items[j].CreatedAt.Time)
		}
		return items[i].ID > items[j].ID
	})
	writeJSON(w, http.StatusOK, items)
}

func analysisOf(c models.Card) models.Analysis {
	title := c.Title
	return models.Analysis{
		ID:        c.ID,
		URL:       c.URL,
		Title:     &title,
		Summary:   c.Summary,
		KeyPoints: []string{},
		Entities:  map[string]interface{}{"industry": c.Industry, "sales_potential": c.SalesPotential},
		CreatedAt: c.CreatedAt,
	}
}
