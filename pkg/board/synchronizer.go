// Package board keeps the local kanban board in step with the backend.
//
// The Synchronizer owns the in-memory pipeline for a session. Moves are
// applied optimistically, then submitted; a rejected move is undone by
// reloading the whole board from the backend rather than by inverting the
// local change. Every load and move carries a sequence number so that a
// response overtaken by a newer request is discarded instead of overwriting
// newer state.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// MaxBulkMove mirrors the backend limit for bulk-update-stage
const MaxBulkMove = 50

// Backend is the part of the REST API the synchronizer depends on
type Backend interface {
	FetchPipeline(ctx context.Context, scope models.Scope) (*models.Snapshot, error)
	UpdateStage(ctx context.Context, id int, stage models.Stage) (*models.StageUpdate, error)
	FetchSuggestions(ctx context.Context, id int) ([]string, error)
	BulkUpdateStage(ctx context.Context, ids []int, stage models.Stage) (*models.BulkUpdate, error)
}

// SessionSource yields the session whose role picks the pipeline endpoint
type SessionSource interface {
	Current() models.Session
}

// Move is an optimistic stage change that has been applied locally
type Move struct {
	Seq    uint64
	CardID int
	From   models.Stage
	To     models.Stage
	Card   models.Card
}

// MoveResult is returned once the backend accepted a move
type MoveResult struct {
	Move         Move
	Suggestions  []string
	Notification string
}

// BulkResult is returned once the backend accepted a bulk move
type BulkResult struct {
	Moves        []Move
	Updated      int
	Partial      bool
	Notification string
}

// Status summarises load state for rendering
type Status struct {
	Loaded     bool
	Loading    bool
	Err        error
	LastLoaded time.Time
	Pending    int
	Scope      models.Scope
}

// journalEntry remembers a move until a load issued after its confirmation
// has been applied. confirmedAt is the load sequence current at confirmation,
// zero while the move is still in flight.
type journalEntry struct {
	seq         uint64
	target      models.Stage
	confirmedAt uint64
	confirmed   bool
}

// Synchronizer is the pipeline state owner. It is safe for concurrent use;
// the lock is never held across a backend call.
type Synchronizer struct {
	backend Backend
	session SessionSource
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	mu          sync.Mutex
	pipeline    models.Pipeline
	loaded      bool
	loading     bool
	loadErr     error
	lastLoaded  time.Time
	active      int
	suggestions map[int][]string

	loadSeq    uint64
	cancelLoad context.CancelFunc

	moveSeq    uint64
	journal    map[int]journalEntry
	lastMoveOf map[int]uint64

	suggestFlight singleflight.Group
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches prometheus counters
func WithMetrics(m *Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a synchronizer with an empty, not yet loaded board
func New(backend Backend, session SessionSource, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:     backend,
		session:     session,
		logger:      zap.NewNop(),
		now:         time.Now,
		pipeline:    models.NewPipeline(),
		suggestions: make(map[int][]string),
		journal:     make(map[int]journalEntry),
		lastMoveOf:  make(map[int]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) scope() models.Scope {
	if s.session == nil {
		return models.ScopeFull
	}
	return s.session.Current().Scope()
}

// Load replaces the board with the backend's snapshot. A newer Load cancels
// an older one still in flight; the older one then returns ErrStale. On
// failure the previous board is kept untouched and Status().Err is set.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	s.loading = true
	scope := s.scope()
	s.mu.Unlock()
	defer cancel()

	snap, err := s.backend.FetchPipeline(loadCtx, scope)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		s.metrics.staleResponse("load")
		s.logger.Debug("discarding superseded pipeline load", zap.Uint64("seq", seq), zap.Uint64("latest", s.loadSeq))
		return ErrStale
	}
	s.cancelLoad = nil
	s.loading = false

	if err != nil {
		s.loadErr = err
		s.metrics.load("error")
		s.logger.Warn("pipeline load failed", zap.String("scope", scope.String()), zap.Error(err))
		return fmt.Errorf("load pipeline: %w", err)
	}

	pipeline := s.normalize(snap)
	s.rebase(pipeline, seq)

	s.pipeline = pipeline
	s.loaded = true
	s.loadErr = nil
	s.lastLoaded = s.now()
	s.pruneLocked()
	s.metrics.load("ok")
	s.logger.Debug("pipeline loaded",
		zap.Uint64("seq", seq),
		zap.String("scope", scope.String()),
		zap.Int("cards", pipeline.Len()))
	return nil
}

// normalize builds a pipeline that satisfies the partition invariant from
// whatever the backend sent: duplicates keep their first occurrence and cards
// under unknown stage keys fall back to lead.
func (s *Synchronizer) normalize(snap *models.Snapshot) models.Pipeline {
	pipeline := models.NewPipeline()
	seen := make(map[int]bool)

	keys := make([]models.Stage, 0, len(snap.Pipeline))
	for k := range snap.Pipeline {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ii, jj := keys[i].Index(), keys[j].Index()
		if ii < 0 && jj < 0 {
			return keys[i] < keys[j]
		}
		if ii < 0 || jj < 0 {
			return jj < 0
		}
		return ii < jj
	})

	for _, stage := range keys {
		target := stage
		if !stage.Valid() {
			s.logger.Warn("unknown stage in snapshot, placing cards in lead", zap.String("stage", string(stage)))
			target = models.StageLead
		}
		for _, card := range snap.Pipeline[stage] {
			if seen[card.ID] {
				s.logger.Warn("card listed twice in snapshot", zap.Int("card", card.ID), zap.String("stage", string(stage)))
				continue
			}
			seen[card.ID] = true
			pipeline.Append(target, card)
		}
	}

	derived := pipeline.Stats()
	if snap.Stats.ByStage != nil && !derived.Equal(snap.Stats) {
		s.logger.Warn("server stats disagree with pipeline contents, using derived counts",
			zap.Int("server_total", snap.Stats.Total),
			zap.Int("derived_total", derived.Total))
	}
	return pipeline
}

// rebase re-applies moves the snapshot may not reflect yet: moves still in
// flight, and moves confirmed after load seq was issued.
func (s *Synchronizer) rebase(pipeline models.Pipeline, seq uint64) {
	for id, entry := range s.journal {
		if entry.confirmed && entry.confirmedAt < seq {
			delete(s.journal, id)
			continue
		}
		if _, ok := pipeline.Relocate(id, entry.target); !ok {
			if entry.confirmed {
				delete(s.journal, id)
			}
			continue
		}
		s.logger.Debug("re-applied move over snapshot", zap.Int("card", id), zap.String("stage", string(entry.target)))
	}
}

// pruneLocked drops side-channel data for cards that left the board
func (s *Synchronizer) pruneLocked() {
	for id := range s.suggestions {
		if _, _, ok := s.pipeline.Find(id); !ok {
			delete(s.suggestions, id)
		}
	}
	if s.active != 0 {
		if _, _, ok := s.pipeline.Find(s.active); !ok {
			s.active = 0
		}
	}
}

// BeginDrag marks a card as the one being dragged
func (s *Synchronizer) BeginDrag(id int) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, _, ok := s.pipeline.Find(id)
	if !ok {
		return models.Card{}, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
	}
	s.active = id
	return card, nil
}

// CancelDrag ends a drag gesture without a drop
func (s *Synchronizer) CancelDrag() {
	s.mu.Lock()
	s.active = 0
	s.mu.Unlock()
}

// Active returns the card being dragged, if any
func (s *Synchronizer) Active() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != 0
}

// CompleteDrag drops a card on target: the optimistic Move followed by Submit
func (s *Synchronizer) CompleteDrag(ctx context.Context, id int, target models.Stage) (*MoveResult, error) {
	m, err := s.Move(id, target)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, m)
}

// Move applies a stage change locally and ends any drag in progress. It
// returns ErrSameStage without touching anything when target is the card's
// current stage.
func (s *Synchronizer) Move(id int, target models.Stage) (*Move, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%q: %w", target, ErrUnknownStage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = 0
	if !s.loaded {
		return nil, ErrNotLoaded
	}

	card, origin, ok := s.pipeline.Find(id)
	if !ok {
		return nil, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
	}
	if origin == target {
		return nil, ErrSameStage
	}

	m := s.applyMoveLocked(card, origin, target)
	s.logger.Debug("optimistic move",
		zap.Int("card", id),
		zap.String("from", string(origin)),
		zap.String("to", string(target)),
		zap.Uint64("seq", m.Seq))
	return &m, nil
}

func (s *Synchronizer) applyMoveLocked(card models.Card, origin, target models.Stage) Move {
	s.pipeline.Remove(origin, card.ID)
	s.pipeline.Append(target, card)

	s.moveSeq++
	seq := s.moveSeq
	s.journal[card.ID] = journalEntry{seq: seq, target: target}
	s.lastMoveOf[card.ID] = seq

	card.Stage = target
	return Move{Seq: seq, CardID: card.ID, From: origin, To: target, Card: card}
}

// Submit sends an optimistic move to the backend. On success suggestions for
// the new stage are stored; on failure the board is reloaded from the backend
// and a *TransitionError is returned.
func (s *Synchronizer) Submit(ctx context.Context, m *Move) (*MoveResult, error) {
	update, err := s.backend.UpdateStage(ctx, m.CardID, m.To)
	if err != nil {
		s.metrics.move("rejected")
		s.logger.Warn("stage update rejected, resynchronizing",
			zap.Int("card", m.CardID),
			zap.String("to", string(m.To)),
			zap.Error(err))
		s.forget(*m)
		return nil, &TransitionError{
			CardIDs:   []int{m.CardID},
			Target:    m.To,
			Err:       err,
			ReloadErr: s.resync(ctx),
		}
	}

	s.mu.Lock()
	latest := s.confirmLocked(*m)
	var suggestions []string
	if latest && len(update.Suggestion) > 0 {
		suggestions = append([]string(nil), update.Suggestion...)
		s.suggestions[m.CardID] = suggestions
	} else if !latest {
		s.metrics.staleResponse("move")
	}
	s.mu.Unlock()

	s.metrics.move("ok")
	return &MoveResult{
		Move:         *m,
		Suggestions:  suggestions,
		Notification: fmt.Sprintf("Moved to %s!", m.To.Label()),
	}, nil
}

// confirmLocked marks the journal entry of m as confirmed. It reports false
// when a newer move of the same card superseded m.
func (s *Synchronizer) confirmLocked(m Move) bool {
	entry, ok := s.journal[m.CardID]
	if !ok || entry.seq != m.Seq {
		return false
	}
	entry.confirmed = true
	entry.confirmedAt = s.loadSeq
	s.journal[m.CardID] = entry
	return true
}

func (s *Synchronizer) forget(m Move) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.journal[m.CardID]; ok && entry.seq == m.Seq {
		delete(s.journal, m.CardID)
	}
}

// resync reloads after a rejected move. A superseded reload is fine: the
// newer load will land instead.
func (s *Synchronizer) resync(ctx context.Context) error {
	err := s.Load(ctx)
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}

// BulkMove moves several cards to target with one backend call. Cards already
// in target are skipped; an unknown card fails the whole call before any
// local change.
func (s *Synchronizer) BulkMove(ctx context.Context, ids []int, target models.Stage) (*BulkResult, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%q: %w", target, ErrUnknownStage)
	}
	if len(ids) > MaxBulkMove {
		return nil, fmt.Errorf("%d cards (max %d): %w", len(ids), MaxBulkMove, ErrTooManyCards)
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	type located struct {
		card   models.Card
		origin models.Stage
	}
	var toMove []located
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		card, origin, ok := s.pipeline.Find(id)
		if !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("card %d: %w", id, ErrCardNotFound)
		}
		if origin != target {
			toMove = append(toMove, located{card: card, origin: origin})
		}
	}
	if len(toMove) == 0 {
		s.mu.Unlock()
		return nil, ErrSameStage
	}

	s.active = 0
	moves := make([]Move, 0, len(toMove))
	movedIDs := make([]int, 0, len(toMove))
	for _, l := range toMove {
		moves = append(moves, s.applyMoveLocked(l.card, l.origin, target))
		movedIDs = append(movedIDs, l.card.ID)
	}
	s.mu.Unlock()

	result, err := s.backend.BulkUpdateStage(ctx, movedIDs, target)
	if err != nil {
		s.metrics.move("rejected")
		s.logger.Warn("bulk stage update rejected, resynchronizing", zap.Ints("cards", movedIDs), zap.Error(err))
		for _, m := range moves {
			s.forget(m)
		}
		return nil, &TransitionError{CardIDs: movedIDs, Target: target, Err: err, ReloadErr: s.resync(ctx)}
	}

	s.mu.Lock()
	for _, m := range moves {
		s.confirmLocked(m)
	}
	s.mu.Unlock()

	out := &BulkResult{
		Moves:        moves,
		Updated:      result.UpdatedCount,
		Notification: fmt.Sprintf("Moved %d cards to %s!", result.UpdatedCount, target.Label()),
	}

	// The backend silently skips cards the caller does not own; the board
	// must then be brought back in line with what was really updated.
	if result.UpdatedCount < len(movedIDs) {
		out.Partial = true
		s.metrics.move("partial")
		s.logger.Warn("bulk move partially applied, resynchronizing",
			zap.Int("requested", len(movedIDs)),
			zap.Int("updated", result.UpdatedCount))
		for _, m := range moves {
			s.forget(m)
		}
		if err := s.resync(ctx); err != nil {
			return out, fmt.Errorf("bulk move partially applied and resync failed: %w", err)
		}
		return out, nil
	}

	s.metrics.move("ok")
	return out, nil
}

// FetchSuggestions asks the backend for next-action hints and stores them.
// Concurrent calls for the same card share one request. Hints fetched while
// the card was being moved are returned but not stored.
func (s *Synchronizer) FetchSuggestions(ctx context.Context, id int) ([]string, error) {
	v, err, _ := s.suggestFlight.Do(strconv.Itoa(id), func() (interface{}, error) {
		s.mu.Lock()
		before := s.lastMoveOf[id]
		s.mu.Unlock()

		list, err := s.backend.FetchSuggestions(ctx, id)
		if err != nil {
			s.metrics.suggestion("error")
			return nil, err
		}
		s.metrics.suggestion("ok")

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.lastMoveOf[id] != before {
			s.metrics.staleResponse("suggestions")
			return list, nil
		}
		s.suggestions[id] = append([]string(nil), list...)
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("suggestions for card %d: %w", id, err)
	}
	list := v.([]string)
	return append([]string(nil), list...), nil
}

// Suggestions returns the stored hints for a card
func (s *Synchronizer) Suggestions(id int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.suggestions[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), list...), true
}

// FindCard scans every stage for the card
func (s *Synchronizer) FindCard(id int) (models.Card, models.Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline.Find(id)
}

// Snapshot returns a deep copy of the board with derived stats
func (s *Synchronizer) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pipeline.Clone()
	return models.Snapshot{Pipeline: p, Stats: p.Stats()}
}

// Loaded reports whether a load has ever succeeded
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Err returns the error of the last applied load, nil after a success
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Status reports load state
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := 0
	for _, entry := range s.journal {
		if !entry.confirmed {
			pending++
		}
	}
	return Status{
		Loaded:     s.loaded,
		Loading:    s.loading,
		Err:        s.loadErr,
		LastLoaded: s.lastLoaded,
		Pending:    pending,
		Scope:      s.scope(),
	}
}

// Reset forgets everything, e.g. after sign-out
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.loadSeq++
	s.pipeline = models.NewPipeline()
	s.loaded = false
	s.loading = false
	s.loadErr = nil
	s.active = 0
	s.suggestions = make(map[int][]string)
	s.journal = make(map[int]journalEntry)
}

// Close cancels an in-flight load; its Load call returns ErrStale
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.loadSeq++
	s.loading = false
}
