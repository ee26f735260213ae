package boardtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// FakeBackend is an in-memory backend that keeps its own pipeline and
// applies stage updates to it, like the real service does.
type FakeBackend struct {
	mu sync.Mutex

	pipeline    models.Pipeline
	suggestions map[models.Stage][]string

	// Hooks run before the fake answers; they may block on channels to
	// force a particular interleaving.
	BeforeFetch   func(ctx context.Context, call int) error
	BeforeUpdate  func(ctx context.Context, id int, stage models.Stage) error
	BeforeSuggest func(ctx context.Context, id int) error

	// Cards the caller may not touch; bulk updates silently skip them.
	NotOwned map[int]bool

	fetchCalls   int
	updateCalls  int
	suggestCalls int
	bulkCalls    int
	scopes       []models.Scope
}

// NewFakeBackend starts the fake with a copy of p
func NewFakeBackend(p models.Pipeline) *FakeBackend {
	return &FakeBackend{
		pipeline: p.Clone(),
		suggestions: map[models.Stage][]string{
			models.StageQualified:   {"Schedule a discovery call"},
			models.StageProposal:    {"Send the proposal deck", "Agree on a decision date"},
			models.StageNegotiation: {"Confirm budget owner"},
			models.StageClosed:      {"Hand over to onboarding"},
		},
		NotOwned: map[int]bool{},
	}
}

// SetPipeline replaces the server-side board
func (f *FakeBackend) SetPipeline(p models.Pipeline) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipeline = p.Clone()
}

// ServerPipeline returns a copy of the server-side board
func (f *FakeBackend) ServerPipeline() models.Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipeline.Clone()
}

// SetSuggestions overrides the hints returned for a stage
func (f *FakeBackend) SetSuggestions(stage models.Stage, hints ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestions[stage] = hints
}

func (f *FakeBackend) FetchPipeline(ctx context.Context, scope models.Scope) (*models.Snapshot, error) {
	f.mu.Lock()
	f.fetchCalls++
	call := f.fetchCalls
	f.scopes = append(f.scopes, scope)
	hook := f.BeforeFetch
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return SnapshotOf(f.pipeline), nil
}

func (f *FakeBackend) UpdateStage(ctx context.Context, id int, stage models.Stage) (*models.StageUpdate, error) {
	f.mu.Lock()
	f.updateCalls++
	hook := f.BeforeUpdate
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, id, stage); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.pipeline.Relocate(id, stage)
	if !ok {
		return nil, fmt.Errorf("analysis %d not found", id)
	}
	return &models.StageUpdate{
		Status:     "success",
		AnalysisID: id,
		OldStage:   &old,
		NewStage:   stage,
		Suggestion: append([]string(nil), f.suggestions[stage]...),
	}, nil
}

func (f *FakeBackend) FetchSuggestions(ctx context.Context, id int) ([]string, error) {
	f.mu.Lock()
	f.suggestCalls++
	hook := f.BeforeSuggest
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, id); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	_, stage, ok := f.pipeline.Find(id)
	if !ok {
		return nil, fmt.Errorf("analysis %d not found", id)
	}
	return append([]string{}, f.suggestions[stage]...), nil
}

func (f *FakeBackend) BulkUpdateStage(ctx context.Context, ids []int, stage models.Stage) (*models.BulkUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated := 0
	for _, id := range ids {
		if f.NotOwned[id] {
			continue
		}
		if _, ok := f.pipeline.Relocate(id, stage); ok {
			updated++
		}
	}
	return &models.BulkUpdate{Status: "success", UpdatedCount: updated, NewStage: stage}, nil
}

// Calls returns how often each endpoint was hit
func (f *FakeBackend) Calls() (fetch, update, suggest, bulk int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.updateCalls, f.suggestCalls, f.bulkCalls
}

// Scopes returns the scope of every pipeline fetch, in order
func (f *FakeBackend) Scopes() []models.Scope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Scope(nil), f.scopes...)
}

// MockBackend is a testify mock for tests that assert exact calls
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) FetchPipeline(ctx context.Context, scope models.Scope) (*models.Snapshot, error) {
	args := m.Called(ctx, scope)
	snap, _ := args.Get(0).(*models.Snapshot)
	return snap, args.Error(1)
}

func (m *MockBackend) UpdateStage(ctx context.Context, id int, stage models.Stage) (*models.StageUpdate, error) {
	args := m.Called(ctx, id, stage)
	update, _ := args.Get(0).(*models.StageUpdate)
	return update, args.Error(1)
}

func (m *MockBackend) FetchSuggestions(ctx context.Context, id int) ([]string, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]string)
	return list, args.Error(1)
}

func (m *MockBackend) BulkUpdateStage(ctx context.Context, ids []int, stage models.Stage) (*models.BulkUpdate, error) {
	args := m.Called(ctx, ids, stage)
	result, _ := args.Get(0).(*models.BulkUpdate)
	return result, args.Error(1)
}

// StaticSession is a fixed session source
type StaticSession models.Session

func (s StaticSession) Current() models.Session {
	return models.Session(s)
}

// Seller returns a signed-in seller session
func Seller() StaticSession {
	return StaticSession{Token: "seller-token", Role: "seller", Email: "seller@example.com"}
}

// Admin returns a signed-in admin session
func Admin() StaticSession {
	return StaticSession{Token: "admin-token", Role: "admin", Email: "admin@example.com"}
}
