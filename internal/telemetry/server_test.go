package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/leadboard/leadboard-cli/pkg/board"
	"github.com/leadboard/leadboard-cli/pkg/board/boardtest"
	"github.com/leadboard/leadboard-cli/pkg/models"
)

type fixedStatus board.Status

func (f fixedStatus) Status() board.Status { return board.Status(f) }

func TestHealthz(t *testing.T) {
	loadedAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   board.Status
		wantCode int
		want     Health
	}{
		{
			name:     "healthy",
			status:   board.Status{Loaded: true, LastLoaded: loadedAt, Scope: models.ScopeRestricted, Pending: 1},
			wantCode: http.StatusOK,
			want:     Health{Status: "ok", Loaded: true, Scope: "restricted", LastLoaded: &loadedAt, Pending: 1},
		},
		{
			name:     "never loaded",
			status:   board.Status{},
			wantCode: http.StatusServiceUnavailable,
			want:     Health{Status: "degraded", Scope: "full"},
		},
		{
			name:     "last load failed",
			status:   board.Status{Loaded: true, LastLoaded: loadedAt, Err: errors.New("connection refused")},
			wantCode: http.StatusServiceUnavailable,
			want:     Health{Status: "degraded", Loaded: true, Scope: "full", LastLoaded: &loadedAt, Error: "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := Routes(prometheus.NewRegistry(), fixedStatus(tt.status), nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got Health
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.Loaded, got.Loaded)
			assert.Equal(t, tt.want.Scope, got.Scope)
			assert.Equal(t, tt.want.Pending, got.Pending)
			assert.Equal(t, tt.want.Error, got.Error)
			if tt.want.LastLoaded == nil {
				assert.Nil(t, got.LastLoaded)
			} else {
				require.NotNil(t, got.LastLoaded)
				assert.True(t, tt.want.LastLoaded.Equal(*got.LastLoaded))
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	fake := newFakeSync(t, reg)
	router := Routes(reg, fake, []string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `leadboard_loads_total{result="ok"} 1`)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func newFakeSync(t *testing.T, reg prometheus.Registerer) *board.Synchronizer {
	t.Helper()
	backend := boardtest.NewFakeBackend(boardtest.SamplePipeline())
	s := board.New(backend, boardtest.Admin(), board.WithMetrics(board.NewMetrics(reg)))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestServer_ListenServeShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	router := Routes(prometheus.NewRegistry(), fixedStatus(board.Status{Loaded: true}), nil)
	srv, err := Listen("127.0.0.1:0", router, nil)
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-served)
}
