package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/orchestrator"
	"github.com/valpere/glossator/internal/review"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedState struct{ s orchestrator.State }

func (f fixedState) State() orchestrator.State { return f.s }

var proposed = []internal.TermCandidate{
	{Input: "Feng Yun", Translation: "Phong Vân", Gender: internal.GenderMale},
	{Input: "Jade Hall", Translation: "Ngọc Đường"},
}

// openReview starts a review on a fresh gate and returns a channel with its
// result once resolved.
func openReview(t *testing.T) (*review.Gate, <-chan []internal.TermCandidate) {
	t.Helper()
	opened := make(chan struct{})
	gate := review.New(review.WithTimeout(time.Hour), review.WithNotify(func(review.Pending) { close(opened) }))
	result := make(chan []internal.TermCandidate, 1)
	go func() { result <- gate.Review(context.Background(), proposed) }()

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("review did not open")
	}
	return gate, result
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitResult(t *testing.T, result <-chan []internal.TermCandidate) []internal.TermCandidate {
	t.Helper()
	select {
	case got := <-result:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("review did not resolve")
		return nil
	}
}

func TestServer_Health(t *testing.T) {
	s := New(review.New(), nil, nil)
	rec := do(s.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body)
	}
}

func TestServer_State(t *testing.T) {
	state := orchestrator.NewState([]internal.Chapter{{ID: "ch1", Name: "One"}}, orchestrator.PhaseTranslation)
	state.Running = true
	state.Progress = 0.5

	s := New(review.New(), fixedState{state}, nil)
	rec := do(s.Handler(), http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got orchestrator.State
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Phase != orchestrator.PhaseTranslation || got.Progress != 0.5 || got.Chapters[0].ID != "ch1" {
		t.Errorf("unexpected state %+v", got)
	}

	noState := New(review.New(), nil, nil)
	if rec := do(noState.Handler(), http.MethodGet, "/api/state", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a run, got %d", rec.Code)
	}
}

func TestServer_NoPendingReview(t *testing.T) {
	s := New(review.New(), nil, nil)
	h := s.Handler()

	if rec := do(h, http.MethodGet, "/api/review", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET: expected 404, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/review", `{"accept":[0]}`); rec.Code != http.StatusConflict {
		t.Errorf("POST: expected 409, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/review/pause", ""); rec.Code != http.StatusConflict {
		t.Errorf("pause: expected 409, got %d", rec.Code)
	}
}

func TestServer_ReviewByIndices(t *testing.T) {
	gate, result := openReview(t)
	h := New(gate, nil, nil).Handler()

	rec := do(h, http.MethodGet, "/api/review", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var pending pendingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(pending.Terms) != 2 || pending.RemainingSeconds < 3590 || pending.Paused {
		t.Errorf("unexpected pending review %+v", pending)
	}

	if rec := do(h, http.MethodPost, "/api/review", `{"accept":[1]}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body)
	}
	got := waitResult(t, result)
	if len(got) != 1 || got[0].Input != "Jade Hall" {
		t.Errorf("expected Jade Hall accepted, got %+v", got)
	}
}

func TestServer_ReviewAll(t *testing.T) {
	gate, result := openReview(t)
	h := New(gate, nil, nil).Handler()

	if rec := do(h, http.MethodPost, "/api/review", `{"all":true}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := waitResult(t, result); len(got) != 2 {
		t.Errorf("expected both terms accepted, got %+v", got)
	}
}

func TestServer_ReviewEditedTerms(t *testing.T) {
	gate, result := openReview(t)
	h := New(gate, nil, nil).Handler()

	body := `{"terms":[{"input":"feng yun","translation":"Phong Vũ","gender":"Male","matchType":"Exact"}]}`
	if rec := do(h, http.MethodPost, "/api/review", body); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body)
	}
	got := waitResult(t, result)
	if len(got) != 1 || got[0].Translation != "Phong Vũ" || got[0].MatchType != internal.MatchExact {
		t.Errorf("expected edited term, got %+v", got)
	}
}

func TestServer_ReviewInvalidSelection(t *testing.T) {
	gate, result := openReview(t)
	h := New(gate, nil, nil).Handler()

	tests := []struct {
		name string
		body string
	}{
		{"index out of range", `{"accept":[5]}`},
		{"unknown term", `{"terms":[{"input":"Long Phi","translation":"x"}]}`},
		{"malformed", `{"accept":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, http.MethodPost, "/api/review", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}

	if _, ok := gate.Pending(); !ok {
		t.Fatal("invalid selections must leave the review open")
	}
	do(h, http.MethodPost, "/api/review", `{"accept":[]}`)
	if got := waitResult(t, result); len(got) != 0 {
		t.Errorf("expected empty selection, got %+v", got)
	}
}

func TestServer_PauseResume(t *testing.T) {
	gate, result := openReview(t)
	h := New(gate, nil, nil).Handler()

	if rec := do(h, http.MethodPost, "/api/review/pause", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("pause: expected 204, got %d", rec.Code)
	}
	if p, _ := gate.Pending(); !p.Paused {
		t.Error("expected review paused")
	}
	if rec := do(h, http.MethodPost, "/api/review/resume", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("resume: expected 204, got %d", rec.Code)
	}
	if p, _ := gate.Pending(); p.Paused {
		t.Error("expected review resumed")
	}

	gate.Submit(nil)
	waitResult(t, result)
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("glossator_batch_progress_ratio 0.5\n"))
	})
	h := New(review.New(), nil, metrics).Handler()

	rec := do(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "progress_ratio") {
		t.Errorf("unexpected metrics response %d %s", rec.Code, rec.Body)
	}

	if rec := do(New(review.New(), nil, nil).Handler(), http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
}
