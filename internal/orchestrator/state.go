package orchestrator

import (
	"context"

	"github.com/valpere/glossator/internal"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseGlossary    Phase = "glossary"
	PhaseTranslation Phase = "translation"
	PhaseDone        Phase = "done"
)

// ChapterStatus is serialized as its numeric value.
type ChapterStatus int

const (
	StatusPending ChapterStatus = iota
	StatusInProgress
	StatusGlossaryReview
	StatusTranslating
	StatusCompleted
	StatusFailed
)

func (s ChapterStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "InProgress"
	case StatusGlossaryReview:
		return "GlossaryReview"
	case StatusTranslating:
		return "Translating"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	}
	return "Unknown"
}

// Terminal reports whether a chapter needs no more work in this run.
func (s ChapterStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Chapter is a run's own copy of a project chapter.
type Chapter struct {
	internal.Chapter
	Status ChapterStatus `json:"status"`
}

// State is the resumable snapshot of a run. It is what gets persisted and
// what every state update carries.
type State struct {
	Running     bool      `json:"running"`
	Phase       Phase     `json:"phase"`
	CurrentTask string    `json:"currentTask"`
	Chapters    []Chapter `json:"chapters"`
	Progress    float64   `json:"progress"`
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	s.Chapters = append([]Chapter(nil), s.Chapters...)
	return s
}

// Count returns the number of chapters with the given status.
func (s State) Count(status ChapterStatus) int {
	n := 0
	for _, c := range s.Chapters {
		if c.Status == status {
			n++
		}
	}
	return n
}

// NewState builds a not-yet-running state at phase with every chapter
// pending. Use StartAt for a fresh run that skips extraction.
func NewState(chapters []internal.Chapter, phase Phase) State {
	out := make([]Chapter, len(chapters))
	for i, c := range chapters {
		out[i] = Chapter{Chapter: c, Status: StatusPending}
	}
	return State{Phase: phase, Chapters: out}
}

// StorageKey is the persistence key of a project's unfinished run.
func StorageKey(projectID string) string {
	return "batch-progress-" + projectID
}

// StateStore persists run snapshots for resumption. LoadState returns
// nil, nil when nothing is stored under key.
type StateStore interface {
	SaveState(ctx context.Context, key string, state State) error
	LoadState(ctx context.Context, key string) (*State, error)
	DeleteState(ctx context.Context, key string) error
}
