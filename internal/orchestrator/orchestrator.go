// Package orchestrator runs a batch of chapters through glossary extraction,
// human review of the proposed terms and translation.
//
// A run moves through the phases idle, glossary, translation and done, never
// backwards. Its State is broadcast after every change and persisted on a
// fixed cadence so an interrupted run can be handed back to Start.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/events"
	"github.com/valpere/glossator/internal/placeholder"
	"github.com/valpere/glossator/internal/prompt"
	"github.com/valpere/glossator/internal/settings"
	"github.com/valpere/glossator/internal/translator"
)

const (
	// DefaultExtractWorkers bounds concurrent extraction calls.
	DefaultExtractWorkers = 3
	// DefaultTranslateWorkers is the size of a translation chunk.
	DefaultTranslateWorkers = 2
	// DefaultChunkDelay is the pause between translation chunks.
	DefaultChunkDelay = time.Second
	// DefaultSaveInterval is how often a running state is persisted.
	DefaultSaveInterval = 30 * time.Second
	DefaultSourceLang   = "en"
)

// Extractor proposes glossary terms for one chapter.
type Extractor interface {
	ExtractGlossaryTerms(ctx context.Context, sourceText, targetLang, instructions, exclusionList string, set settings.Settings) ([]internal.TermCandidate, error)
}

// Translator translates one chapter. A result carrying the stream error
// sentinel counts as a failure.
type Translator interface {
	TranslateStream(ctx context.Context, sourceText, sourceLang, targetLang string, set settings.Settings, onChunk func(string), promptOverride string) (string, error)
}

// ReviewFunc asks a human which of the proposed terms to keep. It must
// return once ctx is done.
type ReviewFunc func(ctx context.Context, terms []internal.TermCandidate) []internal.TermCandidate

// Config wires a run. Zero worker counts and durations take the Default*
// values; a negative ChunkDelay disables pacing.
type Config struct {
	ProjectID  string
	Chapters   []internal.Chapter
	Settings   settings.Settings
	SourceLang string
	TargetLang string

	Extractor  Extractor
	Translator Translator
	// Review defaults to accepting nothing.
	Review ReviewFunc

	OnGlossaryUpdate func(added []internal.GlossaryTerm)
	OnChaptersUpdate func(translated []internal.Chapter)
	Log              func(string)

	// Store is optional; without it the run is not resumable.
	Store StateStore

	ExtractWorkers   int
	TranslateWorkers int
	ChunkDelay       time.Duration
	SaveInterval     time.Duration
	NewID            func() string
}

type Orchestrator struct {
	cfg Config

	mu       sync.Mutex
	state    State
	glossary []internal.GlossaryTerm
	reviewed map[string]bool

	// emitMu keeps state updates in the order they were made.
	emitMu         sync.Mutex
	stateUpdates   events.Emitter[State]
	done           events.Emitter[State]
	extractionDone events.Emitter[[]internal.TermCandidate]
}

// New checks the configuration and the provider credentials so that a run
// never starts with a backend that cannot work.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if cfg.Extractor == nil || cfg.Translator == nil {
		return nil, errors.New("extractor and translator are required")
	}
	if strings.TrimSpace(cfg.TargetLang) == "" {
		return nil, errors.New("target language is required")
	}
	if cfg.SourceLang == "" {
		cfg.SourceLang = DefaultSourceLang
	}
	if cfg.Review == nil {
		cfg.Review = func(context.Context, []internal.TermCandidate) []internal.TermCandidate { return nil }
	}
	if cfg.OnGlossaryUpdate == nil {
		cfg.OnGlossaryUpdate = func([]internal.GlossaryTerm) {}
	}
	if cfg.OnChaptersUpdate == nil {
		cfg.OnChaptersUpdate = func([]internal.Chapter) {}
	}
	if cfg.Log == nil {
		cfg.Log = func(string) {}
	}
	if cfg.ExtractWorkers <= 0 {
		cfg.ExtractWorkers = DefaultExtractWorkers
	}
	if cfg.TranslateWorkers <= 0 {
		cfg.TranslateWorkers = DefaultTranslateWorkers
	}
	if cfg.ChunkDelay == 0 {
		cfg.ChunkDelay = DefaultChunkDelay
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = DefaultSaveInterval
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	o := &Orchestrator{
		cfg:      cfg,
		state:    NewState(cfg.Chapters, PhaseIdle),
		glossary: append([]internal.GlossaryTerm(nil), cfg.Settings.Glossary...),
		reviewed: make(map[string]bool, len(cfg.Settings.Glossary)),
	}
	for _, t := range cfg.Settings.Glossary {
		o.reviewed[strings.ToLower(t.Input)] = true
	}
	return o, nil
}

// OnStateUpdate subscribes to state snapshots. Subscriptions end when the
// run finishes or when the returned function is called.
func (o *Orchestrator) OnStateUpdate(fn func(State)) (off func()) {
	return o.stateUpdates.On(fn)
}

// OnDone subscribes to the final state of a full run.
func (o *Orchestrator) OnDone(fn func(State)) (off func()) {
	return o.done.On(fn)
}

// OnExtractionDone subscribes to the raw terms found by StartExtractionOnly.
func (o *Orchestrator) OnExtractionDone(fn func([]internal.TermCandidate)) (off func()) {
	return o.extractionDone.On(fn)
}

// State returns a snapshot of the current run.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Glossary returns the run's working glossary, including accepted terms.
func (o *Orchestrator) Glossary() []internal.GlossaryTerm {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]internal.GlossaryTerm(nil), o.glossary...)
}

func (o *Orchestrator) logf(format string, args ...any) {
	o.cfg.Log("[Batch] " + fmt.Sprintf(format, args...))
}

// update applies fn to the state and broadcasts the result. Handlers may
// call State but must not trigger another update.
func (o *Orchestrator) update(fn func(*State)) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	fn(&o.state)
	snap := o.state.Clone()
	o.mu.Unlock()

	o.stateUpdates.Emit(snap)
}

func (o *Orchestrator) setStatus(id string, status ChapterStatus, extra func(*State)) {
	o.update(func(s *State) {
		for i := range s.Chapters {
			if s.Chapters[i].ID == id {
				s.Chapters[i].Status = status
				break
			}
		}
		if extra != nil {
			extra(s)
		}
	})
}

// begin flips the run to running unless it already is.
func (o *Orchestrator) begin(fn func(*State)) bool {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if o.state.Running {
		o.mu.Unlock()
		return false
	}
	fn(&o.state)
	o.state.Running = true
	snap := o.state.Clone()
	o.mu.Unlock()

	o.stateUpdates.Emit(snap)
	return true
}

// Start runs every remaining phase and blocks until the run is done. A nil
// resume starts from scratch; otherwise the run continues from the given
// snapshot. Calling Start on a running orchestrator does nothing.
//
// Chapter failures do not make Start fail. When ctx is cancelled the run
// stops between steps, its state is persisted for a later resume and
// ctx.Err() is returned.
func (o *Orchestrator) Start(ctx context.Context, resume *State) error {
	if resume == nil {
		return o.run(ctx, NewState(o.cfg.Chapters, PhaseGlossary), false)
	}
	return o.run(ctx, resume.Clone(), true)
}

// StartAt begins a fresh run at phase, which must be PhaseGlossary or
// PhaseTranslation. Starting at PhaseTranslation skips extraction and
// review, for backends that cannot extract terms.
func (o *Orchestrator) StartAt(ctx context.Context, phase Phase) error {
	if phase != PhaseGlossary && phase != PhaseTranslation {
		return fmt.Errorf("cannot start a run at phase %q", phase)
	}
	return o.run(ctx, NewState(o.cfg.Chapters, phase), false)
}

func (o *Orchestrator) run(ctx context.Context, initial State, resumed bool) error {
	started := o.begin(func(s *State) {
		*s = initial
		if resumed {
			s.CurrentTask = "Resuming process..."
		}
	})
	if !started {
		return nil
	}
	if resumed {
		o.logf("Resuming unfinished batch process...")
	} else {
		o.logf("Batch process started.")
	}

	stopSaving := o.autosave(ctx)

	phase := o.State().Phase
	if phase == PhaseIdle || phase == PhaseGlossary {
		o.update(func(s *State) { s.Phase = PhaseGlossary })
		if o.State().Count(StatusPending) > 0 {
			terms := o.runExtraction(ctx)
			if ctx.Err() == nil {
				if fresh := o.filterNewTerms(terms); len(fresh) > 0 {
					o.requestReview(ctx, fresh)
				}
			}
		}
		phase = PhaseTranslation
	}
	if err := ctx.Err(); err != nil {
		return o.interrupt(stopSaving, err)
	}

	if phase == PhaseTranslation {
		o.runTranslation(ctx)
	}
	if err := ctx.Err(); err != nil {
		return o.interrupt(stopSaving, err)
	}

	stopSaving()
	o.update(func(s *State) {
		s.Running = false
		s.Phase = PhaseDone
		s.CurrentTask = "Batch process completed!"
	})
	o.logf("Batch process completed!")
	o.clearSaved()
	o.done.Emit(o.State())
	o.done.Off()
	o.stateUpdates.Off()
	return nil
}

// StartExtractionOnly runs the extraction phase over every chapter and
// hands the raw terms to OnExtractionDone subscribers. The working glossary
// is left alone and nothing is persisted.
func (o *Orchestrator) StartExtractionOnly(ctx context.Context) error {
	started := o.begin(func(s *State) {
		*s = NewState(o.cfg.Chapters, PhaseGlossary)
		s.CurrentTask = "Starting extraction..."
	})
	if !started {
		return nil
	}
	o.logf("Starting batch glossary extraction only...")

	terms := o.runExtraction(ctx)
	o.logf("Extraction complete. A total of %d potential terms were found across all chapters.", len(terms))

	o.update(func(s *State) {
		s.Running = false
		s.Phase = PhaseDone
		s.CurrentTask = "Extraction complete!"
	})
	o.extractionDone.Emit(terms)
	o.extractionDone.Off()
	o.stateUpdates.Off()
	return ctx.Err()
}

func (o *Orchestrator) interrupt(stopSaving func(), cause error) error {
	stopSaving()
	o.logf("Batch process interrupted: %v", cause)
	o.save(context.Background())
	o.update(func(s *State) {
		s.Running = false
		s.CurrentTask = "Interrupted"
	})
	o.stateUpdates.Off()
	return cause
}

func (o *Orchestrator) runExtraction(ctx context.Context) []internal.TermCandidate {
	snap := o.State()
	var queue []Chapter
	for _, c := range snap.Chapters {
		if c.Status == StatusPending {
			queue = append(queue, c)
		}
	}
	total := len(snap.Chapters)
	finished := total - len(queue)

	o.logf("Starting glossary extraction for %d chapters.", len(queue))
	o.update(func(s *State) {
		s.CurrentTask = fmt.Sprintf("Extracting terms from %d chapters...", len(queue))
		s.Progress = ratio(finished, total)
	})

	var (
		termsMu sync.Mutex
		all     []internal.TermCandidate
	)
	var g errgroup.Group
	g.SetLimit(o.cfg.ExtractWorkers)
	for _, c := range queue {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			status := o.extractChapter(ctx, c, func(terms []internal.TermCandidate) {
				termsMu.Lock()
				all = append(all, terms...)
				termsMu.Unlock()
			})
			o.setStatus(c.ID, status, func(s *State) {
				if status != StatusPending {
					finished++
					s.Progress = ratio(finished, total)
				}
			})
			return nil
		})
	}
	_ = g.Wait()
	return all
}

func (o *Orchestrator) extractChapter(ctx context.Context, c Chapter, collect func([]internal.TermCandidate)) ChapterStatus {
	if strings.TrimSpace(c.SourceText) == "" {
		return StatusCompleted
	}
	o.setStatus(c.ID, StatusInProgress, nil)

	set := o.cfg.Settings
	started := time.Now()
	terms, err := o.cfg.Extractor.ExtractGlossaryTerms(ctx, c.SourceText, o.cfg.TargetLang, set.GlossaryExtractionInstructions, set.ExclusionList, set)
	if err != nil {
		if ctx.Err() != nil {
			return StatusPending
		}
		o.logf("[%s] ERROR: Glossary extraction failed. %v", c.Name, err)
		return StatusFailed
	}
	collect(terms)
	o.logf("[%s] Glossary extraction complete in %.1fs. Found %d terms.", c.Name, time.Since(started).Seconds(), len(terms))
	return StatusGlossaryReview
}

// filterNewTerms drops duplicates and terms already in the glossary.
func (o *Orchestrator) filterNewTerms(terms []internal.TermCandidate) []internal.TermCandidate {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []internal.TermCandidate
	for _, t := range internal.DedupeCandidates(terms) {
		if !o.reviewed[t.Key()] {
			out = append(out, t)
		}
	}
	return out
}

func (o *Orchestrator) requestReview(ctx context.Context, terms []internal.TermCandidate) {
	o.logf("Requesting user review for %d new terms.", len(terms))
	o.update(func(s *State) {
		s.CurrentTask = fmt.Sprintf("Waiting for review of %d new terms...", len(terms))
	})

	accepted := o.cfg.Review(ctx, terms)

	var added []internal.GlossaryTerm
	o.mu.Lock()
	for _, t := range internal.DedupeCandidates(accepted) {
		if o.reviewed[t.Key()] {
			continue
		}
		term := t.WithID(o.cfg.NewID())
		o.glossary = append(o.glossary, term)
		o.reviewed[t.Key()] = true
		added = append(added, term)
	}
	o.mu.Unlock()

	if len(added) == 0 {
		o.logf("No new terms were added from review.")
		return
	}
	o.logf("%d terms approved and added to glossary.", len(added))
	o.cfg.OnGlossaryUpdate(added)
}

func (o *Orchestrator) runTranslation(ctx context.Context) {
	snap := o.State()
	var queue []Chapter
	for _, c := range snap.Chapters {
		if !c.Status.Terminal() && strings.TrimSpace(c.SourceText) != "" {
			queue = append(queue, c)
		}
	}
	total := len(snap.Chapters)
	finished := total - len(queue)

	o.update(func(s *State) {
		s.Phase = PhaseTranslation
		// Chapters with nothing to translate are done as they are.
		for i := range s.Chapters {
			if !s.Chapters[i].Status.Terminal() && strings.TrimSpace(s.Chapters[i].SourceText) == "" {
				s.Chapters[i].Status = StatusCompleted
			}
		}
		s.Progress = ratio(finished, total)
	})

	set := o.cfg.Settings.WithGlossary(o.Glossary())
	compile := prompt.Template(o.cfg.SourceLang, o.cfg.TargetLang, set)

	var (
		translatedMu sync.Mutex
		translated   []internal.Chapter
	)
	size := o.cfg.TranslateWorkers
	for i := 0; i < len(queue); i += size {
		if ctx.Err() != nil {
			break
		}
		chunk := queue[i:min(i+size, len(queue))]

		// A chunk finishes before the pause and the next chunk.
		var g errgroup.Group
		for _, c := range chunk {
			g.Go(func() error {
				text, status := o.translateChapter(ctx, c, set, compile)
				o.setStatus(c.ID, status, func(s *State) {
					if status == StatusCompleted {
						for j := range s.Chapters {
							if s.Chapters[j].ID == c.ID {
								s.Chapters[j].TranslatedText = text
							}
						}
					}
					if status != StatusPending {
						finished++
						s.Progress = ratio(finished, total)
					}
				})
				if status == StatusCompleted {
					out := c.Chapter
					out.TranslatedText = text
					translatedMu.Lock()
					translated = append(translated, out)
					translatedMu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()

		if i+size < len(queue) {
			if err := pause(ctx, o.cfg.ChunkDelay); err != nil {
				break
			}
		}
	}

	if len(translated) > 0 {
		o.cfg.OnChaptersUpdate(translated)
	}
}

func (o *Orchestrator) translateChapter(ctx context.Context, c Chapter, set settings.Settings, compile func(string) string) (string, ChapterStatus) {
	o.update(func(s *State) {
		s.CurrentTask = fmt.Sprintf("Translating %q...", c.Name)
		for i := range s.Chapters {
			if s.Chapters[i].ID == c.ID {
				s.Chapters[i].Status = StatusTranslating
			}
		}
	})
	o.logf("Starting translation for chapter: %q...", c.Name)

	source := c.SourceText
	var protected placeholder.Protected
	if set.PreserveMarkup {
		protected = placeholder.Protect(source)
		source = protected.Text
	}

	started := time.Now()
	text, err := o.cfg.Translator.TranslateStream(ctx, source, o.cfg.SourceLang, o.cfg.TargetLang, set, nil, compile(source))
	if err == nil && translator.IsErrorText(text) {
		err = errors.New(text)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", StatusPending
		}
		o.logf("[%s] ERROR: Translation failed. %v", c.Name, err)
		return "", StatusFailed
	}

	if set.PreserveMarkup {
		if missing := protected.Missing(text); len(missing) > 0 {
			o.logf("[%s] WARNING: %d markup placeholders were lost in translation.", c.Name, len(missing))
		}
		text = protected.Restore(text)
	}
	o.logf("[%s] Translation completed in %.1fs.", c.Name, time.Since(started).Seconds())
	return text, StatusCompleted
}

// autosave persists the state every SaveInterval until the returned stop
// function is called.
func (o *Orchestrator) autosave(ctx context.Context) (stop func()) {
	if o.cfg.Store == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(o.cfg.SaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.save(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-stopped
		})
	}
}

// save stores a running state. Failures are logged and otherwise ignored.
func (o *Orchestrator) save(ctx context.Context) {
	if o.cfg.Store == nil {
		return
	}
	snap := o.State()
	if !snap.Running {
		return
	}
	if err := o.cfg.Store.SaveState(ctx, StorageKey(o.cfg.ProjectID), snap); err != nil {
		o.logf("WARNING: failed to save progress: %v", err)
	}
}

func (o *Orchestrator) clearSaved() {
	if o.cfg.Store == nil {
		return
	}
	if err := o.cfg.Store.DeleteState(context.Background(), StorageKey(o.cfg.ProjectID)); err != nil {
		o.logf("WARNING: failed to clear saved progress: %v", err)
	}
}

func ratio(done, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(done) / float64(total)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
