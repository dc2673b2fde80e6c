package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/orchestrator"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateTerm = errors.New("glossary term already exists")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the batch autosave and the CLI share the handle.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		source_text TEXT NOT NULL,
		translated_text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- glossary holds one row per term; input_key is the lowercased input
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		input TEXT NOT NULL,
		input_key TEXT NOT NULL,
		translation TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT 'Unspecified',
		match_type TEXT NOT NULL DEFAULT 'Unspecified',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(project_id, input_key)
	);

	-- batch_state keeps the snapshot of an unfinished batch run per project
	CREATE TABLE IF NOT EXISTS batch_state (
		key TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chapters_project ON chapters(project_id, position);
	CREATE INDEX IF NOT EXISTS idx_glossary_project ON glossary(project_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AddChapter appends a chapter to the end of the project.
func (s *Store) AddChapter(ctx context.Context, projectID, name, sourceText string) (internal.Chapter, error) {
	ch := internal.Chapter{
		ID:         uuid.NewString(),
		Name:       name,
		SourceText: sourceText,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters (id, project_id, position, name, source_text)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM chapters WHERE project_id = ?), ?, ?)`,
		ch.ID, projectID, projectID, ch.Name, ch.SourceText)
	if err != nil {
		return internal.Chapter{}, err
	}
	return ch, nil
}

// ListChapters returns the project's chapters in the order they were added.
func (s *Store) ListChapters(ctx context.Context, projectID string) ([]internal.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source_text, translated_text FROM chapters WHERE project_id = ? ORDER BY position`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []internal.Chapter
	for rows.Next() {
		var c internal.Chapter
		if err := rows.Scan(&c.ID, &c.Name, &c.SourceText, &c.TranslatedText); err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (s *Store) GetChapter(ctx context.Context, projectID, id string) (internal.Chapter, error) {
	var c internal.Chapter
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, source_text, translated_text FROM chapters WHERE project_id = ? AND id = ?`,
		projectID, id).Scan(&c.ID, &c.Name, &c.SourceText, &c.TranslatedText)
	if err == sql.ErrNoRows {
		return internal.Chapter{}, fmt.Errorf("chapter %s: %w", id, ErrNotFound)
	}
	return c, err
}

// SaveTranslations stores the translated text of every given chapter in a
// single transaction.
func (s *Store) SaveTranslations(ctx context.Context, projectID string, chapters []internal.Chapter) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range chapters {
		res, err := tx.ExecContext(ctx,
			`UPDATE chapters SET translated_text = ?, updated_at = ? WHERE project_id = ? AND id = ?`,
			c.TranslatedText, time.Now(), projectID, c.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("chapter %s: %w", c.ID, ErrNotFound)
		}
	}
	return tx.Commit()
}

// AddGlossaryTerm inserts a term, assigning an id when it has none. Inputs
// are unique per project regardless of case.
func (s *Store) AddGlossaryTerm(ctx context.Context, projectID string, term internal.GlossaryTerm) (internal.GlossaryTerm, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return internal.GlossaryTerm{}, err
	}
	defer tx.Rollback()

	term, err = insertTerm(ctx, tx, projectID, term)
	if err != nil {
		return internal.GlossaryTerm{}, err
	}
	return term, tx.Commit()
}

// AddGlossaryTerms inserts every term whose input is not in the glossary yet
// and returns the inserted ones.
func (s *Store) AddGlossaryTerms(ctx context.Context, projectID string, terms []internal.GlossaryTerm) ([]internal.GlossaryTerm, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var added []internal.GlossaryTerm
	for _, t := range terms {
		t, err := insertTerm(ctx, tx, projectID, t)
		if errors.Is(err, ErrDuplicateTerm) {
			continue
		}
		if err != nil {
			return nil, err
		}
		added = append(added, t)
	}
	return added, tx.Commit()
}

func insertTerm(ctx context.Context, tx *sql.Tx, projectID string, term internal.GlossaryTerm) (internal.GlossaryTerm, error) {
	term.Input = normalizeText(term.Input)
	term.Translation = normalizeText(term.Translation)
	if term.Input == "" {
		return internal.GlossaryTerm{}, errors.New("glossary term input is empty")
	}
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if term.Gender == "" {
		term.Gender = internal.GenderUnspecified
	}
	if term.MatchType == "" {
		term.MatchType = internal.MatchUnspecified
	}

	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM glossary WHERE project_id = ? AND input_key = ?`,
		projectID, inputKey(term.Input)).Scan(&exists)
	if err != nil {
		return internal.GlossaryTerm{}, err
	}
	if exists > 0 {
		return internal.GlossaryTerm{}, fmt.Errorf("%q: %w", term.Input, ErrDuplicateTerm)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO glossary (id, project_id, input, input_key, translation, gender, match_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		term.ID, projectID, term.Input, inputKey(term.Input), term.Translation, string(term.Gender), string(term.MatchType))
	if err != nil {
		return internal.GlossaryTerm{}, err
	}
	return term, nil
}

// ListGlossary returns the project's glossary ordered by input.
func (s *Store) ListGlossary(ctx context.Context, projectID string) ([]internal.GlossaryTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, translation, gender, match_type FROM glossary WHERE project_id = ? ORDER BY input_key`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []internal.GlossaryTerm
	for rows.Next() {
		var t internal.GlossaryTerm
		var gender, matchType string
		if err := rows.Scan(&t.ID, &t.Input, &t.Translation, &gender, &matchType); err != nil {
			return nil, err
		}
		t.Gender = internal.ParseGender(gender)
		t.MatchType = internal.ParseMatchType(matchType)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// DeleteGlossaryTerm removes a term by id.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, projectID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("glossary term %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveState stores a batch run snapshot as JSON under key.
func (s *Store) SaveState(ctx context.Context, key string, state orchestrator.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode batch state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batch_state (key, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		key, string(data), time.Now())
	return err
}

// LoadState returns the snapshot stored under key, or nil when there is none.
func (s *Store) LoadState(ctx context.Context, key string) (*orchestrator.State, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM batch_state WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state orchestrator.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to decode batch state: %w", err)
	}
	return &state, nil
}

func (s *Store) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM batch_state WHERE key = ?`, key)
	return err
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// so that precomposed and decomposed spellings of a term compare equal.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

func inputKey(input string) string {
	return strings.ToLower(normalizeText(input))
}
