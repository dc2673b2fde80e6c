/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/detector"
	"github.com/valpere/glossator/internal/orchestrator"
	"github.com/valpere/glossator/internal/settings"
	"github.com/valpere/glossator/internal/store"
)

func projectID() string {
	return v.GetString("project")
}

func openStore() (*store.Store, error) {
	path := v.GetString("db")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadSettings reads the configuration and attaches the project glossary.
func loadSettings(ctx context.Context, db *store.Store) (settings.Settings, error) {
	s, err := settings.Load(v)
	if err != nil {
		return settings.Settings{}, err
	}
	terms, err := db.ListGlossary(ctx, projectID())
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to load glossary: %w", err)
	}
	return s.WithGlossary(terms), nil
}

// languages resolves the configured source and target languages. An "auto"
// source is detected from the chapters.
func languages(chapters []internal.Chapter) (source, target string, err error) {
	target = strings.TrimSpace(v.GetString("target_lang"))
	if target == "" {
		return "", "", fmt.Errorf("target language is required (--target or target_lang)")
	}

	source = strings.TrimSpace(v.GetString("source_lang"))
	if source == "" || strings.EqualFold(source, "auto") {
		if detected, ok := detector.New().DetectChapters(chapters); ok {
			source = detected
			fmt.Fprintf(os.Stderr, "Detected source language: %s\n", source)
		} else {
			source = orchestrator.DefaultSourceLang
			fmt.Fprintf(os.Stderr, "Could not detect source language, using %s\n", source)
		}
	}
	return source, target, nil
}

// logSink adapts the pipeline's line logger to slog.
func logSink(component string) func(string) {
	l := logger.With("component", component)
	return func(msg string) {
		l.Info(msg)
	}
}
