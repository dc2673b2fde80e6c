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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/termmatch"
	"github.com/valpere/glossator/internal/usage"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the project glossary",
	Long: `Add, list and delete glossary terms, and check chapters against them.

Glossary terms make sure a name or phrase is always rendered the same way.
Every translation prompt carries the whole glossary as mandatory rules.`,
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all glossary terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		terms, err := db.ListGlossary(context.Background(), projectID())
		if err != nil {
			return fmt.Errorf("failed to list glossary: %w", err)
		}
		if len(terms) == 0 {
			fmt.Println("Glossary is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINPUT\tTRANSLATION\tGENDER\tMATCH")
		for _, t := range terms {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Input, t.Translation, t.Gender, t.MatchType)
		}
		return w.Flush()
	},
}

var (
	glossaryAddGender string
	glossaryAddMatch  string
)

var glossaryAddCmd = &cobra.Command{
	Use:   "add <input> <translation>",
	Short: "Add a glossary term",
	Long: `Add a term mapping a source-language phrase to its fixed translation.

Example:
  glossator glossary add "Feng Yun" "Phong Vân" --gender male --match case-insensitive`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		term, err := db.AddGlossaryTerm(context.Background(), projectID(), internal.GlossaryTerm{
			Input:       args[0],
			Translation: args[1],
			Gender:      internal.ParseGender(glossaryAddGender),
			MatchType:   internal.ParseMatchType(glossaryAddMatch),
		})
		if err != nil {
			return fmt.Errorf("failed to add glossary term: %w", err)
		}
		fmt.Printf("Added: %s %q → %q\n", term.ID, term.Input, term.Translation)
		return nil
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary term by ID",
	Long: `Delete a glossary term by its ID (shown in "glossator glossary list").`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteGlossaryTerm(context.Background(), projectID(), args[0]); err != nil {
			return fmt.Errorf("failed to delete glossary term: %w", err)
		}
		fmt.Printf("Deleted: %s\n", args[0])
		return nil
	},
}

var (
	highlightTranslated bool
	highlightOpen       string
	highlightClose      string
)

var glossaryHighlightCmd = &cobra.Command{
	Use:   "highlight <chapter-id>",
	Short: "Print a chapter with its glossary terms marked",
	Long: `Print a chapter with every whole-word glossary match wrapped in markers.
With --translated the translation is scanned for the terms' translations.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		ch, err := db.GetChapter(ctx, projectID(), args[0])
		if err != nil {
			return err
		}
		terms, err := db.ListGlossary(ctx, projectID())
		if err != nil {
			return fmt.Errorf("failed to load glossary: %w", err)
		}

		text, field := ch.SourceText, internal.FieldInput
		if highlightTranslated {
			text, field = ch.TranslatedText, internal.FieldTranslation
		}

		spans := termmatch.Match(text, terms, field)
		fmt.Println(termmatch.Mark(text, spans, highlightOpen, highlightClose))
		fmt.Fprintf(os.Stderr, "%d glossary matches\n", len(spans))
		return nil
	},
}

var glossaryAuditCmd = &cobra.Command{
	Use:   "audit <chapter-id>",
	Short: "Report which glossary terms a translation used",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		ch, err := db.GetChapter(ctx, projectID(), args[0])
		if err != nil {
			return err
		}
		if ch.TranslatedText == "" {
			return fmt.Errorf("chapter %q has not been translated yet", ch.Name)
		}
		terms, err := db.ListGlossary(ctx, projectID())
		if err != nil {
			return fmt.Errorf("failed to load glossary: %w", err)
		}

		fmt.Print(usage.Report(ch.SourceText, ch.TranslatedText, terms))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryAddCmd.Flags().StringVar(&glossaryAddGender, "gender", "", "Gender: male, female, neutral")
	glossaryAddCmd.Flags().StringVar(&glossaryAddMatch, "match", "", "Match type: exact, case-insensitive")

	glossaryHighlightCmd.Flags().BoolVar(&highlightTranslated, "translated", false, "Scan the translation instead of the source")
	glossaryHighlightCmd.Flags().StringVar(&highlightOpen, "open", "[[", "Opening marker")
	glossaryHighlightCmd.Flags().StringVar(&highlightClose, "close", "]]", "Closing marker")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
	glossaryCmd.AddCommand(glossaryHighlightCmd)
	glossaryCmd.AddCommand(glossaryAuditCmd)
}
