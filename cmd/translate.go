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
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/glossator/internal"
	"github.com/valpere/glossator/internal/placeholder"
	"github.com/valpere/glossator/internal/prompt"
	"github.com/valpere/glossator/internal/translator"
	"github.com/valpere/glossator/internal/validator"
)

var (
	translateProofread bool
	translateSave      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <chapter-id>",
	Short: "Translate a single chapter",
	Long: `Translate one chapter with the project glossary and print the result.

The translation is streamed to stdout as it arrives unless markup
preservation or proofreading needs the complete text first.

Example:
  glossator translate -p novel -t Vietnamese 2f6c... --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ch, err := db.GetChapter(ctx, projectID(), args[0])
		if err != nil {
			return err
		}
		set, err := loadSettings(ctx, db)
		if err != nil {
			return err
		}
		if err := set.Validate(); err != nil {
			return err
		}
		sourceLang, targetLang, err := languages([]internal.Chapter{ch})
		if err != nil {
			return err
		}

		proofread := translateProofread || set.EditAI
		stream := !set.PreserveMarkup && !proofread

		text := ch.SourceText
		var override string
		var protected placeholder.Protected
		if set.PreserveMarkup {
			protected = placeholder.Protect(text)
			text = protected.Text
			override = prompt.Build(text, sourceLang, targetLang, set)
		}

		var onChunk func(string)
		if stream {
			onChunk = func(chunk string) { fmt.Print(chunk) }
		}

		svc := translator.NewService()
		started := time.Now()
		fmt.Fprintf(os.Stderr, "Translating %q from %s to %s with %s...\n", ch.Name, sourceLang, targetLang, set.Provider)

		out, err := svc.TranslateStream(ctx, text, sourceLang, targetLang, set, onChunk, override)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		if set.PreserveMarkup {
			if missing := protected.Missing(out); len(missing) > 0 {
				fmt.Fprintf(os.Stderr, "Warning: %d markup placeholders were lost in translation\n", len(missing))
			}
			out = protected.Restore(out)
		}

		if proofread {
			fmt.Fprintf(os.Stderr, "Proofreading...\n")
			polished, err := svc.Proofread(ctx, out, targetLang, set)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Proofreading failed: %v, using draft\n", err)
			} else {
				out = polished
			}
		}

		if stream {
			fmt.Println()
		} else {
			fmt.Println(out)
		}
		fmt.Fprintf(os.Stderr, "Done in %.1fs\n", time.Since(started).Seconds())

		if ok, verr := validator.New().IsValid(out, targetLang); !ok {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", verr)
		}

		if translateSave {
			ch.TranslatedText = out
			if err := db.SaveTranslations(ctx, projectID(), []internal.Chapter{ch}); err != nil {
				return fmt.Errorf("failed to save translation: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Saved translation of %q\n", ch.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().BoolVar(&translateProofread, "proofread", false, "Run a proofreading pass over the translation")
	translateCmd.Flags().BoolVar(&translateSave, "save", false, "Store the translation with the chapter")
}
