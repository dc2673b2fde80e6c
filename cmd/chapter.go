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
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var chapterCmd = &cobra.Command{
	Use:   "chapter",
	Short: "Manage the chapters of a project",
}

var chapterAddName string

var chapterAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add chapters from text files",
	Long: `Add one chapter per file, in the order given. The chapter name defaults
to the file name without its extension. Use "-" to read a single chapter from
stdin.

Example:
  glossator chapter add -p novel ch01.txt ch02.txt ch03.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if chapterAddName != "" && len(args) > 1 {
			return fmt.Errorf("--name can only be used with a single file")
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		for _, path := range args {
			var data []byte
			if path == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			name := chapterAddName
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			ch, err := db.AddChapter(ctx, projectID(), name, string(data))
			if err != nil {
				return fmt.Errorf("failed to add chapter %q: %w", name, err)
			}
			fmt.Printf("Added: %s %q (%d chars)\n", ch.ID, ch.Name, utf8.RuneCount(data))
		}
		return nil
	},
}

var chapterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the chapters of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		chapters, err := db.ListChapters(context.Background(), projectID())
		if err != nil {
			return fmt.Errorf("failed to list chapters: %w", err)
		}
		if len(chapters) == 0 {
			fmt.Println("Project has no chapters.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCHARS\tTRANSLATED")
		for _, c := range chapters {
			translated := "no"
			if strings.TrimSpace(c.TranslatedText) != "" {
				translated = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.ID, c.Name, utf8.RuneCountInString(c.SourceText), translated)
		}
		return w.Flush()
	},
}

var chapterShowTranslated bool

var chapterShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a chapter's source text or translation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ch, err := db.GetChapter(context.Background(), projectID(), args[0])
		if err != nil {
			return err
		}
		if chapterShowTranslated {
			if ch.TranslatedText == "" {
				return fmt.Errorf("chapter %q has not been translated yet", ch.Name)
			}
			fmt.Println(ch.TranslatedText)
			return nil
		}
		fmt.Println(ch.SourceText)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chapterCmd)

	chapterAddCmd.Flags().StringVarP(&chapterAddName, "name", "n", "", "Chapter name (single file only)")
	chapterShowCmd.Flags().BoolVar(&chapterShowTranslated, "translated", false, "Print the translation instead of the source")

	chapterCmd.AddCommand(chapterAddCmd)
	chapterCmd.AddCommand(chapterListCmd)
	chapterCmd.AddCommand(chapterShowCmd)
}
