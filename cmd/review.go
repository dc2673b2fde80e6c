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
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/glossator/internal/review"
	"github.com/valpere/glossator/internal/server"
)

const reviewHelp = "Accept terms by number (e.g. 1,3,4), 'all' or 'none'; 'pause' and 'resume' hold the countdown."

// printPendingReview lists the proposed terms, numbered from 1.
func printPendingReview(w io.Writer, p review.Pending) {
	fmt.Fprintf(w, "\nNew glossary terms (%d), auto-skip in %s:\n", len(p.Terms), p.Remaining.Round(time.Second))
	for i, t := range p.Terms {
		line := fmt.Sprintf("  %2d. %q → %q", i+1, t.Input, t.Translation)
		if t.Gender.Specific() {
			line += fmt.Sprintf(" (%s)", t.Gender)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, reviewHelp)
}

// terminalReview answers pending reviews with lines read from r until ctx is
// done or r is exhausted.
func terminalReview(ctx context.Context, gate server.Reviewer, r io.Reader, errOut io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := answerReview(gate, line); err != nil {
				fmt.Fprintf(errOut, "%v\n%s\n", err, reviewHelp)
			}
		}
	}
}

// answerReview applies one typed command to the pending review.
func answerReview(gate server.Reviewer, line string) error {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return nil
	case "a", "all":
		p, ok := gate.Pending()
		if !ok {
			return review.ErrNoPendingReview
		}
		return gate.Submit(p.Terms)
	case "n", "none", "skip":
		return gate.Submit(nil)
	case "p", "pause":
		return gate.Pause()
	case "r", "resume":
		return gate.Resume()
	}

	fields := strings.FieldsFunc(cmd, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	indices := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid selection %q", f)
		}
		indices = append(indices, n-1)
	}
	return gate.SubmitIndices(indices)
}
