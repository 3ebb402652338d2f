// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/sirseerhq/cf-tracker/internal/analytics"
	"github.com/sirseerhq/cf-tracker/internal/catalog"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

const (
	nameWidth = 36
	tagsWidth = 30
	barWidth  = 40
)

// Renderer writes styled text to one destination. Write errors are ignored,
// as with fmt.Print to a terminal.
type Renderer struct {
	w     io.Writer
	lg    *lipgloss.Renderer
	style styles
}

// NewRenderer creates a renderer whose color profile matches w.
func NewRenderer(w io.Writer) *Renderer {
	lg := lipgloss.NewRenderer(w)
	return &Renderer{w: w, lg: lg, style: newStyles(lg)}
}

func (r *Renderer) println(s string) {
	fmt.Fprintln(r.w, s)
}

// Title prints a section heading.
func (r *Renderer) Title(text string) {
	r.println(r.style.title.Render(text))
}

// Success prints a confirmation line.
func (r *Renderer) Success(text string) {
	r.println(r.style.success.Render("✓ " + text))
}

// Warning prints a non-fatal problem.
func (r *Renderer) Warning(text string) {
	r.println(r.style.warning.Render("⚠ " + text))
}

// Error prints a failure line.
func (r *Renderer) Error(text string) {
	r.println(r.style.failure.Render("✗ " + text))
}

// Muted prints secondary text.
func (r *Renderer) Muted(text string) {
	r.println(r.style.muted.Render(text))
}

func (r *Renderer) rating(v int, width int) string {
	text := "-"
	if v > 0 {
		text = strconv.Itoa(v)
	}
	return r.lg.NewStyle().Foreground(RatingColor(v)).Width(width).Render(text)
}

// cell pads s to width, truncating with an ellipsis when it does not fit.
func cell(s string, width int) string {
	if utf8.RuneCountInString(s) > width {
		runes := []rune(s)
		s = string(runes[:width-1]) + "…"
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// User prints a profile card.
func (r *Renderer) User(u *remote.User, solved int) {
	if u == nil {
		r.Muted("Not logged in.")
		return
	}
	var b strings.Builder
	name := r.lg.NewStyle().Bold(true).Foreground(RatingColor(deref(u.Rating))).Render(u.Handle)
	b.WriteString(name)
	if u.Rank != "" {
		b.WriteString(" " + r.style.muted.Render("("+u.Rank+")"))
	}
	fmt.Fprintf(&b, "\nRating:     %s", ratingText(u.Rating))
	if u.MaxRating != nil {
		fmt.Fprintf(&b, " (max %d", *u.MaxRating)
		if u.MaxRank != "" {
			b.WriteString(", " + u.MaxRank)
		}
		b.WriteString(")")
	}
	if u.Contribution != nil {
		fmt.Fprintf(&b, "\nContrib:    %d", *u.Contribution)
	}
	fmt.Fprintf(&b, "\nSolved:     %d", solved)
	r.println(r.style.box.Render(b.String()))
}

// Tags prints the tag vocabulary, one per line.
func (r *Renderer) Tags(tags []string) {
	if len(tags) == 0 {
		r.Muted("No tags.")
		return
	}
	for _, t := range tags {
		r.println("  " + t)
	}
	r.Muted(fmt.Sprintf("%d tags", len(tags)))
}

// Problems prints one display page of the catalog with a page footer.
func (r *Renderer) Problems(w catalog.Window, solved catalog.SolvedSet) {
	if len(w.Items) == 0 {
		if w.Filtered == 0 {
			r.Muted("No problems match the current filter.")
		} else {
			r.Muted(fmt.Sprintf("Page %d is past the loaded results.", w.Page))
		}
		r.println(r.pageFooter(w))
		return
	}

	r.println(r.style.header.Render(
		cell("", 2) + cell("ID", 8) + cell("Name", nameWidth) + " " + cell("Rating", 7) + cell("Tags", tagsWidth) + " Solved"))
	for _, p := range w.Items {
		mark := "  "
		switch {
		case solved.Solved(p):
			mark = r.style.success.Render("✓ ")
		case p.IsBookmarked:
			mark = r.style.warning.Render("★ ")
		}
		id := strconv.Itoa(p.ContestID) + p.Index
		count := "-"
		if p.SolvedCount != nil {
			count = strconv.Itoa(*p.SolvedCount)
		}
		r.println(mark + cell(id, 8) + cell(p.Name, nameWidth) + " " + r.rating(p.RatingOrZero(), 7) +
			r.style.muted.Render(cell(strings.Join(p.Tags, ","), tagsWidth)) + " " + count)
	}
	r.println(r.pageFooter(w))
}

func (r *Renderer) pageFooter(w catalog.Window) string {
	total := max(w.TotalPageCount, w.BufferPageCount)
	text := fmt.Sprintf("Page %d of %d", w.Page, max(total, 1))
	if w.TotalPageCount > w.BufferPageCount {
		text += fmt.Sprintf(" (%d loaded)", w.BufferPageCount)
	}
	text += fmt.Sprintf(" · %d matching", w.Filtered)
	return r.style.muted.Render(text)
}

// Summary prints the headline statistics for a window.
func (r *Renderer) Summary(s analytics.Summary, w analytics.Window) {
	label := "all time"
	if w != analytics.AllTime {
		label = "last " + w.String()
	}
	r.Title("Summary (" + label + ")")
	rows := []struct {
		name  string
		value string
	}{
		{"Attempts", strconv.Itoa(s.TotalAttempts)},
		{"Accepted", strconv.Itoa(s.Accepted)},
		{"Success rate", s.SuccessRate + "%"},
		{"Solved", strconv.Itoa(s.UniqueSolved)},
		{"Attempted", strconv.Itoa(s.UniqueAttempted)},
		{"Struggled", strconv.Itoa(s.StruggledCount)},
	}
	for _, row := range rows {
		r.println("  " + cell(row.name, 14) + r.style.bold.Render(row.value))
	}
}

// Histogram prints solved counts per rating as horizontal bars.
func (r *Renderer) Histogram(buckets []analytics.Bucket) {
	r.Title("Solved by rating")
	if len(buckets) == 0 {
		r.Muted("  No rated problems solved.")
		return
	}
	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	for _, b := range buckets {
		n := max(1, b.Count*barWidth/peak)
		bar := r.lg.NewStyle().Foreground(RatingColor(b.Rating)).Render(strings.Repeat("█", n))
		r.println("  " + cell(strconv.Itoa(b.Rating), 6) + bar + " " + strconv.Itoa(b.Count))
	}
}

// TagBreakdown prints solved and struggled counts per tag.
func (r *Renderer) TagBreakdown(tags []analytics.TagCount) {
	r.Title("Tags")
	if len(tags) == 0 {
		r.Muted("  No tagged problems attempted.")
		return
	}
	peak := 0
	for _, t := range tags {
		peak = max(peak, t.Total())
	}
	for _, t := range tags {
		solvedN := t.Solved * barWidth / peak
		struggledN := t.Struggled * barWidth / peak
		bar := r.style.success.Render(strings.Repeat("█", solvedN)) +
			r.style.failure.Render(strings.Repeat("█", struggledN))
		r.println(fmt.Sprintf("  %s%s %d/%d", cell(t.Tag, 26), bar, t.Solved, t.Struggled))
	}
	r.Muted("  solved/struggled")
}

// Struggled prints up to limit entries of the struggle index. limit <= 0
// prints all of them.
func (r *Renderer) Struggled(idx analytics.StruggleIndex, limit int) {
	r.Title("Struggled problems")
	if len(idx) == 0 {
		r.Muted("  Nothing here. Every attempt was accepted.")
		return
	}
	shown := idx
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, e := range shown {
		status := r.style.failure.Render("unsolved")
		if e.EverSolved {
			status = r.style.success.Render("solved")
		}
		p := e.Problem
		r.println(fmt.Sprintf("  %s%s %s %s %s",
			cell(strconv.Itoa(p.ContestID)+p.Index, 8),
			cell(p.Name, nameWidth),
			r.rating(p.RatingOrZero(), 6),
			cell(strconv.Itoa(e.FailCount)+" fails", 9),
			status))
	}
	if len(shown) < len(idx) {
		r.Muted(fmt.Sprintf("  … and %d more", len(idx)-len(shown)))
	}
}

// Report prints a full statistics report.
func (r *Renderer) Report(rep analytics.Report, topTags, struggled int) {
	r.Summary(rep.Summary, rep.Window)
	r.println("")
	r.Histogram(rep.Histogram)
	r.println("")
	r.TagBreakdown(rep.TopTags(topTags))
	r.println("")
	r.Struggled(rep.Struggled, struggled)
}

// Submissions prints one page of the submission table.
func (r *Renderer) Submissions(page analytics.SubmissionPage) {
	if page.Matched == 0 {
		r.Muted("No submissions match.")
		return
	}
	r.println(r.style.header.Render(
		cell("When", 17) + cell("Problem", 8) + cell("Name", nameWidth) + " " + cell("Rating", 7) + "Verdict"))
	for _, s := range page.Items {
		verdict := r.style.failure.Render(s.Verdict.Label())
		if s.Verdict.Accepted() {
			verdict = r.style.success.Render(s.Verdict.Label())
		}
		p := s.Problem
		r.println(cell(s.Time().UTC().Format("2006-01-02 15:04"), 17) +
			cell(strconv.Itoa(p.ContestID)+p.Index, 8) +
			cell(p.Name, nameWidth) + " " +
			r.rating(p.RatingOrZero(), 7) + verdict)
	}
	r.Muted(fmt.Sprintf("Page %d of %d · %d matching", page.Page, max(page.PageCount, 1), page.Matched))
}

// Bookmarks prints the saved problems, newest last.
func (r *Renderer) Bookmarks(list []remote.Bookmark) {
	if len(list) == 0 {
		r.Muted("No bookmarks.")
		return
	}
	for _, b := range list {
		added := ""
		if !b.CreatedAt.IsZero() {
			added = r.style.muted.Render(" added " + b.CreatedAt.Local().Format(time.DateOnly))
		}
		r.println("★ " + cell(strconv.Itoa(b.ContestID)+b.Index, 8) + cell(b.Name, nameWidth) + " " +
			r.rating(deref(b.Rating), 7) + b.URL + added)
	}
	r.Muted(fmt.Sprintf("%d bookmarks", len(list)))
}

func ratingText(v *int) string {
	if v == nil {
		return "unrated"
	}
	return strconv.Itoa(*v)
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
