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

package analytics

import (
	"cmp"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// Histogram bucket bounds. Ratings off this grid are not bucketed.
const (
	MinBucket  = 800
	MaxBucket  = 3500
	BucketStep = 100
)

// DefaultTopTags is the number of tags TagBreakdown returns by default.
const DefaultTopTags = 14

// problemTally aggregates every submission of one problem.
type problemTally struct {
	problem  remote.Problem
	tags     []string
	accepted int
	failed   int
}

// tally groups subs by problem, in order of first appearance. Tags are the
// union over all submissions of the problem.
func tally(subs []remote.Submission) []*problemTally {
	index := make(map[remote.ProblemKey]*problemTally)
	var order []*problemTally
	for _, s := range subs {
		key := s.Problem.Key()
		t, ok := index[key]
		if !ok {
			t = &problemTally{problem: s.Problem}
			index[key] = t
			order = append(order, t)
		}
		for _, tag := range s.Problem.Tags {
			if !slices.Contains(t.tags, tag) {
				t.tags = append(t.tags, tag)
			}
		}
		if s.Verdict.Accepted() {
			t.accepted++
		} else {
			t.failed++
		}
	}
	return order
}

// Summary holds headline counts for a submission list.
type Summary struct {
	TotalAttempts   int
	Accepted        int
	UniqueSolved    int
	UniqueAttempted int
	// StruggledCount is the number of problems with at least one rejected
	// attempt, whether or not they were solved later.
	StruggledCount int
	// SuccessRate is Accepted/TotalAttempts as a percentage with one
	// decimal, "0.0" for an empty list.
	SuccessRate string
}

// Summarize computes the headline counts.
func Summarize(subs []remote.Submission) Summary {
	s := Summary{TotalAttempts: len(subs)}
	for _, t := range tally(subs) {
		s.UniqueAttempted++
		s.Accepted += t.accepted
		if t.accepted > 0 {
			s.UniqueSolved++
		}
		if t.failed > 0 {
			s.StruggledCount++
		}
	}

	rate := 0.0
	if s.TotalAttempts > 0 {
		rate = float64(s.Accepted) / float64(s.TotalAttempts) * 100
	}
	s.SuccessRate = strconv.FormatFloat(rate, 'f', 1, 64)
	return s
}

// Bucket is one histogram bar.
type Bucket struct {
	Rating int
	Count  int
}

// DifficultyHistogram counts distinct solved problems per rating, ascending.
// Empty buckets are omitted.
func DifficultyHistogram(subs []remote.Submission) []Bucket {
	counts := make(map[int]int)
	for _, t := range tally(subs) {
		if t.accepted == 0 || t.problem.Rating == nil {
			continue
		}
		counts[*t.problem.Rating]++
	}

	var buckets []Bucket
	for r := MinBucket; r <= MaxBucket; r += BucketStep {
		if n := counts[r]; n > 0 {
			buckets = append(buckets, Bucket{Rating: r, Count: n})
		}
	}
	return buckets
}

// TagCount splits the problems carrying a tag into clean solves and
// struggles. A problem is counted in exactly one of the two.
type TagCount struct {
	Tag       string
	Solved    int
	Struggled int
}

// Total returns Solved + Struggled.
func (t TagCount) Total() int {
	return t.Solved + t.Struggled
}

// TagBreakdown classifies every touched problem as struggled (any rejected
// attempt) or cleanly solved, and credits each of its tags once. Tags are
// ordered by total descending, then name; at most limit are returned, all of
// them when limit <= 0.
func TagBreakdown(subs []remote.Submission, limit int) []TagCount {
	counts := make(map[string]*TagCount)
	for _, t := range tally(subs) {
		for _, tag := range t.tags {
			c, ok := counts[tag]
			if !ok {
				c = &TagCount{Tag: tag}
				counts[tag] = c
			}
			switch {
			case t.failed > 0:
				c.Struggled++
			case t.accepted > 0:
				c.Solved++
			}
		}
	}

	out := make([]TagCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if d := cmp.Compare(b.Total(), a.Total()); d != 0 {
			return d
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StruggleEntry is a problem with at least one rejected attempt.
type StruggleEntry struct {
	Problem    remote.Problem
	FailCount  int
	EverSolved bool
}

// StruggleIndex lists struggled problems by failure count, highest first.
type StruggleIndex []StruggleEntry

// StruggledProblems builds the index. Problems with equal failure counts keep
// the order in which they first appear in subs.
func StruggledProblems(subs []remote.Submission) StruggleIndex {
	var idx StruggleIndex
	for _, t := range tally(subs) {
		if t.failed == 0 {
			continue
		}
		p := t.problem
		p.Tags = t.tags
		idx = append(idx, StruggleEntry{Problem: p, FailCount: t.failed, EverSolved: t.accepted > 0})
	}
	slices.SortStableFunc(idx, func(a, b StruggleEntry) int {
		return cmp.Compare(b.FailCount, a.FailCount)
	})
	return idx
}

// ForTag returns the struggled problems carrying tag, in index order.
func (idx StruggleIndex) ForTag(tag string) StruggleIndex {
	var out StruggleIndex
	for _, e := range idx {
		if e.Problem.HasTag(tag) {
			out = append(out, e)
		}
	}
	return out
}

// Unsolved returns the entries never accepted.
func (idx StruggleIndex) Unsolved() StruggleIndex {
	var out StruggleIndex
	for _, e := range idx {
		if !e.EverSolved {
			out = append(out, e)
		}
	}
	return out
}

// Report bundles every statistic for one window.
type Report struct {
	Window    Window
	Summary   Summary
	Histogram []Bucket
	Tags      []TagCount
	Struggled StruggleIndex
}

// Analyze restricts subs to w and computes the full report. Tags holds every
// tag; callers trim it to their display limit.
func Analyze(subs []remote.Submission, w Window, now time.Time) Report {
	windowed := FilterWindow(subs, w, now)
	return Report{
		Window:    w,
		Summary:   Summarize(windowed),
		Histogram: DifficultyHistogram(windowed),
		Tags:      TagBreakdown(windowed, 0),
		Struggled: StruggledProblems(windowed),
	}
}

// TopTags returns the first n tags of the report.
func (r Report) TopTags(n int) []TagCount {
	if n > 0 && len(r.Tags) > n {
		return r.Tags[:n]
	}
	return r.Tags
}

// memoKey identifies a list by its backing array and length, which is enough
// for the append-only or replaced-wholesale lists the tracker holds.
type memoKey struct {
	window Window
	first  *remote.Submission
	length int
	day    int64
}

// Engine memoizes the last report so that switching views over the same
// list and window does not recompute it.
type Engine struct {
	mu     sync.Mutex
	key    memoKey
	report Report
	valid  bool
	hits   int
}

// NewEngine returns an empty engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Analyze returns the report for subs and w, reusing the previous result when
// neither the list nor the window changed and now falls on the same day.
func (e *Engine) Analyze(subs []remote.Submission, w Window, now time.Time) Report {
	key := memoKey{window: w, length: len(subs), day: now.Unix() / 86400}
	if len(subs) > 0 {
		key.first = &subs[0]
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.valid && e.key == key {
		e.hits++
		return e.report
	}
	e.report = Analyze(subs, w, now)
	e.key = key
	e.valid = true
	return e.report
}

// Hits returns how many calls were served from the memo.
func (e *Engine) Hits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits
}
