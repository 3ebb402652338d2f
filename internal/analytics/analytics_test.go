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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func problem(contest int, index string, rating int, tags ...string) remote.Problem {
	p := remote.Problem{ContestID: contest, Index: index, Name: index + " problem", Tags: tags}
	if rating > 0 {
		p.Rating = remote.Int(rating)
	}
	return p
}

func sub(id int64, p remote.Problem, v remote.Verdict, daysAgo int) remote.Submission {
	return remote.Submission{
		ID:          id,
		Verdict:     v,
		TimeSeconds: now.Add(-time.Duration(daysAgo) * 24 * time.Hour).Unix(),
		Problem:     p,
	}
}

func TestEndToEnd_StruggleThenSolve(t *testing.T) {
	a1 := problem(1, "A1", 1200, "dp")
	b2 := problem(2, "B2", 1400, "dp")
	subs := []remote.Submission{
		sub(1, a1, remote.VerdictWrongAnswer, 3),
		sub(2, a1, remote.VerdictAccepted, 2),
		sub(3, b2, remote.VerdictAccepted, 1),
	}

	report := Analyze(subs, Days30, now)

	assert.Equal(t, 2, report.Summary.UniqueSolved)
	assert.Equal(t, 1, report.Summary.StruggledCount)
	require.Len(t, report.Tags, 1)
	assert.Equal(t, TagCount{Tag: "dp", Solved: 1, Struggled: 1}, report.Tags[0])

	require.Len(t, report.Struggled, 1)
	assert.Equal(t, a1.Key(), report.Struggled[0].Problem.Key())
	assert.Equal(t, 1, report.Struggled[0].FailCount)
	assert.True(t, report.Struggled[0].EverSolved)
}

func TestSummarize(t *testing.T) {
	a := problem(1, "A", 800, "math")
	b := problem(1, "B", 900, "math")
	c := problem(1, "C", 1000)
	subs := []remote.Submission{
		sub(1, a, remote.VerdictAccepted, 1),
		sub(2, a, remote.VerdictAccepted, 1),
		sub(3, b, remote.VerdictTimeLimitExceeded, 1),
		sub(4, b, remote.VerdictWrongAnswer, 1),
		sub(5, c, remote.VerdictAccepted, 1),
		sub(6, c, remote.Verdict(""), 1),
	}

	s := Summarize(subs)
	assert.Equal(t, Summary{
		TotalAttempts:   6,
		Accepted:        3,
		UniqueSolved:    2,
		UniqueAttempted: 3,
		StruggledCount:  2,
		SuccessRate:     "50.0",
	}, s)

	assert.Equal(t, "0.0", Summarize(nil).SuccessRate)
	assert.Equal(t, "33.3", Summarize(subs[2:5]).SuccessRate)
}

func TestDifficultyHistogram(t *testing.T) {
	subs := []remote.Submission{
		sub(1, problem(1, "A", 800), remote.VerdictAccepted, 1),
		sub(2, problem(1, "A", 800), remote.VerdictAccepted, 1),
		sub(3, problem(1, "B", 1500), remote.VerdictWrongAnswer, 1),
		sub(4, problem(1, "B", 1500), remote.VerdictAccepted, 1),
		sub(5, problem(1, "C", 1500), remote.VerdictAccepted, 1),
		sub(6, problem(1, "D", 1600), remote.VerdictWrongAnswer, 1),
		sub(7, problem(1, "E", 0), remote.VerdictAccepted, 1),
		sub(8, problem(1, "F", 3600), remote.VerdictAccepted, 1),
		sub(9, problem(1, "G", 1550), remote.VerdictAccepted, 1),
		sub(10, problem(1, "H", 3500), remote.VerdictAccepted, 1),
	}

	assert.Equal(t, []Bucket{{800, 1}, {1500, 2}, {3500, 1}}, DifficultyHistogram(subs))
	assert.Empty(t, DifficultyHistogram(nil))
}

func TestTagBreakdown_Partition(t *testing.T) {
	subs := []remote.Submission{
		sub(1, problem(1, "A", 800, "dp", "greedy"), remote.VerdictAccepted, 1),
		sub(2, problem(1, "B", 900, "dp"), remote.VerdictWrongAnswer, 1),
		sub(3, problem(1, "B", 900, "dp"), remote.VerdictWrongAnswer, 1),
		sub(4, problem(1, "C", 900, "greedy", "math"), remote.VerdictRuntimeError, 1),
		sub(5, problem(1, "C", 900, "greedy", "math"), remote.VerdictAccepted, 1),
		sub(6, problem(1, "D", 900, "math"), remote.VerdictAccepted, 1),
		sub(7, problem(1, "D", 900, "math"), remote.VerdictAccepted, 1),
	}

	tags := TagBreakdown(subs, 0)
	byTag := map[string]TagCount{}
	for _, tc := range tags {
		byTag[tc.Tag] = tc
	}

	assert.Equal(t, TagCount{Tag: "dp", Solved: 1, Struggled: 1}, byTag["dp"])
	assert.Equal(t, TagCount{Tag: "greedy", Solved: 1, Struggled: 1}, byTag["greedy"])
	assert.Equal(t, TagCount{Tag: "math", Solved: 1, Struggled: 1}, byTag["math"])

	// Every tag's solved + struggled never exceeds the problems carrying it.
	carrying := map[string]map[remote.ProblemKey]bool{}
	for _, s := range subs {
		for _, tag := range s.Problem.Tags {
			if carrying[tag] == nil {
				carrying[tag] = map[remote.ProblemKey]bool{}
			}
			carrying[tag][s.Problem.Key()] = true
		}
	}
	for _, tc := range tags {
		assert.LessOrEqual(t, tc.Total(), len(carrying[tc.Tag]), tc.Tag)
	}
}

func TestTagBreakdown_OrderAndLimit(t *testing.T) {
	var subs []remote.Submission
	id := int64(0)
	add := func(tag string, n int) {
		for i := 0; i < n; i++ {
			id++
			subs = append(subs, sub(id, problem(int(id), "A", 800, tag), remote.VerdictAccepted, 1))
		}
	}
	add("math", 3)
	add("dp", 5)
	add("greedy", 3)
	add("graphs", 1)

	tags := TagBreakdown(subs, 3)
	require.Len(t, tags, 3)
	assert.Equal(t, []string{"dp", "greedy", "math"}, []string{tags[0].Tag, tags[1].Tag, tags[2].Tag})

	assert.Len(t, TagBreakdown(subs, 0), 4)
	assert.Len(t, TagBreakdown(subs, DefaultTopTags), 4)
}

func TestStruggledProblems(t *testing.T) {
	a := problem(1, "A", 800, "dp")
	b := problem(1, "B", 900, "graphs")
	c := problem(1, "C", 1000, "dp", "graphs")
	d := problem(1, "D", 1100, "dp")
	subs := []remote.Submission{
		sub(1, a, remote.VerdictWrongAnswer, 1),
		sub(2, b, remote.VerdictWrongAnswer, 1),
		sub(3, b, remote.VerdictWrongAnswer, 1),
		sub(4, b, remote.VerdictWrongAnswer, 1),
		sub(5, c, remote.VerdictMemoryLimitExceeded, 1),
		sub(6, c, remote.VerdictAccepted, 1),
		sub(7, d, remote.VerdictAccepted, 1),
	}

	idx := StruggledProblems(subs)
	require.Len(t, idx, 3)
	assert.Equal(t, "B", idx[0].Problem.Index)
	assert.Equal(t, 3, idx[0].FailCount)
	// Equal failure counts keep first-appearance order.
	assert.Equal(t, "A", idx[1].Problem.Index)
	assert.Equal(t, "C", idx[2].Problem.Index)
	assert.False(t, idx[1].EverSolved)
	assert.True(t, idx[2].EverSolved)

	dp := idx.ForTag("dp")
	require.Len(t, dp, 2)
	assert.Equal(t, "A", dp[0].Problem.Index)
	assert.Equal(t, "C", dp[1].Problem.Index)
	assert.Empty(t, idx.ForTag("strings"))

	assert.Len(t, idx.Unsolved(), 2)
}

func TestStruggledProblems_TagsAreUnionOfSubmissions(t *testing.T) {
	first := problem(1, "A", 800, "dp")
	later := problem(1, "A", 800, "dp", "bitmasks")
	subs := []remote.Submission{
		sub(1, first, remote.VerdictWrongAnswer, 2),
		sub(2, later, remote.VerdictWrongAnswer, 1),
	}

	idx := StruggledProblems(subs)
	require.Len(t, idx, 1)
	assert.Equal(t, []string{"dp", "bitmasks"}, idx[0].Problem.Tags)
	assert.Len(t, idx.ForTag("bitmasks"), 1)
}

func TestAnalyze_RespectsWindow(t *testing.T) {
	p := problem(1, "A", 800, "dp")
	q := problem(1, "B", 900, "dp")
	subs := []remote.Submission{
		sub(1, p, remote.VerdictWrongAnswer, 100),
		sub(2, p, remote.VerdictAccepted, 10),
		sub(3, q, remote.VerdictAccepted, 400),
	}

	recent := Analyze(subs, Days30, now)
	assert.Equal(t, 1, recent.Summary.TotalAttempts)
	assert.Equal(t, 0, recent.Summary.StruggledCount)
	assert.Equal(t, []TagCount{{Tag: "dp", Solved: 1}}, recent.Tags)

	year := Analyze(subs, Days365, now)
	assert.Equal(t, 2, year.Summary.TotalAttempts)
	assert.Equal(t, 1, year.Summary.StruggledCount)

	all := Analyze(subs, AllTime, now)
	assert.Equal(t, 3, all.Summary.TotalAttempts)
	assert.Equal(t, []TagCount{{Tag: "dp", Solved: 1, Struggled: 1}}, all.TopTags(5))
}

func TestEngine_Memoizes(t *testing.T) {
	subs := []remote.Submission{sub(1, problem(1, "A", 800), remote.VerdictAccepted, 1)}
	e := NewEngine()

	first := e.Analyze(subs, Days30, now)
	second := e.Analyze(subs, Days30, now.Add(time.Minute))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.Hits())

	e.Analyze(subs, Days90, now)
	assert.Equal(t, 1, e.Hits())

	grown := append(subs[:1:1], sub(2, problem(1, "B", 900), remote.VerdictAccepted, 1))
	r := e.Analyze(grown, Days90, now)
	assert.Equal(t, 2, r.Summary.TotalAttempts)
	assert.Equal(t, 1, e.Hits())
}
