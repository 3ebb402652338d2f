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

package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProblemKey identifies a problem by contest and index, e.g. {1900, "B1"}.
type ProblemKey struct {
	ContestID int
	Index     string
}

// String renders the key the way the service does in solved lists: "1900_B1".
func (k ProblemKey) String() string {
	return strconv.Itoa(k.ContestID) + "_" + k.Index
}

// ParseProblemKey parses a "{contestId}_{index}" string.
func ParseProblemKey(s string) (ProblemKey, error) {
	contest, index, ok := strings.Cut(s, "_")
	if !ok || index == "" {
		return ProblemKey{}, fmt.Errorf("invalid problem key %q", s)
	}
	id, err := strconv.Atoi(contest)
	if err != nil {
		return ProblemKey{}, fmt.Errorf("invalid contest id in problem key %q: %w", s, err)
	}
	return ProblemKey{ContestID: id, Index: index}, nil
}

// Problem is one catalog entry. Rating and SolvedCount are optional on the
// wire; IsSolved and IsBookmarked are only set when the listing was requested
// with a handle.
type Problem struct {
	ContestID    int      `json:"contest_id"`
	Index        string   `json:"index"`
	Name         string   `json:"name"`
	Rating       *int     `json:"rating,omitempty"`
	Tags         []string `json:"tags"`
	URL          string   `json:"url"`
	SolvedCount  *int     `json:"solved_count,omitempty"`
	IsSolved     bool     `json:"is_solved,omitempty"`
	IsBookmarked bool     `json:"is_bookmarked,omitempty"`
}

// Key returns the problem's identity.
func (p Problem) Key() ProblemKey {
	return ProblemKey{ContestID: p.ContestID, Index: p.Index}
}

// RatingOrZero returns the rating, or 0 for unrated problems.
func (p Problem) RatingOrZero() int {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// SolvedCountOrZero returns the accepted count, or 0 when unknown.
func (p Problem) SolvedCountOrZero() int {
	if p.SolvedCount == nil {
		return 0
	}
	return *p.SolvedCount
}

// HasTag reports whether the problem carries tag.
func (p Problem) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UnmarshalJSON decodes a problem and deduplicates its tags.
func (p *Problem) UnmarshalJSON(data []byte) error {
	type plain Problem
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Tags = dedupe(raw.Tags)
	*p = Problem(raw)
	return nil
}

func dedupe(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0:0]
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Verdict is the judge's outcome for a submission, kept as the wire string.
type Verdict string

// Known verdicts. Anything else (including an empty verdict for submissions
// still in the queue) is treated as unknown and counts as not accepted.
const (
	VerdictAccepted            Verdict = "OK"
	VerdictWrongAnswer         Verdict = "WRONG_ANSWER"
	VerdictTimeLimitExceeded   Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictMemoryLimitExceeded Verdict = "MEMORY_LIMIT_EXCEEDED"
	VerdictRuntimeError        Verdict = "RUNTIME_ERROR"
	VerdictCompileError        Verdict = "COMPILATION_ERROR"
	VerdictChallenged          Verdict = "CHALLENGED"
	VerdictSkipped             Verdict = "SKIPPED"
	VerdictPartial             Verdict = "PARTIAL"
)

var verdictLabels = map[Verdict]string{
	VerdictAccepted:            "Accepted",
	VerdictWrongAnswer:         "Wrong Answer",
	VerdictTimeLimitExceeded:   "TLE",
	VerdictMemoryLimitExceeded: "MLE",
	VerdictRuntimeError:        "Runtime Error",
	VerdictCompileError:        "Compile Error",
	VerdictChallenged:          "Hacked",
	VerdictSkipped:             "Skipped",
	VerdictPartial:             "Partial",
}

// Accepted reports whether the verdict is OK.
func (v Verdict) Accepted() bool {
	return v == VerdictAccepted
}

// Known reports whether the verdict is one of the enumerated values.
func (v Verdict) Known() bool {
	_, ok := verdictLabels[v]
	return ok
}

// Label returns a short human readable verdict.
func (v Verdict) Label() string {
	if label, ok := verdictLabels[v]; ok {
		return label
	}
	if v == "" {
		return "Unknown"
	}
	return string(v)
}

// UnmarshalJSON accepts null as the unknown verdict.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Verdict(s)
	return nil
}

// Submission is one judged attempt; it embeds the full problem it targets.
type Submission struct {
	ID          int64   `json:"id"`
	Verdict     Verdict `json:"verdict"`
	TimeSeconds int64   `json:"time_seconds"`
	Language    string  `json:"language,omitempty"`
	Problem     Problem `json:"problem"`
}

// Time returns the submission time.
func (s Submission) Time() time.Time {
	return time.Unix(s.TimeSeconds, 0)
}

// User is the profile returned by the handle lookup.
type User struct {
	Handle       string `json:"handle"`
	Rating       *int   `json:"rating,omitempty"`
	MaxRating    *int   `json:"max_rating,omitempty"`
	Rank         string `json:"rank,omitempty"`
	MaxRank      string `json:"max_rank,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	Contribution *int   `json:"contribution,omitempty"`
}

// Bookmark is a snapshot of a problem saved by the user.
type Bookmark struct {
	ID        int64     `json:"id,omitempty"`
	ContestID int       `json:"contest_id"`
	Index     string    `json:"index"`
	Name      string    `json:"name"`
	Rating    *int      `json:"rating,omitempty"`
	Tags      []string  `json:"tags"`
	URL       string    `json:"url"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
}

// timestampLayouts are tried in order. The service stores creation times
// without an offset; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a time that also decodes the offset-less form the service
// returns, e.g. "2025-01-02T03:04:05".
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Key returns the bookmarked problem's identity.
func (b Bookmark) Key() ProblemKey {
	return ProblemKey{ContestID: b.ContestID, Index: b.Index}
}

// BookmarkFromProblem snapshots the fields a bookmark keeps.
func BookmarkFromProblem(p Problem) Bookmark {
	return Bookmark{
		ContestID: p.ContestID,
		Index:     p.Index,
		Name:      p.Name,
		Rating:    p.Rating,
		Tags:      append([]string(nil), p.Tags...),
		URL:       p.URL,
	}
}

// ProblemQuery is the filter projection sent with list and count requests.
// Page and PageSize are ignored by the count endpoint.
type ProblemQuery struct {
	Tags      []string
	MinRating *int
	MaxRating *int
	Handle    string
	Page      int
	PageSize  int
}

// ServerConfig carries service-side defaults.
type ServerConfig struct {
	DefaultHandle string `json:"default_handle"`
}

// Int returns a pointer to v, for optional fields.
func Int(v int) *int {
	return &v
}
