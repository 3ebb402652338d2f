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
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// SubmissionPageSize is the number of rows per submissions page.
const SubmissionPageSize = 50

// VerdictFilter narrows the submission table by outcome.
type VerdictFilter int

const (
	VerdictAll VerdictFilter = iota
	VerdictAccepted
	VerdictRejected
)

// ParseVerdictFilter parses "all", "ac"/"accepted" or "wa"/"rejected".
func ParseVerdictFilter(s string) (VerdictFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return VerdictAll, nil
	case "ac", "accepted":
		return VerdictAccepted, nil
	case "wa", "rejected":
		return VerdictRejected, nil
	}
	return VerdictAll, fmt.Errorf("invalid verdict filter %q: must be all, ac or wa", s)
}

func (f VerdictFilter) match(v remote.Verdict) bool {
	switch f {
	case VerdictAccepted:
		return v.Accepted()
	case VerdictRejected:
		return !v.Accepted()
	}
	return true
}

// SubmissionSortKey selects the submission table column to order by.
type SubmissionSortKey int

const (
	SortByTime SubmissionSortKey = iota
	SortByVerdict
	SortByProblem
	SortByRating
)

// ParseSubmissionSortKey parses "time", "verdict", "problem" or "rating".
func ParseSubmissionSortKey(s string) (SubmissionSortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "time":
		return SortByTime, nil
	case "verdict":
		return SortByVerdict, nil
	case "problem":
		return SortByProblem, nil
	case "rating":
		return SortByRating, nil
	}
	return SortByTime, fmt.Errorf("invalid sort key %q: must be time, verdict, problem or rating", s)
}

// ListOptions selects one page of the submission table.
type ListOptions struct {
	// Search matches problem names case-insensitively.
	Search  string
	Verdict VerdictFilter
	Sort    SubmissionSortKey
	Desc    bool
	Page    int
}

// SubmissionPage is one page of the submission table.
type SubmissionPage struct {
	Items     []remote.Submission
	Page      int
	PageCount int
	Matched   int
}

// ListSubmissions filters, orders and pages subs. Ties keep input order.
func ListSubmissions(subs []remote.Submission, opts ListOptions) SubmissionPage {
	search := strings.ToLower(opts.Search)
	rows := make([]remote.Submission, 0, len(subs))
	for _, s := range subs {
		if !opts.Verdict.match(s.Verdict) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Problem.Name), search) {
			continue
		}
		rows = append(rows, s)
	}

	compare := submissionComparator(opts.Sort)
	if opts.Desc {
		slices.SortStableFunc(rows, func(a, b remote.Submission) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(rows, compare)
	}

	page := max(opts.Page, 1)
	out := SubmissionPage{
		Page:      page,
		Matched:   len(rows),
		PageCount: (len(rows) + SubmissionPageSize - 1) / SubmissionPageSize,
	}
	start := (page - 1) * SubmissionPageSize
	if start < len(rows) {
		out.Items = rows[start:min(start+SubmissionPageSize, len(rows))]
	}
	return out
}

func submissionComparator(key SubmissionSortKey) func(a, b remote.Submission) int {
	switch key {
	case SortByVerdict:
		return func(a, b remote.Submission) int { return cmp.Compare(a.Verdict, b.Verdict) }
	case SortByProblem:
		return func(a, b remote.Submission) int {
			return cmp.Compare(submissionProblemID(a), submissionProblemID(b))
		}
	case SortByRating:
		return func(a, b remote.Submission) int {
			return cmp.Compare(a.Problem.RatingOrZero(), b.Problem.RatingOrZero())
		}
	default:
		return func(a, b remote.Submission) int { return cmp.Compare(a.TimeSeconds, b.TimeSeconds) }
	}
}

func submissionProblemID(s remote.Submission) string {
	return strconv.Itoa(s.Problem.ContestID) + s.Problem.Index
}
