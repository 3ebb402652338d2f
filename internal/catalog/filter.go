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

package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// Status restricts a listing by the user's solve state.
type Status int

const (
	StatusAll Status = iota
	StatusSolved
	StatusUnsolved
)

// String returns the flag value for s.
func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusUnsolved:
		return "unsolved"
	default:
		return "all"
	}
}

// ParseStatus parses "all", "solved" or "unsolved". The empty string means all.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, nil
	case "solved":
		return StatusSolved, nil
	case "unsolved":
		return StatusUnsolved, nil
	}
	return StatusAll, fmt.Errorf("invalid status %q: must be all, solved or unsolved", s)
}

// Filter is the user's selection over the catalog. Tags and rating bounds are
// sent to the service to narrow the transfer and checked again by Match;
// Status is evaluated locally against a SolvedSet.
type Filter struct {
	Tags      []string
	MinRating *int
	MaxRating *int
	Status    Status
}

// Query projects the server-side part of f onto a request for handle.
// Tags are sorted so that the same tag set always yields the same query.
func (f Filter) Query(handle string) remote.ProblemQuery {
	return remote.ProblemQuery{
		Tags:      sortedTags(f.Tags),
		MinRating: f.MinRating,
		MaxRating: f.MaxRating,
		Handle:    handle,
	}
}

// Match reports whether p passes every part of the filter. A problem must
// carry all filter tags, and unrated problems fail any rating bound.
func (f Filter) Match(p remote.Problem, solved SolvedSet) bool {
	for _, tag := range f.Tags {
		if !p.HasTag(tag) {
			return false
		}
	}
	if f.MinRating != nil && (p.Rating == nil || *p.Rating < *f.MinRating) {
		return false
	}
	if f.MaxRating != nil && (p.Rating == nil || *p.Rating > *f.MaxRating) {
		return false
	}

	switch f.Status {
	case StatusSolved:
		return solved.Solved(p)
	case StatusUnsolved:
		return !solved.Solved(p)
	}
	return true
}

// SameRemote reports whether f and g send the same query to the service.
// Tags are a set; their order does not matter.
func (f Filter) SameRemote(g Filter) bool {
	return slices.Equal(sortedTags(f.Tags), sortedTags(g.Tags)) &&
		equalBound(f.MinRating, g.MinRating) &&
		equalBound(f.MaxRating, g.MaxRating)
}

// Equal reports whether f and g select the same problems.
func (f Filter) Equal(g Filter) bool {
	return f.Status == g.Status && f.SameRemote(g)
}

func sortedTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := slices.Clone(tags)
	slices.Sort(out)
	return out
}

func equalBound(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SolvedSet is an immutable set of problem keys the user has solved.
// The zero value is empty.
type SolvedSet struct {
	keys map[remote.ProblemKey]struct{}
}

// NewSolvedSet builds a set from keys.
func NewSolvedSet(keys []remote.ProblemKey) SolvedSet {
	m := make(map[remote.ProblemKey]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return SolvedSet{keys: m}
}

// Contains reports whether key is in the set.
func (s SolvedSet) Contains(key remote.ProblemKey) bool {
	_, ok := s.keys[key]
	return ok
}

// Solved reports whether p counts as solved: either its key is in the set or
// the service flagged it for the requesting handle.
func (s SolvedSet) Solved(p remote.Problem) bool {
	return p.IsSolved || s.Contains(p.Key())
}

// Len returns the number of keys.
func (s SolvedSet) Len() int {
	return len(s.keys)
}
