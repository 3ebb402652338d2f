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
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// SortKey selects the column a listing is ordered by.
type SortKey int

const (
	SortNone SortKey = iota
	SortID
	SortName
	SortRating
	SortAccepted
)

var sortKeyNames = map[SortKey]string{
	SortNone:     "none",
	SortID:       "id",
	SortName:     "name",
	SortRating:   "rating",
	SortAccepted: "accepted",
}

// String returns the flag value for k.
func (k SortKey) String() string {
	if name, ok := sortKeyNames[k]; ok {
		return name
	}
	return "none"
}

// ParseSortKey parses a sort column name.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortNone, nil
	}
	for k, name := range sortKeyNames {
		if name == s {
			return k, nil
		}
	}
	return SortNone, fmt.Errorf("invalid sort key %q: must be one of id, name, rating, accepted", s)
}

// Sort is the view ordering. It never affects what is fetched.
type Sort struct {
	Key  SortKey
	Desc bool
}

// sortProblems orders problems in place. Equal elements keep their relative
// order in both directions.
func sortProblems(problems []remote.Problem, s Sort) {
	compare := comparator(s.Key)
	if compare == nil {
		return
	}
	if s.Desc {
		slices.SortStableFunc(problems, func(a, b remote.Problem) int { return compare(b, a) })
		return
	}
	slices.SortStableFunc(problems, compare)
}

func comparator(key SortKey) func(a, b remote.Problem) int {
	switch key {
	case SortID:
		return func(a, b remote.Problem) int { return strings.Compare(problemID(a), problemID(b)) }
	case SortName:
		return func(a, b remote.Problem) int { return strings.Compare(a.Name, b.Name) }
	case SortRating:
		return func(a, b remote.Problem) int { return cmp.Compare(a.RatingOrZero(), b.RatingOrZero()) }
	case SortAccepted:
		return func(a, b remote.Problem) int { return cmp.Compare(a.SolvedCountOrZero(), b.SolvedCountOrZero()) }
	}
	return nil
}

// problemID is the display identifier, e.g. "1900B1". It compares lexically.
func problemID(p remote.Problem) string {
	return strconv.Itoa(p.ContestID) + p.Index
}
