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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// Window is a trailing time range in days. AllTime (zero) is unbounded.
type Window int

// Window presets.
const (
	AllTime Window = 0
	Days30  Window = 30
	Days90  Window = 90
	Days180 Window = 180
	Days365 Window = 365
)

var windowAliases = map[string]Window{
	"30":  Days30,
	"1m":  Days30,
	"90":  Days90,
	"3m":  Days90,
	"180": Days180,
	"6m":  Days180,
	"365": Days365,
	"1y":  Days365,
	"all": AllTime,
}

// ParseWindow parses a preset such as "90", "3m", "1y" or "all". A trailing
// "d" is accepted on day counts, so String output parses back.
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if w, ok := windowAliases[s]; ok {
		return w, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if w, ok := windowAliases[days]; ok && w != AllTime {
			return w, nil
		}
	}
	return AllTime, fmt.Errorf("invalid window %q: must be one of 30, 90, 180, 365 (or 1m, 3m, 6m, 1y) or all", s)
}

// String returns "all" or the day count, e.g. "90d".
func (w Window) String() string {
	if w <= AllTime {
		return "all"
	}
	return strconv.Itoa(int(w)) + "d"
}

// Cutoff returns the earliest Unix time inside the window ending at now.
func (w Window) Cutoff(now time.Time) int64 {
	return now.Unix() - int64(w)*86400
}

// FilterWindow returns the submissions made within w before now. The input is
// not modified; for AllTime it is returned as is.
func FilterWindow(subs []remote.Submission, w Window, now time.Time) []remote.Submission {
	if w <= AllTime {
		return subs
	}
	cutoff := w.Cutoff(now)
	out := make([]remote.Submission, 0, len(subs))
	for _, s := range subs {
		if s.TimeSeconds >= cutoff {
			out = append(out, s)
		}
	}
	return out
}
