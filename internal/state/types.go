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

package state

import (
	"time"
)

// CurrentVersion is the current state schema version.
// Increment this when making breaking changes to the SessionState structure.
const CurrentVersion = 1

// SessionState is what survives between runs: the handle of the last
// successful login. Integrity is validated through a checksum so that a
// truncated or hand-edited file is reported instead of silently used.
type SessionState struct {
	// Version indicates the schema version of this state file.
	Version int `json:"version"`

	// Checksum is the SHA256 hash of the state content (excluding this field).
	Checksum string `json:"checksum"`

	// LastHandle is the handle of the last successful login.
	LastHandle string `json:"last_handle"`

	// SavedAt records when the handle was written.
	SavedAt time.Time `json:"saved_at"`
}
