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

// Package state persists the tracker's session between runs.
//
// The session file holds the last handle that logged in successfully. Writes
// are atomic (write to a temp file, fsync, rename) and every file carries a
// schema version and a SHA256 checksum, so a corrupted file is detected on
// load rather than half-read.
//
// Example usage:
//
//	path := state.DefaultSessionPath("~/.cftracker")
//	err := state.SaveSession(&state.SessionState{LastHandle: "tourist"}, path)
package state
