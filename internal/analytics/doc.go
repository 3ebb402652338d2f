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

// Package analytics reduces a user's submission history to solve and
// struggle statistics: headline counts, a difficulty histogram, a per-tag
// breakdown and an index of problems that took more than one try.
//
// A problem "struggled" if it has at least one rejected submission in the
// window, even when it was accepted later. A "clean solve" has accepted
// submissions only. Every function is pure over the windowed list.
package analytics
