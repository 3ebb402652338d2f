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

// Package main implements the cftracker command-line interface.
// It browses the problem catalog of a practice service page by page,
// tracks a user's solved problems and bookmarks, and summarizes their
// submission history.
//
// The catalog is fetched in batches of three display pages. While you read
// the last loaded page, the next batch is requested in the background, and
// changing the tag or rating filter discards anything still in flight for
// the old filter.
//
// Usage:
//
//	cftracker login <handle>
//	cftracker problems [--tag dp --tag math] [--min-rating 1200] [--status unsolved] [--page 3]
//	cftracker browse [--sort rating --desc]
//	cftracker stats [--window 90] [--tag dp]
//	cftracker submissions [--verdict wa] [--search tree]
//	cftracker bookmarks add 1900 B1
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Handle or bookmark not found
//   - 3: Network or server error
package main
