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

import "context"

// Client defines the remote problem service API.
// This interface allows for easy mocking in tests.
type Client interface {
	// GetUser looks up a profile. A missing handle yields an error wrapping
	// errors.ErrUserNotFound.
	GetUser(ctx context.Context, handle string) (*User, error)

	// GetSolved returns the keys of every problem the user has an accepted
	// submission for.
	GetSolved(ctx context.Context, handle string) ([]ProblemKey, error)

	// GetSubmissions returns the user's full submission history, newest first.
	GetSubmissions(ctx context.Context, handle string) ([]Submission, error)

	// GetTags returns every tag known to the catalog.
	GetTags(ctx context.Context) ([]string, error)

	// ListProblems returns one page (1-indexed) of problems matching q.
	ListProblems(ctx context.Context, q ProblemQuery) ([]Problem, error)

	// CountProblems returns how many problems match q's filters.
	CountProblems(ctx context.Context, q ProblemQuery) (int, error)

	// ListBookmarks returns every saved bookmark.
	ListBookmarks(ctx context.Context) ([]Bookmark, error)

	// AddBookmark saves a snapshot and returns it as stored.
	AddBookmark(ctx context.Context, b Bookmark) (*Bookmark, error)

	// RemoveBookmark deletes the bookmark for (contestID, index). A missing
	// bookmark yields an error wrapping errors.ErrBookmarkNotFound.
	RemoveBookmark(ctx context.Context, contestID int, index string) error

	// GetServerConfig returns service-side defaults such as the default handle.
	GetServerConfig(ctx context.Context) (*ServerConfig, error)
}
