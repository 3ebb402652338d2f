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
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
)

// MockClient is an in-memory implementation of Client for testing.
// Listing applies the same filters the service does: every requested tag must
// be present and rating bounds exclude unrated problems.
type MockClient struct {
	mu sync.Mutex

	// Catalog data
	Problems  []Problem
	Users     map[string]User
	Solved    map[string][]ProblemKey
	Subs      map[string][]Submission
	Tags      []string
	Bookmarks []Bookmark
	Config    ServerConfig

	// Errors to return, keyed by method name ("ListProblems", "AddBookmark", ...)
	Errors map[string]error

	// BeforeList, when set, runs before every ListProblems call. Tests use it
	// to hold a fetch open or to fail a specific page.
	BeforeList func(ctx context.Context, q ProblemQuery) error

	// Track calls for verification
	Calls     map[string]int
	LastQuery ProblemQuery

	nextBookmarkID int64
}

// NewMockClient creates a new mock client with default test data
func NewMockClient() *MockClient {
	return &MockClient{
		Problems: generateTestProblems(),
		Users: map[string]User{
			"tourist": {Handle: "tourist", Rating: Int(3800), Rank: "legendary grandmaster"},
		},
		Solved: map[string][]ProblemKey{},
		Subs:   map[string][]Submission{},
		Tags:   []string{"dp", "greedy", "math"},
		Errors: map[string]error{},
		Calls:  map[string]int{},
	}
}

// MockClientOption allows configuring the mock client
type MockClientOption func(*MockClient)

// WithProblems sets the catalog returned by ListProblems.
func WithProblems(problems []Problem) MockClientOption {
	return func(m *MockClient) {
		m.Problems = problems
	}
}

// WithUser registers a profile together with its solved keys and submissions.
func WithUser(u User, solved []ProblemKey, subs []Submission) MockClientOption {
	return func(m *MockClient) {
		m.Users[u.Handle] = u
		m.Solved[u.Handle] = solved
		m.Subs[u.Handle] = subs
	}
}

// WithError makes the named method return err.
func WithError(method string, err error) MockClientOption {
	return func(m *MockClient) {
		m.Errors[method] = err
	}
}

// NewMockClientWithOptions creates a mock client with options
func NewMockClientWithOptions(opts ...MockClientOption) *MockClient {
	mock := NewMockClient()
	for _, opt := range opts {
		opt(mock)
	}
	return mock
}

// SetError changes the error returned by method; nil clears it.
func (m *MockClient) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Errors, method)
		return
	}
	m.Errors[method] = err
}

// CallCount reports how many times method was invoked.
func (m *MockClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// begin records the call and returns the configured error, if any.
func (m *MockClient) begin(ctx context.Context, method string) error {
	m.mu.Lock()
	m.Calls[method]++
	err := m.Errors[method]
	m.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// GetUser implements Client.
func (m *MockClient) GetUser(ctx context.Context, handle string) (*User, error) {
	if err := m.begin(ctx, "GetUser"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[handle]
	if !ok {
		return nil, fmt.Errorf("handle %q: %w", handle, trackerrors.ErrUserNotFound)
	}
	return &u, nil
}

// GetSolved implements Client.
func (m *MockClient) GetSolved(ctx context.Context, handle string) ([]ProblemKey, error) {
	if err := m.begin(ctx, "GetSolved"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[handle]; !ok {
		return nil, fmt.Errorf("handle %q: %w", handle, trackerrors.ErrUserNotFound)
	}
	return slices.Clone(m.Solved[handle]), nil
}

// GetSubmissions implements Client.
func (m *MockClient) GetSubmissions(ctx context.Context, handle string) ([]Submission, error) {
	if err := m.begin(ctx, "GetSubmissions"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[handle]; !ok {
		return nil, fmt.Errorf("handle %q: %w", handle, trackerrors.ErrUserNotFound)
	}
	return slices.Clone(m.Subs[handle]), nil
}

// GetTags implements Client.
func (m *MockClient) GetTags(ctx context.Context) ([]string, error) {
	if err := m.begin(ctx, "GetTags"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Tags), nil
}

// ListProblems implements Client.
func (m *MockClient) ListProblems(ctx context.Context, q ProblemQuery) ([]Problem, error) {
	if err := m.begin(ctx, "ListProblems"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.LastQuery = q
	hook := m.BeforeList
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, q); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.matching(q)

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}
	start := (page - 1) * size
	if start >= len(matched) {
		return []Problem{}, nil
	}
	end := min(start+size, len(matched))
	return slices.Clone(matched[start:end]), nil
}

// CountProblems implements Client.
func (m *MockClient) CountProblems(ctx context.Context, q ProblemQuery) (int, error) {
	if err := m.begin(ctx, "CountProblems"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(q)), nil
}

// matching returns the problems passing q's filters. Callers hold m.mu.
func (m *MockClient) matching(q ProblemQuery) []Problem {
	var out []Problem
	for _, p := range m.Problems {
		if q.MinRating != nil && (p.Rating == nil || *p.Rating < *q.MinRating) {
			continue
		}
		if q.MaxRating != nil && (p.Rating == nil || *p.Rating > *q.MaxRating) {
			continue
		}
		if !slices.ContainsFunc(q.Tags, func(t string) bool { return !p.HasTag(t) }) {
			out = append(out, p)
		}
	}
	return out
}

// ListBookmarks implements Client.
func (m *MockClient) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	if err := m.begin(ctx, "ListBookmarks"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Bookmarks), nil
}

// AddBookmark implements Client.
func (m *MockClient) AddBookmark(ctx context.Context, b Bookmark) (*Bookmark, error) {
	if err := m.begin(ctx, "AddBookmark"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBookmarkID++
	b.ID = m.nextBookmarkID
	b.CreatedAt = Timestamp{Time: time.Now().UTC()}
	m.Bookmarks = append(m.Bookmarks, b)
	return &b, nil
}

// RemoveBookmark implements Client.
func (m *MockClient) RemoveBookmark(ctx context.Context, contestID int, index string) error {
	if err := m.begin(ctx, "RemoveBookmark"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ProblemKey{ContestID: contestID, Index: index}
	i := slices.IndexFunc(m.Bookmarks, func(b Bookmark) bool { return b.Key() == key })
	if i < 0 {
		return fmt.Errorf("bookmark %d%s: %w", contestID, index, trackerrors.ErrBookmarkNotFound)
	}
	m.Bookmarks = slices.Delete(m.Bookmarks, i, i+1)
	return nil
}

// GetServerConfig implements Client.
func (m *MockClient) GetServerConfig(ctx context.Context) (*ServerConfig, error) {
	if err := m.begin(ctx, "GetServerConfig"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.Config
	return &cfg, nil
}

// generateTestProblems creates a small sample catalog for testing
func generateTestProblems() []Problem {
	return []Problem{
		{ContestID: 1900, Index: "B1", Name: "Subsequence Sum", Rating: Int(1200), Tags: []string{"dp", "greedy"}, SolvedCount: Int(5400)},
		{ContestID: 1900, Index: "A", Name: "Cover in Water", Rating: Int(800), Tags: []string{"greedy"}, SolvedCount: Int(21000)},
		{ContestID: 1899, Index: "C", Name: "Yarik and Array", Rating: Int(1100), Tags: []string{"dp", "math"}, SolvedCount: Int(9800)},
		{ContestID: 1899, Index: "G", Name: "Unusual Entertainment"},
	}
}
