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

// Package session holds the logged-in user: profile, solved set and
// bookmarks. Login only replaces the current session when the handle lookup
// succeeds, so a typo never throws away a working session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sirseerhq/cf-tracker/internal/catalog"
	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// HandleStore persists the last-used handle. LoadHandle returns "" when
// nothing was saved.
type HandleStore interface {
	LoadHandle() (string, error)
	SaveHandle(handle string) error
	ClearHandle() error
}

// Session is safe for concurrent use.
type Session struct {
	client remote.Client
	store  HandleStore
	logger *slog.Logger

	mu        sync.RWMutex
	user      *remote.User
	solved    catalog.SolvedSet
	bookmarks []remote.Bookmark
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates an empty session. store may be nil to disable persistence.
func New(client remote.Client, store HandleStore, opts ...Option) *Session {
	s := &Session{
		client: client,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login looks up handle and loads its solved set. On success the session is
// replaced and the handle persisted; on any failure the previous session is
// kept. An unknown handle yields an error wrapping errors.ErrUserNotFound.
func (s *Session) Login(ctx context.Context, handle string) (*remote.User, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, fmt.Errorf("handle cannot be empty: %w", trackerrors.ErrInvalidHandle)
	}

	var (
		user   *remote.User
		solved []remote.ProblemKey
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.client.GetUser(gctx, handle)
		return err
	})
	g.Go(func() error {
		var err error
		solved, err = s.client.GetSolved(gctx, handle)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, trackerrors.ErrUserNotFound) {
			s.logger.Info("handle not found, keeping current session", "handle", handle)
		}
		return nil, err
	}

	s.mu.Lock()
	s.user = user
	s.solved = catalog.NewSolvedSet(solved)
	s.mu.Unlock()

	s.logger.Debug("logged in", "handle", user.Handle, "solved", len(solved))

	if s.store != nil {
		if err := s.store.SaveHandle(user.Handle); err != nil {
			// The in-memory session is valid; only the next start is affected.
			s.logger.Warn("failed to persist handle", "handle", user.Handle, "error", err)
		}
	}
	return user, nil
}

// Resume logs in with the persisted handle, or with the service's default
// handle when none was persisted. It returns (nil, nil) when there is
// nothing to resume.
func (s *Session) Resume(ctx context.Context) (*remote.User, error) {
	var handle string
	if s.store != nil {
		h, err := s.store.LoadHandle()
		if err != nil {
			s.logger.Warn("ignoring unreadable session file", "error", err)
		}
		handle = h
	}

	if handle == "" {
		cfg, err := s.client.GetServerConfig(ctx)
		if err != nil {
			s.logger.Debug("no default handle available", "error", err)
			return nil, nil
		}
		handle = cfg.DefaultHandle
	}
	if handle == "" {
		return nil, nil
	}
	return s.Login(ctx, handle)
}

// Logout forgets the user in memory and on disk.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.user = nil
	s.solved = catalog.SolvedSet{}
	s.mu.Unlock()

	if s.store != nil {
		return s.store.ClearHandle()
	}
	return nil
}

// User returns the logged-in profile, or nil.
func (s *Session) User() *remote.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Handle returns the logged-in handle, or "".
func (s *Session) Handle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Handle
}

// SolvedSet returns the solved problems of the logged-in user.
func (s *Session) SolvedSet() catalog.SolvedSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solved
}

// LoadBookmarks replaces the local bookmark list with the service's.
func (s *Session) LoadBookmarks(ctx context.Context) ([]remote.Bookmark, error) {
	bookmarks, err := s.client.ListBookmarks(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.bookmarks = slices.Clone(bookmarks)
	s.mu.Unlock()
	return bookmarks, nil
}

// Bookmarks returns a copy of the local bookmark list.
func (s *Session) Bookmarks() []remote.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.bookmarks)
}

// IsBookmarked reports whether key is in the local bookmark list.
func (s *Session) IsBookmarked(key remote.ProblemKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(key) >= 0
}

// AddBookmark bookmarks p. The local list is updated before the request and
// rolled back if it fails. Bookmarking an already bookmarked problem is a
// no-op.
func (s *Session) AddBookmark(ctx context.Context, p remote.Problem) (*remote.Bookmark, error) {
	snapshot := remote.BookmarkFromProblem(p)
	key := snapshot.Key()

	s.mu.Lock()
	if i := s.indexOf(key); i >= 0 {
		existing := s.bookmarks[i]
		s.mu.Unlock()
		return &existing, nil
	}
	s.bookmarks = append(s.bookmarks, snapshot)
	s.mu.Unlock()

	created, err := s.client.AddBookmark(ctx, snapshot)
	if err != nil {
		s.mu.Lock()
		if i := s.indexOf(key); i >= 0 {
			s.bookmarks = slices.Delete(s.bookmarks, i, i+1)
		}
		s.mu.Unlock()
		s.logger.Warn("bookmark failed, rolled back", "problem", key.String(), "error", err)
		return nil, fmt.Errorf("failed to bookmark %s: %w", key, err)
	}

	s.mu.Lock()
	if i := s.indexOf(key); i >= 0 {
		s.bookmarks[i] = *created
	}
	s.mu.Unlock()
	return created, nil
}

// RemoveBookmark deletes the bookmark for (contestID, index), optimistically
// like AddBookmark. The removed entry is restored at its position on failure.
func (s *Session) RemoveBookmark(ctx context.Context, contestID int, index string) error {
	key := remote.ProblemKey{ContestID: contestID, Index: index}

	s.mu.Lock()
	pos := s.indexOf(key)
	var removed remote.Bookmark
	if pos >= 0 {
		removed = s.bookmarks[pos]
		s.bookmarks = slices.Delete(s.bookmarks, pos, pos+1)
	}
	s.mu.Unlock()

	if err := s.client.RemoveBookmark(ctx, contestID, index); err != nil {
		if pos >= 0 && !errors.Is(err, trackerrors.ErrBookmarkNotFound) {
			s.mu.Lock()
			if s.indexOf(key) < 0 {
				s.bookmarks = slices.Insert(s.bookmarks, min(pos, len(s.bookmarks)), removed)
			}
			s.mu.Unlock()
			s.logger.Warn("bookmark removal failed, rolled back", "problem", key.String(), "error", err)
		}
		return fmt.Errorf("failed to remove bookmark %s: %w", key, err)
	}
	return nil
}

// indexOf returns the position of key in the bookmark list. Callers hold s.mu.
func (s *Session) indexOf(key remote.ProblemKey) int {
	return slices.IndexFunc(s.bookmarks, func(b remote.Bookmark) bool { return b.Key() == key })
}
