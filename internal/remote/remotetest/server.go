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

// Package remotetest serves a remote.Client over HTTP so that the HTTP
// client and the CLI can be tested against a real listener.
package remotetest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// Server is an httptest server speaking the problem service API. The API is
// mounted under /api, so clients should use URL() as their base URL.
type Server struct {
	*httptest.Server

	requests atomic.Int32
	mu       sync.Mutex
	headers  []http.Header
}

// NewServer starts a server answering every request from backend. The
// server is closed when the test ends.
func NewServer(t *testing.T, backend remote.Client) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(s.record(newHandler(backend)))
	t.Cleanup(s.Close)
	return s
}

// NewErrorServer creates a server that always returns the specified status.
func NewErrorServer(t *testing.T, statusCode int) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(s.record(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, statusCode, http.StatusText(statusCode))
	})))
	t.Cleanup(s.Close)
	return s
}

// NewTransientErrorServer fails the first failCount requests with errorCode
// and then answers from backend.
func NewTransientErrorServer(t *testing.T, failCount, errorCode int, backend remote.Client) *Server {
	t.Helper()
	s := &Server{}
	next := newHandler(backend)
	s.Server = httptest.NewServer(s.record(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requests.Load() <= int32(failCount) {
			writeDetail(w, errorCode, http.StatusText(errorCode))
			return
		}
		next.ServeHTTP(w, r)
	})))
	t.Cleanup(s.Close)
	return s
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return s.Server.URL + "/api"
}

// RequestCount returns how many requests the server has received.
func (s *Server) RequestCount() int {
	return int(s.requests.Load())
}

// Headers returns the headers of every request received so far.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.headers)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.mu.Lock()
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type handler struct {
	backend remote.Client
}

func newHandler(backend remote.Client) http.Handler {
	h := &handler{backend: backend}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user/{handle}", h.user)
	mux.HandleFunc("GET /api/user/{handle}/solved", h.solved)
	mux.HandleFunc("GET /api/user/{handle}/submissions", h.submissions)
	mux.HandleFunc("GET /api/tags", h.tags)
	mux.HandleFunc("GET /api/problems", h.problems)
	mux.HandleFunc("GET /api/problems/count", h.count)
	mux.HandleFunc("GET /api/bookmarks", h.bookmarks)
	mux.HandleFunc("POST /api/bookmarks", h.addBookmark)
	mux.HandleFunc("DELETE /api/bookmarks/{contest}/{index}", h.removeBookmark)
	mux.HandleFunc("GET /api/config", h.config)
	return mux
}

func (h *handler) user(w http.ResponseWriter, r *http.Request) {
	u, err := h.backend.GetUser(r.Context(), r.PathValue("handle"))
	respond(w, u, err)
}

func (h *handler) solved(w http.ResponseWriter, r *http.Request) {
	keys, err := h.backend.GetSolved(r.Context(), r.PathValue("handle"))
	if err != nil {
		respond(w, nil, err)
		return
	}
	solved := make([]string, 0, len(keys))
	for _, k := range keys {
		solved = append(solved, k.String())
	}
	respond(w, map[string][]string{"solved": solved}, nil)
}

func (h *handler) submissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.backend.GetSubmissions(r.Context(), r.PathValue("handle"))
	respond(w, subs, err)
}

func (h *handler) tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.backend.GetTags(r.Context())
	respond(w, map[string][]string{"tags": tags}, err)
}

func (h *handler) problems(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	problems, err := h.backend.ListProblems(r.Context(), q)
	if err != nil {
		respond(w, nil, err)
		return
	}
	if q.Handle != "" {
		if err := h.annotate(r.Context(), q.Handle, problems); err != nil {
			respond(w, nil, err)
			return
		}
	}
	respond(w, problems, nil)
}

// annotate sets the per-user flags the service adds when a handle is given.
func (h *handler) annotate(ctx context.Context, handle string, problems []remote.Problem) error {
	solved, err := h.backend.GetSolved(ctx, handle)
	if err != nil {
		return err
	}
	bookmarks, err := h.backend.ListBookmarks(ctx)
	if err != nil {
		return err
	}
	for i := range problems {
		key := problems[i].Key()
		problems[i].IsSolved = slices.Contains(solved, key)
		problems[i].IsBookmarked = slices.ContainsFunc(bookmarks, func(b remote.Bookmark) bool { return b.Key() == key })
	}
	return nil
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	n, err := h.backend.CountProblems(r.Context(), q)
	respond(w, map[string]int{"count": n}, err)
}

func (h *handler) bookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.backend.ListBookmarks(r.Context())
	respond(w, bookmarks, err)
}

func (h *handler) addBookmark(w http.ResponseWriter, r *http.Request) {
	var b remote.Bookmark
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := h.backend.AddBookmark(r.Context(), b)
	respond(w, created, err)
}

func (h *handler) removeBookmark(w http.ResponseWriter, r *http.Request) {
	contest, err := strconv.Atoi(r.PathValue("contest"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid contest id")
		return
	}
	err = h.backend.RemoveBookmark(r.Context(), contest, r.PathValue("index"))
	respond(w, map[string]bool{"ok": true}, err)
}

func (h *handler) config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.backend.GetServerConfig(r.Context())
	respond(w, cfg, err)
}

func parseQuery(w http.ResponseWriter, r *http.Request) (remote.ProblemQuery, bool) {
	v := r.URL.Query()
	q := remote.ProblemQuery{Handle: v.Get("handle")}
	if tags := v.Get("tags"); tags != "" {
		q.Tags = strings.Split(tags, ",")
	}
	ints := []struct {
		name string
		set  func(int)
	}{
		{"min_rating", func(n int) { q.MinRating = remote.Int(n) }},
		{"max_rating", func(n int) { q.MaxRating = remote.Int(n) }},
		{"page", func(n int) { q.Page = n }},
		{"page_size", func(n int) { q.PageSize = n }},
	}
	for _, p := range ints {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid "+p.name)
			return q, false
		}
		p.set(n)
	}
	return q, true
}

func respond(w http.ResponseWriter, body any, err error) {
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	case errors.Is(err, trackerrors.ErrUserNotFound), errors.Is(err, trackerrors.ErrBookmarkNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
