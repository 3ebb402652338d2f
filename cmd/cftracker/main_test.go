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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirseerhq/cf-tracker/internal/analytics"
	"github.com/sirseerhq/cf-tracker/internal/catalog"
	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
	"github.com/sirseerhq/cf-tracker/internal/remote"
	"github.com/sirseerhq/cf-tracker/internal/remote/remotetest"
)

func TestMapErrorToExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"general", errors.New("boom"), 1},
		{"no session", fmt.Errorf("stats: %w", trackerrors.ErrNoSession), 1},
		{"invalid handle", trackerrors.ErrInvalidHandle, 1},
		{"user not found", fmt.Errorf("login: %w", trackerrors.ErrUserNotFound), 2},
		{"bookmark not found", fmt.Errorf("rm: %w", trackerrors.ErrBookmarkNotFound), 2},
		{"network", fmt.Errorf("tags: %w", trackerrors.ErrNetworkFailure), 3},
		{"server", fmt.Errorf("tags: %w", trackerrors.ErrServerError), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapErrorToExitCode(tt.err); got != tt.want {
				t.Errorf("mapErrorToExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// cli runs commands against a fake service with an isolated home and state
// directory.
type cli struct {
	t      *testing.T
	url    string
	config string
}

func newCLI(t *testing.T, url string) *cli {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CFTRACKER_STATE_DIR", filepath.Join(home, "state"))
	t.Setenv("CFTRACKER_API_URL", "")

	// No retries, so failure tests do not sleep through backoff.
	cfg := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfg, []byte("api:\n  max_retries: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return &cli{t: t, url: url, config: cfg}
}

func (c *cli) run(stdin string, args ...string) (stdout, stderr string, err error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand(&out, &errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.config, "--api-url", c.url}, args...))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (c *cli) mustRun(args ...string) (stdout, stderr string) {
	c.t.Helper()
	stdout, stderr, err := c.run("", args...)
	if err != nil {
		c.t.Fatalf("%v failed: %v\nstderr:\n%s", args, err, stderr)
	}
	return stdout, stderr
}

func decodeProblems(t *testing.T, ndjson string) []remote.Problem {
	t.Helper()
	var out []remote.Problem
	for _, line := range strings.Split(strings.TrimSpace(ndjson), "\n") {
		if line == "" {
			continue
		}
		var p remote.Problem
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		out = append(out, p)
	}
	return out
}

func aliceBackend() *remote.MockClient {
	now := time.Now().Unix()
	a1 := remote.Problem{ContestID: 1900, Index: "A", Name: "Cover in Water", Rating: remote.Int(800), Tags: []string{"greedy"}}
	b2 := remote.Problem{ContestID: 1899, Index: "C", Name: "Yarik and Array", Rating: remote.Int(1100), Tags: []string{"dp", "math"}}
	subs := []remote.Submission{
		{ID: 3, Verdict: remote.VerdictWrongAnswer, TimeSeconds: now - 100, Problem: b2},
		{ID: 2, Verdict: remote.VerdictWrongAnswer, TimeSeconds: now - 200, Problem: b2},
		{ID: 1, Verdict: remote.VerdictAccepted, TimeSeconds: now - 300, Problem: a1},
	}
	return remote.NewMockClientWithOptions(
		remote.WithUser(remote.User{Handle: "alice", Rating: remote.Int(1350), Rank: "pupil"},
			[]remote.ProblemKey{a1.Key()}, subs),
	)
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())

	stdout, stderr := c.mustRun("login", "alice")
	if !strings.Contains(stderr, "Logged in as alice") {
		t.Errorf("login stderr = %q", stderr)
	}
	if !strings.Contains(stdout, "Solved:     1") {
		t.Errorf("login stdout = %q", stdout)
	}

	stdout, _ = c.mustRun("whoami")
	if !strings.Contains(stdout, "alice") {
		t.Errorf("whoami after login = %q", stdout)
	}

	// An unknown handle fails and keeps the saved login.
	_, _, err := c.run("", "login", "nobody")
	if code := mapErrorToExitCode(err); code != 2 {
		t.Errorf("login nobody exit code = %d (err %v), want 2", code, err)
	}
	if stdout, _ = c.mustRun("whoami"); !strings.Contains(stdout, "alice") {
		t.Errorf("whoami after failed login = %q", stdout)
	}

	c.mustRun("logout")
	if stdout, _ = c.mustRun("whoami"); !strings.Contains(stdout, "Not logged in") {
		t.Errorf("whoami after logout = %q", stdout)
	}
}

func TestResumeFromServerDefault(t *testing.T) {
	backend := aliceBackend()
	backend.Config = remote.ServerConfig{DefaultHandle: "alice"}
	c := newCLI(t, remotetest.NewServer(t, backend).URL())

	if stdout, _ := c.mustRun("whoami"); !strings.Contains(stdout, "alice") {
		t.Errorf("whoami = %q, want the service default handle", stdout)
	}
}

func TestTags(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, remote.NewMockClient()).URL())
	stdout, _ := c.mustRun("tags")
	for _, tag := range []string{"dp", "greedy", "math", "3 tags"} {
		if !strings.Contains(stdout, tag) {
			t.Errorf("tags output missing %q:\n%s", tag, stdout)
		}
	}
}

func TestProblems(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, remote.NewMockClient()).URL())

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "everything",
			args: nil,
			want: []string{"1900_B1", "1900_A", "1899_C", "1899_G"},
		},
		{
			name: "tag filter sorted by rating",
			args: []string{"--tag", "dp", "--sort", "rating", "--desc"},
			want: []string{"1900_B1", "1899_C"},
		},
		{
			name: "rating bound excludes unrated",
			args: []string{"--min-rating", "1000"},
			want: []string{"1900_B1", "1899_C"},
		},
		{
			name: "sorted by id",
			args: []string{"--sort", "id"},
			want: []string{"1899_C", "1899_G", "1900_A", "1900_B1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"problems", "--format", "ndjson"}, tt.args...)
			stdout, _ := c.mustRun(args...)
			got := decodeProblems(t, stdout)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d problems, want %d:\n%s", len(got), len(tt.want), stdout)
			}
			for i, p := range got {
				if p.Key().String() != tt.want[i] {
					t.Errorf("row %d = %s, want %s", i, p.Key(), tt.want[i])
				}
			}
		})
	}
}

func TestProblems_Text(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, remote.NewMockClient()).URL())
	stdout, _ := c.mustRun("problems")
	if !strings.Contains(stdout, "Subsequence Sum") || !strings.Contains(stdout, "Page 1 of 1 · 4 matching") {
		t.Errorf("problems output:\n%s", stdout)
	}
}

func TestProblems_StatusFilter(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())

	_, _, err := c.run("", "problems", "--status", "solved")
	if !errors.Is(err, trackerrors.ErrNoSession) {
		t.Fatalf("status filter without a handle = %v, want ErrNoSession", err)
	}

	stdout, _ := c.mustRun("--handle", "alice", "problems", "--status", "solved", "--format", "ndjson")
	got := decodeProblems(t, stdout)
	if len(got) != 1 || got[0].Key().String() != "1900_A" || !got[0].IsSolved {
		t.Errorf("solved listing = %+v", got)
	}

	stdout, _ = c.mustRun("--handle", "alice", "problems", "--status", "unsolved", "--format", "ndjson")
	if got := decodeProblems(t, stdout); len(got) != 3 {
		t.Errorf("unsolved listing has %d problems, want 3", len(got))
	}

	// --handle is a one-off and does not log in.
	if stdout, _ := c.mustRun("whoami"); !strings.Contains(stdout, "Not logged in") {
		t.Errorf("whoami after --handle = %q", stdout)
	}
}

func TestProblems_PageBeyondFirstBatch(t *testing.T) {
	problems := make([]remote.Problem, 400)
	for i := range problems {
		problems[i] = remote.Problem{ContestID: 10000 - i, Index: "A", Name: fmt.Sprintf("Problem %d", i), Rating: remote.Int(800)}
	}
	backend := remote.NewMockClientWithOptions(remote.WithProblems(problems))
	c := newCLI(t, remotetest.NewServer(t, backend).URL())

	stdout, _ := c.mustRun("problems", "--page", "5", "--format", "ndjson")
	got := decodeProblems(t, stdout)
	if len(got) != 50 {
		t.Fatalf("page 5 has %d problems, want 50", len(got))
	}
	if got[0].ContestID != 10000-200 {
		t.Errorf("page 5 starts at contest %d, want %d", got[0].ContestID, 10000-200)
	}

	// Past the end of the catalog.
	stdout, _ = c.mustRun("problems", "--page", "9")
	if !strings.Contains(stdout, "Page 9 is past the loaded results") {
		t.Errorf("page 9 output:\n%s", stdout)
	}
}

func TestProblems_InvalidFlags(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, remote.NewMockClient()).URL())
	for _, args := range [][]string{
		{"problems", "--status", "maybe"},
		{"problems", "--sort", "difficulty"},
		{"problems", "--format", "csv"},
		{"problems", "--min-rating", "2000", "--max-rating", "1000"},
	} {
		if _, _, err := c.run("", args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestBookmarks(t *testing.T) {
	backend := remote.NewMockClient()
	c := newCLI(t, remotetest.NewServer(t, backend).URL())

	_, stderr := c.mustRun("bookmarks", "add", "1900", "b1")
	if !strings.Contains(stderr, "Bookmarked 1900B1 Subsequence Sum") {
		t.Errorf("add stderr = %q", stderr)
	}
	_, stderr = c.mustRun("bookmarks", "add", "1900", "B1")
	if !strings.Contains(stderr, "already bookmarked") {
		t.Errorf("second add stderr = %q", stderr)
	}
	if n := backend.CallCount("AddBookmark"); n != 1 {
		t.Errorf("AddBookmark called %d times, want 1", n)
	}

	stdout, _ := c.mustRun("bookmarks", "list")
	if !strings.Contains(stdout, "1900B1") || !strings.Contains(stdout, "1 bookmarks") {
		t.Errorf("list output:\n%s", stdout)
	}

	c.mustRun("bookmarks", "rm", "1900", "B1")
	if stdout, _ = c.mustRun("bookmarks"); !strings.Contains(stdout, "No bookmarks") {
		t.Errorf("list after rm:\n%s", stdout)
	}

	_, _, err := c.run("", "bookmarks", "rm", "1900", "B1")
	if code := mapErrorToExitCode(err); code != 2 {
		t.Errorf("rm of a missing bookmark exit code = %d (err %v), want 2", code, err)
	}

	if _, _, err := c.run("", "bookmarks", "add", "1", "Z"); err == nil {
		t.Error("adding a problem outside the catalog should fail")
	}
	if _, _, err := c.run("", "bookmarks", "add", "abc", "A"); err == nil {
		t.Error("a non-numeric contest id should fail")
	}
}

func TestStats(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())
	c.mustRun("login", "alice")

	stdout, _ := c.mustRun("stats", "--window", "all")
	for _, want := range []string{
		"Summary (all time)",
		"Attempts      3",
		"Solved        1",
		"Struggled     1",
		"Solved by rating",
		"Yarik and Array",
		"2 fails",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stats output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _ = c.mustRun("stats", "--tag", "greedy")
	if !strings.Contains(stdout, "Struggled with greedy") || strings.Contains(stdout, "Yarik") {
		t.Errorf("greedy drill-down:\n%s", stdout)
	}

	if _, _, err := c.run("", "stats", "--window", "7"); err == nil {
		t.Error("an unknown window should fail")
	}
}

func TestStats_RequiresHandle(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())
	_, _, err := c.run("", "stats")
	if !errors.Is(err, trackerrors.ErrNoSession) {
		t.Errorf("stats without a handle = %v, want ErrNoSession", err)
	}
}

func TestSubmissions(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())

	stdout, _ := c.mustRun("--handle", "alice", "submissions", "--verdict", "wa")
	if !strings.Contains(stdout, "Wrong Answer") || strings.Contains(stdout, "Accepted") {
		t.Errorf("wa filter output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "2 matching") {
		t.Errorf("expected 2 matching submissions:\n%s", stdout)
	}

	stdout, _ = c.mustRun("--handle", "alice", "submissions", "--search", "WATER", "--format", "ndjson")
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 1 {
		t.Fatalf("search returned %d lines, want 1:\n%s", len(lines), stdout)
	}
	var s remote.Submission
	if err := json.Unmarshal([]byte(lines[0]), &s); err != nil {
		t.Fatal(err)
	}
	if s.ID != 1 {
		t.Errorf("search matched submission %d, want 1", s.ID)
	}
}

func TestBrowse(t *testing.T) {
	backend := remote.NewMockClient()
	c := newCLI(t, remotetest.NewServer(t, backend).URL())

	script := strings.Join([]string{
		"n",
		"g 1",
		"zz",
		"f tags dp",
		"s rating desc",
		"b 1",
		"f rating - -",
		"q",
	}, "\n")
	stdout, stderr, err := c.run(script, "browse")
	if err != nil {
		t.Fatalf("browse failed: %v\nstderr:\n%s", err, stderr)
	}

	if !strings.Contains(stdout, "Page 2 is past the loaded results") {
		t.Errorf("n past the end should say so:\n%s", stdout)
	}
	if !strings.Contains(stderr, `unknown command "zz"`) {
		t.Errorf("unknown command not reported:\n%s", stderr)
	}
	if !strings.Contains(stderr, "Bookmarked 1900_B1") {
		t.Errorf("b 1 after sorting dp by rating should bookmark 1900B1:\n%s", stderr)
	}
	if len(backend.Bookmarks) != 1 {
		t.Errorf("service has %d bookmarks, want 1", len(backend.Bookmarks))
	}
	if !strings.Contains(stdout, "★ 1900B1") {
		t.Errorf("bookmarked row should be marked after the toggle:\n%s", stdout)
	}
}

func TestBrowse_Stats(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())

	stdout, stderr, err := c.run("stats all\nstats all\nstats forever\nq", "--handle", "alice", "browse")
	if err != nil {
		t.Fatalf("browse failed: %v\nstderr:\n%s", err, stderr)
	}
	if n := strings.Count(stdout, "Summary (all time)"); n != 2 {
		t.Errorf("expected 2 reports, got %d:\n%s", n, stdout)
	}
	if !strings.Contains(stderr, "forever") {
		t.Errorf("invalid window not reported:\n%s", stderr)
	}
}

func TestAppReportReusesAnalysis(t *testing.T) {
	c := newCLI(t, remotetest.NewServer(t, aliceBackend()).URL())
	var out bytes.Buffer
	a := &app{
		opts:   globalOptions{configPath: c.config, apiURL: c.url},
		stdout: &out,
		stderr: &out,
	}
	if err := a.init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	ctx := context.Background()

	first, err := a.report(ctx, "alice", analytics.AllTime)
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	second, err := a.report(ctx, "alice", analytics.AllTime)
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if a.reports.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", a.reports.Hits())
	}
	if first.Summary != second.Summary {
		t.Errorf("memoized summary %+v differs from %+v", second.Summary, first.Summary)
	}

	if _, err := a.report(ctx, "alice", analytics.Days30); err != nil {
		t.Fatalf("windowed report: %v", err)
	}
	if a.reports.Hits() != 1 {
		t.Errorf("a new window must not hit the memo, Hits() = %d", a.reports.Hits())
	}
}

func TestListingRestart(t *testing.T) {
	backend := remote.NewMockClient()
	ctrl := catalog.NewController(backend)
	l := &listing{ctrl: ctrl, pager: catalog.NewPager(ctrl, catalog.SolvedSet{}), handle: "alice"}
	ctx := context.Background()

	steps := []struct {
		name   string
		filter catalog.Filter
		reload bool
	}{
		{"first load", catalog.Filter{Tags: []string{"math", "dp"}}, true},
		{"same filter", catalog.Filter{Tags: []string{"math", "dp"}}, false},
		{"same tags reordered", catalog.Filter{Tags: []string{"dp", "math"}}, false},
		{"status change", catalog.Filter{Tags: []string{"dp", "math"}, Status: catalog.StatusUnsolved}, true},
		{"rating change", catalog.Filter{Tags: []string{"dp", "math"}, Status: catalog.StatusUnsolved, MinRating: remote.Int(1000)}, true},
	}

	for _, step := range steps {
		epoch := ctrl.Snapshot().Epoch
		lists := backend.CallCount("ListProblems")
		if err := l.restart(ctx, step.filter); err != nil {
			t.Fatalf("%s: restart failed: %v", step.name, err)
		}
		ctrl.Wait()

		snap := ctrl.Snapshot()
		if reloaded := snap.Epoch != epoch; reloaded != step.reload {
			t.Errorf("%s: reloaded = %v, want %v", step.name, reloaded, step.reload)
		}
		if step.reload && backend.CallCount("ListProblems") == lists {
			t.Errorf("%s: no list request was sent", step.name)
		}
		if !snap.Filter.Equal(step.filter) {
			t.Errorf("%s: controller filter = %+v, want %+v", step.name, snap.Filter, step.filter)
		}
		if l.pager.Page() != 1 {
			t.Errorf("%s: page = %d, want 1", step.name, l.pager.Page())
		}
	}
}

func TestServiceFailures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newCLI(t, remotetest.NewErrorServer(t, 500).URL())
		_, _, err := c.run("", "tags")
		if code := mapErrorToExitCode(err); code != 3 {
			t.Errorf("exit code = %d (err %v), want 3", code, err)
		}
	})

	t.Run("network failure", func(t *testing.T) {
		srv := remotetest.NewServer(t, remote.NewMockClient())
		url := srv.URL()
		srv.Close()

		c := newCLI(t, url)
		_, _, err := c.run("", "problems")
		if code := mapErrorToExitCode(err); code != 3 {
			t.Errorf("exit code = %d (err %v), want 3", code, err)
		}
	})
}
