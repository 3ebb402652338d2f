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

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/cf-tracker/internal/observability"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// makeProblems builds n problems in remote order. Even positions carry "dp",
// odd ones "greedy"; every seventh problem is unrated.
func makeProblems(n int) []remote.Problem {
	problems := make([]remote.Problem, n)
	for i := range problems {
		p := remote.Problem{
			ContestID:   2000 - i/6,
			Index:       string(rune('A' + i%6)),
			Name:        fmt.Sprintf("Problem %d", i),
			SolvedCount: remote.Int(10000 - i),
		}
		if i%7 != 0 {
			p.Rating = remote.Int(800 + (i%28)*100)
		}
		if i%2 == 0 {
			p.Tags = []string{"dp"}
		} else {
			p.Tags = []string{"greedy"}
		}
		problems[i] = p
	}
	return problems
}

// gate lets a test hold ListProblems calls open until released. Requests
// are identified by their joined tags and page number.
type gate struct {
	mu      sync.Mutex
	holds   map[string]chan struct{}
	entered chan remote.ProblemQuery
}

func newGate() *gate {
	return &gate{holds: map[string]chan struct{}{}, entered: make(chan remote.ProblemQuery, 64)}
}

func gateKey(tags string, page int) string {
	return fmt.Sprintf("%s#%d", tags, page)
}

// hold makes requests for (tags, page) block until released.
func (g *gate) hold(tags string, page int) {
	g.mu.Lock()
	g.holds[gateKey(tags, page)] = make(chan struct{})
	g.mu.Unlock()
}

func (g *gate) release(tags string, page int) {
	g.mu.Lock()
	key := gateKey(tags, page)
	ch := g.holds[key]
	delete(g.holds, key)
	g.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (g *gate) before(ctx context.Context, q remote.ProblemQuery) error {
	select {
	case g.entered <- q:
	default:
	}
	g.mu.Lock()
	ch := g.holds[gateKey(strings.Join(q.Tags, ","), q.Page)]
	g.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await returns the next query that reached the source.
func (g *gate) await(t *testing.T) remote.ProblemQuery {
	t.Helper()
	select {
	case q := <-g.entered:
		return q
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a list request")
		return remote.ProblemQuery{}
	}
}

func newSource(n int) (*remote.MockClient, *gate) {
	src := remote.NewMockClientWithOptions(remote.WithProblems(makeProblems(n)))
	g := newGate()
	src.BeforeList = g.before
	return src, g
}

func TestController_StartLoadsFirstBatch(t *testing.T) {
	src, g := newSource(400)
	ctrl := NewController(src, WithLogger(observability.Discard()))

	outcome, err := ctrl.Start(context.Background(), Filter{}, "alice")
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)

	q := g.await(t)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultBatchSize, q.PageSize)
	assert.Equal(t, "alice", q.Handle)

	snap := ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Len(t, snap.Buffer, 150)
	assert.Equal(t, 400, snap.Total)
	assert.Equal(t, 2, snap.NextBatch)
	assert.False(t, snap.Exhausted)
	assert.Equal(t, uint64(1), snap.Epoch)
}

func TestController_ShortFirstBatchExhausts(t *testing.T) {
	src, _ := newSource(100)
	ctrl := NewController(src, WithLogger(observability.Discard()))

	_, err := ctrl.Start(context.Background(), Filter{}, "")
	require.NoError(t, err)

	snap := ctrl.Snapshot()
	assert.Equal(t, StateExhausted, snap.State)
	assert.True(t, snap.Exhausted)
	assert.Len(t, snap.Buffer, 100)

	outcome, err := ctrl.PrefetchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ignored, outcome)
	assert.Equal(t, 1, src.CallCount("ListProblems"))
}

func TestController_BufferGrowsOneBatchPerPrefetch(t *testing.T) {
	all := makeProblems(1000)
	src := remote.NewMockClientWithOptions(remote.WithProblems(all))
	ctrl := NewController(src, WithLogger(observability.Discard()))

	_, err := ctrl.Start(context.Background(), Filter{}, "")
	require.NoError(t, err)

	for k := 1; k <= 5; k++ {
		outcome, err := ctrl.PrefetchNext(context.Background())
		require.NoError(t, err)
		require.Equal(t, Applied, outcome)

		snap := ctrl.Snapshot()
		require.Len(t, snap.Buffer, 150*(k+1))
		assert.Equal(t, all[:150*(k+1)], snap.Buffer, "buffer must be a prefix of the remote order")
		assert.Equal(t, k+2, snap.NextBatch)
	}

	// 1000 = 6*150 + 100: the seventh batch is short.
	outcome, err := ctrl.PrefetchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)
	snap := ctrl.Snapshot()
	assert.Len(t, snap.Buffer, 1000)
	assert.Equal(t, StateExhausted, snap.State)
}

func TestController_StaleFirstBatchIsDiscarded(t *testing.T) {
	src, g := newSource(400)
	ctrl := NewController(src, WithLogger(observability.Discard()))
	g.hold("dp", 1)

	type result struct {
		outcome Outcome
		err     error
	}
	first := make(chan result, 1)
	go func() {
		o, err := ctrl.Start(context.Background(), Filter{Tags: []string{"dp"}}, "")
		first <- result{o, err}
	}()
	g.await(t)

	// A newer Start completes while the first one is still waiting.
	outcome, err := ctrl.Start(context.Background(), Filter{Tags: []string{"greedy"}}, "")
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)
	before := ctrl.Snapshot()

	g.release("dp", 1)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, Discarded, r.outcome)

	snap := ctrl.Snapshot()
	assert.Equal(t, before, snap)
	require.NotEmpty(t, snap.Buffer)
	for _, p := range snap.Buffer {
		assert.True(t, p.HasTag("greedy"), "buffer must only hold the current filter's results")
	}
	assert.Equal(t, uint64(2), snap.Epoch)
}

func TestController_ResponseForOldEpochNeverMutatesBuffer(t *testing.T) {
	src, g := newSource(400)
	ctrl := NewController(src, WithLogger(observability.Discard()))
	metrics := observability.NewMetrics(nil)
	WithMetrics(metrics.Fetch)(ctrl)

	g.hold("dp", 1)
	done := make(chan Outcome, 1)
	go func() {
		o, _ := ctrl.Start(context.Background(), Filter{Tags: []string{"dp"}}, "")
		done <- o
	}()
	g.await(t)

	// Mint a newer epoch by hand while the first request is still held,
	// then let the stale response arrive.
	ctrl.mu.Lock()
	ctrl.epoch++
	ctrl.state = StateReady
	ctrl.buffer = []remote.Problem{{ContestID: 1, Index: "A"}}
	ctrl.mu.Unlock()

	g.release("dp", 1)
	assert.Equal(t, Discarded, <-done)

	snap := ctrl.Snapshot()
	assert.Equal(t, []remote.Problem{{ContestID: 1, Index: "A"}}, snap.Buffer)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Fetch.Discarded.WithLabelValues("first")))
}

func TestController_FilterChangeDuringPrefetch(t *testing.T) {
	src, g := newSource(1000)
	metrics := observability.NewMetrics(nil)
	ctrl := NewController(src, WithLogger(observability.Discard()), WithMetrics(metrics.Fetch))
	ctx := context.Background()

	_, err := ctrl.Start(ctx, Filter{}, "")
	require.NoError(t, err)
	g.await(t)

	g.hold("", 2)
	require.True(t, ctrl.TriggerPrefetch(ctx))
	q := g.await(t)
	require.Equal(t, 2, q.Page)

	// Change the filter while batch 2 is in flight. Hold the new first batch
	// to observe the reset.
	g.hold("dp", 1)
	started := make(chan struct{})
	go func() {
		defer close(started)
		_, _ = ctrl.Start(ctx, Filter{Tags: []string{"dp"}}, "")
	}()
	g.await(t)

	snap := ctrl.Snapshot()
	assert.Empty(t, snap.Buffer, "a new filter must reset the buffer")
	assert.Equal(t, StateLoadingFirst, snap.State)

	// The old prefetch arrives first and must be ignored.
	g.release("", 2)
	ctrl.Wait()
	snap = ctrl.Snapshot()
	assert.Empty(t, snap.Buffer)
	assert.Equal(t, StateLoadingFirst, snap.State)

	g.release("dp", 1)
	<-started

	snap = ctrl.Snapshot()
	require.Len(t, snap.Buffer, 150)
	for _, p := range snap.Buffer {
		assert.True(t, p.HasTag("dp"))
	}
	assert.Equal(t, 2, snap.NextBatch)
	assert.False(t, snap.Prefetching)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Fetch.Discarded.WithLabelValues("prefetch")))
}

func TestController_PrefetchFailureKeepsBuffer(t *testing.T) {
	src, g := newSource(1000)
	ctrl := NewController(src, WithLogger(observability.Discard()))
	ctx := context.Background()

	_, err := ctrl.Start(ctx, Filter{}, "")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	src.BeforeList = func(ctx context.Context, q remote.ProblemQuery) error {
		if q.Page == 2 {
			return boom
		}
		return g.before(ctx, q)
	}

	outcome, err := ctrl.PrefetchNext(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, outcome)

	snap := ctrl.Snapshot()
	assert.Len(t, snap.Buffer, 150)
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 2, snap.NextBatch)
	assert.False(t, snap.Prefetching)
	assert.ErrorIs(t, snap.Err, boom)

	// The next trigger retries the same batch.
	src.BeforeList = g.before
	outcome, err = ctrl.PrefetchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)
	snap = ctrl.Snapshot()
	assert.Len(t, snap.Buffer, 300)
	assert.NoError(t, snap.Err)
}

func TestController_FirstBatchFailure(t *testing.T) {
	boom := errors.New("remote service error")
	src := remote.NewMockClientWithOptions(remote.WithError("CountProblems", boom))
	ctrl := NewController(src, WithLogger(observability.Discard()))

	outcome, err := ctrl.Start(context.Background(), Filter{}, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, outcome)

	snap := ctrl.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Empty(t, snap.Buffer)
	assert.ErrorIs(t, snap.Err, boom)

	outcome, err = ctrl.PrefetchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ignored, outcome)

	// A new Start recovers.
	src.SetError("CountProblems", nil)
	outcome, err = ctrl.Start(context.Background(), Filter{}, "")
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)
	assert.Nil(t, ctrl.Snapshot().Err)
}

func TestController_PrefetchIgnoredWhenIdle(t *testing.T) {
	src, _ := newSource(10)
	metrics := observability.NewMetrics(nil)
	ctrl := NewController(src, WithMetrics(metrics.Fetch))

	outcome, err := ctrl.PrefetchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ignored, outcome)
	assert.False(t, ctrl.TriggerPrefetch(context.Background()))
	assert.Equal(t, 0, src.CallCount("ListProblems"))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Fetch.Ignored.WithLabelValues("not_ready")))
}

func TestController_TriggerPrefetchLaunchesOnce(t *testing.T) {
	src, g := newSource(1000)
	ctrl := NewController(src, WithLogger(observability.Discard()))
	ctx := context.Background()

	_, err := ctrl.Start(ctx, Filter{}, "")
	require.NoError(t, err)
	g.await(t)

	g.hold("", 2)
	assert.True(t, ctrl.TriggerPrefetch(ctx))
	assert.False(t, ctrl.TriggerPrefetch(ctx))
	assert.True(t, ctrl.Snapshot().Prefetching)
	assert.Equal(t, StatePrefetching, ctrl.Snapshot().State)

	g.release("", 2)
	ctrl.Wait()

	assert.Equal(t, 2, src.CallCount("ListProblems"))
	assert.Len(t, ctrl.Snapshot().Buffer, 300)
}

func TestController_CustomBatchSize(t *testing.T) {
	src, g := newSource(70)
	ctrl := NewController(src, WithBatchSize(30), WithLogger(observability.Discard()))

	_, err := ctrl.Start(context.Background(), Filter{}, "")
	require.NoError(t, err)
	assert.Equal(t, 30, g.await(t).PageSize)
	assert.Equal(t, 30, ctrl.BatchSize())

	for i := 0; i < 2; i++ {
		_, err := ctrl.PrefetchNext(context.Background())
		require.NoError(t, err)
	}
	snap := ctrl.Snapshot()
	assert.Len(t, snap.Buffer, 70)
	assert.True(t, snap.Exhausted)
}

func TestOutcomeAndStateStrings(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "discarded", Discarded.String())
	assert.Equal(t, "ignored", Ignored.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "prefetching", StatePrefetching.String())
	assert.Equal(t, "errored", StateErrored.String())
}
