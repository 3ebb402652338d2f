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
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sirseerhq/cf-tracker/internal/observability"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// DefaultBatchSize is the number of problems fetched per request: three
// display pages.
const DefaultBatchSize = 3 * DefaultPageSize

// ProblemSource is the part of the remote client the controller needs.
type ProblemSource interface {
	ListProblems(ctx context.Context, q remote.ProblemQuery) ([]remote.Problem, error)
	CountProblems(ctx context.Context, q remote.ProblemQuery) (int, error)
}

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoadingFirst
	StateReady
	StatePrefetching
	StateExhausted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoadingFirst:
		return "loading"
	case StateReady:
		return "ready"
	case StatePrefetching:
		return "prefetching"
	case StateExhausted:
		return "exhausted"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Outcome tells the caller what became of a fetch.
type Outcome int

const (
	// Applied means the response was current and written to the buffer.
	Applied Outcome = iota + 1
	// Discarded means a newer Start superseded the fetch. It is not an error.
	Discarded
	// Ignored means the call was a no-op: a prefetch was already running,
	// the list was exhausted, or there was no loaded list to extend.
	Ignored
	// Failed means the fetch was current but returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Discarded:
		return "discarded"
	case Ignored:
		return "ignored"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent, read-only view of the controller.
type Snapshot struct {
	Epoch       uint64
	State       State
	Filter      Filter
	Buffer      []remote.Problem
	Total       int
	NextBatch   int
	Exhausted   bool
	Prefetching bool
	Err         error
}

// Controller loads a filtered problem listing batch by batch into an
// append-only buffer.
//
// Every Start mints a new epoch. Responses carry the epoch they were issued
// under and are dropped on arrival if it is no longer current, so a slow
// response for an old filter can never touch the buffer of a new one.
// Network calls run without holding the lock.
type Controller struct {
	src       ProblemSource
	batchSize int
	logger    *slog.Logger
	metrics   *observability.FetchMetrics

	mu          sync.Mutex
	epoch       uint64
	state       State
	filter      Filter
	query       remote.ProblemQuery
	buffer      []remote.Problem
	total       int
	nextBatch   int
	exhausted   bool
	prefetching bool
	err         error

	wg sync.WaitGroup
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithBatchSize sets the number of items requested per batch.
func WithBatchSize(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *observability.FetchMetrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates an idle controller reading from src.
func NewController(src ProblemSource, opts ...ControllerOption) *Controller {
	c := &Controller{
		src:       src,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		nextBatch: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchSize returns the configured batch size.
func (c *Controller) BatchSize() int {
	return c.batchSize
}

// Start discards the current list and loads batch 1 for filter, together
// with the total match count. It blocks until both requests finish.
//
// On failure the controller is Errored with an empty buffer and the error is
// returned with outcome Failed. If another Start ran meanwhile the result is
// Discarded and nothing changes.
func (c *Controller) Start(ctx context.Context, filter Filter, handle string) (Outcome, error) {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.state = StateLoadingFirst
	c.filter = filter
	c.query = filter.Query(handle)
	c.buffer = nil
	c.total = 0
	c.nextBatch = 1
	c.exhausted = false
	c.prefetching = false
	c.err = nil
	query := c.query
	c.mu.Unlock()

	logger := c.logger.With("epoch", epoch)
	logger.Debug("loading first batch", "tags", query.Tags, "handle", handle)

	var (
		items []remote.Problem
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = c.src.ListProblems(gctx, c.batchQuery(query, 1))
		return err
	})
	g.Go(func() error {
		var err error
		total, err = c.src.CountProblems(gctx, query)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		logger.Debug("discarding stale first batch", "current_epoch", c.epoch)
		c.count(Discarded, "first")
		return Discarded, nil
	}
	if err != nil {
		c.state = StateErrored
		c.err = err
		logger.Warn("first batch failed", "error", err)
		c.count(Failed, "first")
		return Failed, err
	}

	c.buffer = slices.Clone(items)
	c.total = total
	c.nextBatch = 2
	c.settle(len(items))
	logger.Debug("first batch applied", "items", len(items), "total", total, "state", c.state)
	c.count(Applied, "first")
	return Applied, nil
}

// PrefetchNext fetches the next batch and appends it to the buffer. It blocks
// until the request finishes. A failed prefetch leaves the buffer as it was
// and may simply be retried.
func (c *Controller) PrefetchNext(ctx context.Context) (Outcome, error) {
	epoch, q, ok := c.reserve()
	if !ok {
		return Ignored, nil
	}
	return c.prefetch(ctx, epoch, q)
}

// TriggerPrefetch is the non-blocking PrefetchNext. The reservation happens
// before it returns, so of two calls in quick succession only the first
// launches a fetch. It reports whether a fetch was launched.
func (c *Controller) TriggerPrefetch(ctx context.Context) bool {
	epoch, q, ok := c.reserve()
	if !ok {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.prefetch(ctx, epoch, q)
	}()
	return true
}

// Wait blocks until every prefetch launched by TriggerPrefetch has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot returns the current state. The buffer is shared with the
// controller but never modified within the returned length.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Epoch:       c.epoch,
		State:       c.state,
		Filter:      c.filter,
		Buffer:      slices.Clip(c.buffer),
		Total:       c.total,
		NextBatch:   c.nextBatch,
		Exhausted:   c.exhausted,
		Prefetching: c.prefetching,
		Err:         c.err,
	}
}

// reserve claims the prefetch slot for the current epoch.
func (c *Controller) reserve() (uint64, remote.ProblemQuery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reason string
	switch {
	case c.prefetching:
		reason = "in_flight"
	case c.exhausted:
		reason = "exhausted"
	case c.state != StateReady:
		reason = "not_ready"
	}
	if reason != "" {
		if c.metrics != nil {
			c.metrics.Ignored.WithLabelValues(reason).Inc()
		}
		return 0, remote.ProblemQuery{}, false
	}

	c.prefetching = true
	c.state = StatePrefetching
	return c.epoch, c.batchQuery(c.query, c.nextBatch), true
}

func (c *Controller) prefetch(ctx context.Context, epoch uint64, q remote.ProblemQuery) (Outcome, error) {
	logger := c.logger.With("epoch", epoch, "batch", q.Page)
	items, err := c.src.ListProblems(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		logger.Debug("discarding stale batch", "current_epoch", c.epoch)
		c.count(Discarded, "prefetch")
		return Discarded, nil
	}

	c.prefetching = false
	if err != nil {
		c.state = StateReady
		c.err = err
		logger.Warn("prefetch failed, will retry on next trigger", "error", err)
		c.count(Failed, "prefetch")
		return Failed, err
	}

	c.buffer = append(c.buffer, items...)
	c.nextBatch++
	c.err = nil
	c.settle(len(items))
	logger.Debug("batch applied", "items", len(items), "buffered", len(c.buffer), "state", c.state)
	c.count(Applied, "prefetch")
	return Applied, nil
}

// settle moves to Ready, or Exhausted after a short batch. Callers hold c.mu.
func (c *Controller) settle(received int) {
	if received < c.batchSize {
		c.exhausted = true
		c.state = StateExhausted
		return
	}
	c.state = StateReady
}

func (c *Controller) batchQuery(q remote.ProblemQuery, batch int) remote.ProblemQuery {
	q.Page = batch
	q.PageSize = c.batchSize
	return q
}

func (c *Controller) count(o Outcome, kind string) {
	if c.metrics == nil {
		return
	}
	switch o {
	case Applied:
		c.metrics.Applied.WithLabelValues(kind).Inc()
	case Discarded:
		c.metrics.Discarded.WithLabelValues(kind).Inc()
	case Failed:
		c.metrics.Failed.WithLabelValues(kind).Inc()
	}
}
