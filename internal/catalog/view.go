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

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// DefaultPageSize is the number of problems shown per display page.
const DefaultPageSize = 50

// Window is one display page of a projected listing.
type Window struct {
	Page            int
	PageSize        int
	Items           []remote.Problem
	Filtered        int
	BufferPageCount int
	TotalPageCount  int
}

// Project filters buffer, orders it and cuts out the given 1-indexed page.
// buffer is not modified. TotalPageCount is left at zero; see ProjectSnapshot.
func Project(buffer []remote.Problem, filter Filter, solved SolvedSet, sort Sort, page int) Window {
	return project(buffer, filter, solved, sort, page, DefaultPageSize)
}

// ProjectSnapshot is Project over a controller snapshot, with the total page
// count derived from the remote match count.
func ProjectSnapshot(snap Snapshot, filter Filter, solved SolvedSet, sort Sort, page int) Window {
	w := Project(snap.Buffer, filter, solved, sort, page)
	w.TotalPageCount = pageCount(snap.Total, w.PageSize)
	return w
}

func project(buffer []remote.Problem, filter Filter, solved SolvedSet, sort Sort, page, size int) Window {
	if page < 1 {
		page = 1
	}

	view := make([]remote.Problem, 0, len(buffer))
	for _, p := range buffer {
		if filter.Match(p, solved) {
			view = append(view, p)
		}
	}
	sortProblems(view, sort)

	w := Window{
		Page:            page,
		PageSize:        size,
		Filtered:        len(view),
		BufferPageCount: pageCount(len(view), size),
	}
	start := (page - 1) * size
	if start < len(view) {
		w.Items = view[start:min(start+size, len(view))]
	}
	return w
}

func pageCount(n, size int) int {
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Prefetcher is what a Pager needs from the fetch layer.
type Prefetcher interface {
	Snapshot() Snapshot
	TriggerPrefetch(ctx context.Context) bool
	Wait()
}

// Pager tracks the visible page of a listing and asks the fetch layer for
// more data as the user nears the end of the buffer. It is not safe for
// concurrent use.
type Pager struct {
	ctrl     Prefetcher
	solved   SolvedSet
	filter   Filter
	sort     Sort
	page     int
	pageSize int
}

// PagerOption configures a Pager.
type PagerOption func(*Pager)

// WithPageSize overrides the display page size.
func WithPageSize(n int) PagerOption {
	return func(p *Pager) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// NewPager creates a pager on page 1.
func NewPager(ctrl Prefetcher, solved SolvedSet, opts ...PagerOption) *Pager {
	p := &Pager{ctrl: ctrl, solved: solved, page: 1, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetFilter replaces the filter and returns to page 1. When the filter
// changes the caller must also restart the controller.
func (p *Pager) SetFilter(f Filter) {
	p.filter = f
	p.page = 1
}

// Filter returns the active filter.
func (p *Pager) Filter() Filter {
	return p.filter
}

// SetSort replaces the ordering and returns to page 1.
func (p *Pager) SetSort(s Sort) {
	p.sort = s
	p.page = 1
}

// Sort returns the active ordering.
func (p *Pager) Sort() Sort {
	return p.sort
}

// SetSolved replaces the solved set, e.g. after a login.
func (p *Pager) SetSolved(s SolvedSet) {
	p.solved = s
}

// Page returns the current page number.
func (p *Pager) Page() int {
	return p.page
}

// GoToPage moves to page n (clamped to 1) and returns its window. When n
// reaches the last buffered page of a list that is not exhausted it triggers
// one prefetch; the controller ignores the trigger if one is already running.
func (p *Pager) GoToPage(ctx context.Context, n int) Window {
	if n < 1 {
		n = 1
	}
	p.page = n

	snap := p.ctrl.Snapshot()
	w := p.project(snap)
	if n >= w.BufferPageCount && !snap.Exhausted {
		p.ctrl.TriggerPrefetch(ctx)
	}
	return w
}

// Current re-projects the current page without triggering a prefetch.
func (p *Pager) Current() Window {
	return p.project(p.ctrl.Snapshot())
}

// Seek goes to page n and waits for prefetches until the page is full, the
// list is exhausted, or a prefetch fails.
func (p *Pager) Seek(ctx context.Context, n int) (Window, error) {
	for {
		w := p.GoToPage(ctx, n)
		snap := p.ctrl.Snapshot()
		switch {
		case snap.State == StateErrored:
			return w, snap.Err
		case len(w.Items) == w.PageSize, snap.Exhausted:
			return w, nil
		case snap.State != StateReady && snap.State != StatePrefetching:
			return w, nil
		}

		p.ctrl.Wait()
		if err := ctx.Err(); err != nil {
			return w, err
		}

		after := p.ctrl.Snapshot()
		if after.Epoch != snap.Epoch {
			return p.Current(), nil
		}
		if len(after.Buffer) == len(snap.Buffer) && !after.Exhausted {
			if after.Err != nil {
				return p.Current(), after.Err
			}
			return p.Current(), nil
		}
	}
}

func (p *Pager) project(snap Snapshot) Window {
	w := project(snap.Buffer, p.filter, p.solved, p.sort, p.page, p.pageSize)
	w.TotalPageCount = pageCount(snap.Total, p.pageSize)
	return w
}
