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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/cf-tracker/internal/catalog"
	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
	"github.com/sirseerhq/cf-tracker/internal/output"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// listingOptions are the filter and sort flags shared by problems and browse.
type listingOptions struct {
	tags      []string
	minRating int
	maxRating int
	status    string
	sort      string
	desc      bool
}

func (o *listingOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "Only problems carrying every given tag (repeatable)")
	cmd.Flags().IntVar(&o.minRating, "min-rating", 0, "Minimum rating; excludes unrated problems")
	cmd.Flags().IntVar(&o.maxRating, "max-rating", 0, "Maximum rating; excludes unrated problems")
	cmd.Flags().StringVar(&o.status, "status", "all", "Solved status: all, solved or unsolved")
	cmd.Flags().StringVar(&o.sort, "sort", "none", "Sort by: none, id, name, rating or accepted")
	cmd.Flags().BoolVar(&o.desc, "desc", false, "Sort in descending order")
}

func (o *listingOptions) build(cmd *cobra.Command) (catalog.Filter, catalog.Sort, error) {
	var f catalog.Filter
	f.Tags = o.tags
	if cmd.Flags().Changed("min-rating") {
		f.MinRating = remote.Int(o.minRating)
	}
	if cmd.Flags().Changed("max-rating") {
		f.MaxRating = remote.Int(o.maxRating)
	}
	if f.MinRating != nil && f.MaxRating != nil && *f.MinRating > *f.MaxRating {
		return f, catalog.Sort{}, fmt.Errorf("min-rating %d is above max-rating %d", *f.MinRating, *f.MaxRating)
	}

	status, err := catalog.ParseStatus(o.status)
	if err != nil {
		return f, catalog.Sort{}, err
	}
	f.Status = status

	key, err := catalog.ParseSortKey(o.sort)
	if err != nil {
		return f, catalog.Sort{}, err
	}
	return f, catalog.Sort{Key: key, Desc: o.desc}, nil
}

// listing is an open catalog listing: a controller loaded for the current
// filter and a pager over its buffer.
type listing struct {
	ctrl   *catalog.Controller
	pager  *catalog.Pager
	handle string
}

// openListing resumes the session and loads the first batch for filter.
func (a *app) openListing(ctx context.Context, filter catalog.Filter, sort catalog.Sort) (*listing, error) {
	user, err := a.resume(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Status != catalog.StatusAll && user == nil {
		return nil, fmt.Errorf("filtering by solved status needs a handle. Run 'cftracker login <handle>' or pass --handle: %w", trackerrors.ErrNoSession)
	}

	l := &listing{ctrl: a.newController()}
	if user != nil {
		l.handle = user.Handle
	}
	l.pager = catalog.NewPager(l.ctrl, a.session.SolvedSet(), catalog.WithPageSize(a.cfg.Catalog.PageSize))
	l.pager.SetSort(sort)
	if err := l.restart(ctx, filter); err != nil {
		return nil, err
	}
	return l, nil
}

// restart applies filter. Any change to the filter, status included, drops
// the buffer and reloads from the first batch. Re-applying the current filter
// to a loaded list is a no-op.
func (l *listing) restart(ctx context.Context, filter catalog.Filter) error {
	state := l.ctrl.Snapshot().State
	reload := state == catalog.StateIdle || state == catalog.StateErrored || !filter.Equal(l.pager.Filter())
	l.pager.SetFilter(filter)
	if !reload {
		return nil
	}
	if _, err := l.ctrl.Start(ctx, filter, l.handle); err != nil {
		return fmt.Errorf("failed to load problems: %w", err)
	}
	return nil
}

func newProblemsCommand(a *app) *cobra.Command {
	var (
		opts   listingOptions
		page   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Print one page of the problem catalog",
		Long: `Print one page of the problem catalog.

Tags and rating bounds narrow what is requested from the service; solved
status is evaluated locally against the logged-in user's solved problems.
Pages beyond the first batch are fetched as needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, sort, err := opts.build(cmd)
			if err != nil {
				return err
			}
			switch format {
			case "text", "ndjson":
			default:
				return fmt.Errorf("unknown format %q (want text or ndjson)", format)
			}
			return runProblems(cmd.Context(), a, filter, sort, page, format)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "Page to print (1-indexed)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or ndjson")
	return cmd
}

func runProblems(ctx context.Context, a *app, filter catalog.Filter, sort catalog.Sort, page int, format string) error {
	l, err := a.openListing(ctx, filter, sort)
	if err != nil {
		return err
	}

	w, err := l.pager.Seek(ctx, page)
	// Seek may leave a read-ahead prefetch running; let it finish before exit.
	l.ctrl.Wait()
	if err != nil {
		return fmt.Errorf("failed to load page %d: %w", page, err)
	}

	if format == "ndjson" {
		solved := a.session.SolvedSet()
		items := make([]remote.Problem, len(w.Items))
		for i, p := range w.Items {
			p.IsSolved = solved.Solved(p)
			items[i] = p
		}
		return output.WriteAll(output.NewWriter(a.stdout), items)
	}
	a.out.Problems(w, a.session.SolvedSet())
	return nil
}
