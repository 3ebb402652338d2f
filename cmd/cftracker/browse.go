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
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/cf-tracker/internal/analytics"
	"github.com/sirseerhq/cf-tracker/internal/catalog"
	"github.com/sirseerhq/cf-tracker/internal/remote"
)

const browseHelp = `Commands:
  n, next                 next page
  p, prev                 previous page
  g <page>                go to page
  s <key> [desc]          sort by none, id, name, rating or accepted
  f status <v>            all, solved or unsolved
  f tags [t ...]          require every tag; no tags clears the filter
  f rating <min|-> <max|->  rating bounds; "-" removes a bound
  b <row>                 toggle the bookmark on a row of the current page
  r                       reload the current filter
  stats [window]          submission statistics for the logged-in user
  h                       this help
  q                       quit`

func newBrowseCommand(a *app) *cobra.Command {
	var opts listingOptions

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through the catalog interactively",
		Long: `Page through the catalog interactively. Commands are read one per line
from standard input; type h for a list.

The next batch is requested in the background as soon as you reach the last
loaded page, so paging forward rarely waits on the network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, sort, err := opts.build(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a.serveMetrics(ctx)

			l, err := a.openListing(ctx, filter, sort)
			if err != nil {
				return err
			}
			if _, err := a.session.LoadBookmarks(ctx); err != nil {
				a.status.Warning(fmt.Sprintf("Bookmarks unavailable: %v", err))
			}
			b := &browser{app: a, listing: l}
			err = b.run(ctx, cmd.InOrStdin())
			l.ctrl.Wait()
			return err
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// browser is the state of one interactive browse session.
type browser struct {
	app     *app
	listing *listing
	window  catalog.Window
}

func (b *browser) run(ctx context.Context, in io.Reader) error {
	b.show(ctx, 1)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(b.app.stderr, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := b.exec(ctx, fields)
		if err != nil {
			b.app.status.Error(err.Error())
		}
		if quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// exec runs one command line and reports whether the loop should end.
func (b *browser) exec(ctx context.Context, fields []string) (bool, error) {
	pager := b.listing.pager
	switch fields[0] {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		fmt.Fprintln(b.app.stdout, browseHelp)
	case "n", "next":
		b.show(ctx, pager.Page()+1)
	case "p", "prev":
		b.show(ctx, pager.Page()-1)
	case "g", "goto":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: g <page>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return false, fmt.Errorf("invalid page %q", fields[1])
		}
		b.show(ctx, n)
	case "s", "sort":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: s <key> [desc]")
		}
		key, err := catalog.ParseSortKey(fields[1])
		if err != nil {
			return false, err
		}
		pager.SetSort(catalog.Sort{Key: key, Desc: len(fields) > 2 && fields[2] == "desc"})
		b.show(ctx, 1)
	case "f", "filter":
		return false, b.filter(ctx, fields[1:])
	case "b", "bookmark":
		return false, b.toggleBookmark(ctx, fields[1:])
	case "stats":
		return false, b.stats(ctx, fields[1:])
	case "r", "reload":
		f := pager.Filter()
		b.app.cache.Clear()
		if _, err := b.listing.ctrl.Start(ctx, f, b.listing.handle); err != nil {
			return false, fmt.Errorf("failed to reload: %w", err)
		}
		pager.SetFilter(f)
		b.show(ctx, 1)
	default:
		return false, fmt.Errorf("unknown command %q, type h for help", fields[0])
	}
	return false, nil
}

func (b *browser) filter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: f status|tags|rating ...")
	}
	f := b.listing.pager.Filter()
	switch args[0] {
	case "status":
		if len(args) != 2 {
			return fmt.Errorf("usage: f status all|solved|unsolved")
		}
		status, err := catalog.ParseStatus(args[1])
		if err != nil {
			return err
		}
		if status != catalog.StatusAll && b.listing.handle == "" {
			return fmt.Errorf("log in to filter by solved status")
		}
		f.Status = status
	case "tags":
		f.Tags = args[1:]
	case "rating":
		if len(args) != 3 {
			return fmt.Errorf("usage: f rating <min|-> <max|->")
		}
		lo, err := parseBound(args[1])
		if err != nil {
			return err
		}
		hi, err := parseBound(args[2])
		if err != nil {
			return err
		}
		f.MinRating, f.MaxRating = lo, hi
	default:
		return fmt.Errorf("unknown filter %q", args[0])
	}

	if err := b.listing.restart(ctx, f); err != nil {
		return err
	}
	b.show(ctx, 1)
	return nil
}

func (b *browser) stats(ctx context.Context, args []string) error {
	if b.listing.handle == "" {
		return fmt.Errorf("log in to see statistics")
	}
	window := b.app.cfg.Analytics.DefaultWindow
	if len(args) > 0 {
		window = args[0]
	}
	w, err := analytics.ParseWindow(window)
	if err != nil {
		return err
	}
	report, err := b.app.report(ctx, b.listing.handle, w)
	if err != nil {
		return err
	}
	b.app.out.Report(report, b.app.cfg.Analytics.TopTags, defaultStruggled)
	return nil
}

func parseBound(s string) (*int, error) {
	if s == "-" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid rating %q", s)
	}
	return remote.Int(v), nil
}

func (b *browser) toggleBookmark(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: b <row>")
	}
	row, err := strconv.Atoi(args[0])
	if err != nil || row < 1 || row > len(b.window.Items) {
		return fmt.Errorf("no row %q on this page", args[0])
	}
	p := b.window.Items[row-1]

	s := b.app.session
	if s.IsBookmarked(p.Key()) {
		if err := s.RemoveBookmark(ctx, p.ContestID, p.Index); err != nil {
			return err
		}
		b.app.status.Success("Removed bookmark " + p.Key().String())
		return nil
	}
	if _, err := s.AddBookmark(ctx, p); err != nil {
		return err
	}
	b.app.status.Success("Bookmarked " + p.Key().String())
	return nil
}

// show seeks to page n and renders it. A failed read-ahead is reported but
// the loaded pages stay usable.
func (b *browser) show(ctx context.Context, n int) {
	w, err := b.listing.pager.Seek(ctx, n)
	b.window = w

	// The buffer carries the bookmark flags from load time; show local edits.
	shown := w
	shown.Items = make([]remote.Problem, len(w.Items))
	for i, p := range w.Items {
		p.IsBookmarked = b.app.session.IsBookmarked(p.Key())
		shown.Items[i] = p
	}
	b.app.out.Problems(shown, b.app.session.SolvedSet())
	if err != nil {
		b.app.status.Warning(fmt.Sprintf("Could not load more problems: %v", err))
	}
	if snap := b.listing.ctrl.Snapshot(); snap.Prefetching {
		b.app.status.Muted("loading the next batch…")
	}
}
