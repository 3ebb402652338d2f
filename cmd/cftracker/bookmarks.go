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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/cf-tracker/internal/remote"
)

// lookupPageSize is the page size used when scanning the catalog for one
// problem. It is the largest page the service accepts.
const lookupPageSize = 500

func newBookmarksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List, add or remove bookmarked problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBookmarks(cmd.Context(), a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bookmarked problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listBookmarks(cmd.Context(), a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <contestId> <index>",
		Short: "Bookmark a problem, e.g. 'add 1900 B1'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseProblemArgs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := a.session.LoadBookmarks(ctx); err != nil {
				return fmt.Errorf("failed to load bookmarks: %w", err)
			}
			if a.session.IsBookmarked(key) {
				a.status.Muted(fmt.Sprintf("%s is already bookmarked", key))
				return nil
			}
			p, err := findProblem(ctx, a.client, key)
			if err != nil {
				return err
			}
			if _, err := a.session.AddBookmark(ctx, p); err != nil {
				return err
			}
			a.status.Success(fmt.Sprintf("Bookmarked %d%s %s", p.ContestID, p.Index, p.Name))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <contestId> <index>",
		Aliases: []string{"remove"},
		Short:   "Remove a bookmark",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseProblemArgs(args)
			if err != nil {
				return err
			}
			if err := a.session.RemoveBookmark(cmd.Context(), key.ContestID, key.Index); err != nil {
				return err
			}
			a.status.Success(fmt.Sprintf("Removed bookmark %d%s", key.ContestID, key.Index))
			return nil
		},
	})

	return cmd
}

func listBookmarks(ctx context.Context, a *app) error {
	list, err := a.session.LoadBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}
	a.out.Bookmarks(list)
	return nil
}

// parseProblemArgs parses "<contestId> <index>". The index is upper-cased.
func parseProblemArgs(args []string) (remote.ProblemKey, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return remote.ProblemKey{}, fmt.Errorf("invalid contest id %q", args[0])
	}
	index := strings.ToUpper(strings.TrimSpace(args[1]))
	if index == "" {
		return remote.ProblemKey{}, fmt.Errorf("problem index cannot be empty")
	}
	return remote.ProblemKey{ContestID: id, Index: index}, nil
}

// findProblem scans the catalog for key. The service has no single-problem
// endpoint, so the catalog is read page by page until the problem shows up.
func findProblem(ctx context.Context, client remote.Client, key remote.ProblemKey) (remote.Problem, error) {
	for page := 1; ; page++ {
		items, err := client.ListProblems(ctx, remote.ProblemQuery{Page: page, PageSize: lookupPageSize})
		if err != nil {
			return remote.Problem{}, fmt.Errorf("failed to look up %d%s: %w", key.ContestID, key.Index, err)
		}
		for _, p := range items {
			if p.Key() == key {
				return p, nil
			}
		}
		if len(items) < lookupPageSize {
			return remote.Problem{}, fmt.Errorf("problem %d%s is not in the catalog", key.ContestID, key.Index)
		}
	}
}
