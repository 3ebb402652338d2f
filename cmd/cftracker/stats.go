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
	"time"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/cf-tracker/internal/analytics"
	"github.com/sirseerhq/cf-tracker/internal/output"
)

// defaultStruggled is how many struggled problems a text report lists.
const defaultStruggled = 10

// report analyzes handle's submissions over w. The submission list comes
// through the response cache, so repeated reports in one process hit the
// engine's memo until the cache entry expires.
func (a *app) report(ctx context.Context, handle string, w analytics.Window) (analytics.Report, error) {
	subs, err := a.client.GetSubmissions(ctx, handle)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to load submissions for %s: %w", handle, err)
	}
	return a.reports.Analyze(subs, w, time.Now()), nil
}

func newStatsCommand(a *app) *cobra.Command {
	var (
		window    string
		top       int
		tag       string
		struggled int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the current user's submissions",
		Long: `Summarize the current user's submissions over a time window: headline
counts, solved problems per rating, solved and struggled problems per tag,
and the problems with the most rejected attempts.

With --tag, only the struggled problems carrying that tag are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window == "" {
				window = a.cfg.Analytics.DefaultWindow
			}
			w, err := analytics.ParseWindow(window)
			if err != nil {
				return err
			}
			if top <= 0 {
				top = a.cfg.Analytics.TopTags
			}

			ctx := cmd.Context()
			user, err := a.requireUser(ctx)
			if err != nil {
				return err
			}
			report, err := a.report(ctx, user.Handle, w)
			if err != nil {
				return err
			}
			if tag != "" {
				report.Struggled = report.Struggled.ForTag(tag)
			}

			switch format {
			case "ndjson":
				report.Tags = report.TopTags(top)
				return output.NewWriter(a.stdout).Write(report)
			case "text":
			default:
				return fmt.Errorf("unknown format %q (want text or ndjson)", format)
			}

			if tag != "" {
				a.out.Title(fmt.Sprintf("Struggled with %s (%s)", tag, w))
				a.out.Struggled(report.Struggled, 0)
				return nil
			}
			a.out.Report(report, top, struggled)
			return nil
		},
	}

	cmd.Flags().StringVar(&window, "window", "", "Time window: 30, 90, 180, 365 (days) or all (default from config)")
	cmd.Flags().IntVar(&top, "top", 0, "Number of tags to show (default from config)")
	cmd.Flags().StringVar(&tag, "tag", "", "Only list struggled problems with this tag")
	cmd.Flags().IntVar(&struggled, "struggled", defaultStruggled, "Number of struggled problems to show; 0 shows all")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or ndjson")
	return cmd
}

func newSubmissionsCommand(a *app) *cobra.Command {
	var (
		window  string
		search  string
		verdict string
		sortKey string
		asc     bool
		page    int
		format  string
	)

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List the current user's submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := analytics.ParseWindow(window)
			if err != nil {
				return err
			}
			vf, err := analytics.ParseVerdictFilter(verdict)
			if err != nil {
				return err
			}
			key, err := analytics.ParseSubmissionSortKey(sortKey)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			user, err := a.requireUser(ctx)
			if err != nil {
				return err
			}
			subs, err := a.client.GetSubmissions(ctx, user.Handle)
			if err != nil {
				return fmt.Errorf("failed to load submissions for %s: %w", user.Handle, err)
			}

			result := analytics.ListSubmissions(analytics.FilterWindow(subs, w, time.Now()), analytics.ListOptions{
				Search:  search,
				Verdict: vf,
				Sort:    key,
				Desc:    !asc,
				Page:    page,
			})

			switch format {
			case "ndjson":
				return output.WriteAll(output.NewWriter(a.stdout), result.Items)
			case "text":
				a.out.Submissions(result)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text or ndjson)", format)
			}
		},
	}

	cmd.Flags().StringVar(&window, "window", "all", "Time window: 30, 90, 180, 365 (days) or all")
	cmd.Flags().StringVar(&search, "search", "", "Only problems whose name contains this text")
	cmd.Flags().StringVar(&verdict, "verdict", "all", "Verdict filter: all, ac or wa")
	cmd.Flags().StringVar(&sortKey, "sort", "time", "Sort by: time, verdict, problem or rating")
	cmd.Flags().BoolVar(&asc, "asc", false, "Sort in ascending order (default newest first)")
	cmd.Flags().IntVar(&page, "page", 1, "Page to print (1-indexed)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or ndjson")
	return cmd
}
