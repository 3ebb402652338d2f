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
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <handle>",
		Short: "Look up a handle and remember it for later commands",
		Long: `Look up a handle and load its solved problems. On success the handle is
saved and used by later commands. An unknown handle leaves the current
login untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.session.Login(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.status.Success(fmt.Sprintf("Logged in as %s", user.Handle))
			a.out.User(user, a.session.SolvedSet().Len())
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved handle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(); err != nil {
				return fmt.Errorf("failed to clear saved handle: %w", err)
			}
			a.status.Success("Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.resume(cmd.Context())
			if err != nil {
				return err
			}
			a.out.User(user, a.session.SolvedSet().Len())
			return nil
		},
	}
}

func newTagsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tags problems can be filtered by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := a.client.GetTags(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load tags: %w", err)
			}
			a.out.Tags(tags)
			return nil
		},
	}
}
