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

// Package remote provides a client for the problem service's REST API:
// user profiles, solved lists, submission history, the problem catalog
// and bookmarks.
//
// The package includes:
//   - A Client interface covering every endpoint the tracker uses
//   - An HTTP implementation returning errors from internal/errors
//   - Decorators adding retries (RetryClient) and response caching (CachedClient)
//   - An in-memory MockClient for testing
//
// Basic usage:
//
//	base, err := remote.NewHTTPClient("http://localhost:8000/api", remote.WithTimeout(30*time.Second))
//	if err != nil {
//	    return err
//	}
//	client := remote.NewCachedClient(remote.NewRetryClient(base, nil), cache.New())
//	problems, err := client.ListProblems(ctx, remote.ProblemQuery{Tags: []string{"dp"}, Page: 1, PageSize: 50})
package remote
