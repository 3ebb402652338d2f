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

package remote

import (
	"context"
	"net/url"

	"github.com/sirseerhq/cf-tracker/internal/cache"
)

// CachedClient serves read endpoints through a response cache keyed by
// endpoint and query parameters. Bookmark endpoints and the service config
// always reach the wrapped client since they change under the user's hand.
type CachedClient struct {
	Client
	cache *cache.Cache
}

// NewCachedClient wraps next with c.
func NewCachedClient(next Client, c *cache.Cache) *CachedClient {
	return &CachedClient{Client: next, cache: c}
}

// Cache exposes the underlying cache, e.g. for purging after logout.
func (c *CachedClient) Cache() *cache.Cache {
	return c.cache
}

// GetUser implements Client.
func (c *CachedClient) GetUser(ctx context.Context, handle string) (*User, error) {
	key := cache.Key(userEndpoint(handle, ""), nil)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (*User, error) {
		return c.Client.GetUser(ctx, handle)
	})
}

// GetSolved implements Client.
func (c *CachedClient) GetSolved(ctx context.Context, handle string) ([]ProblemKey, error) {
	key := cache.Key(userEndpoint(handle, "solved"), nil)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]ProblemKey, error) {
		return c.Client.GetSolved(ctx, handle)
	})
}

// GetSubmissions implements Client.
func (c *CachedClient) GetSubmissions(ctx context.Context, handle string) ([]Submission, error) {
	key := cache.Key(userEndpoint(handle, "submissions"), nil)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Submission, error) {
		return c.Client.GetSubmissions(ctx, handle)
	})
}

// GetTags implements Client.
func (c *CachedClient) GetTags(ctx context.Context) ([]string, error) {
	return cache.Fetch(ctx, c.cache, cache.Key(EndpointTags, url.Values{}), c.Client.GetTags)
}

// ListProblems implements Client.
func (c *CachedClient) ListProblems(ctx context.Context, q ProblemQuery) ([]Problem, error) {
	key := cache.Key(EndpointProblems, ListParams(q))
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Problem, error) {
		return c.Client.ListProblems(ctx, q)
	})
}

// CountProblems implements Client.
func (c *CachedClient) CountProblems(ctx context.Context, q ProblemQuery) (int, error) {
	key := cache.Key(EndpointProblemsCount, FilterParams(q))
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (int, error) {
		return c.Client.CountProblems(ctx, q)
	})
}

// AddBookmark implements Client. Cached listings carry is_bookmarked flags,
// so a successful mutation clears the cache.
func (c *CachedClient) AddBookmark(ctx context.Context, b Bookmark) (*Bookmark, error) {
	created, err := c.Client.AddBookmark(ctx, b)
	if err == nil {
		c.cache.Clear()
	}
	return created, err
}

// RemoveBookmark implements Client.
func (c *CachedClient) RemoveBookmark(ctx context.Context, contestID int, index string) error {
	err := c.Client.RemoveBookmark(ctx, contestID, index)
	if err == nil {
		c.cache.Clear()
	}
	return err
}
