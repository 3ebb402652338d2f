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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirseerhq/cf-tracker/internal/apierror"
	trackerrors "github.com/sirseerhq/cf-tracker/internal/errors"
	"github.com/sirseerhq/cf-tracker/internal/observability"
)

// Endpoint names, relative to the base URL. They double as cache key prefixes.
const (
	EndpointTags          = "tags"
	EndpointProblems      = "problems"
	EndpointProblemsCount = "problems/count"
	EndpointBookmarks     = "bookmarks"
	EndpointConfig        = "config"
)

// HTTPClient implements Client against the REST service.
type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	inspector apierror.Inspector
	logger    *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*httpOptions)

type httpOptions struct {
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	metrics   *observability.RequestMetrics
	base      http.RoundTripper
}

// WithTimeout bounds every request. A timeout surfaces as a network failure.
func WithTimeout(d time.Duration) HTTPOption {
	return func(o *httpOptions) { o.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(o *httpOptions) { o.userAgent = ua }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(o *httpOptions) { o.logger = l }
}

// WithRequestMetrics records request latency.
func WithRequestMetrics(m *observability.RequestMetrics) HTTPOption {
	return func(o *httpOptions) { o.metrics = m }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(o *httpOptions) { o.base = rt }
}

// NewHTTPClient creates a client for the service rooted at baseURL,
// e.g. "http://localhost:8000/api".
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	o := httpOptions{
		timeout:   30 * time.Second,
		userAgent: "cf-tracker/dev",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.base == nil {
		o.base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	return &HTTPClient{
		baseURL: u,
		http: &http.Client{
			Timeout:   o.timeout,
			Transport: newRequestTransport(o.base, o.userAgent, o.logger, o.metrics),
		},
		inspector: apierror.NewInspector(),
		logger:    o.logger,
	}, nil
}

// GetUser implements Client.
func (c *HTTPClient) GetUser(ctx context.Context, handle string) (*User, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	var user User
	if err := c.do(ctx, http.MethodGet, userEndpoint(handle, ""), nil, nil, &user); err != nil {
		if c.inspector.IsNotFoundError(err) {
			return nil, fmt.Errorf("handle %q: %w", handle, trackerrors.ErrUserNotFound)
		}
		return nil, c.mapError(err)
	}
	return &user, nil
}

// GetSolved implements Client. Malformed keys in the response are skipped.
func (c *HTTPClient) GetSolved(ctx context.Context, handle string) ([]ProblemKey, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	var body struct {
		Solved []string `json:"solved"`
	}
	if err := c.do(ctx, http.MethodGet, userEndpoint(handle, "solved"), nil, nil, &body); err != nil {
		if c.inspector.IsNotFoundError(err) {
			return nil, fmt.Errorf("handle %q: %w", handle, trackerrors.ErrUserNotFound)
		}
		return nil, c.mapError(err)
	}

	keys := make([]ProblemKey, 0, len(body.Solved))
	for _, raw := range body.Solved {
		key, err := ParseProblemKey(raw)
		if err != nil {
			c.logger.Debug("skipping malformed solved key", "key", raw, "error", err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// GetSubmissions implements Client.
func (c *HTTPClient) GetSubmissions(ctx context.Context, handle string) ([]Submission, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	var subs []Submission
	if err := c.do(ctx, http.MethodGet, userEndpoint(handle, "submissions"), nil, nil, &subs); err != nil {
		if c.inspector.IsNotFoundError(err) {
			return nil, fmt.Errorf("handle %q: %w", handle, trackerrors.ErrUserNotFound)
		}
		return nil, c.mapError(err)
	}
	return subs, nil
}

// GetTags implements Client.
func (c *HTTPClient) GetTags(ctx context.Context) ([]string, error) {
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, EndpointTags, nil, nil, &body); err != nil {
		return nil, c.mapError(err)
	}
	return body.Tags, nil
}

// ListProblems implements Client.
func (c *HTTPClient) ListProblems(ctx context.Context, q ProblemQuery) ([]Problem, error) {
	var problems []Problem
	if err := c.do(ctx, http.MethodGet, EndpointProblems, ListParams(q), nil, &problems); err != nil {
		return nil, c.mapError(err)
	}
	return problems, nil
}

// CountProblems implements Client.
func (c *HTTPClient) CountProblems(ctx context.Context, q ProblemQuery) (int, error) {
	var body struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, EndpointProblemsCount, FilterParams(q), nil, &body); err != nil {
		return 0, c.mapError(err)
	}
	return body.Count, nil
}

// ListBookmarks implements Client.
func (c *HTTPClient) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	var bookmarks []Bookmark
	if err := c.do(ctx, http.MethodGet, EndpointBookmarks, nil, nil, &bookmarks); err != nil {
		return nil, c.mapError(err)
	}
	return bookmarks, nil
}

// bookmarkCreate is the POST body: the snapshot fields only.
type bookmarkCreate struct {
	ContestID int      `json:"contest_id"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    *int     `json:"rating"`
	Tags      []string `json:"tags"`
	URL       string   `json:"url"`
}

// AddBookmark implements Client.
func (c *HTTPClient) AddBookmark(ctx context.Context, b Bookmark) (*Bookmark, error) {
	body := bookmarkCreate{
		ContestID: b.ContestID,
		Index:     b.Index,
		Name:      b.Name,
		Rating:    b.Rating,
		Tags:      b.Tags,
		URL:       b.URL,
	}
	if body.Tags == nil {
		body.Tags = []string{}
	}
	var created Bookmark
	if err := c.do(ctx, http.MethodPost, EndpointBookmarks, nil, body, &created); err != nil {
		return nil, c.mapError(err)
	}
	return &created, nil
}

// RemoveBookmark implements Client.
func (c *HTTPClient) RemoveBookmark(ctx context.Context, contestID int, index string) error {
	endpoint := EndpointBookmarks + "/" + strconv.Itoa(contestID) + "/" + index
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil); err != nil {
		if c.inspector.IsNotFoundError(err) {
			return fmt.Errorf("bookmark %d%s: %w", contestID, index, trackerrors.ErrBookmarkNotFound)
		}
		return c.mapError(err)
	}
	return nil
}

// GetServerConfig implements Client.
func (c *HTTPClient) GetServerConfig(ctx context.Context) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := c.do(ctx, http.MethodGet, EndpointConfig, nil, nil, &cfg); err != nil {
		return nil, c.mapError(err)
	}
	return &cfg, nil
}

// do sends one request and decodes a JSON response into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	ref := &url.URL{Path: endpoint}
	if len(params) > 0 {
		ref.RawQuery = params.Encode()
	}
	target := c.baseURL.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apierror.StatusError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// mapError maps transport failures to the sentinel taxonomy with actionable messages.
func (c *HTTPClient) mapError(err error) error {
	if err == nil {
		return nil
	}

	if c.inspector.IsNetworkError(err) {
		return fmt.Errorf("%w. Check that the problem service is reachable: %w", err, trackerrors.ErrNetworkFailure)
	}
	if c.inspector.IsServerError(err) {
		return fmt.Errorf("%w: %w", err, trackerrors.ErrServerError)
	}
	return err
}

// readDetail extracts the "detail" message of an error body, if present.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(data))
}

func userEndpoint(handle, suffix string) string {
	endpoint := "user/" + handle
	if suffix != "" {
		endpoint += "/" + suffix
	}
	return endpoint
}

// validateHandle rejects handles that cannot name a user.
func validateHandle(handle string) error {
	if strings.TrimSpace(handle) == "" || strings.ContainsAny(handle, "/?#") {
		return fmt.Errorf("%q: %w", handle, trackerrors.ErrInvalidHandle)
	}
	return nil
}

// FilterParams projects the filter part of q onto query parameters:
// tags joined by ",", rating bounds and handle. Unset fields are omitted.
func FilterParams(q ProblemQuery) url.Values {
	v := url.Values{}
	if len(q.Tags) > 0 {
		v.Set("tags", strings.Join(q.Tags, ","))
	}
	if q.MinRating != nil {
		v.Set("min_rating", strconv.Itoa(*q.MinRating))
	}
	if q.MaxRating != nil {
		v.Set("max_rating", strconv.Itoa(*q.MaxRating))
	}
	if q.Handle != "" {
		v.Set("handle", q.Handle)
	}
	return v
}

// ListParams is FilterParams plus page and page_size.
func ListParams(q ProblemQuery) url.Values {
	v := FilterParams(q)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}
