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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sirseerhq/cf-tracker/internal/observability"
)

// maxResponseBytes caps a single response body. A full submission history
// of a very active user is a few megabytes.
const maxResponseBytes = 32 * 1024 * 1024

// requestTransport tags every request with a User-Agent and an X-Request-ID,
// limits the response size and records latency.
type requestTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
	metrics   *observability.RequestMetrics
}

func newRequestTransport(base http.RoundTripper, userAgent string, logger *slog.Logger, metrics *observability.RequestMetrics) http.RoundTripper {
	return &requestTransport{
		base:      base,
		userAgent: userAgent,
		logger:    logger,
		metrics:   metrics,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *requestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set("X-Request-ID", requestID)
	}
	req.Header.Set("User-Agent", t.userAgent)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	status := "error"
	if err == nil {
		status = statusClass(resp.StatusCode)
	}
	if t.metrics != nil {
		t.metrics.Duration.WithLabelValues(req.URL.Path, status).Observe(elapsed.Seconds())
	}
	t.logger.Debug("remote request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", status,
		"elapsed", elapsed,
		"request_id", requestID,
	)

	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		resp.Body = &limitedReader{
			ReadCloser: resp.Body,
			limit:      maxResponseBytes,
		}
	}
	return resp, nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// limitedReader wraps a ReadCloser with a size limit to prevent excessive memory usage.
type limitedReader struct {
	io.ReadCloser
	limit int64
	read  int64
}

// Read implements io.Reader with size limit enforcement.
func (lr *limitedReader) Read(p []byte) (n int, err error) {
	if lr.read >= lr.limit {
		return 0, fmt.Errorf("response size exceeded limit of %d bytes", lr.limit)
	}

	remaining := lr.limit - lr.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err = lr.ReadCloser.Read(p)
	lr.read += int64(n)

	return n, err
}
