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

package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cftracker"

// Metrics groups every collector the client exports.
type Metrics struct {
	Cache    *CacheMetrics
	Fetch    *FetchMetrics
	Requests *RequestMetrics
}

// CacheMetrics counts response cache lookups.
type CacheMetrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Shared prometheus.Counter
}

// FetchMetrics counts batch fetch outcomes by kind ("first", "prefetch").
type FetchMetrics struct {
	Applied   *prometheus.CounterVec
	Discarded *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Ignored   *prometheus.CounterVec
}

// RequestMetrics records outgoing HTTP requests.
type RequestMetrics struct {
	Duration *prometheus.HistogramVec
	Retries  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cache: &CacheMetrics{
			Hits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Response cache lookups served from a live entry",
			}),
			Misses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Response cache lookups that invoked the fetcher",
			}),
			Shared: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "shared_total",
				Help:      "Misses that joined an in-flight fetch for the same key",
			}),
		},
		Fetch: &FetchMetrics{
			Applied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "batches_applied_total",
				Help:      "Problem batches written into the buffer",
			}, []string{"kind"}),
			Discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "batches_discarded_total",
				Help:      "Responses dropped because a newer fetch epoch started",
			}, []string{"kind"}),
			Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "batches_failed_total",
				Help:      "Batch requests that returned an error",
			}, []string{"kind"}),
			Ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "prefetch_ignored_total",
				Help:      "Prefetch triggers ignored by the in-flight or exhausted guard",
			}, []string{"reason"}),
		},
		Requests: &RequestMetrics{
			Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "request_duration_seconds",
				Help:      "Remote service request latency by endpoint and status class",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}, []string{"endpoint", "status"}),
			Retries: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "retries_total",
				Help:      "Requests repeated after a transient failure",
			}),
		},
	}

	if reg != nil {
		reg.MustRegister(
			m.Cache.Hits, m.Cache.Misses, m.Cache.Shared,
			m.Fetch.Applied, m.Fetch.Discarded, m.Fetch.Failed, m.Fetch.Ignored,
			m.Requests.Duration, m.Requests.Retries,
		)
	}
	return m
}

// Serve exposes reg on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
