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
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Cache.Hits.Inc()
	m.Fetch.Applied.WithLabelValues("first").Inc()
	m.Fetch.Discarded.WithLabelValues("prefetch").Add(2)

	if got := testutil.ToFloat64(m.Cache.Hits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fetch.Discarded.WithLabelValues("prefetch")); got != 2 {
		t.Errorf("discarded = %v, want 2", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "cftracker_catalog_batches_applied_total" {
			found = true
		}
	}
	if !found {
		t.Error("applied counter not registered")
	}
}

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	m.Requests.Retries.Inc()
	if got := testutil.ToFloat64(m.Requests.Retries); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("batch applied", "epoch", 3)
	if !strings.Contains(buf.String(), `"epoch":3`) {
		t.Errorf("json output missing field: %s", buf.String())
	}

	buf.Reset()
	logger, err = NewLogger(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %s", buf.String())
	}

	if _, err := NewLogger(&buf, "info", "xml"); err == nil {
		t.Error("NewLogger accepted unknown format")
	}
	if _, err := NewLogger(&buf, "loud", "text"); err == nil {
		t.Error("NewLogger accepted unknown level")
	}
}
