package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type requestKey struct {
	handler string
	method  string
	code    string
}

type routeKey struct {
	handler string
	method  string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type collector struct {
	mu       sync.Mutex
	requests map[requestKey]uint64
	errors   map[routeKey]uint64
	latency  map[routeKey]*histogram
	entries  map[string]uint64
	runs     map[string]uint64
}

func newCollector() *collector {
	return &collector{
		requests: make(map[requestKey]uint64),
		errors:   make(map[routeKey]uint64),
		latency:  make(map[routeKey]*histogram),
		entries:  make(map[string]uint64),
		runs:     make(map[string]uint64),
	}
}

var defaultCollector = newCollector()

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	defaultCollector.observe(handler, method, status, duration)
}

// ObserveConsoleEntry counts a console log entry by category.
func ObserveConsoleEntry(category string) {
	defaultCollector.mu.Lock()
	defaultCollector.entries[category]++
	defaultCollector.mu.Unlock()
}

// ObserveWorkflowRun counts a dispatched saved-workflow run by outcome.
func ObserveWorkflowRun(outcome string) {
	defaultCollector.mu.Lock()
	defaultCollector.runs[outcome]++
	defaultCollector.mu.Unlock()
}

func (c *collector) observe(handler, method string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[requestKey{handler: handler, method: method, code: strconv.Itoa(status)}]++
	key := routeKey{handler: handler, method: method}
	if status >= 500 {
		c.errors[key]++
	}
	hist := c.latency[key]
	if hist == nil {
		hist = newHistogram()
		c.latency[key] = hist
	}
	hist.observe(duration.Seconds())
}

func newHistogram() *histogram {
	buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// observe 累加到所有上界不小于 value 的桶，超出最后一个桶的只计入 +Inf（即 count）。
func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			return
		}
	}
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, defaultCollector.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.Grow(2048)

	reqKeys := make([]requestKey, 0, len(c.requests))
	for key := range c.requests {
		reqKeys = append(reqKeys, key)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].handler != reqKeys[j].handler {
			return reqKeys[i].handler < reqKeys[j].handler
		}
		if reqKeys[i].method != reqKeys[j].method {
			return reqKeys[i].method < reqKeys[j].method
		}
		return reqKeys[i].code < reqKeys[j].code
	})
	b.WriteString("# HELP autoflow_http_requests_total Total number of HTTP requests processed.\n")
	b.WriteString("# TYPE autoflow_http_requests_total counter\n")
	for _, key := range reqKeys {
		fmt.Fprintf(&b, "autoflow_http_requests_total{handler=\"%s\",method=\"%s\",code=\"%s\"} %d\n",
			escape(key.handler), escape(key.method), escape(key.code), c.requests[key])
	}

	errKeys := sortedRoutes(c.errors)
	b.WriteString("# HELP autoflow_http_request_errors_total Total number of HTTP requests that resulted in a server error.\n")
	b.WriteString("# TYPE autoflow_http_request_errors_total counter\n")
	for _, key := range errKeys {
		fmt.Fprintf(&b, "autoflow_http_request_errors_total{handler=\"%s\",method=\"%s\"} %d\n",
			escape(key.handler), escape(key.method), c.errors[key])
	}

	latKeys := sortedRoutes(c.latency)
	b.WriteString("# HELP autoflow_http_request_duration_seconds HTTP request duration in seconds.\n")
	b.WriteString("# TYPE autoflow_http_request_duration_seconds histogram\n")
	for _, key := range latKeys {
		hist := c.latency[key]
		labels := fmt.Sprintf("handler=\"%s\",method=\"%s\"", escape(key.handler), escape(key.method))
		for idx, bound := range hist.buckets {
			fmt.Fprintf(&b, "autoflow_http_request_duration_seconds_bucket{%s,le=\"%s\"} %d\n", labels, formatFloat(bound), hist.counts[idx])
		}
		fmt.Fprintf(&b, "autoflow_http_request_duration_seconds_bucket{%s,le=\"+Inf\"} %d\n", labels, hist.count)
		fmt.Fprintf(&b, "autoflow_http_request_duration_seconds_sum{%s} %s\n", labels, formatFloat(hist.sum))
		fmt.Fprintf(&b, "autoflow_http_request_duration_seconds_count{%s} %d\n", labels, hist.count)
	}

	b.WriteString("# HELP autoflow_console_entries_total Console log entries appended, by category.\n")
	b.WriteString("# TYPE autoflow_console_entries_total counter\n")
	for _, category := range sortedKeys(c.entries) {
		fmt.Fprintf(&b, "autoflow_console_entries_total{category=\"%s\"} %d\n", escape(category), c.entries[category])
	}

	b.WriteString("# HELP autoflow_workflow_runs_total Saved workflow runs processed from the dispatch queue, by outcome.\n")
	b.WriteString("# TYPE autoflow_workflow_runs_total counter\n")
	for _, outcome := range sortedKeys(c.runs) {
		fmt.Fprintf(&b, "autoflow_workflow_runs_total{outcome=\"%s\"} %d\n", escape(outcome), c.runs[outcome])
	}

	return b.String()
}

func sortedRoutes[V any](m map[routeKey]V) []routeKey {
	keys := make([]routeKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].handler != keys[j].handler {
			return keys[i].handler < keys[j].handler
		}
		return keys[i].method < keys[j].method
	})
	return keys
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint.
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
