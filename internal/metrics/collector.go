// Package metrics exposes mailbridge counters and latency histograms in the
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide registry used by the bridge components.
var Collector = NewRegistry()

// Registry holds every registered counter and histogram.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	startTime  time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		startTime:  time.Now(),
	}
}

// Uptime returns how long the registry has existed.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// ObserveSince records the seconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Counter returns the counter for name and labels, creating it on first use.
func (r *Registry) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{name: name, help: help, labels: labels}
	r.counters[key] = c
	return c
}

// Histogram returns the histogram for name and labels, creating it on first use.
func (r *Registry) Histogram(name, help, labels string, bounds []float64) *Histogram {
	key := name + "{" + labels + "}"
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[key]; ok {
		return h
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	h := &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		bounds:  sorted,
		buckets: make([]int64, len(sorted)),
	}
	r.histograms[key] = h
	return h
}

// Handler renders every metric in Prometheus text format.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WriteTo(w)
	}
}

// WriteTo writes the exposition text to w.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP mailbridge_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE mailbridge_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "mailbridge_uptime_seconds %d\n\n", int64(r.Uptime().Seconds()))

	r.mu.Lock()
	counters := make([]*Counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, c)
	}
	histograms := make([]*Histogram, 0, len(r.histograms))
	for _, h := range r.histograms {
		histograms = append(histograms, h)
	}
	r.mu.Unlock()

	sort.Slice(counters, func(i, j int) bool {
		if counters[i].name != counters[j].name {
			return counters[i].name < counters[j].name
		}
		return counters[i].labels < counters[j].labels
	})
	sort.Slice(histograms, func(i, j int) bool { return histograms[i].name < histograms[j].name })

	helpWritten := make(map[string]bool)
	for _, c := range counters {
		if !helpWritten[c.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", c.name, c.help)
			fmt.Fprintf(&sb, "# TYPE %s counter\n", c.name)
			helpWritten[c.name] = true
		}
		fmt.Fprintf(&sb, "%s %d\n", series(c.name, c.labels), c.Value())
	}

	for _, h := range histograms {
		writeHistogram(&sb, h)
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func writeHistogram(sb *strings.Builder, h *Histogram) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(sb, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(sb, "# TYPE %s histogram\n", h.name)
	for i, le := range h.bounds {
		bound := fmt.Sprintf("%g", le)
		if math.IsInf(le, 1) {
			bound = "+Inf"
		}
		labels := `le="` + bound + `"`
		if h.labels != "" {
			labels = h.labels + "," + labels
		}
		fmt.Fprintf(sb, "%s %d\n", series(h.name+"_bucket", labels), h.buckets[i])
	}
	fmt.Fprintf(sb, "%s %d\n", series(h.name+"_count", h.labels), h.count)
	fmt.Fprintf(sb, "%s %f\n", series(h.name+"_sum", h.labels), h.sum)
}

func series(name, labels string) string {
	if labels == "" {
		return name
	}
	return name + "{" + labels + "}"
}

// --- Metrics used across the bridge ---

var (
	MessagesTotal     = Collector.Counter("mailbridge_messages_total", "Inbound chat messages received", "")
	UnauthorizedTotal = Collector.Counter("mailbridge_unauthorized_total", "Inbound messages rejected by the allow-list", "")
	MailboxQueries    = Collector.Counter("mailbridge_mailbox_queries_total", "Unread-mail queries issued", "")
	MailboxFailures   = Collector.Counter("mailbridge_mailbox_failures_total", "Unread-mail queries that failed", "")
	DeliveriesTotal   = Collector.Counter("mailbridge_deliveries_total", "Replies accepted by the outbound transport", "")
	DeliveryFailures  = Collector.Counter("mailbridge_delivery_failures_total", "Replies rejected by the outbound transport", "")

	MailboxLatency  = Collector.Histogram("mailbridge_mailbox_latency_seconds", "Unread-mail query latency in seconds", "", mailboxBuckets)
	DeliveryLatency = Collector.Histogram("mailbridge_delivery_latency_seconds", "Outbound send latency in seconds", "", deliveryBuckets)
)

var (
	mailboxBuckets  = []float64{0.25, 0.5, 1, 2, 5, 10, 30}
	deliveryBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10}
)

// CommandCounter returns the per-action command counter.
func CommandCounter(action string) *Counter {
	return Collector.Counter("mailbridge_commands_total", "Commands handled by action", `action="`+action+`"`)
}
