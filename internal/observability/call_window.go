package observability

import (
	"sort"
	"sync"
	"time"
)

// CallStats describes one agent host operation. Latency fields cover the
// successful calls still in the window; Calls and Failures are totals since
// start.
type CallStats struct {
	Op          string         `json:"op"`
	Calls       int            `json:"calls"`
	Failures    map[string]int `json:"failures,omitempty"`
	Samples     int            `json:"samples"`
	LastMS      float64        `json:"last_ms"`
	P50MS       float64        `json:"p50_ms"`
	P95MS       float64        `json:"p95_ms"`
	P99MS       float64        `json:"p99_ms"`
	TargetP95MS float64        `json:"target_p95_ms,omitempty"`
	OverTarget  bool           `json:"over_target"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	WindowSize  int            `json:"window_size"`
	Calls       []CallStats    `json:"calls"`
	Turns       map[string]int `json:"turns"`
}

type opWindow struct {
	recent   []time.Duration
	last     time.Duration
	calls    int
	failures map[string]int
}

// callWindow keeps the most recent successful latencies per operation along
// with failure counts by result class.
type callWindow struct {
	mu      sync.Mutex
	size    int
	ops     map[string]*opWindow
	turns   map[string]int
	targets map[string]time.Duration
}

func newCallWindow(size int) *callWindow {
	if size <= 0 {
		size = 256
	}
	return &callWindow{
		size:    size,
		ops:     make(map[string]*opWindow),
		turns:   make(map[string]int),
		targets: make(map[string]time.Duration),
	}
}

func (w *callWindow) setTarget(op string, p95 time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p95 <= 0 {
		delete(w.targets, op)
		return
	}
	w.targets[op] = p95
}

func (w *callWindow) record(op, class string, d time.Duration) {
	if op == "" || d < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	ow, ok := w.ops[op]
	if !ok {
		ow = &opWindow{failures: make(map[string]int)}
		w.ops[op] = ow
	}
	ow.calls++
	if class != "ok" {
		ow.failures[class]++
		return
	}
	if len(ow.recent) == w.size {
		copy(ow.recent, ow.recent[1:])
		ow.recent = ow.recent[:w.size-1]
	}
	ow.recent = append(ow.recent, d)
	ow.last = d
}

func (w *callWindow) recordTurn(outcome string) {
	if outcome == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns[outcome]++
}

func (w *callWindow) snapshot() LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Calls:       make([]CallStats, 0, len(w.ops)),
		Turns:       make(map[string]int, len(w.turns)),
	}
	for outcome, n := range w.turns {
		out.Turns[outcome] = n
	}
	for op, ow := range w.ops {
		stats := CallStats{Op: op, Calls: ow.calls, Samples: len(ow.recent)}
		if len(ow.failures) > 0 {
			stats.Failures = make(map[string]int, len(ow.failures))
			for class, n := range ow.failures {
				stats.Failures[class] = n
			}
		}
		if len(ow.recent) > 0 {
			sorted := append([]time.Duration(nil), ow.recent...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			stats.LastMS = millis(ow.last)
			stats.P50MS = millis(nearestRank(sorted, 50))
			stats.P95MS = millis(nearestRank(sorted, 95))
			stats.P99MS = millis(nearestRank(sorted, 99))
		}
		if target, ok := w.targets[op]; ok {
			stats.TargetP95MS = millis(target)
			stats.OverTarget = stats.Samples > 0 && stats.P95MS > stats.TargetP95MS
		}
		out.Calls = append(out.Calls, stats)
	}
	sort.Slice(out.Calls, func(i, j int) bool { return out.Calls[i].Op < out.Calls[j].Op })
	return out
}

// nearestRank expects sorted input.
func nearestRank(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p + 99) / 100
	if idx < 1 {
		idx = 1
	}
	return sorted[idx-1]
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
