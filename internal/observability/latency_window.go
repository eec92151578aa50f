package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
}

type OutcomeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	WindowSize  int            `json:"window_size"`
	Stages      []StageStats   `json:"stages"`
	Outcomes    []OutcomeCount `json:"outcomes,omitempty"`
}

// latencyWindow keeps the last n samples per stage for percentile reporting.
type latencyWindow struct {
	mu       sync.RWMutex
	size     int
	rings    map[string]*ring
	outcomes map[string]int
}

type ring struct {
	buf  []float64
	pos  int
	full bool
	last float64
}

func (r *ring) push(v float64) {
	r.buf[r.pos] = v
	r.last = v
	r.pos = (r.pos + 1) % len(r.buf)
	if r.pos == 0 {
		r.full = true
	}
}

func (r *ring) sorted() []float64 {
	n := r.pos
	if r.full {
		n = len(r.buf)
	}
	out := append([]float64(nil), r.buf[:n]...)
	sort.Float64s(out)
	return out
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 256
	}
	return &latencyWindow{
		size:     size,
		rings:    make(map[string]*ring),
		outcomes: make(map[string]int),
	}
}

func (w *latencyWindow) add(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rings[stage]
	if !ok {
		r = &ring{buf: make([]float64, w.size)}
		w.rings[stage] = r
	}
	r.push(ms)
}

func (w *latencyWindow) mark(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	w.outcomes[name]++
	w.mu.Unlock()
}

func (w *latencyWindow) snapshot() LatencySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageStats, 0, len(w.rings)),
	}
	for _, stage := range sortedKeys(w.rings) {
		samples := w.rings[stage].sorted()
		if len(samples) == 0 {
			continue
		}
		var sum float64
		for _, v := range samples {
			sum += v
		}
		snap.Stages = append(snap.Stages, StageStats{
			Stage:       stage,
			Samples:     len(samples),
			LastMS:      round2(w.rings[stage].last),
			AvgMS:       round2(sum / float64(len(samples))),
			P50MS:       round2(quantile(samples, 0.50)),
			P95MS:       round2(quantile(samples, 0.95)),
			P99MS:       round2(quantile(samples, 0.99)),
			TargetP95MS: targetP95MS(stage),
		})
	}
	for _, name := range sortedKeys(w.outcomes) {
		snap.Outcomes = append(snap.Outcomes, OutcomeCount{Name: name, Count: w.outcomes[name]})
	}
	return snap
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func targetP95MS(stage string) float64 {
	switch stage {
	case StageTranscription:
		return 400
	case StageCompletion:
		return 1500
	case StageSynthesis:
		return 1200
	case StageTurnTotal:
		return 3200
	default:
		return 0
	}
}
