package app

import (
	"fmt"
	"strings"
	"time"
)

// Profiler tracks CPU-side per-frame scope timings and named counters for
// the HUD. Scope display order follows first use.
type Profiler struct {
	scopes map[string]time.Duration
	starts map[string]time.Time
	counts map[string]int
	order  []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		scopes: make(map[string]time.Duration),
		starts: make(map[string]time.Time),
		counts: make(map[string]int),
	}
}

func (p *Profiler) Begin(name string) {
	if _, ok := p.scopes[name]; !ok {
		p.order = append(p.order, name)
		p.scopes[name] = 0
	}
	p.starts[name] = time.Now()
}

func (p *Profiler) End(name string) {
	if start, ok := p.starts[name]; ok {
		p.scopes[name] = time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, n int) {
	p.counts[name] = n
}

func (p *Profiler) Summary() string {
	var sb strings.Builder
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "%-12s %6.2f ms\n", name, ms)
	}
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	// Stable display order.
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%-12s %d\n", k, p.counts[k])
	}
	return sb.String()
}
