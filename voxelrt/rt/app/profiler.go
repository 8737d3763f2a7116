package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the last duration of named frame phases plus a few counters,
// and averages them over the reporting window.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Totals     map[string]time.Duration
	Counts     map[string]int
	Order      []string
	Frames     int
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Totals:     make(map[string]time.Duration),
		Counts:     make(map[string]int),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if _, ok := p.Totals[name]; !ok {
		p.Order = append(p.Order, name)
		p.Totals[name] = 0
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		d := time.Since(start)
		p.Scopes[name] = d
		p.Totals[name] += d
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// EndFrame closes one frame of the reporting window.
func (p *Profiler) EndFrame() {
	p.Frames++
}

// Reset starts a new reporting window. Scope order is kept.
func (p *Profiler) Reset() {
	for k := range p.Totals {
		p.Totals[k] = 0
	}
	p.Frames = 0
}

// Summary is a one-line report of the average phase times and the counters.
func (p *Profiler) Summary() string {
	var sb strings.Builder
	frames := max(p.Frames, 1)
	for i, name := range p.Order {
		if i > 0 {
			sb.WriteString(" ")
		}
		avg := p.Totals[name] / time.Duration(frames)
		fmt.Fprintf(&sb, "%s=%.2fms", name, float64(avg.Microseconds())/1000)
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, p.Counts[k])
	}
	return sb.String()
}
