package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DisplayValues are synthesized for the dashboard chrome. They never come
// from the store and are reported under their own key.
type DisplayValues struct {
	Synthetic          bool    `json:"synthetic"`
	ServerStarted      string  `json:"server_started"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	MemoryTotal        string  `json:"memory_total"`
}

const (
	initialMemoryPercent = 6
	memoryTotalLabel     = "2.0 GB"
)

// DisplaySynthesizer walks the memory gauge by at most one point per call
// and keeps it within [0, 100].
type DisplaySynthesizer struct {
	mu        sync.Mutex
	rng       *rand.Rand
	memory    float64
	startedAt time.Time
	now       func() time.Time
}

func NewDisplaySynthesizer(src rand.Source, startedAt time.Time) *DisplaySynthesizer {
	return &DisplaySynthesizer{
		rng:       rand.New(src),
		memory:    initialMemoryPercent,
		startedAt: startedAt,
		now:       time.Now,
	}
}

func (d *DisplaySynthesizer) Next() DisplayValues {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.memory += d.rng.Float64()*2 - 1
	if d.memory < 0 {
		d.memory = 0
	}
	if d.memory > 100 {
		d.memory = 100
	}

	return DisplayValues{
		Synthetic:          true,
		ServerStarted:      humanizeSince(d.now().Sub(d.startedAt)),
		MemoryUsagePercent: float64(int(d.memory*10)) / 10,
		MemoryTotal:        memoryTotalLabel,
	}
}

func humanizeSince(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
