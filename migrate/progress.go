package migrate

import (
	"log/slog"
	"time"
)

// Stats summarizes a migration.
type Stats struct {
	Matched int // documents matching the filter when the run started
	Visited int
	Updated int
	Elapsed time.Duration
}

// Rate returns visited documents per second.
func (s Stats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Visited) / s.Elapsed.Seconds()
}

// progress logs a record every interval visited documents.
type progress struct {
	logger   *slog.Logger
	interval int
	started  time.Time
	next     int
	stats    Stats
}

func newProgress(logger *slog.Logger, matched, interval int) *progress {
	interval = max(interval, 1)
	return &progress{
		logger:   logger,
		interval: interval,
		started:  time.Now(),
		next:     interval,
		stats:    Stats{Matched: matched},
	}
}

func (p *progress) advance(visited, updated int) {
	p.stats.Visited += visited
	p.stats.Updated += updated
	p.stats.Elapsed = time.Since(p.started)
	if p.stats.Visited < p.next {
		return
	}
	for p.next <= p.stats.Visited {
		p.next += p.interval
	}

	percent := 100.0
	if p.stats.Matched > 0 {
		percent = min(100, float64(p.stats.Visited)/float64(p.stats.Matched)*100)
	}
	p.logger.Info("migration progress",
		"visited", p.stats.Visited,
		"matched", p.stats.Matched,
		"percent", int(percent),
		"docs_per_sec", int(p.stats.Rate()))
}

func (p *progress) finish() Stats {
	p.stats.Elapsed = time.Since(p.started)
	p.logger.Info("migration complete",
		"updated", p.stats.Updated,
		"visited", p.stats.Visited,
		"elapsed", p.stats.Elapsed.Round(time.Millisecond))
	return p.stats
}
