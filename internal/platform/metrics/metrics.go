package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks request-level and booking-level counters without
// locks; Snapshot is what the admin endpoint serves.
type Collector struct {
	totalRequests    uint64
	errorRequests    uint64
	rateLimited      uint64
	totalDurationMs  uint64
	bookingsCreated  uint64
	bookingsDeclined uint64
	slotConflicts    uint64
	remindersEmitted uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) BookingCreated() {
	atomic.AddUint64(&c.bookingsCreated, 1)
}

func (c *Collector) BookingDeclined() {
	atomic.AddUint64(&c.bookingsDeclined, 1)
}

func (c *Collector) SlotConflict() {
	atomic.AddUint64(&c.slotConflicts, 1)
}

func (c *Collector) RemindersEmitted(count int) {
	if count > 0 {
		atomic.AddUint64(&c.remindersEmitted, uint64(count))
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal": atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":    avg,
		"bookingsCreated":  atomic.LoadUint64(&c.bookingsCreated),
		"bookingsDeclined": atomic.LoadUint64(&c.bookingsDeclined),
		"slotConflicts":    atomic.LoadUint64(&c.slotConflicts),
		"remindersEmitted": atomic.LoadUint64(&c.remindersEmitted),
	}
}
