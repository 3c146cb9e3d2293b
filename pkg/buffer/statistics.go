package buffer

import (
	"sync/atomic"
	"time"
)

// Statistics tracks buffer activity. All methods are safe for concurrent use.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	overflows atomic.Int64
	drops     atomic.Int64
	rejects   atomic.Int64

	currentSize atomic.Int64
	maxSize     atomic.Int64
	startTime   time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) write(size int) {
	s.writes.Add(1)
	s.updateSize(int64(size))
}

func (s *Statistics) read(size int) {
	s.reads.Add(1)
	s.updateSize(int64(size))
}

func (s *Statistics) overflow() { s.overflows.Add(1) }
func (s *Statistics) drop()     { s.drops.Add(1) }
func (s *Statistics) reject()   { s.rejects.Add(1) }

func (s *Statistics) updateSize(size int64) {
	s.currentSize.Store(size)
	for {
		peak := s.maxSize.Load()
		if size <= peak || s.maxSize.CompareAndSwap(peak, size) {
			return
		}
	}
}

// Writes returns the number of accepted items.
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the number of items handed out.
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Overflows returns how often a write found the buffer full.
func (s *Statistics) Overflows() int64 { return s.overflows.Load() }

// Drops returns the number of queued items evicted by DropOldest.
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// Rejects returns the number of incoming items refused by DropNewest or by a
// Block timeout.
func (s *Statistics) Rejects() int64 { return s.rejects.Load() }

// CurrentSize returns the last observed queue length.
func (s *Statistics) CurrentSize() int64 { return s.currentSize.Load() }

// MaxSize returns the high-water mark of the queue.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// Uptime returns how long the buffer has existed.
func (s *Statistics) Uptime() time.Duration { return time.Since(s.startTime) }

// StatsSummary is a point-in-time snapshot of Statistics.
type StatsSummary struct {
	Writes      int64         `json:"writes"`
	Reads       int64         `json:"reads"`
	Overflows   int64         `json:"overflows"`
	Drops       int64         `json:"drops"`
	Rejects     int64         `json:"rejects"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:      s.Writes(),
		Reads:       s.Reads(),
		Overflows:   s.Overflows(),
		Drops:       s.Drops(),
		Rejects:     s.Rejects(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		Uptime:      s.Uptime(),
	}
}
