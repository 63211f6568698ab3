package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// maxTrackedJobs bounds how many jobs keep their log in memory.
const maxTrackedJobs = 256

type LogLine struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// ring keeps the last cap lines of one job.
type ring struct {
	lines []LogLine
	next  int
	full  bool
}

func (r *ring) add(line LogLine) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() []LogLine {
	if !r.full {
		return append([]LogLine(nil), r.lines[:r.next]...)
	}
	out := make([]LogLine, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	return append(out, r.lines[:r.next]...)
}

type logBook struct {
	mu    sync.Mutex
	cap   int
	jobs  map[int64]*ring
	order []int64
}

func newLogBook(capacity int) *logBook {
	return &logBook{cap: capacity, jobs: make(map[int64]*ring)}
}

func (b *logBook) addf(jobID int64, now time.Time, format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, found := b.jobs[jobID]
	if !found {
		if len(b.order) == maxTrackedJobs {
			delete(b.jobs, b.order[0])
			b.order = b.order[1:]
		}
		r = &ring{lines: make([]LogLine, b.cap)}
		b.jobs[jobID] = r
		b.order = append(b.order, jobID)
	}
	r.add(LogLine{Time: now, Message: fmt.Sprintf(format, args...)})
}

func (b *logBook) get(jobID int64) []LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, found := b.jobs[jobID]
	if !found {
		return []LogLine{}
	}
	return r.snapshot()
}
