package jobs

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a tracked run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is the tracked state of one run.
type Record[R any] struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Result     *R         `json:"result,omitempty"`
	Error      error      `json:"-"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Tracker keeps run records in memory. Finished records expire after ttl.
type Tracker[R any] struct {
	mu      sync.RWMutex
	records map[string]*Record[R]
	ttl     time.Duration
	now     func() time.Time
}

// NewTracker builds a tracker whose finished records live for ttl.
func NewTracker[R any](ttl time.Duration) *Tracker[R] {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Tracker[R]{records: make(map[string]*Record[R]), ttl: ttl, now: time.Now}
}

// Queued registers a new run.
func (t *Tracker[R]) Queued(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	t.records[id] = &Record[R]{ID: id, Status: StatusQueued, EnqueuedAt: t.now().UTC()}
}

// Running marks the run as picked up by a worker.
func (t *Tracker[R]) Running(id string) {
	t.update(id, func(r *Record[R], at time.Time) {
		r.Status = StatusRunning
		r.StartedAt = &at
	})
}

// Succeeded stores the run's result.
func (t *Tracker[R]) Succeeded(id string, result *R) {
	t.update(id, func(r *Record[R], at time.Time) {
		r.Status = StatusSucceeded
		r.Result = result
		r.FinishedAt = &at
	})
}

// Failed stores the error that ended the run.
func (t *Tracker[R]) Failed(id string, err error) {
	t.update(id, func(r *Record[R], at time.Time) {
		r.Status = StatusFailed
		r.Error = err
		r.FinishedAt = &at
	})
}

// Forget drops a record, for example when the job never made it onto the queue.
func (t *Tracker[R]) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
}

// Get returns a copy of the record if it exists and has not expired.
func (t *Tracker[R]) Get(id string) (Record[R], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	if !ok || t.expired(r) {
		return Record[R]{}, false
	}
	return *r, true
}

func (t *Tracker[R]) update(id string, fn func(*Record[R], time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[id]
	if !ok {
		return
	}
	fn(r, t.now().UTC())
}

func (t *Tracker[R]) expired(r *Record[R]) bool {
	return r.FinishedAt != nil && t.now().Sub(*r.FinishedAt) > t.ttl
}

// sweep must be called with the write lock held.
func (t *Tracker[R]) sweep() {
	for id, r := range t.records {
		if t.expired(r) {
			delete(t.records, id)
		}
	}
}
