package missingfonts

import (
	"slices"
	"sync"
)

// TransactionStarter begins installing packages asynchronously. It must not
// block; completion is reported through InstallQueue.Finish.
type TransactionStarter func(packages []string)

// InstallQueue batches package names so that at most one install transaction
// runs at a time. Names queued while a transaction is in flight go into the
// next one.
type InstallQueue struct {
	mu       sync.Mutex
	pending  []string
	inFlight []string
	active   bool
	start    TransactionStarter
}

func NewInstallQueue(start TransactionStarter) *InstallQueue {
	return &InstallQueue{start: start}
}

// Enqueue adds names for the next transaction. A name already pending is not
// added twice.
func (q *InstallQueue) Enqueue(names ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, n := range names {
		if n != "" && !slices.Contains(q.pending, n) {
			q.pending = append(q.pending, n)
		}
	}
}

// Drain starts a transaction with everything pending unless one is already
// running or nothing is pending. It reports whether it started one.
func (q *InstallQueue) Drain() bool {
	q.mu.Lock()
	if q.active || len(q.pending) == 0 {
		q.mu.Unlock()
		return false
	}
	batch := q.pending
	q.pending = nil
	q.inFlight = batch
	q.active = true
	q.mu.Unlock()

	debugf("Starting install transaction for %v\n", batch)
	q.start(batch)
	return true
}

// Finish marks the running transaction done, whatever its outcome, and drains
// whatever accumulated meanwhile.
func (q *InstallQueue) Finish() bool {
	q.mu.Lock()
	q.active = false
	q.inFlight = nil
	q.mu.Unlock()
	return q.Drain()
}

// Active reports whether a transaction is in flight.
func (q *InstallQueue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Pending returns a copy of the names waiting for the next transaction.
func (q *InstallQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.pending)
}

// InFlight returns a copy of the names in the running transaction.
func (q *InstallQueue) InFlight() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.inFlight)
}
