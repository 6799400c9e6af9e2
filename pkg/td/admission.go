package td

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// AdmissionController is a fixed-size pool of permits, one per active
// session.
type AdmissionController struct {
	capacity    int64
	sem         *semaphore.Weighted
	outstanding atomic.Int64
}

func NewAdmissionController(capacity int) *AdmissionController {
	if capacity < 1 {
		capacity = 1
	}
	return &AdmissionController{
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// TryAcquire takes a permit, waiting at most `timeout` for one to free up. A
// non-positive timeout never waits. It returns false if no permit could be
// taken in time or if `ctx` ends first.
func (a *AdmissionController) TryAcquire(
	ctx context.Context,
	timeout time.Duration,
) bool {
	if timeout <= 0 {
		if !a.sem.TryAcquire(1) {
			return false
		}
	} else {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return false
		}
	}
	a.outstanding.Add(1)
	return true
}

// Release returns a permit to the pool. It panics if more permits are
// released than were acquired.
func (a *AdmissionController) Release() {
	if a.outstanding.Add(-1) < 0 {
		panic("td: admission permit released more times than acquired")
	}
	a.sem.Release(1)
}

func (a *AdmissionController) Outstanding() int {
	return int(a.outstanding.Load())
}

func (a *AdmissionController) Capacity() int { return int(a.capacity) }
