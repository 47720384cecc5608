package sim

import "github.com/sirupsen/logrus"

// ResourcePool models a fixed number of interchangeable servers.
// Units are granted first-come-first-served: a requester that finds every
// unit held joins the wait queue and is resumed, in arrival order, by a
// later release. The pool is only touched from the single event loop, so
// it carries no locking.
type ResourcePool struct {
	capacity int
	held     int
	waiters  []*JobProcess // FIFO queue of suspended requesters

	PeakHeld    int // max units held simultaneously
	PeakWaiting int // max length of the wait queue
}

// NewResourcePool creates a pool with the given number of units.
func NewResourcePool(capacity int) (*ResourcePool, error) {
	if capacity < 1 {
		return nil, configError("pool capacity must be >= 1, got %d", capacity)
	}
	return &ResourcePool{capacity: capacity}, nil
}

// Capacity returns the number of units in the pool.
func (p *ResourcePool) Capacity() int {
	return p.capacity
}

// Held returns the number of units currently granted.
func (p *ResourcePool) Held() int {
	return p.held
}

// Waiting returns the number of suspended requesters.
func (p *ResourcePool) Waiting() int {
	return len(p.waiters)
}

// Request grants a unit to proc if one is free and reports true; the caller
// continues without suspending. Otherwise proc is appended to the wait queue
// and Request reports false.
func (p *ResourcePool) Request(proc *JobProcess) bool {
	if p.held < p.capacity {
		p.held++
		p.PeakHeld = max(p.PeakHeld, p.held)
		return true
	}
	p.waiters = append(p.waiters, proc)
	p.PeakWaiting = max(p.PeakWaiting, len(p.waiters))
	return false
}

// Release returns a unit to the pool. If a requester is waiting, the unit is
// handed straight to the head of the queue and its resumption is scheduled
// at the current clock.
func (p *ResourcePool) Release(sim *Simulator) error {
	if p.held == 0 {
		return newSimError(ErrResourceInvariant, sim.Clock.Now(), "release with no units held (capacity %d)", p.capacity)
	}
	p.held--
	if len(p.waiters) == 0 {
		return nil
	}

	next := p.waiters[0]
	p.waiters[0] = nil
	p.waiters = p.waiters[1:]
	p.held++

	logrus.Debugf("[tick %07d] Granting unit to job %d (%d still waiting)", sim.Clock.Now(), next.Job.Index, len(p.waiters))
	return sim.Schedule(sim.NewGrantEvent(sim.Clock.Now(), next))
}
