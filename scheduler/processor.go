package scheduler

import (
	"errors"
	"sync"
	"time"

	"cloudscribe/pkg/logger"
	"cloudscribe/pkg/metrics"

	"github.com/google/uuid"
)

// ErrProcessorClosed is returned by Submit after Shutdown.
var ErrProcessorClosed = errors.New("scheduler: processor is shut down")

// JobFunc is a unit of background work. Arguments are captured by closure.
// A returned error is logged by the executor and never propagates; a panic
// is recovered the same way, so one bad job cannot take the processor down.
type JobFunc func() error

type job struct {
	id   string
	fn   JobFunc
	trig Trigger
	next time.Time
}

// Processor runs submitted jobs on its own background goroutine according
// to their triggers. Job execution is fire-and-forget: the scheduling loop
// dispatches each due job on a fresh goroutine and never waits for it.
type Processor struct {
	ID      string
	logging bool

	mu     sync.Mutex
	jobs   map[string]*job
	paused bool
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newProcessor(paused, logging bool) *Processor {
	p := &Processor{
		ID:      uuid.New().String(),
		logging: logging,
		jobs:    make(map[string]*job),
		paused:  paused,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run()

	mode := "active"
	if paused {
		mode = "paused"
	}
	p.log("Scheduler initialised in %s mode.", mode)
	return p
}

func (p *Processor) log(format string, args ...interface{}) {
	if p.logging {
		logger.Sugar.Infof("PROCESSOR %s: "+format, append([]interface{}{p.ID}, args...)...)
	}
}

// Submit registers a job and returns its ID. It never blocks on the job
// itself; the first firing happens on the scheduling goroutine's clock.
func (p *Processor) Submit(fn JobFunc, trig Trigger) (string, error) {
	if err := trig.validate(); err != nil {
		return "", err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrProcessorClosed
	}
	first, ok := trig.first(time.Now())
	if !ok {
		p.mu.Unlock()
		return "", ErrInvalidTrigger
	}
	id := uuid.New().String()
	p.jobs[id] = &job{id: id, fn: fn, trig: trig, next: first}
	p.mu.Unlock()

	p.wakeup()
	p.log("Job %s added with %s trigger.", id, trig)
	return id, nil
}

// Remove cancels future firings of the job; an in-flight execution is
// unaffected. Returns false if the ID is unknown.
func (p *Processor) Remove(id string) bool {
	p.mu.Lock()
	_, ok := p.jobs[id]
	delete(p.jobs, id)
	p.mu.Unlock()
	if ok {
		p.log("Job %s removed.", id)
	}
	return ok
}

// Pause suspends all future firings. In-flight executions finish normally.
func (p *Processor) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	p.wakeup()
	p.log("Scheduler paused.")
}

// Resume lifts a pause. Fire times that passed while paused fire
// immediately; there is no misfire grace period.
func (p *Processor) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.wakeup()
	p.log("Scheduler resumed.")
}

// Shutdown stops the scheduling goroutine and discards pending jobs.
// Already-running jobs are allowed to finish. Idempotent.
func (p *Processor) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.jobs = make(map[string]*job)
	p.mu.Unlock()

	close(p.done)
	p.log("Scheduler shutdown.")
}

func (p *Processor) wakeup() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run is the scheduling loop: sleep until the earliest fire time, dispatch
// everything due, repeat. Submit/Pause/Resume poke it through wake.
func (p *Processor) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		now := time.Now()
		var due []*job

		p.mu.Lock()
		if !p.paused {
			for id, j := range p.jobs {
				if !j.next.After(now) {
					due = append(due, j)
					if next, ok := j.trig.next(j.next, now); ok {
						j.next = next
					} else {
						delete(p.jobs, id)
					}
				}
			}
		}
		var nextAt time.Time
		if !p.paused {
			for _, j := range p.jobs {
				if nextAt.IsZero() || j.next.Before(nextAt) {
					nextAt = j.next
				}
			}
		}
		p.mu.Unlock()

		for _, j := range due {
			go p.execute(j)
		}

		wait := time.Hour // idle, until woken
		if !nextAt.IsZero() {
			wait = time.Until(nextAt)
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-p.done:
			return
		case <-p.wake:
		case <-timer.C:
		}
	}
}

func (p *Processor) execute(j *job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.JobPanics.Inc()
			logger.Sugar.Errorf("PROCESSOR %s: Job %s panicked: %v", p.ID, j.id, r)
		}
	}()

	metrics.JobsDispatched.Inc()
	if err := j.fn(); err != nil {
		logger.Sugar.Errorf("PROCESSOR %s: Job %s failed: %v", p.ID, j.id, err)
	}
}
