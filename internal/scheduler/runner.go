// Package scheduler runs named recurring jobs on fixed intervals.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one recurring unit of work. Run must respect ctx cancellation.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context)
}

// Runner drives a fixed set of jobs, one goroutine per job. A job that
// panics or takes long never stalls the others.
type Runner struct {
	jobs []Job

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner returns a Runner owning the given jobs. Jobs with a
// non-positive interval are dropped with a log line.
func NewRunner(jobs ...Job) *Runner {
	kept := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Every <= 0 || j.Run == nil {
			log.Printf("scheduler: dropping misconfigured job %q", j.Name)
			continue
		}
		kept = append(kept, j)
	}
	return &Runner{jobs: kept}
}

// Start launches every job loop. Calling Start on a running Runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, j)
	}
	log.Printf("scheduler: started %d jobs", len(r.jobs))
}

// Stop cancels all job loops and waits for in-flight runs to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	log.Printf("scheduler: stopped")
}

func (r *Runner) loop(ctx context.Context, j Job) {
	defer r.wg.Done()
	ticker := time.NewTicker(j.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.invoke(ctx, j)
		}
	}
}

func (r *Runner) invoke(ctx context.Context, j Job) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("scheduler: job %q panicked: %v", j.Name, p)
		}
	}()
	j.Run(ctx)
}
