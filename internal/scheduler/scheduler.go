// Package scheduler runs named jobs at fixed intervals. A job never overlaps
// with itself: ticks and manual triggers arriving while it runs are skipped.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Errors returned by the scheduler.
var (
	ErrBusy        = errors.New("task is already running")
	ErrUnknownTask = errors.New("unknown task")
	ErrStarted     = errors.New("scheduler already started")
	ErrStopped     = errors.New("scheduler stopped")
)

// Job is the work of a task.
type Job func(ctx context.Context) error

// Status describes a task.
type Status struct {
	Name         string    `json:"name"`
	Interval     string    `json:"interval"`
	Running      bool      `json:"running"`
	Runs         int       `json:"runs"`
	Skipped      int       `json:"skipped"`
	LastStarted  time.Time `json:"lastStarted,omitempty"`
	LastFinished time.Time `json:"lastFinished,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
}

type task struct {
	name     string
	interval time.Duration
	job      Job
	running  int32

	mu     sync.Mutex
	status Status
}

// Scheduler owns a set of tasks.
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	order   []string
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler without tasks.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*task)}
}

// Every registers `job` to run every `interval` once the scheduler is started.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.started:
		return ErrStarted
	case interval <= 0:
		return errors.Errorf("invalid interval %s for task %s", interval, name)
	case job == nil:
		return errors.Errorf("no job for task %s", name)
	}
	if _, ok := s.tasks[name]; ok {
		return errors.Errorf("task %s already registered", name)
	}
	s.tasks[name] = &task{
		name:     name,
		interval: interval,
		job:      job,
		status:   Status{Name: name, Interval: interval.String()},
	}
	s.order = append(s.order, name)
	return nil
}

// Start launches one loop per task. The loops end when `ctx` is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		t := s.tasks[name]
		s.wg.Add(1)
		go s.loop(ctx, t)
		log.WithField("task", t.name).WithField("interval", t.interval.String()).Info("Scheduled task")
	}
	return nil
}

// Trigger runs a task now on the calling goroutine and returns its error.
// ErrBusy is returned when the task is already running, ErrStopped once Stop was called.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	t, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		return errors.Wrap(ErrUnknownTask, name)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	return s.run(ctx, t, "trigger")
}

// Stop cancels the task loops and waits for running jobs to return.
// Later triggers are refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Status returns the state of all tasks in registration order.
func (s *Scheduler) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		t := s.tasks[name]
		t.mu.Lock()
		status := t.status
		t.mu.Unlock()
		status.Running = atomic.LoadInt32(&t.running) == 1
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.run(ctx, t, "tick"); err != nil && err != ErrBusy {
					log.WithError(err).WithField("task", t.name).Error("Scheduled task failed")
				}
			}()
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t *task, trigger string) error {
	logger := log.WithField("task", t.name).WithField("trigger", trigger)
	if !atomic.CompareAndSwapInt32(&t.running, 0, 1) {
		t.mu.Lock()
		t.status.Skipped++
		t.mu.Unlock()
		logger.Warning("Task still running, skipping")
		return ErrBusy
	}
	defer atomic.StoreInt32(&t.running, 0)

	started := time.Now()
	t.mu.Lock()
	t.status.LastStarted = started
	t.mu.Unlock()
	logger.Debug("Task started")

	err := t.job(ctx)

	t.mu.Lock()
	t.status.Runs++
	t.status.LastFinished = time.Now()
	t.status.LastError = ""
	if err != nil {
		t.status.LastError = err.Error()
	}
	t.mu.Unlock()
	logger.WithField("elapsed", time.Since(started).String()).Debug("Task finished")
	return err
}
