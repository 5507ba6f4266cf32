package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	JobHorizonRoll   = "horizon_roll"
	JobReminderBatch = "reminder_batch"
)

type RunFunc func(context.Context) (any, error)

type job struct {
	Type string
	Run  RunFunc
}

// Run is one recorded execution, kept for the admin job log.
type Run struct {
	Type       string    `json:"jobType"`
	Status     string    `json:"status"`
	Details    any       `json:"details,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Service runs maintenance jobs on a single worker goroutine: the daily
// slot-horizon roll and the reminder dispatch batch. The horizon roll is
// the only operation that may briefly exclude new bookings, so keeping
// one worker also serializes maintenance against itself.
type Service struct {
	queue    chan job
	mu       sync.Mutex
	handlers map[string]RunFunc
	history  []Run
}

func New() *Service {
	return &Service{
		queue:    make(chan job, 32),
		handlers: make(map[string]RunFunc),
	}
}

// Register binds a job type to its handler and an optional recurring
// interval.
func (s *Service) Register(jobType string, run RunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = run
}

func (s *Service) Start(ctx context.Context, intervals map[string]time.Duration) {
	go s.worker(ctx)
	for jobType, interval := range intervals {
		if interval <= 0 {
			continue
		}
		go s.schedule(ctx, jobType, interval)
	}
}

func (s *Service) Enqueue(jobType string) {
	run, ok := s.handler(jobType)
	if !ok {
		slog.Warn("unknown job type", "jobType", jobType)
		return
	}
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow executes a job synchronously; used by the admin trigger
// endpoint.
func (s *Service) RunNow(ctx context.Context, jobType string) (any, error) {
	run, ok := s.handler(jobType)
	if !ok {
		return nil, ErrUnknownJob
	}
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) History(limit int) []Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Run, len(s.history))
	copy(out, s.history)
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Service) handler(jobType string) (RunFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.handlers[jobType]
	return run, ok
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) schedule(ctx context.Context, jobType string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	record := Run{Type: j.Type, Status: "completed", StartedAt: time.Now().UTC()}

	details, err := j.Run(ctx)
	record.FinishedAt = time.Now().UTC()
	record.Details = details
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
	}

	s.mu.Lock()
	s.history = append(s.history, record)
	if len(s.history) > 256 {
		s.history = s.history[len(s.history)-256:]
	}
	s.mu.Unlock()

	return details, err
}
