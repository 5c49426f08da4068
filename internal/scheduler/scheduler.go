package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"TimingTerminal/internal/notifier"
	"TimingTerminal/internal/pipeline"
)

// ErrStopped is returned for runs requested after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Runner executes pipeline runs.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
	Last() *pipeline.Result
}

// Scheduler triggers pipeline runs on a cron schedule and on demand.
// Runs never overlap.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Alerter notifier.Alerter
	Log     zerolog.Logger
	Ctx     context.Context

	mu sync.Mutex

	stateMu sync.Mutex
	stopped bool
	runs    sync.WaitGroup
}

// NewScheduler creates a new Scheduler. A nil alerter disables failure notices.
func NewScheduler(ctx context.Context, runner Runner, alerter notifier.Alerter, log zerolog.Logger) *Scheduler {
	if alerter == nil {
		alerter = notifier.NoopAlerter{}
	}
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Runner:  runner,
		Alerter: alerter,
		Log:     log,
		Ctx:     ctx,
	}
}

// Register adds the pipeline run under the given six-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.scheduledRun); err != nil {
		return fmt.Errorf("register pipeline run: %w", err)
	}
	s.Log.Info().Str("cron", spec).Msg("pipeline run registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Msg("scheduler started")
}

// Stop rejects new runs, stops the cron scheduler and waits until every
// accepted run, scheduled or on demand, has returned.
func (s *Scheduler) Stop() {
	s.stateMu.Lock()
	s.stopped = true
	s.stateMu.Unlock()

	<-s.Cron.Stop().Done()
	s.runs.Wait()
	s.Log.Info().Msg("scheduler stopped")
}

// begin registers a run unless the scheduler is stopped.
func (s *Scheduler) begin() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.stopped {
		return false
	}
	s.runs.Add(1)
	return true
}

// RunNow executes one run immediately, waiting for any run in progress.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.Result, error) {
	if !s.begin() {
		return nil, ErrStopped
	}
	defer s.runs.Done()
	return s.run(ctx)
}

// RunAsync starts one run in the background. Stop waits for it.
func (s *Scheduler) RunAsync(ctx context.Context) {
	if !s.begin() {
		s.Log.Warn().Msg("scheduler stopped, background run skipped")
		return
	}
	go func() {
		defer s.runs.Done()
		if _, err := s.run(ctx); err != nil {
			s.Log.Error().Err(err).Msg("background run failed")
		}
	}()
}

func (s *Scheduler) run(ctx context.Context) (*pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Runner.Run(ctx)
}

func (s *Scheduler) scheduledRun() {
	s.Log.Info().Msg("running scheduled pipeline")
	_, err := s.RunNow(s.Ctx)
	if err != nil && !errors.Is(err, ErrStopped) {
		s.trySend(notifier.FormatRunFailure(err))
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch fields[0] {
	case "/phase", "/status":
		return s.status(s.Runner.Last())
	case "/run":
		res, err := s.RunNow(ctx)
		if err != nil {
			return notifier.FormatRunFailure(err)
		}
		return s.status(res)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) status(res *pipeline.Result) string {
	if res == nil {
		return notifier.FormatStatus(nil, "", "", time.Time{})
	}
	return notifier.FormatStatus(res.Latest, res.Quality, res.Strategy, res.GeneratedAt)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Alerter.Alert(s.Ctx, text); err != nil {
		s.Log.Error().Err(err).Msg("send notification")
	}
}
