// Package scheduler runs screening scans on a cron schedule or on demand and
// hands every finished scan to the registered sinks.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"MarketScreener/internal/model"
	"MarketScreener/internal/report"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/universe"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrScanInProgress is returned when a scan is requested while one runs.
var ErrScanInProgress = errors.New("scan already in progress")

// Scanner runs one scan over a universe.
type Scanner interface {
	ScanUniverse(ctx context.Context, src screener.UniverseSource, progress screener.ProgressFunc) (*model.ScreenReport, error)
}

// Sink consumes finished scan results.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, res model.ScanResult) error
}

// Progress is a snapshot of the running scan.
type Progress struct {
	Running  bool    `json:"running"`
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}

// Scheduler manages the scan cron task and the latest result.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  Scanner
	Universe screener.UniverseSource
	Sinks    []Sink
	Ctx      context.Context

	running atomic.Bool
	listed  atomic.Bool // universe listed for the current scan
	done    atomic.Int64
	total   atomic.Int64

	mu     sync.RWMutex
	latest *model.ScanResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc Scanner, src screener.UniverseSource, sinks ...Sink) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Scanner:  sc,
		Universe: src,
		Sinks:    sinks,
		Ctx:      ctx,
	}
}

// Register adds the scan task under a six-field cron spec.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) scanTask() {
	if _, err := s.RunNow(s.Ctx); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			log.Warn().Msg("scheduled scan skipped, previous scan still running")
			return
		}
		log.Error().Err(err).Msg("scheduled scan")
	}
}

// Trigger starts a scan in the background. It fails only when a scan is
// already running.
func (s *Scheduler) Trigger() error {
	if !s.begin() {
		return ErrScanInProgress
	}
	go func() {
		if _, err := s.run(s.Ctx); err != nil {
			log.Error().Err(err).Msg("triggered scan")
		}
	}()
	return nil
}

// RunNow scans synchronously, stores the result and delivers it to every
// sink. Sink failures are logged and do not fail the scan.
func (s *Scheduler) RunNow(ctx context.Context) (model.ScanResult, error) {
	if !s.begin() {
		return model.ScanResult{}, ErrScanInProgress
	}
	return s.run(ctx)
}

// begin claims the single scan slot and clears the previous progress.
func (s *Scheduler) begin() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.listed.Store(false)
	s.done.Store(0)
	s.total.Store(0)
	return true
}

func (s *Scheduler) run(ctx context.Context) (model.ScanResult, error) {
	defer s.running.Store(false)

	res := model.ScanResult{StartedAt: time.Now()}
	log.Info().Msg("running scan")

	rep, err := s.Scanner.ScanUniverse(ctx, s.Universe, func(done, total int) {
		s.done.Store(int64(done))
		s.total.Store(int64(total))
		s.listed.Store(true)
	})
	res.FinishedAt = time.Now()
	res.Report = rep
	res.Scanned = int(s.total.Load())
	if rep != nil {
		res.Scanned = rep.Scanned
	}

	switch {
	case err == nil:
		res.Status = model.ScanCompleted
	case errors.Is(err, report.ErrEmptyResult):
		res.Status = model.ScanEmpty
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.Status = model.ScanCancelled
		res.Error = err.Error()
	default:
		res.Status = model.ScanFailed
		res.Error = err.Error()
	}

	s.mu.Lock()
	s.latest = &res
	s.mu.Unlock()

	deliverCtx := ctx
	if ctx.Err() != nil {
		deliverCtx = context.WithoutCancel(ctx)
	}
	for _, sink := range s.Sinks {
		if derr := sink.Deliver(deliverCtx, res); derr != nil {
			log.Error().Err(derr).Str("sink", sink.Name()).Msg("deliver scan result")
		}
	}

	switch res.Status {
	case model.ScanFailed:
		if errors.Is(err, universe.ErrUniverseUnavailable) {
			return res, err
		}
		return res, fmt.Errorf("scan: %w", err)
	case model.ScanCancelled:
		return res, err
	}
	return res, nil
}

// Latest returns the most recent scan result.
func (s *Scheduler) Latest() (model.ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return model.ScanResult{}, false
	}
	return *s.latest, true
}

// Progress reports the state of the current or last scan.
func (s *Scheduler) Progress() Progress {
	running := s.running.Load()
	done, total := int(s.done.Load()), int(s.total.Load())
	p := Progress{Running: running, Done: done, Total: total}
	if !running || s.listed.Load() {
		p.Fraction = screener.Fraction(done, total)
	}
	return p
}
