package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"moneypro/internal/investment"
	"moneypro/internal/monitoring"
	"moneypro/pkg/logger"
)

// Accruer pays investment profits that have come due.
type Accruer interface {
	AccrueProfits(ctx context.Context) (*investment.AccrualReport, error)
}

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	accruer Accruer
	logger  logger.Logger
	timeout time.Duration
}

// NewScheduler registers the profit accrual job on schedule. Overlapping runs
// are skipped while a previous run is still in progress.
func NewScheduler(accruer Accruer, schedule string, log logger.Logger) (*Scheduler, error) {
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		accruer: accruer,
		logger:  log,
		timeout: 30 * time.Minute,
	}

	if _, err := s.cron.AddFunc(schedule, s.RunAccrual); err != nil {
		return nil, fmt.Errorf("invalid accrual schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", map[string]interface{}{
		"jobs": len(s.cron.Entries()),
	})
}

// Stop prevents new runs and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped", nil)
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with a job still running", nil)
	}
}

// RunAccrual performs one accrual pass.
func (s *Scheduler) RunAccrual() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.accruer.AccrueProfits(ctx)
	if err != nil {
		monitoring.ProfitAccrualsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Profit accrual run failed", map[string]interface{}{
			"error": err,
		})
		return
	}

	outcome := "success"
	if report.Failed > 0 {
		outcome = "partial"
	}
	monitoring.ProfitAccrualsTotal.WithLabelValues(outcome).Inc()
}

// cronLogger routes cron's own messages to the service logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	f := fields(keysAndValues)
	f["error"] = err
	l.log.Error("cron: "+msg, f)
}

func fields(kv []interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
