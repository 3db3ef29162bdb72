package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/config"
)

const jobRunTimeout = 5 * time.Minute

// Job takes the daily snapshot on a cron schedule evaluated in UTC.
type Job struct {
	svc      *Service
	log      *zap.SugaredLogger
	clock    clock.Clock
	schedule string
	cron     *cron.Cron
	stopOnce sync.Once
}

// NewJob builds the job. An empty schedule disables it.
func NewJob(svc *Service, log *zap.SugaredLogger, clk clock.Clock, cfg *config.Config) (*Job, error) {
	j := &Job{
		svc:      svc,
		log:      log,
		clock:    clk,
		schedule: cfg.Subscription.SnapshotSchedule,
	}
	if j.schedule == "" {
		return j, nil
	}
	j.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := j.cron.AddFunc(j.schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", j.schedule, err)
	}
	return j, nil
}

func (j *Job) Start() {
	if j.cron == nil {
		j.log.Infow("snapshot job disabled")
		return
	}
	j.cron.Start()
	j.log.Infow("snapshot job started", "schedule", j.schedule)
}

// Stop waits for an in-flight run. Safe to call more than once.
func (j *Job) Stop() {
	if j.cron == nil {
		return
	}
	j.stopOnce.Do(func() {
		<-j.cron.Stop().Done()
		j.log.Infow("snapshot job stopped")
	})
}

// RunOnce takes the snapshot for the current date.
func (j *Job) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), jobRunTimeout)
	defer cancel()
	res, err := j.svc.SnapshotAll(ctx, j.clock.Now())
	if err != nil {
		j.log.Errorw("snapshot job failed", "err", err)
		return
	}
	j.log.Infow("snapshot taken", "date", res.Date, "salons", res.Salons, "status_expired", res.StatusExpired)
}

func registerJob(lc fx.Lifecycle, j *Job) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			j.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			j.Stop()
			return nil
		},
	})
}
