package room

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Sweeper periodically runs the expiry sweep. It stands in for the cron
// trigger a hosted platform would provide.
type Sweeper struct {
	svc   *Service
	sched gocron.Scheduler
}

func NewSweeper(svc *Service, interval time.Duration) (*Sweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := svc.ProcessExpired(); err != nil {
				zap.S().Errorf("room expiry sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Sweeper{svc: svc, sched: sched}, nil
}

func (s *Sweeper) Start() {
	s.sched.Start()
	zap.S().Info("room expiry sweeper started")
}

func (s *Sweeper) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		zap.S().Errorf("failed to stop room sweeper: %v", err)
	}
}
