package verification

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs MemoryStore.Sweep on a cron schedule.
type Sweeper struct {
	store    *MemoryStore
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewSweeper(store *MemoryStore, schedule string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With(zap.String("component", "verification_sweeper")),
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if removed := s.store.Sweep(); removed > 0 {
			s.logger.Debug("expired verification codes swept", zap.Int("removed", removed))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("verification sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("verification sweeper stopped")
}
