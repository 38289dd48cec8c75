package jobs

import (
	"github.com/robfig/cron/v3"

	"github.com/argus-sec/argus/internal/logger"
	"github.com/argus-sec/argus/internal/services"
)

// Scheduler runs periodic maintenance tasks in the background.
type Scheduler struct {
	cron        *cron.Cron
	authService *services.AuthService
}

func NewScheduler(authService *services.AuthService) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		authService: authService,
	}
}

// Start registers and launches the background jobs. Currently one task: an
// hourly sweep that clears refresh tokens that no longer parse or have
// expired.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweepRefreshTokens); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) sweepRefreshTokens() {
	swept, err := s.authService.SweepExpiredRefreshTokens()
	if err != nil {
		logger.Log().WithError(err).Error("refresh token sweep failed")
		return
	}
	if swept > 0 {
		logger.Log().WithField("swept", swept).Info("cleared expired refresh tokens")
	}
}
