package jobs

import (
	"fmt"

	"github.com/hibiken/asynq"
)

// RegisterPeriodic schedules the fan-out sync on a cron expression
func RegisterPeriodic(s *asynq.Scheduler, cronSpec string) (string, error) {
	id, err := s.Register(cronSpec, NewSyncAllTask())
	if err != nil {
		return "", fmt.Errorf("register periodic sync %q: %w", cronSpec, err)
	}
	return id, nil
}
