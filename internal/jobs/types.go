package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskSyncStravaUser = "sync:strava_user"
	TaskProcessFitFile = "process:fit_file"
	// TaskSyncAll fans out one TaskSyncStravaUser per connected account
	TaskSyncAll = "sync:all"
)

const (
	QueueSync    = "sync"
	QueueDefault = "default"
)

type SyncStravaPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	SinceUnix int64     `json:"since_unix,omitempty"`
}

type ProcessFitPayload struct {
	TrainingID uuid.UUID `json:"training_id"`
}

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewSyncStravaTask builds a sync for one user. A zero since means
// "continue from the last sync".
func NewSyncStravaTask(userID uuid.UUID, since time.Time) (*asynq.Task, error) {
	p := SyncStravaPayload{UserID: userID}
	if !since.IsZero() {
		p.SinceUnix = since.Unix()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal sync payload: %w", err)
	}
	return asynq.NewTask(TaskSyncStravaUser, payload,
		asynq.Queue(QueueSync),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}

func NewProcessFitTask(trainingID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessFitPayload{TrainingID: trainingID})
	if err != nil {
		return nil, fmt.Errorf("marshal fit payload: %w", err)
	}
	return asynq.NewTask(TaskProcessFitFile, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	), nil
}

func NewSyncAllTask() *asynq.Task {
	return asynq.NewTask(TaskSyncAll, nil, asynq.Queue(QueueSync), asynq.MaxRetry(1))
}
