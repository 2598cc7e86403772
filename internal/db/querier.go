package db

import (
	"context"

	"github.com/google/uuid"
)

type Querier interface {
	AttachTag(ctx context.Context, arg AttachTagParams) (int64, error)
	CopyLaps(ctx context.Context, arg []Lap) (int64, error)
	CopyTrackPoints(ctx context.Context, arg []TrackPoint) (int64, error)
	CreateTag(ctx context.Context, arg CreateTagParams) (Tag, error)
	CreateTraining(ctx context.Context, arg CreateTrainingParams) (Training, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	DeleteLaps(ctx context.Context, trainingID uuid.UUID) error
	DeleteStravaAccount(ctx context.Context, userID uuid.UUID) error
	DeleteTag(ctx context.Context, arg DeleteTagParams) (int64, error)
	DeleteTrackPoints(ctx context.Context, trainingID uuid.UUID) error
	DeleteTraining(ctx context.Context, arg DeleteTrainingParams) (int64, error)
	DetachTag(ctx context.Context, arg DetachTagParams) (int64, error)
	GetFitFile(ctx context.Context, trainingID uuid.UUID) (FitFile, error)
	GetStravaAccount(ctx context.Context, userID uuid.UUID) (StravaAccount, error)
	GetTraining(ctx context.Context, arg GetTrainingParams) (Training, error)
	GetTrainingByID(ctx context.Context, id uuid.UUID) (Training, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListConnectedUsers(ctx context.Context) ([]uuid.UUID, error)
	ListLaps(ctx context.Context, trainingID uuid.UUID) ([]Lap, error)
	ListTags(ctx context.Context, userID uuid.UUID) ([]Tag, error)
	ListTagsForTraining(ctx context.Context, trainingID uuid.UUID) ([]Tag, error)
	ListTrackPoints(ctx context.Context, trainingID uuid.UUID) ([]TrackPoint, error)
	ListTrainingTagsByUser(ctx context.Context, userID uuid.UUID) ([]ListTrainingTagsByUserRow, error)
	ListTrainingsByUser(ctx context.Context, userID uuid.UUID) ([]Training, error)
	MarkFitFileProcessed(ctx context.Context, trainingID uuid.UUID) error
	SetTrainingFitData(ctx context.Context, arg SetTrainingFitDataParams) error
	StoreFitFile(ctx context.Context, arg StoreFitFileParams) error
	UpdateStravaLastSync(ctx context.Context, arg UpdateStravaLastSyncParams) error
	UpdateStravaTokens(ctx context.Context, arg UpdateStravaTokensParams) error
	UpdateTrainingDetails(ctx context.Context, arg UpdateTrainingDetailsParams) (Training, error)
	UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error)
	UpsertStravaAccount(ctx context.Context, arg UpsertStravaAccountParams) error
	UpsertStravaTraining(ctx context.Context, arg UpsertStravaTrainingParams) (uuid.UUID, error)
}

var _ Querier = (*Queries)(nil)
