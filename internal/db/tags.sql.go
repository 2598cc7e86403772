package db

import (
	"context"

	"github.com/google/uuid"
)

const createTag = `-- name: CreateTag :one
INSERT INTO tags (user_id, name, color)
VALUES ($1, $2, $3)
RETURNING id, user_id, name, color, created_at
`

type CreateTagParams struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Color  string    `json:"color"`
}

func (q *Queries) CreateTag(ctx context.Context, arg CreateTagParams) (Tag, error) {
	row := q.db.QueryRow(ctx, createTag, arg.UserID, arg.Name, arg.Color)
	var i Tag
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Color,
		&i.CreatedAt,
	)
	return i, err
}

const listTags = `-- name: ListTags :many
SELECT id, user_id, name, color, created_at FROM tags
WHERE user_id = $1
ORDER BY name
`

func (q *Queries) ListTags(ctx context.Context, userID uuid.UUID) ([]Tag, error) {
	rows, err := q.db.Query(ctx, listTags, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tag
	for rows.Next() {
		var i Tag
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Color,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTag = `-- name: DeleteTag :execrows
DELETE FROM tags
WHERE id = $1 AND user_id = $2
`

type DeleteTagParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) DeleteTag(ctx context.Context, arg DeleteTagParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteTag, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const attachTag = `-- name: AttachTag :execrows
INSERT INTO training_tags (training_id, tag_id)
SELECT t.id, g.id
FROM trainings t, tags g
WHERE t.id = $1 AND g.id = $2 AND t.user_id = $3 AND g.user_id = $3
ON CONFLICT DO NOTHING
`

type AttachTagParams struct {
	TrainingID uuid.UUID `json:"training_id"`
	TagID      uuid.UUID `json:"tag_id"`
	UserID     uuid.UUID `json:"user_id"`
}

// AttachTag returns 0 rows when either side is missing or owned by someone else,
// and also when the tag was already attached.
func (q *Queries) AttachTag(ctx context.Context, arg AttachTagParams) (int64, error) {
	result, err := q.db.Exec(ctx, attachTag, arg.TrainingID, arg.TagID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const detachTag = `-- name: DetachTag :execrows
DELETE FROM training_tags tt
USING trainings t
WHERE tt.training_id = t.id
  AND tt.training_id = $1 AND tt.tag_id = $2 AND t.user_id = $3
`

type DetachTagParams struct {
	TrainingID uuid.UUID `json:"training_id"`
	TagID      uuid.UUID `json:"tag_id"`
	UserID     uuid.UUID `json:"user_id"`
}

func (q *Queries) DetachTag(ctx context.Context, arg DetachTagParams) (int64, error) {
	result, err := q.db.Exec(ctx, detachTag, arg.TrainingID, arg.TagID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listTrainingTagsByUser = `-- name: ListTrainingTagsByUser :many
SELECT tt.training_id, g.id, g.user_id, g.name, g.color, g.created_at
FROM training_tags tt
JOIN tags g ON g.id = tt.tag_id
WHERE g.user_id = $1
ORDER BY g.name
`

type ListTrainingTagsByUserRow struct {
	TrainingID uuid.UUID `json:"training_id"`
	Tag        Tag       `json:"tag"`
}

func (q *Queries) ListTrainingTagsByUser(ctx context.Context, userID uuid.UUID) ([]ListTrainingTagsByUserRow, error) {
	rows, err := q.db.Query(ctx, listTrainingTagsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListTrainingTagsByUserRow
	for rows.Next() {
		var i ListTrainingTagsByUserRow
		if err := rows.Scan(
			&i.TrainingID,
			&i.Tag.ID,
			&i.Tag.UserID,
			&i.Tag.Name,
			&i.Tag.Color,
			&i.Tag.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTagsForTraining = `-- name: ListTagsForTraining :many
SELECT g.id, g.user_id, g.name, g.color, g.created_at
FROM training_tags tt
JOIN tags g ON g.id = tt.tag_id
WHERE tt.training_id = $1
ORDER BY g.name
`

func (q *Queries) ListTagsForTraining(ctx context.Context, trainingID uuid.UUID) ([]Tag, error) {
	rows, err := q.db.Query(ctx, listTagsForTraining, trainingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Tag
	for rows.Next() {
		var i Tag
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Color,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
