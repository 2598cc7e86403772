package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertStravaAccount = `-- name: UpsertStravaAccount :exec
INSERT INTO strava_accounts (user_id, athlete_id, access_token, refresh_token, token_expiry)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE
SET athlete_id = EXCLUDED.athlete_id,
    access_token = EXCLUDED.access_token,
    refresh_token = EXCLUDED.refresh_token,
    token_expiry = EXCLUDED.token_expiry
`

type UpsertStravaAccountParams struct {
	UserID       uuid.UUID          `json:"user_id"`
	AthleteID    int64              `json:"athlete_id"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenExpiry  pgtype.Timestamptz `json:"token_expiry"`
}

func (q *Queries) UpsertStravaAccount(ctx context.Context, arg UpsertStravaAccountParams) error {
	_, err := q.db.Exec(ctx, upsertStravaAccount,
		arg.UserID,
		arg.AthleteID,
		arg.AccessToken,
		arg.RefreshToken,
		arg.TokenExpiry,
	)
	return err
}

const getStravaAccount = `-- name: GetStravaAccount :one
SELECT user_id, athlete_id, access_token, refresh_token, token_expiry, last_sync, created_at
FROM strava_accounts
WHERE user_id = $1
`

func (q *Queries) GetStravaAccount(ctx context.Context, userID uuid.UUID) (StravaAccount, error) {
	row := q.db.QueryRow(ctx, getStravaAccount, userID)
	var i StravaAccount
	err := row.Scan(
		&i.UserID,
		&i.AthleteID,
		&i.AccessToken,
		&i.RefreshToken,
		&i.TokenExpiry,
		&i.LastSync,
		&i.CreatedAt,
	)
	return i, err
}

const updateStravaTokens = `-- name: UpdateStravaTokens :exec
UPDATE strava_accounts
SET access_token = $2, refresh_token = $3, token_expiry = $4
WHERE user_id = $1
`

type UpdateStravaTokensParams struct {
	UserID       uuid.UUID          `json:"user_id"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenExpiry  pgtype.Timestamptz `json:"token_expiry"`
}

func (q *Queries) UpdateStravaTokens(ctx context.Context, arg UpdateStravaTokensParams) error {
	_, err := q.db.Exec(ctx, updateStravaTokens,
		arg.UserID,
		arg.AccessToken,
		arg.RefreshToken,
		arg.TokenExpiry,
	)
	return err
}

const updateStravaLastSync = `-- name: UpdateStravaLastSync :exec
UPDATE strava_accounts
SET last_sync = $2
WHERE user_id = $1
`

type UpdateStravaLastSyncParams struct {
	UserID   uuid.UUID          `json:"user_id"`
	LastSync pgtype.Timestamptz `json:"last_sync"`
}

func (q *Queries) UpdateStravaLastSync(ctx context.Context, arg UpdateStravaLastSyncParams) error {
	_, err := q.db.Exec(ctx, updateStravaLastSync, arg.UserID, arg.LastSync)
	return err
}

const deleteStravaAccount = `-- name: DeleteStravaAccount :exec
DELETE FROM strava_accounts WHERE user_id = $1
`

func (q *Queries) DeleteStravaAccount(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteStravaAccount, userID)
	return err
}

const listConnectedUsers = `-- name: ListConnectedUsers :many
SELECT user_id FROM strava_accounts
ORDER BY user_id
`

func (q *Queries) ListConnectedUsers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listConnectedUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uuid.UUID
	for rows.Next() {
		var user_id uuid.UUID
		if err := rows.Scan(&user_id); err != nil {
			return nil, err
		}
		items = append(items, user_id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
