package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kokare-darshan/quickconnect/internal/model"
)

type DeviceSessionRepository interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.DeviceSession, error)
	Create(ctx context.Context, params model.CreateDeviceSessionParams) (*model.DeviceSession, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type deviceSessionRepo struct {
	db *sqlx.DB
}

func NewDeviceSessionRepository(db *sqlx.DB) DeviceSessionRepository {
	return &deviceSessionRepo{db: db}
}

func (r *deviceSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.DeviceSession, error) {
	var session model.DeviceSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM device_sessions
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash)
	return handleNotFound(&session, err)
}

func (r *deviceSessionRepo) Create(ctx context.Context, params model.CreateDeviceSessionParams) (*model.DeviceSession, error) {
	var session model.DeviceSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO device_sessions (user_id, device_id, device_name, token_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.UserID, params.DeviceID, params.DeviceName, params.TokenHash, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *deviceSessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM device_sessions WHERE id = $1
	`, id)
	return err
}

func (r *deviceSessionRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM device_sessions WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *deviceSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM device_sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
