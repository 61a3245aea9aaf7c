package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kokare-darshan/quickconnect/internal/model"
)

type AuthorizedDeviceRepository interface {
	Record(ctx context.Context, params model.RecordAuthorizedDeviceParams) (*model.AuthorizedDevice, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.AuthorizedDevice, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

type authorizedDeviceRepo struct {
	db *sqlx.DB
}

func NewAuthorizedDeviceRepository(db *sqlx.DB) AuthorizedDeviceRepository {
	return &authorizedDeviceRepo{db: db}
}

// Record inserts an authorization row. Re-authorizing the same device
// for the same user refreshes the existing row instead of adding a
// duplicate, so per-user counts stay accurate.
func (r *authorizedDeviceRepo) Record(ctx context.Context, params model.RecordAuthorizedDeviceParams) (*model.AuthorizedDevice, error) {
	var device model.AuthorizedDevice
	err := r.db.GetContext(ctx, &device, `
		INSERT INTO authorized_devices (user_id, device_id, device_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			device_name = EXCLUDED.device_name,
			authorized_at = NOW()
		RETURNING *
	`, params.UserID, params.DeviceID, params.DeviceName)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *authorizedDeviceRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.AuthorizedDevice, error) {
	var devices []model.AuthorizedDevice
	err := r.db.SelectContext(ctx, &devices, `
		SELECT * FROM authorized_devices
		WHERE user_id = $1
		ORDER BY authorized_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return devices, err
}

func (r *authorizedDeviceRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM authorized_devices WHERE user_id = $1
	`, userID)
	return count, err
}

func (r *authorizedDeviceRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM authorized_devices WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
