package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alarmclock/backend/internal/model"
)

const userColumns = `id, email, password_hash, week_start, alarm_defaults, created_at, updated_at`

type UserRepository struct {
	db    *sql.DB
	retry retryConfig
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, retry: defaultRetryConfig}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	defaults, err := encodeDefaults(user.Preferences.AlarmDefaults)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	weekStart := user.Preferences.WeekStart
	if weekStart == "" {
		weekStart = "monday"
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		weekStart,
		defaults,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// UpdatePreferences replaces the user's preferences and returns ErrNotFound
// for an unknown id.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id string, prefs model.Preferences, updatedAt time.Time) error {
	defaults, err := encodeDefaults(prefs.AlarmDefaults)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	return retryOp(ctx, r.retry, func() error {
		result, err := r.db.ExecContext(
			ctx,
			`UPDATE users SET week_start = ?, alarm_defaults = ?, updated_at = ? WHERE id = ?`,
			prefs.WeekStart,
			defaults,
			formatTime(updatedAt),
			id,
		)
		if err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update preferences rows affected: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	var defaults sql.NullString
	var createdAt string
	var updatedAt string
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Preferences.WeekStart,
		&defaults,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if defaults.Valid && defaults.String != "" {
		var d model.AlarmDefaults
		if err := json.Unmarshal([]byte(defaults.String), &d); err != nil {
			return nil, fmt.Errorf("parse user alarm_defaults: %w", err)
		}
		user.Preferences.AlarmDefaults = &d
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse user created_at: %w", err)
	}
	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse user updated_at: %w", err)
	}
	user.CreatedAt = parsedCreatedAt
	user.UpdatedAt = parsedUpdatedAt

	return &user, nil
}

// encodeDefaults stores nil as NULL so the user follows the server policy.
func encodeDefaults(d *model.AlarmDefaults) (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode alarm defaults: %w", err)
	}
	return string(raw), nil
}
