package repository

import (
	"context"
	"database/sql"
	"fmt"

	"alarmclock/backend/internal/model"
)

// OccurrenceRepository stores the per-occurrence history of alarm outcomes.
type OccurrenceRepository struct {
	db    *sql.DB
	retry retryConfig
}

func NewOccurrenceRepository(db *sql.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db, retry: defaultRetryConfig}
}

func (r *OccurrenceRepository) Insert(ctx context.Context, o *model.Occurrence) error {
	err := retryOp(ctx, r.retry, func() error {
		_, err := r.db.ExecContext(
			ctx,
			`INSERT INTO alarm_occurrences (id, alarm_id, user_id, outcome, scheduled_for, snooze_count, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID,
			o.AlarmID,
			o.UserID,
			o.Outcome,
			formatOptionalTime(o.ScheduledFor),
			o.SnoozeCount,
			formatTime(o.RecordedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert occurrence: %w", err)
	}
	return nil
}

// ListByAlarm returns the newest occurrences first.
func (r *OccurrenceRepository) ListByAlarm(ctx context.Context, userID, alarmID string, limit int) ([]*model.Occurrence, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, alarm_id, user_id, outcome, scheduled_for, snooze_count, recorded_at
		 FROM alarm_occurrences
		 WHERE user_id = ? AND alarm_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		userID,
		alarmID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	items := make([]*model.Occurrence, 0)
	for rows.Next() {
		var o model.Occurrence
		var scheduledFor sql.NullString
		var recordedAt string
		if err := rows.Scan(&o.ID, &o.AlarmID, &o.UserID, &o.Outcome, &scheduledFor, &o.SnoozeCount, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		if scheduledFor.Valid {
			t, err := parseTime(scheduledFor.String)
			if err != nil {
				return nil, fmt.Errorf("parse occurrence scheduled_for: %w", err)
			}
			o.ScheduledFor = &t
		}
		if o.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("parse occurrence recorded_at: %w", err)
		}
		items = append(items, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return items, nil
}
