package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"alarmclock/backend/internal/model"
)

// Weekday bitmasks are stored with Monday as bit 0 regardless of the
// display week start.
const storageWeekStart = time.Monday

type AlarmRepository struct {
	db    *sql.DB
	retry retryConfig
}

func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db, retry: defaultRetryConfig}
}

const alarmColumns = `id, user_id, label, enabled, hour, minute,
		weekdays, specific_date, repeat_frequency, repeat_unit, days_before_start,
		repeat_anchor, skip_next, skipped_occurrence_at,
		max_snooze_count, snooze_duration_seconds, auto_snooze_enabled,
		auto_snooze_after_seconds, use_easy_snooze,
		auto_dismiss_after_seconds, dismiss_early_enabled, dismiss_early_window_seconds,
		show_upcoming_reminder, reminder_lead_seconds, reminder_repeat_interval_seconds,
		required_nfc_tag_id,
		state, is_active, active_since, current_snooze_count, snoozed_until, next_fire_at,
		version, created_at, updated_at`

func (r *AlarmRepository) ListAll(ctx context.Context) ([]*model.Alarm, error) {
	return r.list(ctx, `SELECT `+alarmColumns+` FROM alarms ORDER BY created_at, id`)
}

func (r *AlarmRepository) ListByUser(ctx context.Context, userID string) ([]*model.Alarm, error) {
	return r.list(ctx, `SELECT `+alarmColumns+` FROM alarms WHERE user_id = ? ORDER BY hour, minute, created_at`, userID)
}

func (r *AlarmRepository) Get(ctx context.Context, id string) (*model.Alarm, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+alarmColumns+` FROM alarms WHERE id = ?`, id)
	return scanAlarm(row)
}

func (r *AlarmRepository) Upsert(ctx context.Context, a *model.Alarm) error {
	var specificDate interface{}
	if a.SpecificDate != nil {
		specificDate = a.SpecificDate.String()
	}

	err := retryOp(ctx, r.retry, func() error {
		_, err := r.db.ExecContext(
			ctx,
			`INSERT INTO alarms (`+alarmColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				label = excluded.label,
				enabled = excluded.enabled,
				hour = excluded.hour,
				minute = excluded.minute,
				weekdays = excluded.weekdays,
				specific_date = excluded.specific_date,
				repeat_frequency = excluded.repeat_frequency,
				repeat_unit = excluded.repeat_unit,
				days_before_start = excluded.days_before_start,
				repeat_anchor = excluded.repeat_anchor,
				skip_next = excluded.skip_next,
				skipped_occurrence_at = excluded.skipped_occurrence_at,
				max_snooze_count = excluded.max_snooze_count,
				snooze_duration_seconds = excluded.snooze_duration_seconds,
				auto_snooze_enabled = excluded.auto_snooze_enabled,
				auto_snooze_after_seconds = excluded.auto_snooze_after_seconds,
				use_easy_snooze = excluded.use_easy_snooze,
				auto_dismiss_after_seconds = excluded.auto_dismiss_after_seconds,
				dismiss_early_enabled = excluded.dismiss_early_enabled,
				dismiss_early_window_seconds = excluded.dismiss_early_window_seconds,
				show_upcoming_reminder = excluded.show_upcoming_reminder,
				reminder_lead_seconds = excluded.reminder_lead_seconds,
				reminder_repeat_interval_seconds = excluded.reminder_repeat_interval_seconds,
				required_nfc_tag_id = excluded.required_nfc_tag_id,
				state = excluded.state,
				is_active = excluded.is_active,
				active_since = excluded.active_since,
				current_snooze_count = excluded.current_snooze_count,
				snoozed_until = excluded.snoozed_until,
				next_fire_at = excluded.next_fire_at,
				version = excluded.version,
				updated_at = excluded.updated_at`,
			a.ID,
			a.UserID,
			a.Label,
			a.Enabled,
			a.Hour,
			a.Minute,
			a.Weekdays.Bitmask(storageWeekStart),
			specificDate,
			a.RepeatFrequency,
			a.RepeatUnit,
			a.DaysToRunBeforeStarting.Bitmask(storageWeekStart),
			formatOptionalTime(a.RepeatAnchor),
			a.SkipNextOccurrence,
			formatOptionalTime(a.SkippedOccurrenceAt),
			a.MaxSnoozeCount,
			a.SnoozeDurationSeconds,
			a.AutoSnoozeEnabled,
			a.AutoSnoozeAfterSeconds,
			a.UseEasySnooze,
			a.AutoDismissAfterSeconds,
			a.DismissEarlyEnabled,
			a.DismissEarlyWindowSeconds,
			a.ShowUpcomingReminder,
			a.ReminderLeadSeconds,
			a.ReminderRepeatIntervalSeconds,
			a.RequiredNFCTagID,
			a.State,
			a.IsActive,
			formatOptionalTime(a.ActiveSince),
			a.CurrentSnoozeCount,
			formatOptionalTime(a.SnoozedUntil),
			formatOptionalTime(a.NextFireAt),
			a.Version,
			formatTime(a.CreatedAt),
			formatTime(a.UpdatedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert alarm: %w", err)
	}
	return nil
}

func (r *AlarmRepository) Delete(ctx context.Context, id string) error {
	var affected int64
	err := retryOp(ctx, r.retry, func() error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AlarmRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	alarms := make([]*model.Alarm, 0)
	for rows.Next() {
		alarm, scanErr := scanAlarm(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alarms = append(alarms, alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}
	return alarms, nil
}

func scanAlarm(s scanner) (*model.Alarm, error) {
	a := model.Alarm{}
	var weekdays, daysBeforeStart uint8
	var specificDate, repeatAnchor, skippedAt, activeSince, snoozedUntil, nextFireAt sql.NullString
	var createdAt, updatedAt string
	err := s.Scan(
		&a.ID,
		&a.UserID,
		&a.Label,
		&a.Enabled,
		&a.Hour,
		&a.Minute,
		&weekdays,
		&specificDate,
		&a.RepeatFrequency,
		&a.RepeatUnit,
		&daysBeforeStart,
		&repeatAnchor,
		&a.SkipNextOccurrence,
		&skippedAt,
		&a.MaxSnoozeCount,
		&a.SnoozeDurationSeconds,
		&a.AutoSnoozeEnabled,
		&a.AutoSnoozeAfterSeconds,
		&a.UseEasySnooze,
		&a.AutoDismissAfterSeconds,
		&a.DismissEarlyEnabled,
		&a.DismissEarlyWindowSeconds,
		&a.ShowUpcomingReminder,
		&a.ReminderLeadSeconds,
		&a.ReminderRepeatIntervalSeconds,
		&a.RequiredNFCTagID,
		&a.State,
		&a.IsActive,
		&activeSince,
		&a.CurrentSnoozeCount,
		&snoozedUntil,
		&nextFireAt,
		&a.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan alarm: %w", err)
	}

	if a.Weekdays, err = model.WeekdaySetFromBitmask(weekdays, storageWeekStart); err != nil {
		return nil, fmt.Errorf("alarm %s weekdays: %w", a.ID, err)
	}
	if a.DaysToRunBeforeStarting, err = model.WeekdaySetFromBitmask(daysBeforeStart, storageWeekStart); err != nil {
		return nil, fmt.Errorf("alarm %s days_before_start: %w", a.ID, err)
	}
	if specificDate.Valid {
		d, parseErr := model.ParseDate(specificDate.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse alarm specific_date: %w", parseErr)
		}
		a.SpecificDate = &d
	}

	for _, f := range []struct {
		name string
		raw  sql.NullString
		dst  **time.Time
	}{
		{"repeat_anchor", repeatAnchor, &a.RepeatAnchor},
		{"skipped_occurrence_at", skippedAt, &a.SkippedOccurrenceAt},
		{"active_since", activeSince, &a.ActiveSince},
		{"snoozed_until", snoozedUntil, &a.SnoozedUntil},
		{"next_fire_at", nextFireAt, &a.NextFireAt},
	} {
		if !f.raw.Valid {
			continue
		}
		parsed, parseErr := parseTime(f.raw.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse alarm %s: %w", f.name, parseErr)
		}
		*f.dst = &parsed
	}

	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse alarm created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse alarm updated_at: %w", err)
	}
	return &a, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}
