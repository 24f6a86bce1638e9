package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"alarmclock/backend/internal/calendar"
	"alarmclock/backend/internal/config"
	apperrors "alarmclock/backend/internal/errors"
	"alarmclock/backend/internal/lifecycle"
	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/recurrence"
	"alarmclock/backend/internal/repository"
	"alarmclock/backend/internal/scheduler"
)

const (
	WarningPermissionDenied = "exact_timer_permission_denied"
	WarningNoOccurrence     = apperrors.CodeNoUpcomingOccurrence

	maxLabelLength = 120
)

type AlarmService struct {
	alarms      *repository.AlarmRepository
	occurrences *repository.OccurrenceRepository
	coordinator *scheduler.Coordinator
	exporter    *calendar.Exporter
	// defaults apply to users without their own alarm defaults.
	defaults config.AlarmDefaults
	now      func() time.Time
}

// AlarmInput carries the editable fields. A nil field keeps the current
// value on update and takes the policy default on create.
type AlarmInput struct {
	BaseVersion                   int               `json:"baseVersion"`
	Label                         *string           `json:"label"`
	Enabled                       *bool             `json:"enabled"`
	Hour                          *int              `json:"hour"`
	Minute                        *int              `json:"minute"`
	Weekdays                      *model.WeekdaySet `json:"weekdays"`
	SpecificDate                  *model.Date       `json:"specificDate"`
	RepeatFrequency               *int              `json:"repeatFrequency"`
	RepeatUnit                    *model.RepeatUnit `json:"repeatUnit"`
	DaysToRunBeforeStarting       *model.WeekdaySet `json:"daysToRunBeforeStarting"`
	MaxSnoozeCount                *int              `json:"maxSnoozeCount"`
	SnoozeDurationSeconds         *int              `json:"snoozeDurationSeconds"`
	AutoSnoozeEnabled             *bool             `json:"autoSnoozeEnabled"`
	AutoSnoozeAfterSeconds        *int              `json:"autoSnoozeAfterSeconds"`
	UseEasySnooze                 *bool             `json:"useEasySnooze"`
	AutoDismissAfterSeconds       *int              `json:"autoDismissAfterSeconds"`
	DismissEarlyEnabled           *bool             `json:"dismissEarlyEnabled"`
	DismissEarlyWindowSeconds     *int              `json:"dismissEarlyWindowSeconds"`
	ShowUpcomingReminder          *bool             `json:"showUpcomingReminder"`
	ReminderLeadSeconds           *int              `json:"reminderLeadSeconds"`
	ReminderRepeatIntervalSeconds *int              `json:"reminderRepeatIntervalSeconds"`
	RequiredNFCTagID              *string           `json:"requiredNfcTagId"`
}

type AlarmResult struct {
	Alarm           *model.Alarm `json:"alarm"`
	ScheduleWarning string       `json:"scheduleWarning,omitempty"`
}

type AlarmSchedule struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	State model.State `json:"state"`
	// Weekdays is ordered from the user's start of week.
	Weekdays     []string   `json:"weekdays"`
	Enabled      bool       `json:"enabled"`
	NextFireAt   *time.Time `json:"nextFireAt,omitempty"`
	SnoozedUntil *time.Time `json:"snoozedUntil,omitempty"`
}

type ScheduleStatus struct {
	PermissionDenied   bool                     `json:"permissionDenied"`
	ExactTimersAllowed *bool                    `json:"exactTimersAllowed,omitempty"`
	DroppedEvents      uint64                   `json:"droppedEvents"`
	Timezone           string                   `json:"timezone"`
	WeekStart          string                   `json:"weekStart"`
	LastRefresh        *scheduler.RefreshReport `json:"lastRefresh,omitempty"`
	Alarms             []AlarmSchedule          `json:"alarms"`
	Timers             []scheduler.TimerStatus  `json:"timers"`
}

func NewAlarmService(
	alarms *repository.AlarmRepository,
	occurrences *repository.OccurrenceRepository,
	coordinator *scheduler.Coordinator,
	exporter *calendar.Exporter,
	defaults config.AlarmDefaults,
) *AlarmService {
	return &AlarmService{
		alarms:      alarms,
		occurrences: occurrences,
		coordinator: coordinator,
		exporter:    exporter,
		defaults:    defaults,
		now:         time.Now,
	}
}

func (s *AlarmService) List(ctx context.Context, userID string) ([]*model.Alarm, *apperrors.APIError) {
	alarms, err := s.alarms.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list alarms")
	}
	return alarms, nil
}

func (s *AlarmService) Get(ctx context.Context, userID, id string) (*model.Alarm, *apperrors.APIError) {
	return s.owned(ctx, userID, id)
}

// Create fills unset fields from the user's alarm defaults.
func (s *AlarmService) Create(ctx context.Context, user *model.User, input AlarmInput) (*AlarmResult, *apperrors.APIError) {
	now := s.now().UTC()
	alarm := newAlarm(user.ID, user.Preferences.Defaults(s.defaults))
	applyInput(alarm, input)
	if alarm.Weekdays.IsEmpty() && alarm.SpecificDate == nil {
		date := s.nextDateFor(alarm, now)
		alarm.SpecificDate = &date
	}
	if apiErr := validateAlarm(alarm); apiErr != nil {
		return nil, apiErr
	}
	alarm.CreatedAt = now
	alarm.UpdatedAt = now

	saved, err := s.coordinator.ScheduleOne(ctx, alarm)
	return s.result(saved, err, alarm.Enabled)
}

func (s *AlarmService) Update(ctx context.Context, userID, id string, input AlarmInput) (*AlarmResult, *apperrors.APIError) {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}

	var wantEnabled bool
	saved, err := s.coordinator.Update(ctx, id, func(a *model.Alarm) error {
		if input.BaseVersion > 0 && input.BaseVersion != a.Version {
			return apperrors.AlarmConflict(a.Clone())
		}
		before := a.Clone()
		applyInput(a, input)
		if apiErr := validateAlarm(a); apiErr != nil {
			return apiErr
		}
		if repeatChanged(before, a) {
			a.RepeatAnchor = nil
			a.SkippedOccurrenceAt = nil
		}
		if a.Enabled && a.State == model.StateDisabled {
			a.RepeatAnchor = nil
			a.SkippedOccurrenceAt = nil
		}
		wantEnabled = a.Enabled
		return nil
	})
	return s.result(saved, err, wantEnabled)
}

func (s *AlarmService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return apiErr
	}
	if err := s.coordinator.Delete(ctx, id); err != nil {
		return toAPIError(err)
	}
	return nil
}

func (s *AlarmService) SetEnabled(ctx context.Context, userID, id string, enabled bool) (*AlarmResult, *apperrors.APIError) {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}
	saved, err := s.coordinator.SetEnabled(ctx, id, enabled)
	return s.result(saved, err, enabled)
}

func (s *AlarmService) Snooze(ctx context.Context, userID, id string) (*AlarmResult, *apperrors.APIError) {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}
	saved, err := s.coordinator.Snooze(ctx, id)
	return s.result(saved, err, false)
}

func (s *AlarmService) Dismiss(ctx context.Context, userID, id, nfcTag string) (*AlarmResult, *apperrors.APIError) {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}
	saved, err := s.coordinator.Dismiss(ctx, id, strings.TrimSpace(nfcTag))
	return s.result(saved, err, false)
}

func (s *AlarmService) SkipNext(ctx context.Context, userID, id string) (*AlarmResult, *apperrors.APIError) {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}
	saved, err := s.coordinator.SkipNext(ctx, id)
	return s.result(saved, err, false)
}

// ScanNFC dismisses every ringing alarm of the user that requires tagID.
func (s *AlarmService) ScanNFC(ctx context.Context, userID, tagID string) ([]*model.Alarm, *apperrors.APIError) {
	tagID = strings.TrimSpace(tagID)
	if tagID == "" {
		return nil, apperrors.BadRequest("invalid_nfc_tag", "tagId is required")
	}
	dismissed, err := s.coordinator.HandleNFCScan(ctx, userID, tagID)
	if err != nil && len(dismissed) == 0 {
		return nil, toAPIError(err)
	}
	if dismissed == nil {
		dismissed = make([]*model.Alarm, 0)
	}
	return dismissed, nil
}

func (s *AlarmService) History(ctx context.Context, userID, id string, limit int) ([]*model.Occurrence, *apperrors.APIError) {
	if _, apiErr := s.owned(ctx, userID, id); apiErr != nil {
		return nil, apiErr
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.occurrences.ListByAlarm(ctx, userID, id, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to list alarm history")
	}
	return items, nil
}

// Calendar renders the user's upcoming occurrences. It returns nil when
// there is nothing to export.
func (s *AlarmService) Calendar(ctx context.Context, userID string) ([]byte, *apperrors.APIError) {
	alarms, err := s.alarms.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list alarms")
	}
	var buf bytes.Buffer
	err = s.exporter.Write(&buf, alarms, s.now())
	if errors.Is(err, calendar.ErrEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, toAPIError(err)
	}
	return buf.Bytes(), nil
}

func (s *AlarmService) Status(ctx context.Context, user *model.User) (*ScheduleStatus, *apperrors.APIError) {
	alarms, err := s.alarms.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to list alarms")
	}

	weekStart := user.Preferences.StartDay()
	status := s.coordinator.Status()
	view := &ScheduleStatus{
		PermissionDenied:   status.PermissionDenied,
		ExactTimersAllowed: status.ExactAllowed,
		DroppedEvents:      status.DroppedEvents,
		Timezone:           s.coordinator.Location().String(),
		WeekStart:          strings.ToLower(weekStart.String()),
		LastRefresh:        status.LastRefresh,
		Alarms:             make([]AlarmSchedule, 0, len(alarms)),
		Timers:             make([]scheduler.TimerStatus, 0),
	}
	mine := make(map[string]bool, len(alarms))
	for _, a := range alarms {
		mine[a.ID] = true
		view.Alarms = append(view.Alarms, AlarmSchedule{
			ID:           a.ID,
			Label:        a.Label,
			State:        a.State,
			Weekdays:     a.Weekdays.Names(weekStart),
			Enabled:      a.Enabled,
			NextFireAt:   a.NextFireAt,
			SnoozedUntil: a.SnoozedUntil,
		})
	}
	for _, timer := range status.Timers {
		if mine[timer.AlarmID] {
			view.Timers = append(view.Timers, timer)
		}
	}
	return view, nil
}

func (s *AlarmService) owned(ctx context.Context, userID, id string) (*model.Alarm, *apperrors.APIError) {
	alarm, err := s.alarms.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.AlarmNotFound()
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get alarm")
	}
	if alarm.UserID != userID || alarm.State == model.StateDeleted {
		return nil, apperrors.AlarmNotFound()
	}
	return alarm, nil
}

// result turns a coordinator outcome into a response. A refused exact timer
// does not fail the request; the alarm is saved and carries a warning.
func (s *AlarmService) result(saved *model.Alarm, err error, wantEnabled bool) (*AlarmResult, *apperrors.APIError) {
	if err != nil && !(errors.Is(err, scheduler.ErrPermissionDenied) && saved != nil) {
		return nil, toAPIError(err)
	}
	res := &AlarmResult{Alarm: saved}
	switch {
	case err != nil:
		res.ScheduleWarning = WarningPermissionDenied
	case wantEnabled && saved.State == model.StateDisabled:
		res.ScheduleWarning = WarningNoOccurrence
	}
	return res, nil
}

func newAlarm(userID string, d model.AlarmDefaults) *model.Alarm {
	return &model.Alarm{
		ID:                            uuid.NewString(),
		UserID:                        userID,
		Enabled:                       true,
		Hour:                          d.Hour,
		Minute:                        d.Minute,
		RepeatFrequency:               1,
		RepeatUnit:                    model.RepeatWeek,
		MaxSnoozeCount:                d.MaxSnoozeCount,
		SnoozeDurationSeconds:         d.SnoozeDurationSec,
		AutoSnoozeEnabled:             d.AutoSnoozeEnabled,
		AutoSnoozeAfterSeconds:        d.AutoSnoozeAfterSec,
		AutoDismissAfterSeconds:       d.AutoDismissAfterSec,
		DismissEarlyEnabled:           d.DismissEarlyEnabled,
		DismissEarlyWindowSeconds:     d.DismissEarlyWindowSec,
		ShowUpcomingReminder:          d.ShowUpcomingReminder,
		ReminderLeadSeconds:           d.ReminderLeadSec,
		ReminderRepeatIntervalSeconds: d.ReminderRepeatIntervalSec,
		State:                         model.StateScheduled,
	}
}

// nextDateFor picks today when the alarm time is still ahead in the
// scheduler's location, otherwise tomorrow.
func (s *AlarmService) nextDateFor(a *model.Alarm, now time.Time) model.Date {
	local := now.In(s.coordinator.Location())
	today := model.DateOf(local)
	if today.At(a.Hour, a.Minute, local.Location()).After(now) {
		return today
	}
	return model.DateOf(time.Date(today.Year, today.Month, today.Day+1, 0, 0, 0, 0, local.Location()))
}

func applyInput(a *model.Alarm, in AlarmInput) {
	if in.Label != nil {
		a.Label = strings.TrimSpace(*in.Label)
	}
	if in.Enabled != nil {
		a.Enabled = *in.Enabled
	}
	if in.Hour != nil {
		a.Hour = *in.Hour
	}
	if in.Minute != nil {
		a.Minute = *in.Minute
	}
	if in.Weekdays != nil {
		a.Weekdays = *in.Weekdays
		if !a.Weekdays.IsEmpty() {
			a.SpecificDate = nil
		}
	}
	if in.SpecificDate != nil {
		d := *in.SpecificDate
		a.SpecificDate = &d
		if in.Weekdays == nil {
			a.Weekdays = 0
		}
	}
	if in.RepeatFrequency != nil {
		a.RepeatFrequency = *in.RepeatFrequency
	}
	if in.RepeatUnit != nil {
		a.RepeatUnit = model.RepeatUnit(strings.ToLower(string(*in.RepeatUnit)))
	}
	if in.DaysToRunBeforeStarting != nil {
		a.DaysToRunBeforeStarting = *in.DaysToRunBeforeStarting
	}
	setInt(&a.MaxSnoozeCount, in.MaxSnoozeCount)
	setInt(&a.SnoozeDurationSeconds, in.SnoozeDurationSeconds)
	setBool(&a.AutoSnoozeEnabled, in.AutoSnoozeEnabled)
	setInt(&a.AutoSnoozeAfterSeconds, in.AutoSnoozeAfterSeconds)
	setBool(&a.UseEasySnooze, in.UseEasySnooze)
	setInt(&a.AutoDismissAfterSeconds, in.AutoDismissAfterSeconds)
	setBool(&a.DismissEarlyEnabled, in.DismissEarlyEnabled)
	setInt(&a.DismissEarlyWindowSeconds, in.DismissEarlyWindowSeconds)
	setBool(&a.ShowUpcomingReminder, in.ShowUpcomingReminder)
	setInt(&a.ReminderLeadSeconds, in.ReminderLeadSeconds)
	setInt(&a.ReminderRepeatIntervalSeconds, in.ReminderRepeatIntervalSeconds)
	if in.RequiredNFCTagID != nil {
		a.RequiredNFCTagID = strings.TrimSpace(*in.RequiredNFCTagID)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func validateAlarm(a *model.Alarm) *apperrors.APIError {
	if len(a.Label) > maxLabelLength {
		return apperrors.BadRequest("invalid_label", "label is too long")
	}
	if a.MaxSnoozeCount < model.UnlimitedSnoozes {
		return apperrors.BadRequest("invalid_snooze", "maxSnoozeCount must be -1 or greater")
	}
	for name, v := range map[string]int{
		"snoozeDurationSeconds":         a.SnoozeDurationSeconds,
		"autoSnoozeAfterSeconds":        a.AutoSnoozeAfterSeconds,
		"autoDismissAfterSeconds":       a.AutoDismissAfterSeconds,
		"dismissEarlyWindowSeconds":     a.DismissEarlyWindowSeconds,
		"reminderLeadSeconds":           a.ReminderLeadSeconds,
		"reminderRepeatIntervalSeconds": a.ReminderRepeatIntervalSeconds,
	} {
		if v < 0 {
			return apperrors.BadRequest("invalid_duration", name+" must not be negative")
		}
	}
	if err := recurrence.Validate(a); err != nil {
		return toAPIError(err)
	}
	return nil
}

func repeatChanged(before, after *model.Alarm) bool {
	return before.Hour != after.Hour ||
		before.Minute != after.Minute ||
		before.Weekdays != after.Weekdays ||
		before.RepeatFrequency != after.RepeatFrequency ||
		before.RepeatUnit != after.RepeatUnit ||
		before.DaysToRunBeforeStarting != after.DaysToRunBeforeStarting ||
		!sameDate(before.SpecificDate, after.SpecificDate)
}

func sameDate(a, b *model.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// toAPIError maps domain errors onto HTTP errors.
func toAPIError(err error) *apperrors.APIError {
	var apiErr *apperrors.APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, lifecycle.ErrNFCMismatch):
		return apperrors.Conflict(apperrors.CodeNFCTagMismatch, "the required nfc tag was not presented", nil)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return apperrors.Conflict(apperrors.CodeInvalidTransition, err.Error(), nil)
	case errors.Is(err, lifecycle.ErrUnknownAlarm), errors.Is(err, repository.ErrNotFound):
		return apperrors.AlarmNotFound()
	case errors.Is(err, recurrence.ErrInvalidConfiguration):
		return apperrors.BadRequest(apperrors.CodeInvalidAlarm, err.Error())
	case errors.Is(err, recurrence.ErrExhausted), errors.Is(err, recurrence.ErrNoValidOccurrence):
		return apperrors.Unprocessable(apperrors.CodeNoUpcomingOccurrence, err.Error())
	}
	return apperrors.Internal("")
}
