package service

import (
	"context"
	"strings"
	"time"

	apperrors "alarmclock/backend/internal/errors"
	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/scheduler"
)

// ExactPermission is the platform switch for exact timers.
type ExactPermission interface {
	SetExactAllowed(allowed bool)
}

type SystemService struct {
	coordinator *scheduler.Coordinator
	permission  ExactPermission
	log         *logging.Logger
}

type TriggerInput struct {
	Kind               string `json:"kind"`
	ExactTimersAllowed *bool  `json:"exactTimersAllowed"`
	Timezone           string `json:"timezone"`
}

func NewSystemService(coordinator *scheduler.Coordinator, permission ExactPermission, logger *logging.Logger) *SystemService {
	return &SystemService{coordinator: coordinator, permission: permission, log: logger}
}

// HandleTrigger applies the host signal's payload and re-derives every
// alarm's schedule.
func (s *SystemService) HandleTrigger(ctx context.Context, input TriggerInput) (*scheduler.RefreshReport, *apperrors.APIError) {
	kind, err := scheduler.ParseTrigger(strings.TrimSpace(input.Kind))
	if err != nil {
		return nil, apperrors.BadRequest("invalid_trigger", err.Error())
	}

	if tz := strings.TrimSpace(input.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, apperrors.BadRequest("invalid_timezone", "unknown timezone "+tz)
		}
		s.coordinator.SetLocation(loc)
	}
	if input.ExactTimersAllowed != nil && s.permission != nil {
		s.permission.SetExactAllowed(*input.ExactTimersAllowed)
	}

	report, err := s.coordinator.RefreshAll(ctx, kind)
	if err != nil {
		s.log.Errorf("refresh trigger=%s error=%v", kind, err)
		return nil, apperrors.Internal("failed to refresh alarms")
	}
	return &report, nil
}
