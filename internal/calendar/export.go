// Package calendar renders upcoming alarm occurrences as an iCalendar feed.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/recurrence"
)

const productID = "-//alarmclock//backend//EN"

// maxPerAlarm caps hourly alarms, which would otherwise dominate the feed.
const maxPerAlarm = 64

// ErrEmpty is returned when no alarm has an occurrence in the horizon; an
// iCalendar object must contain at least one component.
var ErrEmpty = errors.New("no upcoming occurrences")

type Exporter struct {
	resolver *recurrence.Resolver
	horizon  time.Duration
}

func NewExporter(resolver *recurrence.Resolver, horizon time.Duration) *Exporter {
	if horizon <= 0 {
		horizon = 14 * 24 * time.Hour
	}
	return &Exporter{resolver: resolver, horizon: horizon}
}

// Build returns a VCALENDAR with one VEVENT per occurrence of the enabled
// alarms in (from, from+horizon].
func (e *Exporter) Build(alarms []*model.Alarm, from time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	until := from.Add(e.horizon)
	for _, a := range alarms {
		if !a.Enabled || a.State == model.StateDisabled || a.State == model.StateDeleted {
			continue
		}
		after := from
		if a.SkippedOccurrenceAt != nil && a.SkippedOccurrenceAt.After(after) {
			after = *a.SkippedOccurrenceAt
		}
		times, err := e.resolver.Upcoming(a, after, until, maxPerAlarm)
		if err != nil {
			return nil, fmt.Errorf("alarm %s: %w", a.ID, err)
		}
		for _, at := range times {
			cal.Children = append(cal.Children, event(a, at, from).Component)
		}
	}
	if len(cal.Children) == 0 {
		return nil, ErrEmpty
	}
	return cal, nil
}

func (e *Exporter) Write(w io.Writer, alarms []*model.Alarm, from time.Time) error {
	cal, err := e.Build(alarms, from)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func event(a *model.Alarm, at, stamp time.Time) *ical.Event {
	start := at.UTC()
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@alarmclock", a.ID, start.Format("20060102T150405Z")))
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Minute))
	summary := a.Label
	if summary == "" {
		summary = "Alarm"
	}
	ev.Props.SetText(ical.PropSummary, summary)
	return ev
}
