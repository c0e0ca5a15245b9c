// Package export renders the activity list as an iCalendar feed.
package export

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"calendario/internal/core"
)

const prodID = "-//calendario//IT"

// BuildCalendar renders activities as a VCALENDAR with one all-day VEVENT
// per activity. The activity's type label is emitted as the event's
// CATEGORIES property so calendar clients can color-code entries.
func BuildCalendar(activities []core.Activity, types []core.ActivityType) *ical.Calendar {
	labels := make(map[string]string, len(types))
	for _, t := range types {
		labels[t.ID] = t.Label
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	now := time.Now().UTC()
	for _, a := range activities {
		ev := cal.AddEvent(a.ID + "@calendario")
		ev.SetDtStampTime(now)
		ev.SetSummary(a.Title)
		if a.Description != "" {
			ev.SetDescription(a.Description)
		}
		ev.SetAllDayStartAt(a.Date.Time)
		ev.SetAllDayEndAt(a.Date.AddDate(0, 0, 1))
		if label, ok := labels[a.TypeID]; ok {
			ev.SetProperty(ical.ComponentPropertyCategories, label)
		}
	}

	return cal
}

// Render serializes the feed to its wire form.
func Render(activities []core.Activity, types []core.ActivityType) string {
	return BuildCalendar(activities, types).Serialize()
}
