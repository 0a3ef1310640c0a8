package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg/i18n"
)

// DayFormatter turns a raw message timestamp into a day label.
// Timestamps it cannot parse map to one fallback label.
type DayFormatter interface {
	FormatDay(rawTimestamp string) string
}

// BuildRows groups messages, assumed chronological, into day-bucketed rows.
//
// A DateHeader is emitted whenever the day label differs from the previous
// message's; every message gets a MessageRow. Unparseable timestamps share the
// fallback label and never abort the pass.
func BuildRows(messages []models.MessageUI, f DayFormatter) []models.ChatRow {
	rows := make([]models.ChatRow, 0, len(messages)+1)
	lastLabel := ""
	first := true

	for _, m := range messages {
		label := f.FormatDay(m.RawTimestamp)
		if first || label != lastLabel {
			rows = append(rows, models.DateHeader(label))
			lastLabel = label
			first = false
		}
		rows = append(rows, models.MessageRow(m))
	}
	return rows
}

// timestampLayouts are tried in order. Zone-less layouts are read as UTC,
// which is what the backend stores.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a backend message timestamp.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LocaleDayFormatter renders "weekday day month year" in a display locale and
// time zone, using the weekday and month names of pkg/i18n.
type LocaleDayFormatter struct {
	loc       *time.Location
	localizer *i18n.Localizer
}

// NewDayFormatter returns a formatter for lang in loc. A nil loc means UTC.
// i18n.Load must have been called.
func NewDayFormatter(lang string, loc *time.Location) *LocaleDayFormatter {
	if loc == nil {
		loc = time.UTC
	}
	return &LocaleDayFormatter{
		loc:       loc,
		localizer: i18n.NewLocalizer(lang),
	}
}

// FormatDay implements DayFormatter.
func (f *LocaleDayFormatter) FormatDay(rawTimestamp string) string {
	t, ok := ParseTimestamp(rawTimestamp)
	if !ok {
		return f.Fallback()
	}
	t = t.In(f.loc)

	return f.localizer.TWithParams("timeline.day_format", map[string]string{
		"weekday": f.localizer.T("weekday." + strconv.Itoa(int(t.Weekday()))),
		"day":     strconv.Itoa(t.Day()),
		"month":   f.localizer.T("month." + strconv.Itoa(int(t.Month()))),
		"year":    strconv.Itoa(t.Year()),
	})
}

// Fallback returns the label of unparseable timestamps ("Sin fecha" in es).
func (f *LocaleDayFormatter) Fallback() string {
	return f.localizer.T("timeline.no_date")
}
