package application

import "time"

// Business hours are fixed: 09:00-17:00, Monday through Friday.
const (
	businessOpenHour  = 9
	businessCloseHour = 17
)

// WorkCalendar measures elapsed working time in a business location.
type WorkCalendar struct {
	loc *time.Location
}

// NewWorkCalendar returns a calendar evaluating instants in loc. A nil loc
// means the process local zone.
func NewWorkCalendar(loc *time.Location) WorkCalendar {
	if loc == nil {
		loc = time.Local
	}
	return WorkCalendar{loc: loc}
}

// Location returns the business location.
func (c WorkCalendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// IsBusinessMoment reports whether t falls within business hours on a weekday.
func (c WorkCalendar) IsBusinessMoment(t time.Time) bool {
	t = t.In(c.Location())
	return t.Hour() >= businessOpenHour && t.Hour() < businessCloseHour && isWeekday(t)
}

// ElapsedBusinessSeconds returns the whole business seconds between start and end.
// The walk visits one cursor per calendar day: the cursor starts at start and then
// jumps to 09:00 of each following day. A cursor that is not a business moment
// contributes nothing for its day, so time before 09:00 on the first day is skipped
// along with evenings, weekends and the remainder of a day started after 17:00.
func (c WorkCalendar) ElapsedBusinessSeconds(start, end time.Time) int64 {
	if !start.Before(end) {
		return 0
	}

	loc := c.Location()
	var total time.Duration
	for cur := start.In(loc); cur.Before(end); cur = nextOpening(cur, loc) {
		if !c.IsBusinessMoment(cur) {
			continue
		}
		y, m, d := cur.Date()
		closing := time.Date(y, m, d, businessCloseHour, 0, 0, 0, loc)
		if end.Before(closing) {
			closing = end
		}
		total += closing.Sub(cur)
	}

	return int64(total / time.Second)
}

// ElapsedWeekdays counts the weekday cursors visited while stepping one calendar
// day at a time from start until the cursor reaches end. Hour of day is ignored
// beyond deciding whether the final step is still before end.
func (c WorkCalendar) ElapsedWeekdays(start, end time.Time) int {
	loc := c.Location()
	days := 0
	for cur := start.In(loc); cur.Before(end); cur = cur.AddDate(0, 0, 1) {
		if isWeekday(cur) {
			days++
		}
	}
	return days
}

func nextOpening(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, businessOpenHour, 0, 0, 0, loc)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
