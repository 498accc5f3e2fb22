package schedule

import "github.com/dukerupert/chorechart/internal/calendar"

// LeadDays is how far ahead of today a chore may be marked.
const LeadDays = 2

// IsActionable reports whether a completion toggle for date is allowed on
// today: any past date, today, and up to LeadDays ahead.
func IsActionable(date, today calendar.Date) bool {
	return calendar.DaysBetween(today, date) <= LeadDays
}

// CommentsOpen reports whether comments may be added to an occurrence on date.
// Only the current month is open.
func CommentsOpen(date, today calendar.Date) bool {
	return date.YearMonth() == today.YearMonth()
}
