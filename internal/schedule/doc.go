// Package schedule compiles free-text weekly schedules into cron rules.
//
// # Overview
//
// Show schedules are authored by people ("every weekday at 8:00 AM",
// "Mondays and Thursdays at 10:30 PM") and compiled once, at edit time, into
// a five-field cron expression the scheduler consumes plus a canonical
// description shown back to the author. The source text stays the source of
// truth; the cron expression is always re-derivable from it.
//
// # Recognized input
//
//   - Single weekdays, full or abbreviated: "Tuesday", "tue"
//   - Explicit lists: "Monday, Wednesday, Friday"
//   - Ranges: "Monday through Friday", "mon-fri"
//   - Groups: "weekdays", "weekends", "every day" / "daily"
//   - Time of day: 12-hour with AM/PM ("8 AM", "8:30pm") or 24-hour ("20:30")
//   - Optional duration hint: "for 90 minutes", "for 2 hours"
//
// An explicit day list or range wins over a group word when both appear.
// Anything else is a compile error; Compile never returns a partial result.
package schedule
