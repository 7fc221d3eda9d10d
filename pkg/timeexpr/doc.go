// Package timeexpr parses cadence strings and computes their next occurrence.
//
// Supported forms (keyword is case-insensitive):
//   - "Day HH:MM:SS"           every day at the given time
//   - "Week W HH:MM:SS"        every week on weekday W (0 = Sunday .. 6 = Saturday)
//   - "Month D HH:MM:SS"       every month on day D (1..31)
//
// A monthly expression whose day does not exist in the resolved month fails with
// schederr.ErrDateOverflow instead of skipping or clamping; days after the 28th are
// therefore best avoided.
package timeexpr
