package models

import "time"

const (
	// DateLayout is how request dates are stored.
	DateLayout = "2006-01-02"
	// TimestampLayout is how created_at values are stored.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Location is the fixed offset timestamps are recorded in and calendar dates
// are interpreted at, independent of the server time zone.
var Location = time.FixedZone("UTC-3", -3*60*60)

// FormatCreatedAt renders a stored created_at as DD/MM/YYYY, HH:MM. Values
// that do not parse are returned unchanged.
func FormatCreatedAt(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.ParseInLocation(TimestampLayout, s, Location)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006, 15:04")
}
