package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Weekly price series only gain a new point once a week, but intraweek
	// revisions (splits, late corrections) make a shorter TTL safer.
	TTLWeeklySeries = 24 * time.Hour

	// Fundamentals snapshots move with quarterly filings.
	TTLFundamentals = 7 * 24 * time.Hour
)
