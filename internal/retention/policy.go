// Package retention holds the fixed data retention table and the sweep that
// enforces it.
package retention

import "time"

// Class names a category of stored data.
type Class string

const (
	ContactForms Class = "contact_forms"
	AuditLogs    Class = "audit_logs"
	Sessions     Class = "sessions"
)

const day = 24 * time.Hour

// periods is the compliance contract. It is deliberately not configurable.
var periods = map[Class]time.Duration{
	ContactForms: 5 * 365 * day,
	AuditLogs:    7 * 365 * day,
	Sessions:     30 * day,
}

// Period returns the retention duration of class.
func Period(class Class) (time.Duration, bool) {
	d, ok := periods[class]
	return d, ok
}

// Expiry returns createdAt plus the class period. ok is false for an unknown class.
func Expiry(class Class, createdAt time.Time) (time.Time, bool) {
	d, ok := Period(class)
	if !ok {
		return time.Time{}, false
	}
	return createdAt.Add(d), true
}

// ShouldRetain reports whether data of class created at createdAt may still
// be kept at now. Unknown classes are never retained.
func ShouldRetain(class Class, createdAt, now time.Time) bool {
	expiry, ok := Expiry(class, createdAt)
	if !ok {
		return false
	}
	return now.Before(expiry)
}

// Cutoff is the newest creation time that has expired at now.
func Cutoff(class Class, now time.Time) (time.Time, bool) {
	d, ok := Period(class)
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-d), true
}
