package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetain(t *testing.T) {
	created := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("contact forms kept five years", func(t *testing.T) {
		assert.True(t, ShouldRetain(ContactForms, created, created))
		assert.True(t, ShouldRetain(ContactForms, created, created.AddDate(4, 11, 0)))
		assert.False(t, ShouldRetain(ContactForms, created, created.AddDate(5, 0, 0).Add(time.Second)))
	})

	t.Run("boundary instant is expired", func(t *testing.T) {
		expiry, ok := Expiry(ContactForms, created)
		assert.True(t, ok)
		assert.True(t, ShouldRetain(ContactForms, created, expiry.Add(-time.Nanosecond)))
		assert.False(t, ShouldRetain(ContactForms, created, expiry))
	})

	t.Run("audit logs outlive contact forms", func(t *testing.T) {
		at := created.AddDate(6, 0, 0)
		assert.False(t, ShouldRetain(ContactForms, created, at))
		assert.True(t, ShouldRetain(AuditLogs, created, at))
		assert.False(t, ShouldRetain(AuditLogs, created, created.AddDate(7, 0, 2)))
	})

	t.Run("sessions kept thirty days", func(t *testing.T) {
		assert.True(t, ShouldRetain(Sessions, created, created.Add(29*day)))
		assert.False(t, ShouldRetain(Sessions, created, created.Add(30*day)))
	})

	t.Run("unknown class fails closed", func(t *testing.T) {
		assert.False(t, ShouldRetain(Class("marketing"), created, created))
		_, ok := Expiry(Class("marketing"), created)
		assert.False(t, ok)
		_, ok = Cutoff(Class("marketing"), created)
		assert.False(t, ok)
	})
}

func TestCutoffMatchesShouldRetain(t *testing.T) {
	now := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, class := range []Class{ContactForms, AuditLogs, Sessions} {
		cutoff, ok := Cutoff(class, now)
		assert.True(t, ok)
		assert.False(t, ShouldRetain(class, cutoff, now), class)
		assert.True(t, ShouldRetain(class, cutoff.Add(time.Millisecond), now), class)
	}
}
