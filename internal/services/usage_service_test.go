package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateKeyUTC(t *testing.T) {
	utc := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-01", DateKeyUTC(utc))

	// Late evening east of UTC is already the next UTC-relative day for the
	// local clock, but the key follows UTC.
	tokyo := time.FixedZone("UTC+9", 9*3600)
	assert.Equal(t, "2026-09-01", DateKeyUTC(time.Date(2026, 9, 2, 8, 0, 0, 0, tokyo)))

	// Just before and after UTC midnight land on different keys.
	pacific := time.FixedZone("UTC-8", -8*3600)
	assert.Equal(t, "2026-09-01", DateKeyUTC(time.Date(2026, 9, 1, 15, 59, 0, 0, pacific)))
	assert.Equal(t, "2026-09-02", DateKeyUTC(time.Date(2026, 9, 1, 16, 1, 0, 0, pacific)))
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range QuestionCategories {
		assert.True(t, IsValidCategory(c), c)
	}
	assert.False(t, IsValidCategory("fun"))
	assert.False(t, IsValidCategory(""))
	assert.False(t, IsValidCategory("Politics"))
}
