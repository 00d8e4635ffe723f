package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeref(t *testing.T) {
	assert.Equal(t, uint(0), Deref[uint](nil))
	assert.Equal(t, uint(4), Deref(ToPtr(uint(4))))
}

func TestFormatUTC(t *testing.T) {
	assert.Equal(t, "-", FormatUTC(time.Time{}, DisplayTimeLayout))
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "2026-01-02 02:04:05", FormatUTC(ts, DisplayTimeLayout))
}
