// AngelaMos | 2026
// database_test.go

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitteredDuration(t *testing.T) {
	base := time.Hour

	for i := 0; i < 100; i++ {
		got := jitteredDuration(base)
		assert.GreaterOrEqual(t, got, base)
		assert.Less(t, got, base+base/7)
	}
}

func TestJitteredDuration_TinyBase(t *testing.T) {
	// Bases too small to carve a jitter span out of are returned as-is.
	assert.Equal(t, time.Duration(0), jitteredDuration(0))
	assert.Equal(t, 3*time.Nanosecond, jitteredDuration(3*time.Nanosecond))
}
