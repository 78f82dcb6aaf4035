package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, System().Now().Location())
}

func TestOrSystem(t *testing.T) {
	fake := NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Same(t, fake, OrSystem(fake))
	assert.NotNil(t, OrSystem(nil))
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.FixedZone("IST", 19800))
	fake := NewFakeClock(start)
	fake.Advance(90 * time.Minute)
	assert.Equal(t, start.UTC().Add(90*time.Minute), fake.Now())
}
