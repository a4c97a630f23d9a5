package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressCountsAndETA(t *testing.T) {
	p := NewProgress("backfill", 4)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p.startTime = start
	p.now = func() time.Time { return start.Add(20 * time.Second) }

	assert.Equal(t, 0.0, p.Percent())
	assert.Equal(t, time.Duration(0), p.ETA())

	p.Step("2024-03-01", true)
	p.Step("2024-03-02", false)

	done, failed := p.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 50.0, p.Percent())
	assert.Equal(t, 20*time.Second, p.ETA(), "10s per step, 2 steps left")

	p.Step("2024-03-03", true)
	p.Step("2024-03-04", true)
	assert.Equal(t, time.Duration(0), p.ETA())
}

func TestProgressZeroTotal(t *testing.T) {
	p := NewProgress("empty", 0)
	assert.Equal(t, 100.0, p.Percent())
}
