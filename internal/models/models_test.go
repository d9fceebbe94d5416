package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameData(t *testing.T) {
	fd := NewFrameData()

	frame, _ := fd.Get()
	assert.False(t, frame.State.HasBestLap())
	assert.Equal(t, 100.0, frame.State.BatteryCharge)

	fd.Update(Frame{RunID: "run", Sequence: 7})
	frame, ts := fd.Get()
	assert.Equal(t, "run", frame.RunID)
	assert.Equal(t, uint64(7), frame.Sequence)
	assert.False(t, ts.IsZero())
}

func TestCruiseSetpoint(t *testing.T) {
	cs := NewCruiseSetpoint()

	enabled, _ := cs.Get()
	assert.False(t, enabled)

	cs.Update(true, 4.5)
	enabled, target := cs.Get()
	assert.True(t, enabled)
	assert.Equal(t, 4.5, target)

	// Disabling keeps the last target for display.
	cs.Update(false, 0)
	enabled, target = cs.Get()
	assert.False(t, enabled)
	assert.Equal(t, 4.5, target)
}
