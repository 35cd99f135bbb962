package adcd

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/espdaq/adcd/espadc"
)

// Capture is one finished streaming acquisition: the calibrated sample
// vector plus identity and summary, ready for publishing or archiving.
type Capture struct {
	ID       ulid.ULID        `json:"id"`
	Unit     espadc.UnitID    `json:"unit"`
	Channel  espadc.ChannelID `json:"channel"`
	Atten    espadc.Atten     `json:"atten"`
	Start    time.Time        `json:"start"`
	Duration time.Duration    `json:"duration"`
	Samples  []int            `json:"samples"`
	Summary  SampleSummary    `json:"summary"`
}

// Capture runs the channel's continuous acquisition for the given duration
// and wraps the result with a fresh run ID and summary statistics. The
// sample vector may be empty when the capture degraded (see
// SampleForDuration); the Capture is still returned so the run is recorded.
func (c *Channel) Capture(duration time.Duration) *Capture {
	start := c.now()
	samples := c.SampleForDuration(duration)
	return &Capture{
		ID:       ulid.Make(),
		Unit:     c.unit.ID(),
		Channel:  c.ch,
		Atten:    c.atten,
		Start:    start,
		Duration: duration,
		Samples:  samples,
		Summary:  Summarize(samples),
	}
}
