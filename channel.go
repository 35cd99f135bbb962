package adcd

import (
	"fmt"
	"math"
	"time"

	"github.com/espdaq/adcd/espadc"
)

// contReadBufBytes is how much of the continuous store one poll drains.
const contReadBufBytes = 1024

// ReadResult holds the summary of one sampled read: the truncating integer
// mean, the extremes, and the spread between the 30th/70th and 60th/40th
// percentile values of the calibrated samples.
type ReadResult struct {
	AverageMV  int
	MinMV      int
	MaxMV      int
	P30WidthMV int
	P60WidthMV int
}

// Channel binds one input channel of a Unit to an attenuation setting and a
// calibration context. Many channels may share one Unit; the Unit must
// outlive them. Channels are not safe for concurrent use.
type Channel struct {
	unit    *Unit
	ch      espadc.ChannelID
	atten   espadc.Atten
	oneshot espadc.Oneshot
	cont    espadc.Continuous
	cali    espadc.Calibration

	// Injectable time sources, overridden in tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewChannel configures the given channel for oneshot conversion at the
// given attenuation and creates its calibration context. If either step
// fails, any partial state is released and no Channel is returned. The
// unit's continuous handle is provisioned as a side effect; if that fails,
// the channel still works for sampled reads but streaming captures yield no
// samples.
func NewChannel(unit *Unit, ch espadc.ChannelID, atten espadc.Atten) (*Channel, error) {
	oneshot := unit.OneshotHandle()
	cfg := espadc.ChannelConfig{Atten: atten, Bitwidth: espadc.Bitwidth12}
	if err := oneshot.ConfigureChannel(ch, cfg); err != nil {
		return nil, fmt.Errorf("configure %v %v: %w", unit.ID(), ch, err)
	}

	cali, err := unit.driver.NewCalibration(espadc.CalConfig{
		Unit:     unit.ID(),
		Channel:  ch,
		Atten:    atten,
		Bitwidth: espadc.Bitwidth12,
	})
	if err != nil {
		return nil, fmt.Errorf("create calibration context for %v %v: %w", unit.ID(), ch, err)
	}

	cont, err := unit.ContinuousHandle()
	if err != nil {
		ProblemLogger.Printf("continuous conversion unavailable on %v: %s", unit.ID(), err)
		cont = nil
	}

	return &Channel{
		unit:    unit,
		ch:      ch,
		atten:   atten,
		oneshot: oneshot,
		cont:    cont,
		cali:    cali,
		now:     time.Now,
		sleep:   time.Sleep,
	}, nil
}

// ChannelID returns the channel selector.
func (c *Channel) ChannelID() espadc.ChannelID {
	return c.ch
}

// Atten returns the configured attenuation.
func (c *Channel) Atten() espadc.Atten {
	return c.atten
}

// Read performs sampleCount sequential oneshot conversions, sleeping
// sampleDelay between consecutive conversions, and fills result with the
// calibrated statistics. On any conversion or calibration failure it returns
// the error immediately and leaves result untouched; a partially accumulated
// run is never reported.
func (c *Channel) Read(sampleCount int, sampleDelay time.Duration, result *ReadResult) error {
	if sampleCount < 1 {
		return fmt.Errorf("sample count %d < 1", sampleCount)
	}
	voltages := make([]int, 0, sampleCount)

	sum := 0
	min := math.MaxInt
	max := math.MinInt

	for i := 0; i < sampleCount; i++ {
		raw, err := c.oneshot.Read(c.ch)
		if err != nil {
			ProblemLogger.Printf("oneshot read failed on %v %v: %s", c.unit.ID(), c.ch, err)
			return err
		}
		voltage, err := c.cali.RawToMillivolts(raw)
		if err != nil {
			ProblemLogger.Printf("calibration lookup failed on %v %v: %s", c.unit.ID(), c.ch, err)
			return err
		}

		voltages = append(voltages, voltage)
		sum += voltage
		if voltage < min {
			min = voltage
		}
		if voltage > max {
			max = voltage
		}

		if sampleDelay > 0 && i < sampleCount-1 {
			c.sleep(sampleDelay)
		}
	}

	result.AverageMV = sum / sampleCount
	result.MinMV = min
	result.MaxMV = max
	result.P30WidthMV = percentileWidth(voltages, 30)
	result.P60WidthMV = percentileWidth(voltages, 60)
	return nil
}

// SampleForDuration runs the unit's continuous acquisition for the given
// wall-clock duration and returns every calibrated sample collected. The
// loop polls without blocking; an empty poll is normal and any other read
// error is logged but tolerated, so a noisy capture window yields a gap
// rather than aborting. A failure to start returns an empty slice; a failure
// to stop is logged but the collected samples are kept.
func (c *Channel) SampleForDuration(duration time.Duration) []int {
	voltages := []int{}
	if c.cont == nil {
		ProblemLogger.Printf("no continuous handle on %v, returning no samples", c.unit.ID())
		return voltages
	}
	buf := make([]byte, contReadBufBytes)

	if err := c.cont.Start(); err != nil {
		ProblemLogger.Printf("failed to start continuous conversion on %v: %s", c.unit.ID(), err)
		return voltages
	}

	start := c.now()
	for c.now().Sub(start) < duration {
		n, err := c.cont.Read(buf)
		if err == nil {
			voltages = c.appendRecords(voltages, buf[:n])
		} else if err != espadc.ErrNoData {
			ProblemLogger.Printf("continuous read error on %v: %s", c.unit.ID(), err)
		}
	}

	if err := c.cont.Stop(); err != nil {
		ProblemLogger.Printf("failed to stop continuous conversion on %v: %s", c.unit.ID(), err)
	}
	return voltages
}

// appendRecords decodes type-2 conversion records and appends the calibrated
// millivolt values. Each record is two bytes, low byte first; only the low
// 12 bits carry the conversion code. This layout is imposed by the conversion
// engine and must not change.
func (c *Channel) appendRecords(voltages []int, records []byte) []int {
	for i := 0; i+1 < len(records); i += 2 {
		raw := (int(records[i+1])<<8 | int(records[i])) & espadc.RawMax
		voltage, err := c.cali.RawToMillivolts(raw)
		if err != nil {
			ProblemLogger.Printf("calibration lookup failed on %v %v: %s", c.unit.ID(), c.ch, err)
			continue
		}
		voltages = append(voltages, voltage)
	}
	return voltages
}

// Close releases the channel's calibration context. The owning unit and any
// sibling channels are unaffected.
func (c *Channel) Close() error {
	if c.cali == nil {
		return nil
	}
	err := c.cali.Close()
	c.cali = nil
	return err
}
