// Package espadc defines the capability set of an ESP32-class successive
// approximation ADC: oneshot (on-demand) conversion, continuous (DMA-driven)
// conversion, and raw-code-to-millivolt calibration. The package contains no
// register code itself; a real driver binds these interfaces to the vendor
// SDK, while NoHardware implements them in pure Go for tests and for running
// the acquisition daemon without a converter attached.
package espadc

import (
	"errors"
	"fmt"
)

// ErrNoData reports that a continuous-mode poll found nothing in the DMA
// buffer. It is the normal idle condition of a polling loop, not a fault.
var ErrNoData = errors.New("espadc: no conversion data available")

// ChannelConfig selects the electrical configuration of one input channel on
// a oneshot converter.
type ChannelConfig struct {
	Atten    Atten
	Bitwidth Bitwidth
}

// BufferConfig sizes the driver-owned store for continuous conversion.
// MaxStoreBytes is the total DMA pool; FrameBytes is the size of one
// conversion frame delivered per completed DMA descriptor.
type BufferConfig struct {
	MaxStoreBytes int
	FrameBytes    int
}

// PatternEntry is one slot of a continuous-mode acquisition pattern.
type PatternEntry struct {
	Unit     UnitID
	Channel  ChannelID
	Atten    Atten
	Bitwidth Bitwidth
}

// AcqConfig is the conversion plan for a continuous handle: which inputs to
// scan, how fast, and in which output record format.
type AcqConfig struct {
	Pattern      []PatternEntry
	SampleFreqHz int
	Format       OutputFormat
}

// CalConfig identifies the calibration scheme for one (unit, channel,
// attenuation) triple.
type CalConfig struct {
	Unit     UnitID
	Channel  ChannelID
	Atten    Atten
	Bitwidth Bitwidth
}

// Oneshot is a provisioned single-conversion handle for one ADC unit.
type Oneshot interface {
	// ConfigureChannel applies the electrical configuration to one channel.
	ConfigureChannel(ch ChannelID, cfg ChannelConfig) error
	// Read triggers one conversion on the given channel and returns the raw
	// code.
	Read(ch ChannelID) (int, error)
	Close() error
}

// Continuous is a provisioned streaming-conversion handle for one ADC unit.
// A freshly provisioned handle owns DMA memory but no conversion plan;
// Configure installs the plan. Read never blocks: it drains whatever frames
// the DMA engine has finished and returns ErrNoData when there are none.
type Continuous interface {
	Configure(cfg AcqConfig) error
	Start() error
	Stop() error
	// Read copies finished conversion records into buf and returns the
	// number of bytes copied.
	Read(buf []byte) (int, error)
	Close() error
}

// Calibration converts raw ADC codes to millivolts for one (unit, channel,
// attenuation) triple.
type Calibration interface {
	RawToMillivolts(raw int) (int, error)
	Close() error
}

// Driver is the full capability set a hardware backend must provide.
type Driver interface {
	NewOneshot(unit UnitID) (Oneshot, error)
	NewContinuous(unit UnitID, cfg BufferConfig) (Continuous, error)
	NewCalibration(cfg CalConfig) (Calibration, error)
}

func (c CalConfig) String() string {
	return fmt.Sprintf("unit %v channel %v atten %v", c.Unit, c.Channel, c.Atten)
}
