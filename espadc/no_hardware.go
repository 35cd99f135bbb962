package espadc

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// NoHardware is a drop in replacement for a real converter backend
// (implements Driver) that requires no hardware. Tests and the daemon's sim
// mode use it. All state lives flat on the one struct so tests can inspect
// provisioning counters and inject faults at any step.
type NoHardware struct {
	// Fault injection for provisioning. Each flag makes the corresponding
	// step fail until cleared.
	FailOneshotProvision     bool
	FailContinuousProvision  bool
	FailContinuousConfigure  bool
	FailCalibrationProvision bool
	FailChannelConfigure     bool

	// Provisioning and teardown counters.
	OneshotProvisions     int
	ContinuousProvisions  int
	CalibrationProvisions int
	ContinuousCloses      int
	CalibrationCloses     int

	// Last configurations seen, for assertions.
	LastBufferConfig  BufferConfig
	LastAcqConfig     AcqConfig
	LastChannelConfig ChannelConfig

	rawLevel int
	wave     []int
	wavePos  int

	readErr   error
	readErrAt int
	readCount int

	startErr error
	stopErr  error
	pollErr  error

	recordsPerPoll int
	noDataEvery    int
	pollCount      int

	transfer func(raw int) int
	running  bool
}

// NewNoHardware generates and returns a converter backend in test mode,
// meaning it emulates an ADC without any hardware. It idles at mid-scale.
func NewNoHardware() *NoHardware {
	return &NoHardware{rawLevel: RawMax / 2, recordsPerPoll: 16}
}

// SimulateRaw makes every subsequent conversion return the given raw code.
func (nh *NoHardware) SimulateRaw(raw int) {
	nh.rawLevel = raw
	nh.wave = nil
}

// SimulateWave makes conversions walk a triangle wave between min and max
// raw codes, one step per conversion.
func (nh *NoHardware) SimulateWave(min, max int) {
	nrise := max - min
	cycle := make([]int, 0, 2*nrise)
	for i := 0; i < nrise; i++ {
		cycle = append(cycle, min+i)
	}
	for i := 0; i < nrise; i++ {
		cycle = append(cycle, max-i)
	}
	nh.wave = cycle
	nh.wavePos = 0
}

// SimulateRawSequence makes conversions replay the given raw codes in order,
// repeating from the start when exhausted.
func (nh *NoHardware) SimulateRawSequence(raws []int) {
	nh.wave = append([]int(nil), raws...)
	nh.wavePos = 0
}

// SetTransfer overrides the calibration transfer function. The default
// scales a raw code linearly to the attenuation's full-scale range.
func (nh *NoHardware) SetTransfer(f func(raw int) int) {
	nh.transfer = f
}

// FailOneshotReadAt makes the k-th oneshot conversion (1-based, counted from
// now) return err. k=0 fails every conversion.
func (nh *NoHardware) FailOneshotReadAt(k int, err error) {
	nh.readErr = err
	nh.readErrAt = k
	nh.readCount = 0
}

// FailNextPoll makes the next continuous-mode poll return err once.
func (nh *NoHardware) FailNextPoll(err error) {
	nh.pollErr = err
}

// SetStartError and SetStopError inject faults into the continuous
// start/stop bracketing calls.
func (nh *NoHardware) SetStartError(err error) { nh.startErr = err }
func (nh *NoHardware) SetStopError(err error)  { nh.stopErr = err }

// SetRecordsPerPoll controls how many two-byte records each successful poll
// delivers.
func (nh *NoHardware) SetRecordsPerPoll(n int) { nh.recordsPerPoll = n }

// EveryNthPollEmpty makes every n-th poll report ErrNoData, emulating a DMA
// engine that has not finished a frame yet. n=0 disables the behavior.
func (nh *NoHardware) EveryNthPollEmpty(n int) { nh.noDataEvery = n }

func (nh *NoHardware) nextRaw() int {
	if len(nh.wave) == 0 {
		return nh.rawLevel
	}
	raw := nh.wave[nh.wavePos]
	nh.wavePos = (nh.wavePos + 1) % len(nh.wave)
	return raw
}

// NewOneshot provisions the simulated oneshot converter.
func (nh *NoHardware) NewOneshot(unit UnitID) (Oneshot, error) {
	if nh.FailOneshotProvision {
		return nil, fmt.Errorf("NoHardware.NewOneshot: provisioning disabled for %v", unit)
	}
	nh.OneshotProvisions++
	return &simOneshot{nh: nh, unit: unit}, nil
}

// NewContinuous provisions the simulated streaming converter. A configure
// fault is injected at Configure, not here, so callers exercise their
// rollback path.
func (nh *NoHardware) NewContinuous(unit UnitID, cfg BufferConfig) (Continuous, error) {
	if nh.FailContinuousProvision {
		return nil, fmt.Errorf("NoHardware.NewContinuous: provisioning disabled for %v", unit)
	}
	nh.ContinuousProvisions++
	nh.LastBufferConfig = cfg
	return &simContinuous{nh: nh, unit: unit}, nil
}

// NewCalibration provisions a simulated calibration context.
func (nh *NoHardware) NewCalibration(cfg CalConfig) (Calibration, error) {
	if nh.FailCalibrationProvision {
		return nil, fmt.Errorf("NoHardware.NewCalibration: provisioning disabled for %s", cfg)
	}
	nh.CalibrationProvisions++
	return &simCalibration{nh: nh, atten: cfg.Atten}, nil
}

// InspectState dumps the full simulator state for debugging.
func (nh *NoHardware) InspectState() {
	spew.Println(nh)
}

type simOneshot struct {
	nh     *NoHardware
	unit   UnitID
	closed bool
}

func (o *simOneshot) ConfigureChannel(ch ChannelID, cfg ChannelConfig) error {
	if o.closed {
		return fmt.Errorf("simOneshot.ConfigureChannel: handle closed")
	}
	if o.nh.FailChannelConfigure {
		return fmt.Errorf("simOneshot.ConfigureChannel: configuration disabled for %v", ch)
	}
	o.nh.LastChannelConfig = cfg
	return nil
}

func (o *simOneshot) Read(ch ChannelID) (int, error) {
	if o.closed {
		return 0, fmt.Errorf("simOneshot.Read: handle closed")
	}
	o.nh.readCount++
	if o.nh.readErr != nil && (o.nh.readErrAt == 0 || o.nh.readCount == o.nh.readErrAt) {
		return 0, o.nh.readErr
	}
	return o.nh.nextRaw(), nil
}

func (o *simOneshot) Close() error {
	if o.closed {
		return fmt.Errorf("simOneshot.Close: already closed")
	}
	o.closed = true
	return nil
}

type simContinuous struct {
	nh         *NoHardware
	unit       UnitID
	configured bool
	closed     bool
}

func (c *simContinuous) Configure(cfg AcqConfig) error {
	if c.closed {
		return fmt.Errorf("simContinuous.Configure: handle closed")
	}
	if c.nh.FailContinuousConfigure {
		return fmt.Errorf("simContinuous.Configure: configuration disabled")
	}
	if len(cfg.Pattern) == 0 {
		return fmt.Errorf("simContinuous.Configure: empty acquisition pattern")
	}
	c.nh.LastAcqConfig = cfg
	c.configured = true
	return nil
}

func (c *simContinuous) Start() error {
	if c.nh.startErr != nil {
		return c.nh.startErr
	}
	if !c.configured {
		return fmt.Errorf("simContinuous.Start: not configured")
	}
	if c.nh.running {
		return fmt.Errorf("simContinuous.Start: already started")
	}
	c.nh.running = true
	return nil
}

func (c *simContinuous) Stop() error {
	if c.nh.stopErr != nil {
		return c.nh.stopErr
	}
	if !c.nh.running {
		return fmt.Errorf("simContinuous.Stop: not started")
	}
	c.nh.running = false
	return nil
}

// Read fills buf with type-2 records: 12-bit raw code little-endian, channel
// number in the high nibble of the second byte.
func (c *simContinuous) Read(buf []byte) (int, error) {
	if !c.nh.running {
		return 0, fmt.Errorf("simContinuous.Read: not started")
	}
	if c.nh.pollErr != nil {
		err := c.nh.pollErr
		c.nh.pollErr = nil
		return 0, err
	}
	c.nh.pollCount++
	if c.nh.noDataEvery > 0 && c.nh.pollCount%c.nh.noDataEvery == 0 {
		return 0, ErrNoData
	}
	var ch ChannelID
	if len(c.nh.LastAcqConfig.Pattern) > 0 {
		ch = c.nh.LastAcqConfig.Pattern[0].Channel
	}
	n := 0
	for i := 0; i < c.nh.recordsPerPoll && n+1 < len(buf); i++ {
		raw := c.nh.nextRaw() & RawMax
		buf[n] = byte(raw & 0xFF)
		buf[n+1] = byte(raw>>8) | byte(ch)<<4
		n += 2
	}
	return n, nil
}

func (c *simContinuous) Close() error {
	if c.closed {
		return fmt.Errorf("simContinuous.Close: already closed")
	}
	c.closed = true
	c.nh.ContinuousCloses++
	return nil
}

type simCalibration struct {
	nh     *NoHardware
	atten  Atten
	closed bool
}

func (s *simCalibration) RawToMillivolts(raw int) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("simCalibration.RawToMillivolts: context closed")
	}
	if s.nh.transfer != nil {
		return s.nh.transfer(raw), nil
	}
	return raw * FullScaleMV(s.atten) / RawMax, nil
}

func (s *simCalibration) Close() error {
	if s.closed {
		return fmt.Errorf("simCalibration.Close: already closed")
	}
	s.closed = true
	s.nh.CalibrationCloses++
	return nil
}
