package adcd

import (
	"fmt"

	"github.com/espdaq/adcd/espadc"
)

// Continuous-mode provisioning parameters. The store holds four conversion
// frames; the scan runs at 20 kSa/s on the unit's channel 0.
const (
	contStoreBytes   = 1024
	contFrameBytes   = 256
	contSampleFreqHz = 20000
)

// contState tracks the lazy continuous-handle provisioning: it moves from
// idle to exactly one of ready or failed and then never changes again.
type contState int

const (
	contIdle contState = iota
	contReady
	contFailed
)

// Unit owns one physical ADC unit. The oneshot handle is provisioned when
// the unit is created; the continuous handle is provisioned on first use and
// cached for the unit's lifetime. Units are not safe for concurrent use.
type Unit struct {
	driver     espadc.Driver
	id         espadc.UnitID
	oneshot    espadc.Oneshot
	cont       espadc.Continuous
	contStatus contState
	contErr    error
}

// NewUnit provisions the oneshot converter of the given unit and returns a
// Unit wrapping it. If oneshot provisioning fails, no Unit is returned and
// nothing is left allocated.
func NewUnit(driver espadc.Driver, id espadc.UnitID) (*Unit, error) {
	oneshot, err := driver.NewOneshot(id)
	if err != nil {
		return nil, fmt.Errorf("provision oneshot converter for %v: %w", id, err)
	}
	return &Unit{driver: driver, id: id, oneshot: oneshot}, nil
}

// ID returns the unit selector.
func (u *Unit) ID() espadc.UnitID {
	return u.id
}

// OneshotHandle returns the oneshot conversion handle. It is always valid on
// a Unit returned by NewUnit.
func (u *Unit) OneshotHandle() espadc.Oneshot {
	return u.oneshot
}

// ContinuousHandle returns the streaming conversion handle, provisioning it
// on first call. Provisioning happens at most once: a second call returns
// the cached handle without reconfiguring, and a failed attempt is recorded
// permanently, so the unit keeps working in oneshot mode but never retries
// streaming.
func (u *Unit) ContinuousHandle() (espadc.Continuous, error) {
	switch u.contStatus {
	case contReady:
		return u.cont, nil
	case contFailed:
		return nil, u.contErr
	}

	cont, err := u.driver.NewContinuous(u.id, espadc.BufferConfig{
		MaxStoreBytes: contStoreBytes,
		FrameBytes:    contFrameBytes,
	})
	if err != nil {
		u.contStatus = contFailed
		u.contErr = fmt.Errorf("provision continuous converter for %v: %w", u.id, err)
		return nil, u.contErr
	}

	cfg := espadc.AcqConfig{
		Pattern: []espadc.PatternEntry{{
			Unit:     u.id,
			Channel:  espadc.Channel0,
			Atten:    espadc.AttenDB12,
			Bitwidth: espadc.Bitwidth12,
		}},
		SampleFreqHz: contSampleFreqHz,
		Format:       espadc.FormatType2,
	}
	if err := cont.Configure(cfg); err != nil {
		// Reverse the handle allocation so nothing leaks.
		if cerr := cont.Close(); cerr != nil {
			ProblemLogger.Printf("releasing unconfigured continuous handle for %v: %s", u.id, cerr)
		}
		u.contStatus = contFailed
		u.contErr = fmt.Errorf("configure continuous converter for %v: %w", u.id, err)
		return nil, u.contErr
	}

	u.cont = cont
	u.contStatus = contReady
	return u.cont, nil
}

// Close releases both conversion handles. Channels referencing this unit
// must be closed first.
func (u *Unit) Close() error {
	var firstErr error
	if u.contStatus == contReady {
		if err := u.cont.Close(); err != nil {
			firstErr = err
		}
		u.cont = nil
		u.contStatus = contFailed
		u.contErr = fmt.Errorf("unit %v closed", u.id)
	}
	if u.oneshot != nil {
		if err := u.oneshot.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		u.oneshot = nil
	}
	return firstErr
}
