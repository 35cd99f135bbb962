package adcd

import (
	"testing"

	"github.com/espdaq/adcd/espadc"
)

func TestNewUnitFailure(t *testing.T) {
	nh := espadc.NewNoHardware()
	nh.FailOneshotProvision = true
	u, err := NewUnit(nh, espadc.Unit1)
	if err == nil {
		t.Fatalf("NewUnit should fail when oneshot provisioning fails")
	}
	if u != nil {
		t.Errorf("failed NewUnit returned a unit")
	}
	if nh.ContinuousProvisions != 0 {
		t.Errorf("failed NewUnit attempted continuous provisioning")
	}
}

func TestContinuousHandleIdempotent(t *testing.T) {
	nh := espadc.NewNoHardware()
	u, err := NewUnit(nh, espadc.Unit1)
	if err != nil {
		t.Fatalf("NewUnit failed: %s", err)
	}
	first, err := u.ContinuousHandle()
	if err != nil {
		t.Fatalf("first ContinuousHandle failed: %s", err)
	}
	second, err := u.ContinuousHandle()
	if err != nil {
		t.Fatalf("second ContinuousHandle failed: %s", err)
	}
	if first != second {
		t.Errorf("second ContinuousHandle returned a different handle")
	}
	if nh.ContinuousProvisions != 1 {
		t.Errorf("ContinuousProvisions=%d, want 1", nh.ContinuousProvisions)
	}
	if nh.LastBufferConfig.MaxStoreBytes != contStoreBytes || nh.LastBufferConfig.FrameBytes != contFrameBytes {
		t.Errorf("buffer config %+v, want store=%d frame=%d", nh.LastBufferConfig, contStoreBytes, contFrameBytes)
	}
	if got := nh.LastAcqConfig.SampleFreqHz; got != contSampleFreqHz {
		t.Errorf("sample frequency %d, want %d", got, contSampleFreqHz)
	}
	if len(nh.LastAcqConfig.Pattern) != 1 {
		t.Fatalf("acquisition pattern has %d entries, want 1", len(nh.LastAcqConfig.Pattern))
	}
	if nh.LastAcqConfig.Format != espadc.FormatType2 {
		t.Errorf("output format %v, want type 2", nh.LastAcqConfig.Format)
	}
}

func TestContinuousProvisionFailureIsPermanent(t *testing.T) {
	nh := espadc.NewNoHardware()
	u, err := NewUnit(nh, espadc.Unit1)
	if err != nil {
		t.Fatalf("NewUnit failed: %s", err)
	}
	nh.FailContinuousProvision = true
	if _, err := u.ContinuousHandle(); err == nil {
		t.Fatalf("ContinuousHandle should fail when provisioning fails")
	}

	// Even after the fault clears, the failure must stick: no retry.
	nh.FailContinuousProvision = false
	if _, err := u.ContinuousHandle(); err == nil {
		t.Errorf("ContinuousHandle should keep failing after a failed attempt")
	}
	if nh.ContinuousProvisions != 0 {
		t.Errorf("ContinuousProvisions=%d, want 0", nh.ContinuousProvisions)
	}

	// Oneshot conversion keeps working on the same unit.
	if _, err := u.OneshotHandle().Read(espadc.Channel0); err != nil {
		t.Errorf("oneshot read after streaming failure: %s", err)
	}
}

func TestContinuousConfigureRollback(t *testing.T) {
	nh := espadc.NewNoHardware()
	u, err := NewUnit(nh, espadc.Unit1)
	if err != nil {
		t.Fatalf("NewUnit failed: %s", err)
	}
	nh.FailContinuousConfigure = true
	if _, err := u.ContinuousHandle(); err == nil {
		t.Fatalf("ContinuousHandle should fail when configuration fails")
	}
	// The freshly allocated handle must be released, not leaked.
	if nh.ContinuousProvisions != 1 || nh.ContinuousCloses != 1 {
		t.Errorf("provisions=%d closes=%d, want 1 and 1",
			nh.ContinuousProvisions, nh.ContinuousCloses)
	}

	nh.FailContinuousConfigure = false
	if _, err := u.ContinuousHandle(); err == nil {
		t.Errorf("ContinuousHandle should keep failing after a failed configure")
	}
	if nh.ContinuousProvisions != 1 {
		t.Errorf("failed configure was retried: provisions=%d", nh.ContinuousProvisions)
	}
}

func TestUnitClose(t *testing.T) {
	nh := espadc.NewNoHardware()
	u, err := NewUnit(nh, espadc.Unit2)
	if err != nil {
		t.Fatalf("NewUnit failed: %s", err)
	}
	if _, err := u.ContinuousHandle(); err != nil {
		t.Fatalf("ContinuousHandle failed: %s", err)
	}
	if err := u.Close(); err != nil {
		t.Errorf("Close failed: %s", err)
	}
	if nh.ContinuousCloses != 1 {
		t.Errorf("ContinuousCloses=%d, want 1", nh.ContinuousCloses)
	}
	if _, err := u.ContinuousHandle(); err == nil {
		t.Errorf("ContinuousHandle on closed unit should fail")
	}
}
