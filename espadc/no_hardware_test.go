package espadc

import (
	"errors"
	"testing"
)

func TestNoHardwareOneshot(t *testing.T) {
	nh := NewNoHardware()
	nh.SimulateRaw(1000)

	os, err := nh.NewOneshot(Unit1)
	if err != nil {
		t.Fatalf("NewOneshot failed: %s", err)
	}
	if nh.OneshotProvisions != 1 {
		t.Errorf("OneshotProvisions=%d, want 1", nh.OneshotProvisions)
	}
	if err := os.ConfigureChannel(Channel2, ChannelConfig{Atten: AttenDB6, Bitwidth: Bitwidth12}); err != nil {
		t.Errorf("ConfigureChannel failed: %s", err)
	}
	for i := 0; i < 3; i++ {
		raw, err := os.Read(Channel2)
		if err != nil {
			t.Errorf("Read %d failed: %s", i, err)
		}
		if raw != 1000 {
			t.Errorf("Read %d = %d, want 1000", i, raw)
		}
	}

	injected := errors.New("conversion timed out")
	nh.FailOneshotReadAt(2, injected)
	if _, err := os.Read(Channel2); err != nil {
		t.Errorf("read 1 after injection should succeed, got %s", err)
	}
	if _, err := os.Read(Channel2); !errors.Is(err, injected) {
		t.Errorf("read 2 after injection = %v, want injected error", err)
	}

	if err := os.Close(); err != nil {
		t.Errorf("Close failed: %s", err)
	}
	if err := os.Close(); err == nil {
		t.Errorf("second Close should fail")
	}
}

func TestNoHardwareProvisionFailures(t *testing.T) {
	nh := NewNoHardware()
	nh.FailOneshotProvision = true
	if _, err := nh.NewOneshot(Unit1); err == nil {
		t.Errorf("NewOneshot should fail when provisioning disabled")
	}
	nh.FailContinuousProvision = true
	if _, err := nh.NewContinuous(Unit1, BufferConfig{}); err == nil {
		t.Errorf("NewContinuous should fail when provisioning disabled")
	}
	nh.FailCalibrationProvision = true
	if _, err := nh.NewCalibration(CalConfig{Unit: Unit1}); err == nil {
		t.Errorf("NewCalibration should fail when provisioning disabled")
	}
	if nh.OneshotProvisions+nh.ContinuousProvisions+nh.CalibrationProvisions != 0 {
		t.Errorf("failed provisioning should not increment counters")
	}
}

func TestNoHardwareContinuous(t *testing.T) {
	nh := NewNoHardware()
	nh.SimulateWave(100, 110)
	nh.SetRecordsPerPoll(4)

	cont, err := nh.NewContinuous(Unit1, BufferConfig{MaxStoreBytes: 1024, FrameBytes: 256})
	if err != nil {
		t.Fatalf("NewContinuous failed: %s", err)
	}
	if _, err := cont.Read(make([]byte, 16)); err == nil {
		t.Errorf("Read before Start should fail")
	}
	cfg := AcqConfig{
		Pattern:      []PatternEntry{{Unit: Unit1, Channel: Channel3, Atten: AttenDB12, Bitwidth: Bitwidth12}},
		SampleFreqHz: 20000,
		Format:       FormatType2,
	}
	if err := cont.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %s", err)
	}
	if err := cont.Start(); err != nil {
		t.Fatalf("Start failed: %s", err)
	}
	if err := cont.Start(); err == nil {
		t.Errorf("second Start should fail")
	}

	buf := make([]byte, 16)
	n, err := cont.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %s", err)
	}
	if n != 8 {
		t.Errorf("Read returned %d bytes, want 8", n)
	}
	for i := 0; i < n; i += 2 {
		raw := (int(buf[i+1])<<8 | int(buf[i])) & RawMax
		want := 100 + i/2
		if raw != want {
			t.Errorf("record %d decodes to %d, want %d", i/2, raw, want)
		}
		if ch := buf[i+1] >> 4; ch != byte(Channel3) {
			t.Errorf("record %d carries channel %d, want %d", i/2, ch, Channel3)
		}
	}

	nh.EveryNthPollEmpty(1)
	if _, err := cont.Read(buf); !errors.Is(err, ErrNoData) {
		t.Errorf("empty poll = %v, want ErrNoData", err)
	}
	nh.EveryNthPollEmpty(0)

	injected := errors.New("dma overrun")
	nh.FailNextPoll(injected)
	if _, err := cont.Read(buf); !errors.Is(err, injected) {
		t.Errorf("poll after injection = %v, want injected error", err)
	}
	if _, err := cont.Read(buf); err != nil {
		t.Errorf("poll error should clear after one poll, got %s", err)
	}

	if err := cont.Stop(); err != nil {
		t.Errorf("Stop failed: %s", err)
	}
	if err := cont.Stop(); err == nil {
		t.Errorf("second Stop should fail")
	}
	if err := cont.Close(); err != nil {
		t.Errorf("Close failed: %s", err)
	}
	if nh.ContinuousCloses != 1 {
		t.Errorf("ContinuousCloses=%d, want 1", nh.ContinuousCloses)
	}
}

func TestNoHardwareCalibration(t *testing.T) {
	nh := NewNoHardware()
	cal, err := nh.NewCalibration(CalConfig{Unit: Unit1, Channel: Channel0, Atten: AttenDB12, Bitwidth: Bitwidth12})
	if err != nil {
		t.Fatalf("NewCalibration failed: %s", err)
	}
	mv, err := cal.RawToMillivolts(RawMax)
	if err != nil {
		t.Errorf("RawToMillivolts failed: %s", err)
	}
	if mv != 2500 {
		t.Errorf("full-scale 12dB = %d mV, want 2500", mv)
	}
	mv, _ = cal.RawToMillivolts(0)
	if mv != 0 {
		t.Errorf("zero code = %d mV, want 0", mv)
	}

	nh.SetTransfer(func(raw int) int { return raw + 7 })
	mv, _ = cal.RawToMillivolts(100)
	if mv != 107 {
		t.Errorf("override transfer = %d, want 107", mv)
	}

	if err := cal.Close(); err != nil {
		t.Errorf("Close failed: %s", err)
	}
	if _, err := cal.RawToMillivolts(1); err == nil {
		t.Errorf("RawToMillivolts on closed context should fail")
	}
	if nh.CalibrationCloses != 1 {
		t.Errorf("CalibrationCloses=%d, want 1", nh.CalibrationCloses)
	}
}

func TestFullScaleTable(t *testing.T) {
	cases := []struct {
		atten Atten
		mv    int
	}{
		{AttenDB0, 750},
		{AttenDB2o5, 1050},
		{AttenDB6, 1300},
		{AttenDB12, 2500},
		{Atten(99), 0},
	}
	for _, c := range cases {
		if got := FullScaleMV(c.atten); got != c.mv {
			t.Errorf("FullScaleMV(%v)=%d, want %d", c.atten, got, c.mv)
		}
	}
}
