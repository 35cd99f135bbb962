package espadc

import "fmt"

// UnitID selects one of the physical ADC units. Unit 2 has a single channel
// and is shared with the radio on most parts; acquisition normally uses
// unit 1.
type UnitID int

const (
	Unit1 UnitID = iota + 1
	Unit2
)

// ChannelID selects one input channel of a unit. The channel-to-pin mapping
// is part-specific; on the C6 family unit 1 exposes channels 0 through 6.
type ChannelID int

const (
	Channel0 ChannelID = iota
	Channel1
	Channel2
	Channel3
	Channel4
	Channel5
	Channel6
)

// Atten is the input attenuation setting. Larger attenuation widens the
// measurable range at the cost of absolute error.
type Atten int

const (
	AttenDB0  Atten = iota // 0 dB, 0-750 mV
	AttenDB2o5             // 2.5 dB, 0-1050 mV
	AttenDB6               // 6 dB, 0-1300 mV
	AttenDB12              // 12 dB, 0-2500 mV
)

// Bitwidth is the conversion resolution. This generation supports 12 bits
// only.
type Bitwidth int

const Bitwidth12 Bitwidth = 12

// OutputFormat selects the continuous-mode record layout.
type OutputFormat int

// FormatType2 is the two-byte record: data low byte first, then a high byte
// whose low 4 bits complete the 12-bit code and whose high 4 bits carry the
// channel number.
const FormatType2 OutputFormat = 2

// RawMax is the largest 12-bit conversion code.
const RawMax = 4095

// FullScaleMV returns the nominal top of the measurable range in millivolts
// for an attenuation setting, or 0 for an unknown setting.
func FullScaleMV(a Atten) int {
	switch a {
	case AttenDB0:
		return 750
	case AttenDB2o5:
		return 1050
	case AttenDB6:
		return 1300
	case AttenDB12:
		return 2500
	}
	return 0
}

func (u UnitID) String() string {
	return fmt.Sprintf("ADC%d", int(u))
}

func (c ChannelID) String() string {
	return fmt.Sprintf("CH%d", int(c))
}

func (a Atten) String() string {
	switch a {
	case AttenDB0:
		return "0dB"
	case AttenDB2o5:
		return "2.5dB"
	case AttenDB6:
		return "6dB"
	case AttenDB12:
		return "12dB"
	}
	return fmt.Sprintf("Atten(%d)", int(a))
}
