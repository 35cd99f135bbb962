package adcdb

import "time"

// The composite types used for messages to the ClickHouse database.

// ActivityMessage is the information for the adcdactivity table: one row per
// daemon run.
type ActivityMessage struct {
	ID        string
	Hostname  string
	Githash   string
	Version   string
	GoVersion string
	CPUs      int
	Start     time.Time
	End       time.Time
}

// CaptureMessage is the information required to make an entry in the
// captures table: one row per finished streaming capture.
type CaptureMessage struct {
	ID         string
	ActivityID string
	Unit       int
	Channel    int
	Atten      int
	NSamples   int
	MeanMV     float64
	StdMV      float64
	MinMV      int
	MaxMV      int
	Start      time.Time
	Duration   time.Duration
}

// ReadMessage is the information required to make an entry in the reads
// table: one row per sampled read.
type ReadMessage struct {
	ActivityID  string
	Unit        int
	Channel     int
	Atten       int
	SampleCount int
	AverageMV   int
	MinMV       int
	MaxMV       int
	P30WidthMV  int
	P60WidthMV  int
	Time        time.Time
}
