package adcdb

import (
	"testing"
	"time"
)

func TestDummyConnection(t *testing.T) {
	db := DummyDBConnection()
	if db.IsConnected() {
		t.Errorf("dummy connection reports connected")
	}

	// All record methods must be harmless no-ops on a dummy connection.
	db.RecordCapture(&CaptureMessage{ID: "01HZZZZZZZZZZZZZZZZZZZZZZZ", NSamples: 100})
	db.RecordRead(&ReadMessage{SampleCount: 5, AverageMV: 300})
	db.RecordCapture(nil)
	db.RecordRead(nil)
	db.Disconnect()
}

func TestNilConnection(t *testing.T) {
	var db *DBConnection
	if db.IsConnected() {
		t.Errorf("nil connection reports connected")
	}
}

func TestActivityMessageTimes(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	am := ActivityMessage{ID: "run1", Start: start, End: start}
	if am.End.Before(am.Start) {
		t.Errorf("activity end precedes start")
	}
}
