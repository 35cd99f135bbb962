// Package adcdb records acquisition activity in a ClickHouse database: one
// row per daemon run, per streaming capture, and per sampled read. All
// writes are asynchronous and best effort; an unreachable database degrades
// to a connection object that silently drops messages.
package adcdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const databaseName = "adcd" // official SQL name of the database

// DBConnection wraps the ClickHouse connection plus the channels that feed
// its single writer goroutine.
type DBConnection struct {
	conn          clickhouse.Conn
	err           error
	activityEntry *ActivityMessage
	capturemsg    chan *CaptureMessage
	readmsg       chan *ReadMessage
	sync.WaitGroup
}

// IsConnected reports whether the connection is usable.
func (db *DBConnection) IsConnected() bool {
	return (db != nil) && (db.conn != nil) && (db.err == nil)
}

// PingServer connects and checks the server is alive, for diagnostics.
func PingServer() error {
	db := createDBConnection()
	if !db.IsConnected() {
		return fmt.Errorf("database is not connected")
	}
	v, err := db.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	db.conn.Close()
	return nil
}

// StartDBConnection connects, records the activity entry, and launches the
// writer goroutine, which runs until abort is closed.
func StartDBConnection(activity *ActivityMessage, abort <-chan struct{}) *DBConnection {
	conn := createDBConnection()
	conn.activityEntry = activity
	conn.logActivity()
	go conn.handleConnection(abort)
	return conn
}

// DummyDBConnection returns an unconnected DBConnection whose record methods
// are all no-ops, for running without a database.
func DummyDBConnection() *DBConnection {
	db := &DBConnection{}
	db.Add(1)
	return db
}

func createDBConnection() *DBConnection {
	db := &DBConnection{}
	dbUser := os.Getenv("ADCD_DB_USER")
	dbPass := os.Getenv("ADCD_DB_PASSWORD")
	auth := clickhouse.Auth{
		Database: databaseName,
		Username: dbUser,
		Password: dbPass,
	}
	client := clickhouse.ClientInfo{
		Products: []struct {
			Name    string
			Version string
		}{
			{Name: "adcd", Version: "unknown"},
		},
	}
	opt := clickhouse.Options{
		Addr:       []string{"localhost:9000"},
		Auth:       auth,
		ClientInfo: client,
		TLS:        nil,
	}
	ctx := context.Background()
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		db.err = err
		return db
	}
	db.conn = conn
	db.Add(1)

	// Ping the server at the DB connection.
	if err = conn.Ping(ctx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		db.err = err
		return db
	}

	db.capturemsg = make(chan *CaptureMessage)
	db.readmsg = make(chan *ReadMessage)
	return db
}

func (db *DBConnection) logActivity() {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	ae := db.activityEntry
	formattedStart := ae.Start.Format("2006-01-02 15:04:05.000000")
	formattedEnd := ae.End.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO adcdactivity VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		ae.ID, ae.Hostname, ae.Githash, ae.Version,
		ae.GoVersion, ae.CPUs, formattedStart, formattedEnd,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into adcdactivity ", err)
		db.err = err
	}
}

func (db *DBConnection) handleConnection(abort <-chan struct{}) {
	defer db.Done()
	for {
		select {
		case <-abort:
			db.Disconnect()
			return
		case cmsg := <-db.capturemsg:
			db.handleCaptureMessage(cmsg)
		case rmsg := <-db.readmsg:
			db.handleReadMessage(rmsg)
		}
	}
}

// Disconnect updates the activity row's end time. The underlying connection
// is left for the process exit to reap.
func (db *DBConnection) Disconnect() {
	if db.IsConnected() {
		db.activityEntry.End = time.Now()
		db.logActivity()
	}
}

// RecordCapture takes a CaptureMessage and stores it in the DB (if it's
// open). The insert happens on the writer goroutine; this call does not
// block on the database.
func (db *DBConnection) RecordCapture(msg *CaptureMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	go func() { db.capturemsg <- msg }()
}

// RecordRead takes a ReadMessage and stores it in the DB (if it's open).
func (db *DBConnection) RecordRead(msg *ReadMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	go func() { db.readmsg <- msg }()
}

func (db *DBConnection) handleCaptureMessage(m *CaptureMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	formattedStart := m.Start.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO captures VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.ID, m.ActivityID, m.Unit, m.Channel, m.Atten,
		m.NSamples, m.MeanMV, m.StdMV, m.MinMV, m.MaxMV,
		formattedStart, m.Duration.Milliseconds(),
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into captures ", err)
		db.err = err
	}
}

func (db *DBConnection) handleReadMessage(m *ReadMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	formattedTime := m.Time.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO reads VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.ActivityID, m.Unit, m.Channel, m.Atten, m.SampleCount,
		m.AverageMV, m.MinMV, m.MaxMV, m.P30WidthMV, m.P60WidthMV,
		formattedTime,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into reads ", err)
		db.err = err
	}
}
