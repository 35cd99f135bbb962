package adcd

import (
	"fmt"
	"log"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/espdaq/adcd/espadc"
	"github.com/espdaq/adcd/internal/adcdb"
)

// AcquireControl is the sub-server that handles configuration and operation
// of adcd's conversion channels.
type AcquireControl struct {
	driver   espadc.Driver
	unit     *Unit
	channels map[espadc.ChannelID]*Channel
	captures chan<- *Capture

	db         *adcdb.DBConnection
	activityID string
	status     ServerStatus
}

// ServerStatus is the status that AcquireControl reports to clients.
type ServerStatus struct {
	Unit          int
	Channels      []int
	LastCaptureID string
	NCaptures     int
}

// NewAcquireControl provisions the given unit on the driver and returns a
// control server with no channels configured yet. Finished captures are sent
// to the captures channel when it is non-nil.
func NewAcquireControl(driver espadc.Driver, unit espadc.UnitID, captures chan<- *Capture) (*AcquireControl, error) {
	u, err := NewUnit(driver, unit)
	if err != nil {
		return nil, err
	}
	return &AcquireControl{
		driver:   driver,
		unit:     u,
		channels: make(map[espadc.ChannelID]*Channel),
		captures: captures,
		status:   ServerStatus{Unit: int(unit)},
	}, nil
}

// UseDB makes the control server record reads and captures to the given
// database connection under the given activity ID.
func (ac *AcquireControl) UseDB(db *adcdb.DBConnection, activityID string) {
	ac.db = db
	ac.activityID = activityID
}

// ChannelConfigArgs holds the arguments to a ConfigureChannel operation.
type ChannelConfigArgs struct {
	Channel int
	Atten   int
}

// ConfigureChannel creates (or replaces) one conversion channel.
func (ac *AcquireControl) ConfigureChannel(args *ChannelConfigArgs, reply *bool) error {
	log.Printf("ConfigureChannel: channel %d, atten %d\n", args.Channel, args.Atten)
	ch := espadc.ChannelID(args.Channel)
	if old, ok := ac.channels[ch]; ok {
		if err := old.Close(); err != nil {
			ProblemLogger.Printf("closing replaced channel %v: %s", ch, err)
		}
		delete(ac.channels, ch)
	}
	channel, err := NewChannel(ac.unit, ch, espadc.Atten(args.Atten))
	*reply = err == nil
	if err != nil {
		return err
	}
	ac.channels[ch] = channel
	ids := make([]int, 0, len(ac.channels))
	for id := range ac.channels {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	ac.status.Channels = ids
	return nil
}

// ReadArgs holds the arguments to a Read operation.
type ReadArgs struct {
	Channel       int
	SampleCount   int
	SampleDelayMS int
}

// Read performs a sampled read on a configured channel.
func (ac *AcquireControl) Read(args *ReadArgs, reply *ReadResult) error {
	channel, ok := ac.channels[espadc.ChannelID(args.Channel)]
	if !ok {
		return fmt.Errorf("channel %d is not configured", args.Channel)
	}
	delay := time.Duration(args.SampleDelayMS) * time.Millisecond
	if err := channel.Read(args.SampleCount, delay, reply); err != nil {
		return err
	}
	ac.db.RecordRead(&adcdb.ReadMessage{
		ActivityID:  ac.activityID,
		Unit:        int(ac.unit.ID()),
		Channel:     args.Channel,
		Atten:       int(channel.Atten()),
		SampleCount: args.SampleCount,
		AverageMV:   reply.AverageMV,
		MinMV:       reply.MinMV,
		MaxMV:       reply.MaxMV,
		P30WidthMV:  reply.P30WidthMV,
		P60WidthMV:  reply.P60WidthMV,
		Time:        time.Now(),
	})
	return nil
}

// CaptureArgs holds the arguments to a Capture operation.
type CaptureArgs struct {
	Channel    int
	DurationMS int
}

// CaptureReply summarizes a finished capture without shipping the full
// sample vector over RPC; clients wanting samples subscribe to the
// publisher.
type CaptureReply struct {
	ID       string
	NSamples int
	Summary  SampleSummary
}

// Capture runs a streaming capture on a configured channel.
func (ac *AcquireControl) Capture(args *CaptureArgs, reply *CaptureReply) error {
	channel, ok := ac.channels[espadc.ChannelID(args.Channel)]
	if !ok {
		return fmt.Errorf("channel %d is not configured", args.Channel)
	}
	c := channel.Capture(time.Duration(args.DurationMS) * time.Millisecond)
	ac.status.LastCaptureID = c.ID.String()
	ac.status.NCaptures++
	if ac.captures != nil {
		ac.captures <- c
	}
	ac.db.RecordCapture(&adcdb.CaptureMessage{
		ID:         c.ID.String(),
		ActivityID: ac.activityID,
		Unit:       int(c.Unit),
		Channel:    int(c.Channel),
		Atten:      int(c.Atten),
		NSamples:   len(c.Samples),
		MeanMV:     c.Summary.MeanMV,
		StdMV:      c.Summary.StdMV,
		MinMV:      c.Summary.MinMV,
		MaxMV:      c.Summary.MaxMV,
		Start:      c.Start,
		Duration:   c.Duration,
	})
	reply.ID = c.ID.String()
	reply.NSamples = len(c.Samples)
	reply.Summary = c.Summary
	return nil
}

// Status reports the server status.
func (ac *AcquireControl) Status(dummy *string, reply *ServerStatus) error {
	*reply = ac.status
	return nil
}

// Close releases all channels, then the unit.
func (ac *AcquireControl) Close() error {
	var firstErr error
	for id, channel := range ac.channels {
		if err := channel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(ac.channels, id)
	}
	if err := ac.unit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// RunRPCServer sets up and runs a permanent JSON-RPC server around the given
// control object.
func RunRPCServer(acquireControl *AcquireControl, portrpc int) {
	// Load stored channel settings.
	var okay bool
	var ccs []ChannelConfigArgs
	log.Printf("adcd is using config file %s\n", viper.ConfigFileUsed())
	if err := viper.UnmarshalKey("channels", &ccs); err == nil {
		for i := range ccs {
			if err := acquireControl.ConfigureChannel(&ccs[i], &okay); err != nil {
				ProblemLogger.Printf("stored channel %d not configured: %s", ccs[i].Channel, err)
			}
		}
	}

	// Now launch the connection handler and accept connections.
	server := rpc.NewServer()
	server.Register(acquireControl)
	server.HandleHTTP(rpc.DefaultRPCPath, rpc.DefaultDebugPath)
	port := fmt.Sprintf(":%d", portrpc)
	listener, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatal("listen error:", err)
	}
	for {
		if conn, err := listener.Accept(); err != nil {
			log.Fatal("accept error: " + err.Error())
		} else {
			log.Printf("new connection established\n")
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}
}
