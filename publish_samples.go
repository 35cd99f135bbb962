package adcd

// Publishes finished captures as JSON on a ZMQ PUB socket, so plotting and
// logging clients can follow acquisition without polling the RPC server.

import (
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// captureTopic is the first frame of every published capture message.
const captureTopic = "CAPTURE"

// captureMessage renders one capture as the frames of a PUB message:
// a fixed topic, then the JSON body.
func captureMessage(c *Capture) ([]string, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return []string{captureTopic, string(body)}, nil
}

// PublishCaptures forwards every capture from its input channel to a ZMQ
// publisher socket on the given port. It terminates when abort is closed.
func PublishCaptures(captures <-chan *Capture, abort <-chan struct{}, portnum int) error {
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return err
	}
	defer pubSocket.Close()
	hostname := fmt.Sprintf("tcp://*:%d", portnum)
	if err = pubSocket.Bind(hostname); err != nil {
		return err
	}

	for {
		select {
		case <-abort:
			return nil
		case c := <-captures:
			message, err := captureMessage(c)
			if err != nil {
				ProblemLogger.Printf("could not encode capture %s: %s", c.ID, err)
				continue
			}
			if _, err := pubSocket.SendMessage(message[0], message[1]); err != nil {
				ProblemLogger.Printf("could not publish capture %s: %s", c.ID, err)
			}
		}
	}
}
