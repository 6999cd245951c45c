package ws

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/transport"
)

// Dial connects to a websocket stream server identified by address,
// formatted as hostname:port. Streams the remote publishes are reached
// through the returned connection's Subscribe.
func Dial(address string, sched scheduler.Scheduler, logger zerolog.Logger) (*transport.StreamConn, error) {
	rwc, err := websocket.Dial(fmt.Sprintf("ws://%s/ws", address), "", fmt.Sprintf("http://%s/", address))
	if err != nil {
		return nil, err
	}

	c := &transport.StreamConn{
		Id:     0,
		Rwc:    rwc,
		Sched:  sched,
		Logger: logger,
	}
	c.Initialize(1)
	go c.Serve()

	return c, nil
}
