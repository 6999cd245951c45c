package tcp

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/transport"
)

// Dial connects to a TCP stream server identified by address, formatted
// as hostname:port.
func Dial(address string, sched scheduler.Scheduler, logger zerolog.Logger) (*transport.StreamConn, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}
	rwc, err := net.DialTCP("tcp", nil, addr)
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
