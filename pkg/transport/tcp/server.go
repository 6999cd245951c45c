package tcp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/transport"
)

// Listen publishes the streams in directory over raw TCP at address.
func Listen(address string, directory transport.Directory, sched scheduler.Scheduler, logger zerolog.Logger) (transport.Server, error) {
	laddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}
	listener, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, err
	}

	s := &server{
		listener:        listener,
		directory:       directory,
		sched:           sched,
		logger:          logger,
		control:         make(chan string, 2),
		shutdownWaiters: &sync.WaitGroup{},
	}
	s.shutdownWaiters.Add(1)
	return s, nil
}

type server struct {
	listener        *net.TCPListener
	directory       transport.Directory
	sched           scheduler.Scheduler
	logger          zerolog.Logger
	control         chan string
	shutdownWaiters *sync.WaitGroup
}

func (s *server) Serve() error {
	defer s.shutdownWaiters.Done()
	defer s.listener.Close()

	var connIds int = 0
	for {
		if s.checkForShutdown() {
			return nil
		}
		s.listener.SetDeadline(time.Now().Add(time.Second))
		rwc, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		connIds += 1
		c := &transport.StreamConn{
			Id:        connIds,
			Rwc:       rwc,
			Directory: s.directory,
			Sched:     s.sched,
			Logger:    s.logger,
		}
		go func() {
			c.Initialize(2)
			c.Serve()
		}()
	}
}

func (s *server) Shutdown() {
	close(s.control)
}

func (s *server) AwaitShutdown() {
	s.shutdownWaiters.Wait()
}

func (s *server) checkForShutdown() bool {
	select {
	case <-s.control:
		s.listener.Close()
		return true
	default:
		return false
	}
}
