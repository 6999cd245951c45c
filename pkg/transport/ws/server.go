package ws

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/transport"
)

// Listen publishes the streams in directory over websocket at address.
func Listen(address string, directory transport.Directory, sched scheduler.Scheduler, logger zerolog.Logger) (transport.Server, error) {
	laddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}
	listener, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, err
	}

	s := &wssServer{
		listener: &interruptibleListener{
			listener,
			make(chan int, 2),
		},
		directory:       directory,
		sched:           sched,
		logger:          logger,
		shutdownWaiters: &sync.WaitGroup{},
	}
	s.shutdownWaiters.Add(1)
	return s, nil
}

type wssServer struct {
	listener        *interruptibleListener
	directory       transport.Directory
	sched           scheduler.Scheduler
	logger          zerolog.Logger
	shutdownWaiters *sync.WaitGroup
}

func (s *wssServer) Serve() error {
	defer s.shutdownWaiters.Done()
	defer s.listener.Close()

	var connIds int64 = 0
	h := &websocket.Server{
		Handler: func(rwc *websocket.Conn) {
			connId := atomic.AddInt64(&connIds, 1) - 1
			c := &transport.StreamConn{
				Id:        int(connId),
				Rwc:       rwc,
				Directory: s.directory,
				Sched:     s.sched,
				Logger:    s.logger,
			}
			c.Initialize(2)
			// The websocket package closes rwc when the handler
			// returns, so serve on this goroutine rather than spawning.
			c.Serve()
		},
	}
	httpServer := &http.Server{
		Addr:    s.listener.Addr().String(),
		Handler: h,
	}

	err := httpServer.Serve(s.listener)
	if err == shutdownToken {
		return nil
	}
	return err
}

func (s *wssServer) Shutdown() {
	s.listener.shutdown()
}

func (s *wssServer) AwaitShutdown() {
	s.shutdownWaiters.Wait()
}

var shutdownToken = errors.New("induced shutdown")

// HTTP server doesn't have a clean shutdown mechanism, so we inject errors
// into the accept loop to stop it.
type interruptibleListener struct {
	*net.TCPListener
	control chan int
}

func (l *interruptibleListener) Accept() (net.Conn, error) {
	for {
		l.SetDeadline(time.Now().Add(time.Second))

		newConn, err := l.TCPListener.Accept()

		select {
		case <-l.control:
			return nil, shutdownToken
		default:
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
		}

		return newConn, err
	}
}

func (l *interruptibleListener) shutdown() {
	close(l.control)
}
