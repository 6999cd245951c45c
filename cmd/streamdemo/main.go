// streamdemo exercises the library end to end: in server mode it
// publishes a couple of named streams over websocket; in client mode it
// subscribes to one of them with request-n demand and prints what
// arrives.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/reactive"
	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/streams"
	"github.com/jakewins/streamcore/pkg/transport"
	"github.com/jakewins/streamcore/pkg/transport/ws"
)

var (
	server  bool
	host    string
	port    int
	stream  string
	verbose bool
)

func init() {
	flag.BoolVar(&server, "server", false, "To launch the server")
	flag.StringVar(&host, "host", "localhost", "For the client only, determine host to connect to")
	flag.IntVar(&port, "port", 4567, "For client, port to connect to. For server, port to bind to")
	flag.StringVar(&stream, "stream", "numbers", "For the client, name of the stream to subscribe to")
	flag.BoolVar(&verbose, "verbose", false, "Log every frame crossing the wire")
}

func main() {
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	sched := scheduler.NewAsync(scheduler.WithLogger(logger))

	if server {
		runServer(port, sched, logger)
		return
	}
	runClient(host, port, stream, sched, logger)
}

func runServer(port int, sched scheduler.Scheduler, logger zerolog.Logger) {
	directory := transport.Directory(func(name string) (streams.Observable[[]byte], bool) {
		switch name {
		case "numbers":
			return streams.Map(streams.FromSlice(rangeSlice(100)), func(n int) []byte {
				return []byte(strconv.Itoa(n))
			}), true
		case "even-squares":
			squares := streams.Map(streams.FromSlice(rangeSlice(100)), func(n int) int { return n * n })
			evens := streams.Filter(squares, func(n int) bool { return n%2 == 0 })
			return streams.Map(evens, func(n int) []byte {
				return []byte(strconv.Itoa(n))
			}), true
		default:
			return nil, false
		}
	})

	srv, err := ws.Listen(fmt.Sprintf(":%d", port), directory, sched, logger)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info().Int("port", port).Msg("serving streams: numbers, even-squares")
	log.Fatal(srv.Serve())
}

func runClient(host string, port int, stream string, sched scheduler.Scheduler, logger zerolog.Logger) {
	conn, err := ws.Dial(fmt.Sprintf("%s:%d", host, port), sched, logger)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	failed := false

	sub := streams.NewSubscriber[[]byte](sched,
		func(data []byte) ack.Ack {
			fmt.Println(string(data))
			return ack.Continue
		},
		func(err error) {
			logger.Error().Err(err).Msg("stream failed")
			failed = true
			wg.Done()
		},
		func() {
			wg.Done()
		},
	)

	streams.SubscribeSafe(
		reactive.FromPublisher[[]byte](conn.Subscribe(stream)),
		sub,
		streams.WithSafeLogger(logger),
	)
	wg.Wait()

	if failed {
		os.Exit(1)
	}
}

func rangeSlice(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
