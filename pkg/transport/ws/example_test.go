package ws_test

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/streams"
	"github.com/jakewins/streamcore/pkg/transport"
	"github.com/jakewins/streamcore/pkg/transport/ws"
)

func ExampleListen() {
	directory := transport.Directory(func(name string) (streams.Observable[[]byte], bool) {
		// Publish any stream you like under any name; each subscriber
		// gets its own cold run of it.
		if name != "greetings" {
			return nil, false
		}
		return streams.FromSlice([][]byte{[]byte("hello"), []byte("world")}), true
	})

	server, err := ws.Listen(":0", directory, scheduler.NewAsync(), zerolog.Nop())
	if err != nil {
		panic(err)
	}

	fmt.Println("Starting server!")
	go server.Serve()

	fmt.Println("Shutting down..")
	server.Shutdown()
	server.AwaitShutdown()
	// Output:
	// Starting server!
	// Shutting down..
}
