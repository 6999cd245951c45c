package transport_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/reactive"
	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/streams"
	"github.com/jakewins/streamcore/pkg/transport"
)

// connPair wires a publishing end and a subscribing end together over
// an in-memory pipe.
func connPair(t *testing.T, directory transport.Directory) (*transport.StreamConn, *transport.StreamConn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	sched := scheduler.NewAsync()

	server := &transport.StreamConn{
		Id:        1,
		Rwc:       serverSide,
		Directory: directory,
		Sched:     sched,
		Logger:    zerolog.Nop(),
	}
	server.Initialize(2)
	go server.Serve()

	client := &transport.StreamConn{
		Id:     0,
		Rwc:    clientSide,
		Sched:  sched,
		Logger: zerolog.Nop(),
	}
	client.Initialize(1)
	go client.Serve()

	t.Cleanup(func() {
		serverSide.Close()
		clientSide.Close()
	})
	return server, client
}

type streamResult struct {
	elems     [][]byte
	err       error
	completed bool
}

// collect subscribes to a remote stream through the reactive bridge and
// waits for its terminal event.
func collect(t *testing.T, client *transport.StreamConn, name string) streamResult {
	t.Helper()
	sched := scheduler.NewAsync()
	done := make(chan streamResult, 1)

	var result streamResult
	sub := streams.NewSubscriber[[]byte](sched,
		func(data []byte) ack.Ack {
			result.elems = append(result.elems, data)
			return ack.Continue
		},
		func(err error) {
			result.err = err
			done <- result
		},
		func() {
			result.completed = true
			done <- result
		},
	)

	reactive.FromPublisher[[]byte](client.Subscribe(name)).Subscribe(sub)

	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the stream terminal")
		return streamResult{}
	}
}

func numbersDirectory() transport.Directory {
	return func(name string) (streams.Observable[[]byte], bool) {
		switch name {
		case "numbers":
			return streams.FromSlice([][]byte{{1}, {2}, {3}}), true
		case "empty":
			return streams.FromSlice([][]byte{}), true
		default:
			return nil, false
		}
	}
}

func TestSubscribeAcrossTheWire(t *testing.T) {
	_, client := connPair(t, numbersDirectory())

	result := collect(t, client, "numbers")

	require.True(t, result.completed)
	assert.Equal(t, [][]byte{{1}, {2}, {3}}, result.elems)
	assert.NoError(t, result.err)
}

func TestSubscribeToEmptyStream(t *testing.T) {
	_, client := connPair(t, numbersDirectory())

	result := collect(t, client, "empty")

	assert.True(t, result.completed)
	assert.Empty(t, result.elems)
}

func TestUnknownStreamNameFailsTheSubscription(t *testing.T) {
	_, client := connPair(t, numbersDirectory())

	result := collect(t, client, "no-such-stream")

	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "no-such-stream")
	assert.False(t, result.completed)
}

func TestServerSideErrorsTravelAsErrorFrames(t *testing.T) {
	directory := transport.Directory(func(name string) (streams.Observable[[]byte], bool) {
		return streams.Map(streams.FromSlice([][]byte{{1}, {2}}), func(data []byte) []byte {
			if data[0] == 2 {
				panic("publisher exploded")
			}
			return data
		}), true
	})
	_, client := connPair(t, directory)

	result := collect(t, client, "anything")

	assert.Equal(t, [][]byte{{1}}, result.elems)
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "publisher exploded")
}

func TestConcurrentStreamsOverOneConnection(t *testing.T) {
	_, client := connPair(t, numbersDirectory())

	first := collect(t, client, "numbers")
	second := collect(t, client, "numbers")

	assert.Equal(t, [][]byte{{1}, {2}, {3}}, first.elems)
	assert.Equal(t, [][]byte{{1}, {2}, {3}}, second.elems)
}

func TestConnectionLossFailsOpenSubscriptions(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	sched := scheduler.NewAsync()

	client := &transport.StreamConn{Id: 0, Rwc: clientSide, Sched: sched, Logger: zerolog.Nop()}
	client.Initialize(1)
	go client.Serve()

	errs := make(chan error, 1)
	sub := streams.NewSubscriber[[]byte](sched,
		func([]byte) ack.Ack { return ack.Continue },
		func(err error) { errs <- err },
		nil,
	)

	// The remote dies before answering: it takes the length prefix of the
	// Subscribe frame and closes. net.Pipe writes block until read, so the
	// close has to come from another goroutine.
	go func() {
		io.ReadFull(serverSide, make([]byte, 4))
		serverSide.Close()
	}()
	reactive.FromPublisher[[]byte](client.Subscribe("numbers")).Subscribe(sub)

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "connection lost")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the connection-loss error")
	}
}
