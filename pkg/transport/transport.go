// Package transport carries published streams across a connection. A
// server exposes a directory of named observables; a client subscribes
// to them by name and paces delivery with request-n demand, exactly the
// shape the reactive bridge translates to and from.
package transport

type Server interface {
	// Runs the accept loop for this server, returns when the server is shut down.
	Serve() error
	// Signal the accept loop to shut down
	Shutdown()
	// Block until the server shuts down
	AwaitShutdown()
}
