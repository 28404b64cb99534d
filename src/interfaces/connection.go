package interfaces

// -----------------------------------------------------------------------------
// IClientConnection is the transport half of a broker client. The broker
// only ever hands it encoded frames; the transport owns the socket.
// -----------------------------------------------------------------------------

type IClientConnection interface {

	// Send enqueues an encoded frame without blocking.
	// It returns false when the queue is full or the connection is closed.
	Send(frame []byte) bool

	// -----------------------------------------------------------------------------

	// Close tears down the transport. Must be safe to call more than once.
	Close()

	// -----------------------------------------------------------------------------

	// RemoteAddr identifies the peer for logs and stats
	RemoteAddr() string
}
