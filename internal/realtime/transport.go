package realtime

// Transport moves batches of packets between this process and the external
// co-simulation peer. Implementations may be backed by shared memory, a
// socket, or an in-process pipe; the interface never looks inside.
type Transport interface {
	// Open acquires the transport's resources.
	Open() error
	// Close releases the transport's resources. Called after both worker
	// goroutines have terminated.
	Close() error
	// ReadValues blocks until at least one inbound packet is available and
	// returns the batch. It returns an error once the peer side is closed.
	ReadValues() ([]Packet, error)
	// WriteValues forwards one outgoing batch to the peer.
	WriteValues([]Packet) error
}
