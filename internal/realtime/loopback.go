package realtime

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// Loopback is an in-process Transport endpoint, used by tests and for
// same-process co-simulation. NewLoopbackPair returns two endpoints
// cross-wired over bounded queues: whatever one side writes, the other
// side reads.
type Loopback struct {
	in  chan Packet
	out chan Packet

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewLoopbackPair creates two connected endpoints with the given queue
// capacity per direction.
func NewLoopbackPair(capacity int) (*Loopback, *Loopback) {
	if capacity <= 0 {
		capacity = 1024
	}
	ab := make(chan Packet, capacity)
	ba := make(chan Packet, capacity)
	a := &Loopback{in: ba, out: ab}
	b := &Loopback{in: ab, out: ba}
	return a, b
}

// Open implements Transport.
func (l *Loopback) Open() error { return nil }

// Close implements Transport. It closes this endpoint's write side; the
// peer's reads drain whatever is in flight, then fail with io.EOF.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.out)
	})
	return nil
}

// ReadValues implements Transport: it blocks for the first inbound packet,
// then drains whatever else is immediately available into the same batch.
func (l *Loopback) ReadValues() ([]Packet, error) {
	pkt, ok := <-l.in
	if !ok {
		return nil, io.EOF
	}
	batch := []Packet{pkt}
	for {
		select {
		case pkt, ok := <-l.in:
			if !ok {
				return batch, nil
			}
			batch = append(batch, pkt)
		default:
			return batch, nil
		}
	}
}

// WriteValues implements Transport.
func (l *Loopback) WriteValues(batch []Packet) error {
	if l.closed.Load() {
		return net.ErrClosed
	}
	for _, pkt := range batch {
		l.out <- pkt
	}
	return nil
}
