package realtime

import "github.com/vk/powerstep/internal/attribute"

// PacketFlags annotate a packet beyond its payload.
type PacketFlags uint8

const (
	// FlagNone marks an ordinary value packet.
	FlagNone PacketFlags = 0
	// FlagClose is the in-band sentinel that terminates the writer
	// goroutine after it flushes the packets already collected in the same
	// batch.
	FlagClose PacketFlags = 1 << 0
)

// Packet carries one attribute value across the process boundary. Packets
// are ephemeral: created at export time, consumed at import time.
type Packet struct {
	// AttributeSlot is the index into the interface's import or export
	// registration order.
	AttributeSlot int
	// SequenceID is the per-direction monotonically increasing counter,
	// starting at 0.
	SequenceID uint64
	// Value is the opaque typed payload.
	Value attribute.Value
	// Flags annotate the packet.
	Flags PacketFlags
}
