package realtime

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/powerstep/internal/attribute"
)

// wirePacket is the msgpack shape of one packet on the transport. The
// payload is flattened per kind so both sides agree on numeric precision
// without reflection over interface values.
type wirePacket struct {
	Slot  int    `msgpack:"slot"`
	Seq   uint64 `msgpack:"seq"`
	Kind  uint8  `msgpack:"kind"`
	Flags uint8  `msgpack:"flags"`

	Real float64   `msgpack:"re,omitempty"`
	Imag float64   `msgpack:"im,omitempty"`
	Int  int       `msgpack:"int,omitempty"`
	Bool bool      `msgpack:"bool,omitempty"`
	Str  string    `msgpack:"str,omitempty"`
	Vec  []float64 `msgpack:"vec,omitempty"`
}

func toWire(p Packet) (wirePacket, error) {
	w := wirePacket{Slot: p.AttributeSlot, Seq: p.SequenceID, Flags: uint8(p.Flags)}
	if p.Flags&FlagClose != 0 {
		return w, nil
	}
	kind, err := attribute.KindOf(p.Value)
	if err != nil {
		return w, fmt.Errorf("encoding packet for slot %d: %w", p.AttributeSlot, err)
	}
	w.Kind = uint8(kind)
	switch v := p.Value.(type) {
	case float64:
		w.Real = v
	case complex128:
		w.Real, w.Imag = real(v), imag(v)
	case int:
		w.Int = v
	case bool:
		w.Bool = v
	case string:
		w.Str = v
	case []float64:
		w.Vec = v
	}
	return w, nil
}

func fromWire(w wirePacket) Packet {
	p := Packet{AttributeSlot: w.Slot, SequenceID: w.Seq, Flags: PacketFlags(w.Flags)}
	if p.Flags&FlagClose != 0 {
		return p
	}
	switch attribute.Kind(w.Kind) {
	case attribute.KindReal:
		p.Value = w.Real
	case attribute.KindComplex:
		p.Value = complex(w.Real, w.Imag)
	case attribute.KindInt:
		p.Value = w.Int
	case attribute.KindBool:
		p.Value = w.Bool
	case attribute.KindString:
		p.Value = w.Str
	case attribute.KindRealVector:
		p.Value = w.Vec
	default:
		// Left nil: delivery treats it as a recoverable data fault.
		p.Value = nil
	}
	return p
}

func encodeBatch(batch []Packet) ([]byte, error) {
	wires := make([]wirePacket, 0, len(batch))
	for _, p := range batch {
		w, err := toWire(p)
		if err != nil {
			return nil, err
		}
		wires = append(wires, w)
	}
	return msgpack.Marshal(wires)
}

func decodeBatch(data []byte) ([]Packet, error) {
	var wires []wirePacket
	if err := msgpack.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("decoding packet batch: %w", err)
	}
	batch := make([]Packet, 0, len(wires))
	for _, w := range wires {
		batch = append(batch, fromWire(w))
	}
	return batch, nil
}
