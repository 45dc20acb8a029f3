// Package realtime implements the bidirectional, sequence-numbered bridge
// between the simulation stepper and an external co-simulation process.
//
// The interface owns two long-lived goroutines per open instance: a writer
// draining the outgoing queue toward the transport, and a reader pumping
// inbound transport batches into the incoming queue. The queues are the
// only structures shared across the stepper and the workers; all attribute
// mutation from packet delivery happens inside the stepper's pre-step
// phase, so attribute storage itself needs no lock.
package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/task"
)

// State is the interface lifecycle state.
type State int32

const (
	// Closed means no worker goroutines are running.
	Closed State = iota
	// Open means both workers are running.
	Open
	// Closing means the close sentinel is in flight and workers are
	// winding down.
	Closing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrNotClosed is returned when Open is called on an interface that is not
// fully closed.
var ErrNotClosed = errors.New("interface is not closed")

// Config carries the interface's recognized options.
type Config struct {
	// Name labels the interface's tasks and log lines.
	Name string
	// Downsampling makes only every Nth step perform import and export.
	// Values below 1 are treated as 1.
	Downsampling int
	// QueueCapacity bounds each direction's packet queue. Defaults to 1024.
	QueueCapacity int
}

type importReg struct {
	attr *attribute.Attribute
	// lastApplied is the sequence ID of the newest packet applied to this
	// attribute, or -1 before any. It only moves forward.
	lastApplied int64
	blockOnRead bool
}

// Interface bridges simulation attributes and an external transport.
type Interface struct {
	logger *slog.Logger
	worker Transport
	cfg    Config

	imports []importReg
	// exports holds the registered attributes in slot order; the packet's
	// sequence ID is the only per-packet bookkeeping.
	exports []*attribute.Attribute

	toExternal   chan Packet
	fromExternal chan Packet

	// nextInboundSeq is the inbound watermark: one past the newest applied
	// inbound sequence ID. Forward-only.
	nextInboundSeq uint64
	// outboundSeq tags the next outgoing packet. It increments only on
	// successful enqueue.
	outboundSeq uint64

	opened atomic.Bool
	state  atomic.Int32
	wg     sync.WaitGroup
}

// New creates a closed interface over the given transport.
func New(logger *slog.Logger, transport Transport, cfg Config) *Interface {
	if cfg.Name == "" {
		cfg.Name = "interface"
	}
	if cfg.Downsampling < 1 {
		cfg.Downsampling = 1
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	return &Interface{
		logger:       logger.With("interface", cfg.Name),
		worker:       transport,
		cfg:          cfg,
		toExternal:   make(chan Packet, cfg.QueueCapacity),
		fromExternal: make(chan Packet, cfg.QueueCapacity),
	}
}

// State returns the current lifecycle state.
func (i *Interface) State() State { return State(i.state.Load()) }

// ImportAttribute registers an attribute to be overwritten from incoming
// packets during pre-step. With blockOnRead the pre-step does not proceed
// until a packet with a sequence number at least the step's expected value
// has been applied to it. Registration happens during setup, before Open.
func (i *Interface) ImportAttribute(attr *attribute.Attribute, blockOnRead bool) {
	i.imports = append(i.imports, importReg{attr: attr, lastApplied: -1, blockOnRead: blockOnRead})
}

// ExportAttribute registers an attribute whose current value is serialized
// into an outgoing packet during post-step.
func (i *Interface) ExportAttribute(attr *attribute.Attribute) {
	i.exports = append(i.exports, attr)
}

// Open acquires the transport and starts the writer and reader goroutines.
func (i *Interface) Open() error {
	if !i.state.CompareAndSwap(int32(Closed), int32(Open)) {
		return fmt.Errorf("opening interface %q: %w (state %s)", i.cfg.Name, ErrNotClosed, i.State())
	}
	if err := i.worker.Open(); err != nil {
		i.state.Store(int32(Closed))
		return fmt.Errorf("opening interface %q: %w", i.cfg.Name, err)
	}
	i.opened.Store(true)
	i.wg.Add(2)
	go i.writerLoop()
	go i.readerLoop()
	i.logger.Debug("Interface opened.", "downsampling", i.cfg.Downsampling,
		"imports", len(i.imports), "exports", len(i.exports))
	return nil
}

// Close enqueues the close sentinel, waits for both worker goroutines to
// terminate, then releases the transport. The writer observes the sentinel
// in-band, so no packet enqueued ahead of it is lost. The reader observes
// the cleared open flag out of band and may lag until its blocking
// transport read unblocks.
func (i *Interface) Close() error {
	if !i.state.CompareAndSwap(int32(Open), int32(Closing)) {
		return fmt.Errorf("closing interface %q in state %s", i.cfg.Name, i.State())
	}
	i.opened.Store(false)
	i.toExternal <- Packet{Flags: FlagClose}
	i.wg.Wait()
	err := i.worker.Close()
	i.state.Store(int32(Closed))
	i.logger.Debug("Interface closed.")
	if err != nil {
		return fmt.Errorf("closing interface %q: %w", i.cfg.Name, err)
	}
	return nil
}

// Tasks returns the interface's pre-step import task and post-step export
// task for the stepper's scheduler.
func (i *Interface) Tasks() (pre, post []task.Task) {
	importModified := make([]attribute.Handle, len(i.imports))
	for slot, imp := range i.imports {
		importModified[slot] = imp.attr.Handle()
	}
	exportRead := make([]attribute.Handle, len(i.exports))
	for slot, attr := range i.exports {
		exportRead[slot] = attr.Handle()
	}

	pre = []task.Task{&task.Func{
		TaskName: i.cfg.Name + ".import",
		Deps:     task.Sets{Modified: importModified},
		Run: func(time float64, step int) error {
			if len(i.imports) > 0 && step%i.cfg.Downsampling == 0 {
				i.readImports()
			}
			return nil
		},
	}}
	post = []task.Task{&task.Func{
		TaskName: i.cfg.Name + ".export",
		Deps:     task.Sets{Attributes: exportRead},
		Run: func(time float64, step int) error {
			if len(i.exports) > 0 && step%i.cfg.Downsampling == 0 {
				i.pushExports()
			}
			return nil
		},
	}}
	return pre, post
}

// blockedImportPending reports whether any blocking import has not yet been
// updated to the expected sequence.
func (i *Interface) blockedImportPending(expected uint64) bool {
	for idx := range i.imports {
		imp := &i.imports[idx]
		if imp.blockOnRead && imp.lastApplied < int64(expected) {
			return true
		}
	}
	return false
}

// readImports runs during pre-step. It blocks, dequeuing and applying
// packets, until every blocking attribute has been updated to at least the
// sequence expected on entry, then drains any remaining already-available
// packets without blocking.
func (i *Interface) readImports() {
	expected := i.nextInboundSeq

	for i.blockedImportPending(expected) {
		i.applyPacket(<-i.fromExternal)
	}

	for {
		select {
		case pkt := <-i.fromExternal:
			i.applyPacket(pkt)
		default:
			return
		}
	}
}

// applyPacket copies a received value onto its target attribute. A kind
// mismatch is a recoverable transport data fault: it is logged and the
// attribute keeps its previous value, but sequence bookkeeping still
// advances so a corrupt peer cannot wedge the stepper.
func (i *Interface) applyPacket(pkt Packet) {
	if pkt.AttributeSlot < 0 || pkt.AttributeSlot >= len(i.imports) {
		i.logger.Warn("Dropping packet for unknown import slot.",
			"slot", pkt.AttributeSlot, "sequence", pkt.SequenceID)
		return
	}
	imp := &i.imports[pkt.AttributeSlot]
	if err := imp.attr.Set(pkt.Value); err != nil {
		i.logger.Warn("Failed to copy received value onto attribute.",
			"attribute", imp.attr.Name(), "sequence", pkt.SequenceID, "error", err)
	}
	// Watermarks only ever move forward.
	if int64(pkt.SequenceID) > imp.lastApplied {
		imp.lastApplied = int64(pkt.SequenceID)
	}
	if pkt.SequenceID+1 > i.nextInboundSeq {
		i.nextInboundSeq = pkt.SequenceID + 1
	}
}

// pushExports runs during post-step. Each exported attribute is snapshotted
// into a packet tagged with the outbound sequence counter.
func (i *Interface) pushExports() {
	for slot, attr := range i.exports {
		i.toExternal <- Packet{
			AttributeSlot: slot,
			SequenceID:    i.outboundSeq,
			Value:         attribute.CopyValue(attr.Get()),
			Flags:         FlagNone,
		}
		i.outboundSeq++
	}
}

// writerLoop blocks for at least one outgoing packet, drains everything
// currently available into one batch and forwards it to the transport. A
// close sentinel ends the loop after the batch collected alongside it has
// been flushed.
func (i *Interface) writerLoop() {
	defer i.wg.Done()
	closed := false
	for !closed {
		var batch []Packet

		pkt := <-i.toExternal
		if pkt.Flags&FlagClose != 0 {
			closed = true
		} else {
			batch = append(batch, pkt)
		}

	drain:
		for {
			select {
			case pkt := <-i.toExternal:
				if pkt.Flags&FlagClose != 0 {
					closed = true
				} else {
					batch = append(batch, pkt)
				}
			default:
				break drain
			}
		}

		if len(batch) > 0 {
			if err := i.worker.WriteValues(batch); err != nil {
				i.logger.Warn("Failed to forward outgoing packets to transport.", "error", err)
			}
		}
	}
	i.logger.Debug("Writer goroutine finished.")
}

// readerLoop pumps inbound transport batches into the incoming queue while
// the interface is open. The transport read blocks with no way to interrupt
// it from this side, so termination can lag until the next inbound batch
// arrives or the peer closes the transport; this is a known limitation.
func (i *Interface) readerLoop() {
	defer i.wg.Done()
	for i.opened.Load() {
		batch, err := i.worker.ReadValues()
		if err != nil {
			if i.opened.Load() {
				i.logger.Warn("Transport read failed; reader stopping.", "error", err)
			}
			break
		}
		for _, pkt := range batch {
			i.fromExternal <- pkt
		}
	}
	i.logger.Debug("Reader goroutine finished.")
}
