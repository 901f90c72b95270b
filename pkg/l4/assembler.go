package l4

import (
	"github.com/opendarc/darc/pkg/l3"
	"github.com/rs/zerolog"
)

// DefaultTimeoutBlocks bounds how many incoming packets an open group may
// sit through without progress before it is abandoned.  The bit clock is
// the only reliable clock, so the timeout is counted in blocks, not time.
// Two full frames' worth of information blocks.
const DefaultTimeoutBlocks = 2 * 190

// AssemblerStats counts group assembler activity.
type AssemblerStats struct {
	Packets       uint64
	Completed     uint64
	Degraded      uint64
	Abandoned     uint64
	OutOfSequence uint64
	Orphans       uint64
}

type groupKey struct {
	service l3.ServiceID
	number  uint16
}

type accumulator struct {
	bits       []byte
	nextPacket uint16
	packets    int
	corrected  int
	degraded   bool
	lastSeen   uint64
}

// Assembler accumulates data packets into data groups, one open accumulator
// per (service, group number) key.  Packets must arrive in sequence; the
// end-of-information flag closes a group.  Open groups that stall for the
// configured number of blocks are abandoned, which bounds memory under
// sustained sync loss.
type Assembler struct {
	timeoutBlocks uint64
	accs          map[groupKey]*accumulator
	clock         uint64
	stats         AssemblerStats
	logger        zerolog.Logger
}

type AssemblerOption func(*Assembler)

// WithTimeoutBlocks overrides the abandonment timeout, expressed in
// incoming block counts.
func WithTimeoutBlocks(blocks int) AssemblerOption {
	return func(a *Assembler) {
		a.timeoutBlocks = uint64(blocks)
	}
}

func NewAssembler(logger zerolog.Logger, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		timeoutBlocks: DefaultTimeoutBlocks,
		accs:          make(map[groupKey]*accumulator),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) Stats() AssemblerStats {
	return a.stats
}

// Open returns the number of accumulators currently collecting.
func (a *Assembler) Open() int {
	return len(a.accs)
}

// Push feeds one data packet through the assembler and returns any groups
// completed by it.
func (a *Assembler) Push(p l3.DataPacket) []*DataGroup {
	a.clock++
	a.stats.Packets++

	var completed []*DataGroup
	appended := false

	key := groupKey{service: p.Service, number: p.GroupNumber}
	acc := a.accs[key]

	switch {
	case acc == nil:
		if p.PacketNumber != 0 {
			// A continuation without an opening packet: the head was lost
			// before we locked on.  Nothing to attach it to.
			a.stats.Orphans++
			a.logger.Debug().
				Str("service", p.Service.String()).
				Uint16("group", p.GroupNumber).
				Uint16("packet", p.PacketNumber).
				Msg("dropping continuation packet for unknown group")
			break
		}
		acc = &accumulator{bits: append([]byte(nil), p.Data...), nextPacket: 1}
		acc.packets = 1
		acc.degraded = !p.Valid
		if p.Corrected {
			acc.corrected++
		}
		acc.lastSeen = a.clock
		a.accs[key] = acc
		appended = true

	case p.PacketNumber != acc.nextPacket:
		a.stats.OutOfSequence++
		a.logger.Debug().
			Str("service", p.Service.String()).
			Uint16("group", p.GroupNumber).
			Uint16("packet", p.PacketNumber).
			Uint16("expected", acc.nextPacket).
			Msg("dropping out-of-sequence packet")

	default:
		acc.bits = append(acc.bits, p.Data...)
		acc.nextPacket++
		acc.packets++
		acc.degraded = acc.degraded || !p.Valid
		if p.Corrected {
			acc.corrected++
		}
		acc.lastSeen = a.clock
		appended = true
	}

	if appended && p.EndOfInformation {
		delete(a.accs, key)
		g := &DataGroup{
			Service:     key.service,
			GroupNumber: key.number,
			Bits:        acc.bits,
			Packets:     acc.packets,
			Corrected:   acc.corrected,
			Degraded:    acc.degraded,
		}
		a.stats.Completed++
		if g.Degraded {
			a.stats.Degraded++
			a.logger.Debug().
				Str("service", g.Service.String()).
				Uint16("group", g.GroupNumber).
				Msg("emitting degraded group")
		}
		completed = append(completed, g)
	}

	a.sweep()
	return completed
}

// Flush abandons every open accumulator.  Called at end of stream: an
// incomplete group is never promoted to complete.
func (a *Assembler) Flush() {
	for key := range a.accs {
		a.abandon(key)
	}
}

func (a *Assembler) sweep() {
	for key, acc := range a.accs {
		if a.clock-acc.lastSeen > a.timeoutBlocks {
			a.abandon(key)
		}
	}
}

func (a *Assembler) abandon(key groupKey) {
	delete(a.accs, key)
	a.stats.Abandoned++
	a.logger.Debug().
		Str("service", key.service.String()).
		Uint16("group", key.number).
		Msg("abandoning stalled group")
}
