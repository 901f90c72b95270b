// Package l4 reassembles Layer-4 data groups from the packet stream and
// routes completed groups to per-service records.
package l4

import (
	"fmt"

	"github.com/opendarc/darc/pkg/l2"
	"github.com/opendarc/darc/pkg/l3"
)

// DataGroup is a completed Layer-4 data group: the concatenated data blocks
// of its packets in sequence order.
type DataGroup struct {
	Service     l3.ServiceID
	GroupNumber uint16
	Bits        []byte // concatenated data block bits
	Packets     int
	Corrected   int
	// Degraded is set when any constituent packet failed correction or its
	// checksum; the group is still delivered (best effort beats silence).
	Degraded bool
}

// Payload returns the group contents packed into bytes.
func (g *DataGroup) Payload() []byte {
	return l2.PackBits(g.Bits)
}

// GroupHeader is the parsed composition-1 structure of a data group:
// start of heading, link flag, declared size, and the closing CRC-16.
type GroupHeader struct {
	StartOfHeading byte
	Link           byte
	Size           int
	Data           []byte // data field bytes, bit order normalized
	EndMarker      byte
	CRC            uint16
	CRCValid       bool
}

func reverseByteBits(buf []byte) []byte {
	out := make([]byte, len(buf))
	for i, v := range buf {
		v = v>>4 | v<<4
		v = (v&0xCC)>>2 | (v&0x33)<<2
		v = (v&0xAA)>>1 | (v&0x55)<<1
		out[i] = v
	}
	return out
}

// ParseHeader interprets a composition-1 group buffer.  Header bytes are
// transmitted least significant bit first; the data field is additionally
// bit-reversed per byte.
func (g *DataGroup) ParseHeader() (*GroupHeader, error) {
	if g.Service == l3.ServiceAdditionalInformation {
		return nil, fmt.Errorf("%s groups carry no composition-1 header", g.Service)
	}
	bits := g.Bits
	if len(bits) < 48 {
		return nil, fmt.Errorf("group of %d bits is shorter than the minimum header", len(bits))
	}
	if len(bits)%8 != 0 {
		return nil, fmt.Errorf("group of %d bits is not byte aligned", len(bits))
	}

	h := &GroupHeader{
		StartOfHeading: byte(l2.UintLSB(bits[0:8])),
		Link:           bits[15],
		Size:           int(l2.UintLSB(bits[8:15]))<<8 | int(l2.UintLSB(bits[16:24])),
		EndMarker:      byte(l2.UintLSB(bits[len(bits)-24 : len(bits)-16])),
		CRC:            uint16(l2.UintMSB(bits[len(bits)-16:])),
	}
	if 24+8*h.Size > len(bits) {
		return nil, fmt.Errorf("declared size %d exceeds group of %d bits", h.Size, len(bits))
	}
	h.Data = reverseByteBits(l2.PackBits(bits[24 : 24+8*h.Size]))

	packed := g.Payload()
	h.CRCValid = CRC16(packed[:len(packed)-2]) == h.CRC
	return h, nil
}

// ServiceRecord is the final output unit handed to external consumers.
type ServiceRecord struct {
	Service     l3.ServiceID
	GroupNumber uint16
	Payload     []byte
	Degraded    bool
	// Header is the parsed composition-1 structure when present and sane.
	Header *GroupHeader
}
