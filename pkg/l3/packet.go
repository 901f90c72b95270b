// Package l3 parses Layer-3 data packet headers out of decoded Layer-2
// information blocks: service identification, group/packet sequencing, and
// the data block carried toward group assembly.
package l3

import (
	"fmt"

	"github.com/opendarc/darc/pkg/l2"
)

// ServiceID identifies one of the data services multiplexed on the channel.
type ServiceID uint8

const (
	// ServiceAdditionalInformation uses the short header layout
	// (composition 2) with 160-bit data blocks.
	ServiceAdditionalInformation ServiceID = 0xD
	ServiceAuxiliarySignal       ServiceID = 0xE
	ServiceOperationalSignal     ServiceID = 0xF
)

const (
	// DataBlockLength1 is the data block size of an ordinary packet.
	DataBlockLength1 = 144
	// DataBlockLength2 is the data block size of an additional-information
	// packet.
	DataBlockLength2 = 160
)

func (s ServiceID) String() string {
	return fmt.Sprintf("service-%X", uint8(s))
}

// DataPacket is the parsed Layer-3 view of one information block.  Header
// fields are transmitted least significant bit first.
type DataPacket struct {
	Service          ServiceID
	DecodeID         byte
	EndOfInformation bool
	UpdateFlag       byte
	GroupNumber      uint16
	PacketNumber     uint16
	Data             []byte // data block bits in transmission order

	// Carried over from Layer 2 for the assembler's validity summary.
	Valid     bool
	Corrected bool
}

// ParsePacket interprets the 176-bit data packet of an information block.
func ParsePacket(blk l2.DecodedBlock) (DataPacket, error) {
	if blk.BIC.IsParity() {
		return DataPacket{}, fmt.Errorf("parity block %s carries no data packet", blk.BIC)
	}
	bits := blk.Body[:l2.BlockDataLength]

	p := DataPacket{
		Service:          ServiceID(l2.UintLSB(bits[0:4])),
		DecodeID:         bits[4],
		EndOfInformation: bits[5] != 0,
		UpdateFlag:       byte(l2.UintLSB(bits[6:8])),
		Valid:            blk.Valid(),
		Corrected:        blk.FEC == l2.FECCorrected,
	}

	if p.Service == ServiceAdditionalInformation {
		p.GroupNumber = uint16(l2.UintLSB(bits[8:12]))
		p.PacketNumber = uint16(l2.UintLSB(bits[12:16]))
		p.Data = append([]byte(nil), bits[16:]...)
	} else {
		p.GroupNumber = uint16(l2.UintLSB(bits[8:22]))
		p.PacketNumber = uint16(l2.UintLSB(bits[22:32]))
		p.Data = append([]byte(nil), bits[32:]...)
	}
	return p, nil
}

// AppendBits serializes the packet header and data block back into a
// 176-bit data packet.  The inverse of ParsePacket.
func (p DataPacket) AppendBits() []byte {
	bits := make([]byte, 0, l2.BlockDataLength)
	bits = l2.AppendUintLSB(bits, uint32(p.Service), 4)
	bits = append(bits, p.DecodeID&1)
	if p.EndOfInformation {
		bits = append(bits, 1)
	} else {
		bits = append(bits, 0)
	}
	bits = l2.AppendUintLSB(bits, uint32(p.UpdateFlag), 2)

	if p.Service == ServiceAdditionalInformation {
		bits = l2.AppendUintLSB(bits, uint32(p.GroupNumber), 4)
		bits = l2.AppendUintLSB(bits, uint32(p.PacketNumber), 4)
	} else {
		bits = l2.AppendUintLSB(bits, uint32(p.GroupNumber), 14)
		bits = l2.AppendUintLSB(bits, uint32(p.PacketNumber), 10)
	}
	bits = append(bits, p.Data...)
	return bits
}
