package wire

import (
	"errors"

	"github.com/quicfec/qfec/internal/protocol"
)

// ErrShortFECFrame is returned when a buffer is too small to hold a
// well-formed SourceFPID or FEC frame (§4.8 Wire frames).
var ErrShortFECFrame = errors.New("wire: truncated FEC frame")

// SourceFPIDFrame is a 5-byte frame: a 1-byte type tag followed by a
// 4-byte big-endian SFPID (§4.8).
type SourceFPIDFrame struct {
	SFPID protocol.SourceFPID
}

// Len is the frame's fixed encoded size.
func (SourceFPIDFrame) Len() int { return 5 }

// Append writes the frame to buf.
func (f SourceFPIDFrame) Append(buf []byte) []byte {
	buf = append(buf, protocol.SourceFPIDFrameType)
	return AppendUint32(buf, uint32(f.SFPID))
}

// ParseSourceFPIDFrame reads a SourceFPID frame from the front of data.
// data[0] must already have been checked to equal SourceFPIDFrameType.
func ParseSourceFPIDFrame(data []byte) (SourceFPIDFrame, int, error) {
	if len(data) < 5 {
		return SourceFPIDFrame{}, 0, ErrShortFECFrame
	}
	v, err := ReadUint32(data[1:5])
	if err != nil {
		return SourceFPIDFrame{}, 0, ErrShortFECFrame
	}
	return SourceFPIDFrame{SFPID: protocol.SourceFPID(v)}, 5, nil
}

// FECFrame carries one repair symbol: header {repair_fec_payload_id
// (u32), nss (u8), nrs (u8), dataLength (varint)} followed by data
// (§4.8). Repair symbols are never split across multiple FEC frames.
type FECFrame struct {
	RFPID                 protocol.RepairFPID
	NumberOfSourceSymbols uint8
	NumberOfRepairSymbols uint8
	Data                  []byte
}

// Len is the frame's total encoded size.
func (f FECFrame) Len() int {
	return 1 + 4 + 1 + 1 + VarIntLen(uint64(len(f.Data))) + len(f.Data)
}

// Append writes the frame to buf.
func (f FECFrame) Append(buf []byte) []byte {
	buf = append(buf, protocol.FECFrameType)
	buf = AppendUint32(buf, uint32(f.RFPID))
	buf = append(buf, f.NumberOfSourceSymbols, f.NumberOfRepairSymbols)
	buf = AppendVarInt(buf, uint64(len(f.Data)))
	return append(buf, f.Data...)
}

// ParseFECFrame reads a FEC frame from the front of data. data[0] must
// already have been checked to equal FECFrameType.
func ParseFECFrame(data []byte) (FECFrame, int, error) {
	if len(data) < 7 {
		return FECFrame{}, 0, ErrShortFECFrame
	}
	rfpid, err := ReadUint32(data[1:5])
	if err != nil {
		return FECFrame{}, 0, ErrShortFECFrame
	}
	nss, nrs := data[5], data[6]
	dataLen, n, verr := ReadVarInt(data[7:])
	if verr != nil {
		return FECFrame{}, 0, ErrShortFECFrame
	}
	off := 7 + n
	if len(data) < off+int(dataLen) {
		return FECFrame{}, 0, ErrShortFECFrame
	}
	payload := data[off : off+int(dataLen)]
	return FECFrame{
		RFPID:                 protocol.RepairFPID(rfpid),
		NumberOfSourceSymbols: nss,
		NumberOfRepairSymbols: nrs,
		Data:                  payload,
	}, off + int(dataLen), nil
}
