// SPDX-FileCopyrightText: adapted from SAP SE go-hdb
//
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"math"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// padding boundary for part payloads within a segment.
const padding = 8

func padBytes(size int) int {
	if r := size % padding; r != 0 {
		return padding - r
	}
	return 0
}

const packetHeaderSize = 32

// packetHeader is the fixed 32-byte header prefixing every packet: one
// request, one reply.
type packetHeader struct {
	sessionID     int64
	packetSeq     int32
	varPartLength uint32
	varPartSize   uint32
	noOfSegm      int16
	packetOptions byte
}

func (h *packetHeader) String() string {
	return fmt.Sprintf("session id %d packetSeq %d varPartLength %d varPartSize %d noOfSegm %d",
		h.sessionID, h.packetSeq, h.varPartLength, h.varPartSize, h.noOfSegm)
}

func (h *packetHeader) encode(enc *encoding.Encoder) error {
	enc.Int64(h.sessionID)
	enc.Int32(h.packetSeq)
	enc.Uint32(h.varPartLength)
	enc.Uint32(h.varPartSize)
	enc.Int16(h.noOfSegm)
	enc.Byte(h.packetOptions)
	enc.Zeroes(9) // reserved
	return nil
}

func (h *packetHeader) decode(dec *encoding.Decoder) error {
	h.sessionID = dec.Int64()
	h.packetSeq = dec.Int32()
	h.varPartLength = dec.Uint32()
	h.varPartSize = dec.Uint32()
	h.noOfSegm = dec.Int16()
	h.packetOptions = dec.Byte()
	dec.Skip(9)
	return dec.Error()
}

// segmentKind classifies a segment as request, reply, or error.
type segmentKind int8

const (
	skInvalid segmentKind = 0
	skRequest segmentKind = 1
	skReply   segmentKind = 2
	skError   segmentKind = 5
)

func (k segmentKind) String() string {
	switch k {
	case skRequest:
		return "request"
	case skReply:
		return "reply"
	case skError:
		return "error"
	default:
		return "invalid"
	}
}

const segmentHeaderSize = 24

// segmentHeader is the 24-byte header prefixing every segment. For a
// REQUEST segment the trailer carries messageType/commit/commandOptions;
// for a REPLY/ERROR segment it carries the functionCode.
type segmentHeader struct {
	segmentLength   int32
	segmentOfs      int32
	noOfParts       int16
	segmentNo       int16
	segmentKind     segmentKind
	messageType     MessageType
	commit          bool
	commandOptions  byte
	functionCode    FunctionCode
}

func (h *segmentHeader) encode(enc *encoding.Encoder) error {
	enc.Int32(h.segmentLength)
	enc.Int32(h.segmentOfs)
	enc.Int16(h.noOfParts)
	enc.Int16(h.segmentNo)
	enc.Int8(int8(h.segmentKind))
	switch h.segmentKind {
	case skRequest:
		enc.Int8(int8(h.messageType))
		enc.Bool(h.commit)
		enc.Byte(h.commandOptions)
		enc.Zeroes(8)
	default:
		enc.Byte(0)
		enc.Int16(int16(h.functionCode))
		enc.Zeroes(8)
	}
	return nil
}

func (h *segmentHeader) decode(dec *encoding.Decoder) error {
	h.segmentLength = dec.Int32()
	h.segmentOfs = dec.Int32()
	h.noOfParts = dec.Int16()
	h.segmentNo = dec.Int16()
	h.segmentKind = segmentKind(dec.Int8())
	switch h.segmentKind {
	case skRequest:
		h.messageType = MessageType(dec.Int8())
		h.commit = dec.Bool()
		h.commandOptions = dec.Byte()
		dec.Skip(8)
	default:
		dec.Byte()
		h.functionCode = FunctionCode(dec.Int16())
		dec.Skip(8)
	}
	return dec.Error()
}

const partHeaderSize = 16

const maxPartArgs1ByteLen = 1<<15 - 1 // argument count switches to the big field past this.

// PartHeader is the 16-byte header prefixing every part.
type PartHeader struct {
	PartKind     PartKind
	attributes   partAttributes
	argCount     int32 // always decoded/encoded as the wider of the two wire fields
	bufferLength int32
	bufferSize   int32
}

func (h *PartHeader) numArg() int { return int(h.argCount) }

func (h *PartHeader) setNumArg(n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("part argument count %d exceeds maximum %d", n, math.MaxInt32)
	}
	h.argCount = int32(n)
	return nil
}

func (h *PartHeader) String() string {
	return fmt.Sprintf("kind %s attributes %s numArg %d bufferLength %d bufferSize %d",
		h.PartKind, h.attributes, h.argCount, h.bufferLength, h.bufferSize)
}

func (h *PartHeader) encode(enc *encoding.Encoder) error {
	enc.Int8(int8(h.PartKind))
	enc.Int8(int8(h.attributes))
	if h.argCount <= maxPartArgs1ByteLen {
		enc.Int16(int16(h.argCount))
		enc.Int32(0)
	} else {
		enc.Int16(-1)
		enc.Int32(h.argCount)
	}
	enc.Int32(h.bufferLength)
	enc.Int32(h.bufferSize)
	return nil
}

func (h *PartHeader) decode(dec *encoding.Decoder) error {
	h.PartKind = PartKind(dec.Int8())
	h.attributes = partAttributes(dec.Int8())
	numArg := int32(dec.Int16())
	bigArgCount := dec.Int32()
	if numArg == -1 {
		h.argCount = bigArgCount
	} else {
		h.argCount = numArg
	}
	h.bufferLength = dec.Int32()
	h.bufferSize = dec.Int32()
	return dec.Error()
}

// partAttributes is the attribute bitmask carried in every part header; the
// bits relevant to result-set streaming are the last-packet / resultset
// closed flags.
type partAttributes int8

const (
	paLastPacket       partAttributes = 0x01
	paNoMoreData       partAttributes = 0x02
	paResultsetClosed  partAttributes = 0x08
)

func (a partAttributes) lastPacket() bool      { return a&paLastPacket != 0 }
func (a partAttributes) resultsetClosed() bool { return a&paResultsetClosed != 0 || a&paNoMoreData != 0 }
func (a partAttributes) String() string        { return fmt.Sprintf("0x%02x", int8(a)) }
