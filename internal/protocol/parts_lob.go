package protocol

import (
	"fmt"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// lobOptions are the bit flags carried in a LOB read/write request or reply,
// signaling NULL-ness, whether a data chunk is attached, and whether that
// chunk is the locator's last.
type lobOptions int8

const (
	loNullindicator lobOptions = 0x01
	loDataincluded  lobOptions = 0x02
	loLastdata      lobOptions = 0x04
)

// maxLobWriteChunk bounds how much payload the client ever attaches to a
// single WRITE_LOB_REQUEST round trip, absent any server-negotiated ceiling.
const maxLobWriteChunk = 128 * 1024

// readLobRequestPart asks the server for the next chunk of a LOB identified
// by locator, starting at a 1-based character or byte offset depending on
// the LOB's kind.
type readLobRequestPart struct {
	locatorID uint64
	offset    int64
	length    int32
}

const readLobRequestSize = 8 + 8 + 4 + 4 // locator, offset, length, reserved

func (*readLobRequestPart) kind() PartKind { return pkReadLobRequest }
func (p *readLobRequestPart) numArg() int  { return 1 }
func (p *readLobRequestPart) size() int    { return readLobRequestSize }
func (p *readLobRequestPart) encode(enc *encoding.Encoder) error {
	enc.Uint64(p.locatorID)
	enc.Int64(p.offset)
	enc.Int32(p.length)
	enc.Zeroes(4)
	return nil
}

// readLobReplyPart carries the chunk the server sent back for a
// READ_LOB_REQUEST, plus whether it was the locator's last.
type readLobReplyPart struct {
	locatorID uint64
	isLast    bool
	data      []byte
}

func (*readLobReplyPart) kind() PartKind { return pkReadLobReply }

func (p *readLobReplyPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	p.locatorID = dec.Uint64()
	opt := lobOptions(dec.Int8())
	dec.Skip(3) // reserved
	chunkLen := dec.Int32()
	if opt&loNullindicator != 0 {
		return dec.Error()
	}
	p.data = make([]byte, chunkLen)
	dec.Bytes(p.data)
	p.isLast = opt&loLastdata != 0
	return dec.Error()
}

// writeLobRequestPart attaches one chunk of outbound LOB payload to a
// WRITE_LOB_REQUEST round trip, addressed either by locator (continuing a
// write already started by the server) or, on the first chunk, by the
// parameter's descriptor position.
type writeLobRequestPart struct {
	locatorID uint64
	last      bool
	data      []byte
}

func (*writeLobRequestPart) kind() PartKind { return pkWriteLobRequest }
func (p *writeLobRequestPart) numArg() int  { return 1 }
func (p *writeLobRequestPart) size() int    { return 8 + 1 + 3 + 4 + len(p.data) }
func (p *writeLobRequestPart) encode(enc *encoding.Encoder) error {
	if len(p.data) > maxLobWriteChunk {
		return fmt.Errorf("protocol: lob write chunk of %d bytes exceeds client ceiling of %d", len(p.data), maxLobWriteChunk)
	}
	enc.Uint64(p.locatorID)
	opt := loDataincluded
	if p.last {
		opt |= loLastdata
	}
	enc.Int8(int8(opt))
	enc.Zeroes(3)
	enc.Int32(int32(len(p.data)))
	enc.Bytes(p.data)
	return nil
}

// writeLobReplyPart echoes the locator IDs the server accepted chunks for,
// one per LOB parameter in the request that triggered it.
type writeLobReplyPart []uint64

func (*writeLobReplyPart) kind() PartKind { return pkWriteLobReply }

func (p *writeLobReplyPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	numArg := ph.numArg()
	ids := make([]uint64, numArg)
	for i := range ids {
		ids[i] = dec.Uint64()
	}
	*p = ids
	return dec.Error()
}
