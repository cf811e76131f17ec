package protocol

import (
	"io"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// FrameInfo summarizes one packet frame decoded by DecodeFrame, for
// observability tools that watch the wire without participating in the
// protocol themselves.
type FrameInfo struct {
	SessionID int64
	PacketSeq int32
	Segments  []SegmentInfo
}

// SegmentInfo summarizes one segment within a frame.
type SegmentInfo struct {
	Kind         string
	FunctionCode FunctionCode
	MessageType  MessageType
	Parts        []PartInfo
}

// PartInfo summarizes one part header within a segment.
type PartInfo struct {
	Kind         PartKind
	BufferLength int32
}

// DecodeFrame reads one packet frame from r — its packet header, every
// segment header, and every part header within those segments — skipping
// over part payloads rather than decoding them. It consumes exactly the
// frame's bytes and nothing more, so a caller relaying the same stream
// downstream (e.g. via io.TeeReader) can observe frames without disturbing
// them.
func DecodeFrame(r io.Reader) (*FrameInfo, error) {
	dec := encoding.NewDecoder(r, nil)

	var ph packetHeader
	if err := ph.decode(dec); err != nil {
		return nil, err
	}

	info := &FrameInfo{SessionID: ph.sessionID, PacketSeq: ph.packetSeq}
	for s := int16(0); s < ph.noOfSegm; s++ {
		var sh segmentHeader
		if err := sh.decode(dec); err != nil {
			return nil, err
		}
		seg := SegmentInfo{
			Kind:         sh.segmentKind.String(),
			FunctionCode: sh.functionCode,
			MessageType:  sh.messageType,
		}
		for i := int16(0); i < sh.noOfParts; i++ {
			var hdr PartHeader
			if err := hdr.decode(dec); err != nil {
				return nil, err
			}
			seg.Parts = append(seg.Parts, PartInfo{Kind: hdr.PartKind, BufferLength: hdr.bufferLength})
			dec.Skip(int(hdr.bufferLength) + padBytes(int(hdr.bufferLength)))
		}
		info.Segments = append(info.Segments, seg)
	}
	return info, nil
}
