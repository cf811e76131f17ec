package protocol

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
	"golang.org/x/text/transform"
)

// countingRW wraps a connection to tally bytes crossing the wire, surfaced
// through Engine.Stats for the metrics package.
type countingRW struct {
	rw    io.ReadWriter
	read  atomic.Int64
	write atomic.Int64
}

func (c *countingRW) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	c.read.Add(int64(n))
	return n, err
}

func (c *countingRW) Write(p []byte) (int, error) {
	n, err := c.rw.Write(p)
	c.write.Add(int64(n))
	return n, err
}

// Reply collects everything a single request/reply round trip returned.
type Reply struct {
	FunctionCode     FunctionCode
	Parts            map[PartKind]readablePart
	TransactionFlags *transactionFlagsPart
	Err              *DatabaseError
}

// Engine drives one synchronous request/reply round trip at a time over a
// transport connection: SCNP allows exactly one in-flight message per
// session.
type Engine struct {
	rw        *countingRW
	enc       *encoding.Encoder
	dec       *encoding.Decoder
	sessionID int64
	packetSeq int32

	requestsSent atomic.Int64

	// sink is nil unless tracing is active for this Engine; see SetTraceSink.
	sink *log.Logger
}

// SetTraceSink turns packet tracing on or off for e. A nil sink (the
// default) disables the per-message summary logging entirely.
func (e *Engine) SetTraceSink(sink *log.Logger) { e.sink = sink }

// NewEngine returns an Engine writing to and reading from rw, transcoding
// CESU-8 text fields via encTr/decTr.
func NewEngine(rw io.ReadWriter, encTr, decTr transform.Transformer) *Engine {
	crw := &countingRW{rw: rw}
	return &Engine{
		rw:  crw,
		enc: encoding.NewEncoder(crw, encTr),
		dec: encoding.NewDecoder(crw, decTr),
	}
}

// EngineStats snapshots the byte/request counters accumulated over the
// lifetime of an Engine, for surfacing through the metrics package.
type EngineStats struct {
	BytesRead    int64
	BytesWritten int64
	RequestsSent int64
}

// Stats returns a snapshot of e's cumulative traffic counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		BytesRead:    e.rw.read.Load(),
		BytesWritten: e.rw.write.Load(),
		RequestsSent: e.requestsSent.Load(),
	}
}

// SetSessionID records the session identifier the server assigned during
// CONNECT; every subsequent packet header carries it.
func (e *Engine) SetSessionID(id int64) { e.sessionID = id }

// SessionID returns the session identifier last set or observed.
func (e *Engine) SessionID() int64 { return e.sessionID }

// WriteMessage encodes and sends one request packet containing a single
// segment built from parts.
func (e *Engine) WriteMessage(mt MessageType, commit bool, parts ...writablePart) error {
	e.packetSeq++
	e.requestsSent.Add(1)

	segLen := int32(segmentHeaderSize)
	for _, p := range parts {
		segLen += int32(partHeaderSize + p.size() + padBytes(p.size()))
	}

	ph := packetHeader{
		sessionID:     e.sessionID,
		packetSeq:     e.packetSeq,
		varPartLength: uint32(segLen),
		varPartSize:   uint32(segLen),
		noOfSegm:      1,
	}
	if err := ph.encode(e.enc); err != nil {
		return &TransportError{Op: "write packet header", Err: err}
	}

	sh := segmentHeader{
		segmentLength: segLen,
		segmentOfs:    0,
		noOfParts:     int16(len(parts)),
		segmentNo:     1,
		segmentKind:   skRequest,
		messageType:   mt,
		commit:        commit,
	}
	if err := sh.encode(e.enc); err != nil {
		return &TransportError{Op: "write segment header", Err: err}
	}

	for _, p := range parts {
		hdr := PartHeader{PartKind: p.kind(), bufferLength: int32(p.size()), bufferSize: int32(p.size())}
		if err := hdr.setNumArg(p.numArg()); err != nil {
			return &ProtocolError{Msg: err.Error()}
		}
		if err := hdr.encode(e.enc); err != nil {
			return &TransportError{Op: "write part header", Err: err}
		}
		if err := p.encode(e.enc); err != nil {
			return err
		}
		e.enc.Zeroes(padBytes(p.size()))
	}
	if e.sink != nil {
		kinds := make([]PartKind, len(parts))
		for i, p := range parts {
			kinds[i] = p.kind()
		}
		e.sink.Printf("-> session=%d seq=%d msgType=%s commit=%t parts=%v", ph.sessionID, ph.packetSeq, mt, commit, kinds)
	}
	return nil
}

// ReadReply reads one reply packet and decodes its parts. stateful supplies
// pre-constructed readers for part kinds whose decode needs external
// context the stateless registry can't provide (e.g. a resultsetPart needs
// its owning ResultSet's column metadata, an outputParametersPart needs its
// statement's parameter metadata). Any part kind absent from stateful falls
// back to newReadablePart; a kind neither map nor registry covers is
// skipped, not treated as an error, since the client may simply not care
// about that part's payload.
func (e *Engine) ReadReply(stateful map[PartKind]readablePart) (*Reply, error) {
	var ph packetHeader
	if err := ph.decode(e.dec); err != nil {
		return nil, &TransportError{Op: "read packet header", Err: err}
	}
	e.sessionID = ph.sessionID

	reply := &Reply{Parts: make(map[PartKind]readablePart)}

	for s := int16(0); s < ph.noOfSegm; s++ {
		var sh segmentHeader
		if err := sh.decode(e.dec); err != nil {
			return nil, &TransportError{Op: "read segment header", Err: err}
		}
		reply.FunctionCode = sh.functionCode

		for i := int16(0); i < sh.noOfParts; i++ {
			var hdr PartHeader
			if err := hdr.decode(e.dec); err != nil {
				return nil, &TransportError{Op: "read part header", Err: err}
			}

			rp, ok := stateful[hdr.PartKind]
			if !ok && hdr.PartKind == pkResultset {
				// EXECUTE_DIRECT against a query has no prepared statement to
				// source column metadata from, but the server always places
				// RESULT_METADATA ahead of RESULTSET in the same reply, so by
				// the time we get here reply.Parts already has it.
				var cols []ColumnDescriptor
				if rm, ok := reply.Parts[pkResultMetadata].(*resultMetadataPart); ok {
					cols = []ColumnDescriptor(*rm)
				}
				rp, ok = &resultsetPart{cols: cols}, true
			}
			if !ok {
				var err error
				rp, err = newReadablePart(hdr.PartKind)
				if err != nil {
					e.dec.Skip(int(hdr.bufferLength) + padBytes(int(hdr.bufferLength)))
					continue
				}
			}
			if err := rp.decode(e.dec, &hdr); err != nil {
				return nil, &ProtocolError{Msg: fmt.Sprintf("decoding part %s: %v", hdr.PartKind, err)}
			}
			e.dec.Skip(padBytes(int(hdr.bufferLength)))

			reply.Parts[hdr.PartKind] = rp
			switch hdr.PartKind {
			case pkTransactionFlags:
				if tf, ok := rp.(*transactionFlagsPart); ok {
					reply.TransactionFlags = tf
				}
			case pkError:
				if errs, ok := rp.(*hdbErrors); ok {
					reply.Err = &DatabaseError{Errors: errs}
				}
			}
		}
	}

	if e.sink != nil {
		kinds := make([]PartKind, 0, len(reply.Parts))
		for k := range reply.Parts {
			kinds = append(kinds, k)
		}
		e.sink.Printf("<- session=%d fc=%s err=%t parts=%v", ph.sessionID, reply.FunctionCode, reply.Err != nil, kinds)
	}

	return reply, nil
}
