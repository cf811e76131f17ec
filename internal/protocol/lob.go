package protocol

import (
	"fmt"
	"io"
)

// Lob streams the remaining content of a LOB whose first chunk already
// arrived inline in a result row, via chunked READ_LOB round trips against
// its locator.
type Lob struct {
	session     *Session
	descr       *LobDescriptor
	isCharBased bool

	data   []byte
	offset int64 // next byte/char offset to request, 1-based per the wire convention
	done   bool
}

// NewLobReader wraps a LobDescriptor decoded from a result row (or OUT
// parameter) in a streaming Reader bound to s.
func (s *Session) NewLobReader(descr *LobDescriptor) *Lob {
	return &Lob{
		session:     s,
		descr:       descr,
		isCharBased: descr.IsCharBased,
		data:        descr.Data,
		offset:      int64(len(descr.Data)) + 1,
		done:        descr.LastData,
	}
}

// Read implements io.Reader, fetching further chunks from the server as
// needed.
func (l *Lob) Read(p []byte) (int, error) {
	if len(l.data) == 0 {
		if l.done {
			return 0, io.EOF
		}
		if err := l.fetchChunk(); err != nil {
			return 0, err
		}
		if len(l.data) == 0 {
			return 0, io.EOF
		}
	}
	n := copy(p, l.data)
	l.data = l.data[n:]
	return n, nil
}

// Len reports the LOB's total length, in characters for CLOB/NCLOB or bytes
// for BLOB, as reported by the server when the descriptor was decoded.
func (l *Lob) Len() int64 {
	if l.isCharBased {
		return l.descr.NumChar
	}
	return l.descr.NumByte
}

// Tell returns l's current logical read position (0-based).
func (l *Lob) Tell() int64 {
	return l.offset - 1 - int64(len(l.data))
}

// Seek updates l's logical read position without performing any network
// I/O; the next Read pulls whatever chunk the new position requires. Only
// io.SeekStart, io.SeekCurrent, and io.SeekEnd are supported, matching the
// collaborator contract's seek(pos, whence).
func (l *Lob) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = l.Tell() + offset
	case io.SeekEnd:
		newPos = l.Len() + offset
	default:
		return 0, &UsageError{Msg: "lob: invalid whence"}
	}
	if newPos < 0 {
		return 0, &UsageError{Msg: "lob: negative seek position"}
	}
	l.offset = newPos + 1
	l.data = nil
	l.done = newPos >= l.Len()
	return newPos, nil
}

const lobReadChunkSize = 128 * 1024

func (l *Lob) fetchChunk() error {
	s := l.session
	if err := s.checkReady(); err != nil {
		return err
	}
	defer s.done()

	stateful := map[PartKind]readablePart{
		pkReadLobReply: new(readLobReplyPart),
	}
	req := &readLobRequestPart{
		locatorID: l.descr.LocatorID,
		offset:    l.offset,
		length:    lobReadChunkSize,
	}
	reply, err := s.roundTrip(MtReadLob, false, stateful, req)
	if err != nil {
		return err
	}
	rp, ok := reply.Parts[pkReadLobReply].(*readLobReplyPart)
	if !ok {
		return &ProtocolError{Msg: "read lob reply missing READ_LOB_REPLY part"}
	}
	l.data = append(l.data, rp.data...)
	l.offset += int64(len(rp.data))
	l.done = rp.isLast
	return nil
}

// WriteLob streams data to the server as a new LOB, in chunks no larger
// than the 128 KiB client-side ceiling (HANA negotiates a smaller ceiling
// via connect options in some configurations; this client never exceeds the
// conservative default absent that negotiation). The open question of
// §9 ("large LOB writes") is resolved by rejecting any single-statement LOB
// payload over that same 128 KiB ceiling with a LobTooLarge UsageError,
// rather than guessing a higher budget the server was never observed to
// negotiate. It returns the locator ID the server assigned, echoed back for
// the owning INSERT/UPDATE's WRITE_LOB_REPLY.
func (s *Session) WriteLob(data []byte) (uint64, error) {
	if len(data) > maxLobWriteChunk {
		return 0, &UsageError{Msg: fmt.Sprintf("lob write of %d bytes exceeds the %d byte per-statement ceiling", len(data), maxLobWriteChunk), Reason: ReasonLobTooLarge}
	}
	if err := s.checkReady(); err != nil {
		return 0, err
	}
	defer s.done()

	var locatorID uint64
	for off := 0; off < len(data) || off == 0; {
		end := off + maxLobWriteChunk
		if end > len(data) {
			end = len(data)
		}
		last := end == len(data)
		req := &writeLobRequestPart{locatorID: locatorID, last: last, data: data[off:end]}

		stateful := map[PartKind]readablePart{
			pkWriteLobReply: new(writeLobReplyPart),
		}
		reply, err := s.roundTrip(MtWriteLob, false, stateful, req)
		if err != nil {
			return 0, err
		}
		if wp, ok := reply.Parts[pkWriteLobReply].(*writeLobReplyPart); ok && len(*wp) > 0 {
			locatorID = (*wp)[0]
		}
		if last {
			break
		}
		off = end
	}
	return locatorID, nil
}
