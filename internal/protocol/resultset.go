package protocol

// ResultSet streams rows from an executed query. Rows already buffered by
// the triggering EXECUTE/EXECUTE_DIRECT reply are served first; once
// exhausted, Next issues a FETCH_NEXT round trip for the next batch sized
// per fetchSize.
type ResultSet struct {
	session   *Session
	id        uint64
	cols      []ColumnDescriptor
	fetchSize int32

	buffer []Row
	pos    int
	closed bool
	atEnd  bool

	// noCursor is set on a synthetic result set that never had a
	// server-side cursor to begin with (e.g. a CALL's OUT parameters
	// surfaced as a one-row ResultSet), so Close has nothing to tell the
	// server about.
	noCursor bool
}

// Row is one positionally-decoded result row.
type Row = []Value

// Columns returns the result set's ordered column descriptors.
func (rs *ResultSet) Columns() []ColumnDescriptor { return rs.cols }

// Next advances to the next row, fetching another batch from the server
// when the local buffer is exhausted. It returns false once the result set
// is closed or exhausted.
func (rs *ResultSet) Next() (Row, bool, error) {
	if rs.closed {
		return nil, false, &ClosedError{What: "resultset"}
	}
	if rs.pos < len(rs.buffer) {
		row := rs.buffer[rs.pos]
		rs.pos++
		return row, true, nil
	}
	if rs.atEnd {
		return nil, false, nil
	}
	if err := rs.fetchNext(); err != nil {
		return nil, false, err
	}
	if rs.pos < len(rs.buffer) {
		row := rs.buffer[rs.pos]
		rs.pos++
		return row, true, nil
	}
	return nil, false, nil
}

func (rs *ResultSet) fetchNext() error {
	s := rs.session
	if err := s.checkReady(); err != nil {
		return err
	}
	defer s.done()

	stateful := map[PartKind]readablePart{
		pkResultset: &resultsetPart{cols: rs.cols},
	}
	reply, err := s.roundTrip(MtFetchNext, false, stateful,
		resultsetIDPart(rs.id), fetchsizePart(rs.fetchSize))
	if err != nil {
		return err
	}

	rs.buffer = nil
	rs.pos = 0
	if rp, ok := reply.Parts[pkResultset].(*resultsetPart); ok {
		rs.buffer = rp.Rows
		rs.atEnd = rp.Closed
	} else {
		rs.atEnd = true
	}
	return nil
}

// Close releases the server-side cursor. Safe to call more than once, and
// automatically implied once the result set is exhausted and the server
// signaled RESULTSET_CLOSED, but an explicit Close is still required
// whenever the caller abandons a result set before exhausting it.
func (rs *ResultSet) Close() error {
	if rs.closed {
		return nil
	}
	rs.closed = true
	if rs.noCursor {
		return nil
	}
	s := rs.session
	if err := s.checkReady(); err != nil {
		return err
	}
	defer s.done()
	_, err := s.roundTrip(MtCloseResultset, false, nil, resultsetIDPart(rs.id))
	s.mu.Lock()
	delete(s.openResultsets, rs.id)
	s.mu.Unlock()
	return err
}
