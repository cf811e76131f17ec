package protocol

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// TestResultSetFetchHonorsResultsetClosedAttribute covers testable property
// 6: a ResultSet must stop issuing FETCH_NEXT once the server has signaled
// RESULTSET_CLOSED on a reply, rather than guessing exhaustion from a short
// batch. Scenario S3 (INSERT under auto-commit) is covered separately by
// TestScenarioInsertAutocommit in scenario_test.go.
func TestResultSetFetchHonorsResultsetClosedAttribute(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveFetchNext(server)
	}()

	eng := NewEngine(client, nil, nil)
	s := &Session{
		engine:         eng,
		conn:           client,
		state:          StateReady,
		fetchSize:      2,
		openResultsets: make(map[uint64]*ResultSet),
	}
	rs := &ResultSet{
		session:   s,
		id:        5,
		cols:      []ColumnDescriptor{{TypeCode: tcInteger}},
		fetchSize: 2,
		atEnd:     false,
	}

	row, ok, err := rs.Next()
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := row[0].I64()
	require.Equal(t, int64(1), v)

	row, ok, err = rs.Next()
	require.NoError(t, err)
	require.True(t, ok)
	v, _ = row[0].I64()
	require.Equal(t, int64(2), v)

	require.True(t, rs.atEnd, "server signaled RESULTSET_CLOSED on the one FETCH_NEXT reply")

	_, ok, err = rs.Next()
	require.NoError(t, err)
	require.False(t, ok, "exhausted result set must not trigger a second FETCH_NEXT")

	require.NoError(t, <-errCh)
}

func driveFetchNext(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)

	if _, err := srv.readRequest(); err != nil { // FETCH_NEXT
		return err
	}

	var payload bytes.Buffer
	enc := encoding.NewEncoder(&payload, nil)
	for _, n := range []int32{1, 2} {
		enc.Byte(byte(tcInteger))
		enc.Int32(n)
	}

	ph := PartHeader{PartKind: pkResultset, attributes: paResultsetClosed, bufferLength: int32(payload.Len()), bufferSize: int32(payload.Len())}
	if err := ph.setNumArg(2); err != nil {
		return err
	}

	segLen := int32(segmentHeaderSize + partHeaderSize + payload.Len() + padBytes(payload.Len()))
	pkt := packetHeader{sessionID: 1, packetSeq: 1, varPartLength: uint32(segLen), varPartSize: uint32(segLen), noOfSegm: 1}
	if err := pkt.encode(srv.enc); err != nil {
		return err
	}
	sh := segmentHeader{segmentLength: segLen, noOfParts: 1, segmentNo: 1, segmentKind: skReply, functionCode: FcFetch}
	if err := sh.encode(srv.enc); err != nil {
		return err
	}
	if err := ph.encode(srv.enc); err != nil {
		return err
	}
	srv.enc.Bytes(payload.Bytes())
	srv.enc.Zeroes(padBytes(payload.Len()))
	return nil
}
