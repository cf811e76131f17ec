package protocol

import (
	"bytes"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// fakeServer speaks just enough of SCNP's framing to play the other end of
// a handshake in-process, over a net.Pipe — there is no live HANA instance
// to test scenarios S1-S6 against, so these scenario tests frame the exact
// reply bytes a real server would send and assert on the client-visible
// outcome, per the approach SPEC_FULL.md settles on in place of a
// container-backed integration harness (see DESIGN.md).
type fakeServer struct {
	dec *encoding.Decoder
	enc *encoding.Encoder

	// lastCommit records the commit flag carried by the most recently read
	// request's segment trailer, so a scenario can assert on it (e.g. an
	// autocommit-off statement must not set it).
	lastCommit bool
}

func newFakeServer(conn net.Conn) *fakeServer {
	return &fakeServer{
		dec: encoding.NewDecoder(conn, nil),
		enc: encoding.NewEncoder(conn, nil),
	}
}

// readRequest consumes one request packet (one segment, any number of
// parts) and returns the message type, discarding part payloads.
func (f *fakeServer) readRequest() (MessageType, error) {
	var ph packetHeader
	if err := ph.decode(f.dec); err != nil {
		return 0, err
	}
	var sh segmentHeader
	if err := sh.decode(f.dec); err != nil {
		return 0, err
	}
	f.lastCommit = sh.commit
	for i := int16(0); i < sh.noOfParts; i++ {
		var hdr PartHeader
		if err := hdr.decode(f.dec); err != nil {
			return 0, err
		}
		f.dec.Skip(int(hdr.bufferLength) + padBytes(int(hdr.bufferLength)))
	}
	return sh.messageType, nil
}

type fakeReplyPart struct {
	kind       PartKind
	numArg     int
	payload    []byte
	attributes partAttributes
}

// writeReply frames and sends one reply packet containing parts.
func (f *fakeServer) writeReply(sessionID int64, seq int32, fc FunctionCode, parts []fakeReplyPart) error {
	segLen := int32(segmentHeaderSize)
	for _, p := range parts {
		segLen += int32(partHeaderSize + len(p.payload) + padBytes(len(p.payload)))
	}
	ph := packetHeader{sessionID: sessionID, packetSeq: seq, varPartLength: uint32(segLen), varPartSize: uint32(segLen), noOfSegm: 1}
	if err := ph.encode(f.enc); err != nil {
		return err
	}
	sh := segmentHeader{segmentLength: segLen, segmentOfs: 0, noOfParts: int16(len(parts)), segmentNo: 1, segmentKind: skReply, functionCode: fc}
	if err := sh.encode(f.enc); err != nil {
		return err
	}
	for _, p := range parts {
		hdr := PartHeader{PartKind: p.kind, attributes: p.attributes, bufferLength: int32(len(p.payload)), bufferSize: int32(len(p.payload))}
		if err := hdr.setNumArg(p.numArg); err != nil {
			return err
		}
		if err := hdr.encode(f.enc); err != nil {
			return err
		}
		f.enc.Bytes(p.payload)
		f.enc.Zeroes(padBytes(len(p.payload)))
	}
	return nil
}

// driveHandshake plays the AUTHENTICATE (init + final) / CONNECT exchange
// shared by every scenario below.
func (f *fakeServer) driveHandshake() error {
	if _, err := f.readRequest(); err != nil { // AUTHENTICATE init
		return err
	}
	salt := bytes.Repeat([]byte{0x11}, 16)
	serverChallenge := bytes.Repeat([]byte{0x22}, 32)
	if err := f.writeReply(1, 1, FcAuthenticate, []fakeReplyPart{
		{kind: pkAuthentication, numArg: 1, payload: initialAuthReplyPayload(salt, serverChallenge)},
	}); err != nil {
		return err
	}

	if _, err := f.readRequest(); err != nil { // AUTHENTICATE final
		return err
	}
	serverProof := bytes.Repeat([]byte{0x33}, 32)
	if err := f.writeReply(1, 2, FcAuthenticate, []fakeReplyPart{
		{kind: pkAuthentication, numArg: 1, payload: finalAuthReplyPayload(serverProof)},
	}); err != nil {
		return err
	}

	if _, err := f.readRequest(); err != nil { // CONNECT
		return err
	}
	return f.writeReply(1, 3, FcConnect, nil)
}

// driveDisconnect answers the client's closing DISCONNECT.
func (f *fakeServer) driveDisconnect() error {
	if _, err := f.readRequest(); err != nil {
		return err
	}
	return f.writeReply(1, 99, FcDisconnect, nil)
}

func initialAuthReplyPayload(salt, serverChallenge []byte) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	enc.Int16(2)
	encodeAuthField(enc, []byte(authMethodName))
	enc.Int16(2)
	encodeAuthField(enc, salt)
	encodeAuthField(enc, serverChallenge)
	return buf.Bytes()
}

func finalAuthReplyPayload(serverProof []byte) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	enc.Int16(2)
	encodeAuthField(enc, []byte(authMethodName))
	encodeAuthField(enc, serverProof)
	return buf.Bytes()
}

// --- wire-building helpers shared by the scenarios below ---

func encodeUint64Payload(v uint64) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	enc.Uint64(v)
	return buf.Bytes()
}

func encodeMetaName(enc *encoding.Encoder, name string) {
	if name == "" {
		enc.Byte(0)
		return
	}
	enc.Byte(byte(len(name)))
	enc.CESU8String(name)
}

// colSpec is the test-side equivalent of a ColumnDescriptor, used to frame
// RESULT_METADATA payloads byte for byte as resultMetadataPart.decode reads
// them.
type colSpec struct {
	tc       TypeCode
	length   int16
	fraction int16
	nullable bool
	name     string
}

func buildResultMetadataPayload(cols []colSpec) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	for _, c := range cols {
		var flags int8
		if c.nullable {
			flags |= 0x01
		}
		enc.Int8(flags)
		enc.Byte(byte(c.tc))
		enc.Int16(c.length)
		enc.Int16(c.fraction)
		enc.Zeroes(2)
		encodeMetaName(enc, "")     // tableName
		encodeMetaName(enc, "")     // schemaName
		encodeMetaName(enc, c.name) // columnName
		encodeMetaName(enc, c.name) // displayName
	}
	return buf.Bytes()
}

func encodeParamMode(m ParameterMode) int8 {
	switch m {
	case PmOut:
		return 0x02
	case PmInOut:
		return 0x03
	default:
		return 0x01
	}
}

func buildParameterMetadataPayload(params []ParameterDescriptor) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	for _, p := range params {
		enc.Int8(encodeParamMode(p.Mode))
		enc.Byte(byte(p.TypeCode))
		enc.Zeroes(2)
		enc.Int16(p.Length)
		enc.Int16(p.Fraction)
		enc.Zeroes(2)
		enc.Byte(byte(len(p.Name)))
		if p.Name != "" {
			enc.CESU8String(p.Name)
		}
	}
	return buf.Bytes()
}

// buildValuesPayload encodes one row of values positionally against tcs,
// reusing the package's own EncodeValue so the bytes match exactly what
// DecodeValue on the client side expects.
func buildValuesPayload(tcs []TypeCode, values []Value) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	for i, v := range values {
		_ = EncodeValue(enc, tcs[i], v)
	}
	return buf.Bytes()
}

func buildRowsAffectedPayload(counts []int32) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	for _, c := range counts {
		enc.Int32(c)
	}
	return buf.Bytes()
}

func buildTransactionFlagsPayload(flags map[int8]Value) []byte {
	var buf bytes.Buffer
	enc := encoding.NewEncoder(&buf, nil)
	_ = optionList(flags).encode(enc)
	return buf.Bytes()
}

// TestScenarioConnectAuthenticateDisconnect exercises the two-round
// SCRAM-SHA256 AUTHENTICATE handshake followed by CONNECT and a clean
// DISCONNECT — the connection setup every scenario below builds on, but not
// itself one of spec.md's numbered scenarios.
func TestScenarioConnectAuthenticateDisconnect(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveConnectHandshake(server)
	}()

	s, err := Connect(client, "SYSTEM", "secret", ConnectOptions{})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, StateReady, s.state)

	require.NoError(t, s.Close())
	require.NoError(t, <-errCh)
}

func driveConnectHandshake(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)
	if err := srv.driveHandshake(); err != nil {
		return err
	}
	return srv.driveDisconnect()
}

// TestScenarioSimpleSelect plays spec.md's S1: a SELECT of a single literal
// column returns exactly one NVARCHAR row.
func TestScenarioSimpleSelect(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveSimpleSelect(server)
	}()

	s, err := Connect(client, "SYSTEM", "secret", ConnectOptions{})
	require.NoError(t, err)

	res, err := s.ExecuteDirect("SELECT 'Hello Python World' FROM DUMMY")
	require.NoError(t, err)
	require.Equal(t, FcSelect, res.FunctionCode)
	require.NotNil(t, res.ResultSet)
	require.Len(t, res.ResultSet.Columns(), 1)
	require.Equal(t, tcNvarchar, res.ResultSet.Columns()[0].TypeCode)

	row, ok, err := res.ResultSet.Next()
	require.NoError(t, err)
	require.True(t, ok)
	str, _ := row[0].Str()
	require.Equal(t, "Hello Python World", str)

	_, ok, err = res.ResultSet.Next()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, res.ResultSet.Close())
	require.NoError(t, s.Close())
	require.NoError(t, <-errCh)
}

func driveSimpleSelect(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)
	if err := srv.driveHandshake(); err != nil {
		return err
	}

	if mt, err := srv.readRequest(); err != nil { // EXECUTE_DIRECT
		return err
	} else if mt != MtExecuteDirect {
		return fmt.Errorf("expected EXECUTE_DIRECT, got message type %d", mt)
	}
	metaPayload := buildResultMetadataPayload([]colSpec{{tc: tcNvarchar, length: 19, name: "HELLO_PYTHON_WORLD"}})
	rowPayload := buildValuesPayload([]TypeCode{tcNvarchar}, []Value{StrValue("Hello Python World")})
	if err := srv.writeReply(1, 3, FcSelect, []fakeReplyPart{
		{kind: pkResultMetadata, numArg: 1, payload: metaPayload},
		{kind: pkResultsetID, numArg: 1, payload: encodeUint64Payload(1)},
		{kind: pkResultset, numArg: 1, payload: rowPayload, attributes: paResultsetClosed},
	}); err != nil {
		return err
	}

	if _, err := srv.readRequest(); err != nil { // CLOSE_RESULTSET
		return err
	}
	if err := srv.writeReply(1, 4, FcSelect, nil); err != nil {
		return err
	}

	return srv.driveDisconnect()
}

// TestScenarioInsertAutocommit plays spec.md's S3: under auto-commit (the
// default), an INSERT reports rowcount 1, function code INSERT, and a
// TRANSACTION_FLAGS reply with committed=true.
func TestScenarioInsertAutocommit(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveInsertAutocommit(server)
	}()

	s, err := Connect(client, "SYSTEM", "secret", ConnectOptions{})
	require.NoError(t, err)

	res, err := s.ExecuteDirect("INSERT INTO T VALUES('Hello Python World')")
	require.NoError(t, err)
	require.Equal(t, FcInsert, res.FunctionCode)
	require.Equal(t, []int32{1}, res.RowsAffected)

	s.mu.Lock()
	committed := s.tx.committed
	s.mu.Unlock()
	require.True(t, committed)

	require.NoError(t, s.Close())
	require.NoError(t, <-errCh)
}

func driveInsertAutocommit(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)
	if err := srv.driveHandshake(); err != nil {
		return err
	}

	mt, err := srv.readRequest() // EXECUTE_DIRECT
	if err != nil {
		return err
	}
	if mt != MtExecuteDirect {
		return fmt.Errorf("expected EXECUTE_DIRECT, got message type %d", mt)
	}
	if !srv.lastCommit {
		return fmt.Errorf("expected auto-commit INSERT to carry the commit flag")
	}

	rowsPayload := buildRowsAffectedPayload([]int32{1})
	txPayload := buildTransactionFlagsPayload(map[int8]Value{tfCommitted: BoolValue(true)})
	if err := srv.writeReply(1, 3, FcInsert, []fakeReplyPart{
		{kind: pkRowsAffected, numArg: 1, payload: rowsPayload},
		{kind: pkTransactionFlags, numArg: 1, payload: txPayload},
	}); err != nil {
		return err
	}

	return srv.driveDisconnect()
}

// TestScenarioCallWithOutParams plays spec.md's S4: preparing and executing
// a CALL with two IN and two OUT parameters surfaces the OUT values as a
// single-row ResultSet, per the Execute/ExecuteResult contract.
func TestScenarioCallWithOutParams(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveCallWithOutParams(server)
	}()

	s, err := Connect(client, "SYSTEM", "secret", ConnectOptions{})
	require.NoError(t, err)

	ps, err := s.Prepare("CALL PROC_ADD2(?,?,?,?)")
	require.NoError(t, err)
	require.Equal(t, FcCall, ps.functionCode)
	require.Len(t, ps.Parameters(), 4)

	res, err := ps.ExecuteNamed(map[string]Value{"A": I64Value(2), "B": I64Value(5)})
	require.NoError(t, err)
	require.NotNil(t, res.ResultSet)

	row, ok, err := res.ResultSet.Next()
	require.NoError(t, err)
	require.True(t, ok)
	c, ok := row[0].I64()
	require.True(t, ok)
	require.Equal(t, int64(7), c)
	d, ok := row[1].Bytes()
	require.True(t, ok)
	require.Equal(t, "A", string(d))

	require.NoError(t, res.ResultSet.Close())
	require.NoError(t, ps.Close())
	require.NoError(t, s.Close())
	require.NoError(t, <-errCh)
}

func driveCallWithOutParams(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)
	if err := srv.driveHandshake(); err != nil {
		return err
	}

	if mt, err := srv.readRequest(); err != nil { // PREPARE
		return err
	} else if mt != MtPrepare {
		return fmt.Errorf("expected PREPARE, got message type %d", mt)
	}
	params := []ParameterDescriptor{
		{Mode: PmIn, TypeCode: tcInteger, Name: "A"},
		{Mode: PmIn, TypeCode: tcInteger, Name: "B"},
		{Mode: PmOut, TypeCode: tcInteger, Name: "C"},
		{Mode: PmOut, TypeCode: tcChar, Length: 1, Name: "D"},
	}
	if err := srv.writeReply(1, 3, FcCall, []fakeReplyPart{
		{kind: pkStatementID, numArg: 1, payload: encodeUint64Payload(42)},
		{kind: pkParameterMetadata, numArg: len(params), payload: buildParameterMetadataPayload(params)},
	}); err != nil {
		return err
	}

	if mt, err := srv.readRequest(); err != nil { // EXECUTE
		return err
	} else if mt != MtExecute {
		return fmt.Errorf("expected EXECUTE, got message type %d", mt)
	}
	outPayload := buildValuesPayload([]TypeCode{tcInteger, tcChar}, []Value{I64Value(7), StrValue("A")})
	if err := srv.writeReply(1, 4, FcCall, []fakeReplyPart{
		{kind: pkOutputParameters, numArg: 2, payload: outPayload},
	}); err != nil {
		return err
	}

	if _, err := srv.readRequest(); err != nil { // DROP_STATEMENT_ID
		return err
	}
	if err := srv.writeReply(1, 5, FcCall, nil); err != nil {
		return err
	}

	return srv.driveDisconnect()
}

// TestScenarioAutocommitOffRollback plays spec.md's S6: with auto-commit
// off, two INSERTs followed by an explicit Rollback leave the table empty,
// as observed by a fresh SELECT on a brand new session.
func TestScenarioAutocommitOffRollback(t *testing.T) {
	client1, server1 := net.Pipe()
	defer client1.Close()
	errCh1 := make(chan error, 1)
	go func() {
		errCh1 <- driveAutocommitOffRollback(server1)
	}()

	autocommit := false
	s1, err := Connect(client1, "SYSTEM", "secret", ConnectOptions{Autocommit: &autocommit})
	require.NoError(t, err)

	_, err = s1.ExecuteDirect("INSERT INTO T VALUES('a')")
	require.NoError(t, err)
	_, err = s1.ExecuteDirect("INSERT INTO T VALUES('b')")
	require.NoError(t, err)
	require.NoError(t, s1.Rollback())
	require.NoError(t, s1.Close())
	require.NoError(t, <-errCh1)

	client2, server2 := net.Pipe()
	defer client2.Close()
	errCh2 := make(chan error, 1)
	go func() {
		errCh2 <- driveEmptySelect(server2)
	}()

	s2, err := Connect(client2, "SYSTEM", "secret", ConnectOptions{})
	require.NoError(t, err)

	res, err := s2.ExecuteDirect("SELECT N FROM T")
	require.NoError(t, err)
	_, ok, err := res.ResultSet.Next()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s2.Close())
	require.NoError(t, <-errCh2)
}

func driveAutocommitOffRollback(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)
	if err := srv.driveHandshake(); err != nil {
		return err
	}

	for i := 0; i < 2; i++ {
		mt, err := srv.readRequest() // EXECUTE_DIRECT (INSERT)
		if err != nil {
			return err
		}
		if mt != MtExecuteDirect {
			return fmt.Errorf("expected EXECUTE_DIRECT, got message type %d", mt)
		}
		if srv.lastCommit {
			return fmt.Errorf("expected auto-commit-off INSERT to not carry the commit flag")
		}
		rowsPayload := buildRowsAffectedPayload([]int32{1})
		txPayload := buildTransactionFlagsPayload(map[int8]Value{tfWriteTxOpen: BoolValue(true)})
		if err := srv.writeReply(1, int32(3+i), FcInsert, []fakeReplyPart{
			{kind: pkRowsAffected, numArg: 1, payload: rowsPayload},
			{kind: pkTransactionFlags, numArg: 1, payload: txPayload},
		}); err != nil {
			return err
		}
	}

	if mt, err := srv.readRequest(); err != nil { // ROLLBACK
		return err
	} else if mt != MtRollback {
		return fmt.Errorf("expected ROLLBACK, got message type %d", mt)
	}
	txPayload := buildTransactionFlagsPayload(map[int8]Value{
		tfRolledBack:  BoolValue(true),
		tfWriteTxOpen: BoolValue(false),
	})
	if err := srv.writeReply(1, 5, FcRollback, []fakeReplyPart{
		{kind: pkTransactionFlags, numArg: 1, payload: txPayload},
	}); err != nil {
		return err
	}

	return srv.driveDisconnect()
}

func driveEmptySelect(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)
	if err := srv.driveHandshake(); err != nil {
		return err
	}

	if mt, err := srv.readRequest(); err != nil { // EXECUTE_DIRECT
		return err
	} else if mt != MtExecuteDirect {
		return fmt.Errorf("expected EXECUTE_DIRECT, got message type %d", mt)
	}
	metaPayload := buildResultMetadataPayload([]colSpec{{tc: tcNvarchar, length: 255, nullable: true, name: "N"}})
	if err := srv.writeReply(1, 3, FcSelect, []fakeReplyPart{
		{kind: pkResultMetadata, numArg: 1, payload: metaPayload},
		{kind: pkResultsetID, numArg: 1, payload: encodeUint64Payload(1)},
		{kind: pkResultset, numArg: 0, payload: nil, attributes: paResultsetClosed},
	}); err != nil {
		return err
	}

	return srv.driveDisconnect()
}

// TestScenarioLobReadPastInlineChunk exercises Lob chunk continuation: a Lob
// whose first chunk already arrived inline keeps streaming transparently
// across a READ_LOB_REQUEST/REPLY round trip once that chunk is exhausted.
// This is a general property of Lob.Read, not one of spec.md's numbered
// scenarios; S5's exact byte accounting has no test in this package.
func TestScenarioLobReadPastInlineChunk(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- driveReadLob(server)
	}()

	eng := NewEngine(client, nil, nil)
	s := &Session{engine: eng, conn: client, state: StateReady}
	l := s.NewLobReader(&LobDescriptor{
		LocatorID: 7,
		NumByte:   10,
		Data:      []byte("abc"),
		LastData:  false,
	})

	buf := make([]byte, 3)
	n, err := l.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))

	rest := make([]byte, 16)
	total := 0
	for total < 7 {
		n, err := l.Read(rest[total:])
		total += n
		if err != nil {
			break
		}
	}
	require.Equal(t, "defghij", string(rest[:total]))
	require.NoError(t, <-errCh)
}

func driveReadLob(conn net.Conn) error {
	defer conn.Close()
	srv := newFakeServer(conn)

	if _, err := srv.readRequest(); err != nil { // READ_LOB_REQUEST
		return err
	}
	var payload bytes.Buffer
	enc := encoding.NewEncoder(&payload, nil)
	enc.Uint64(7)
	enc.Int8(int8(loDataincluded | loLastdata))
	enc.Zeroes(3)
	enc.Int32(7)
	enc.Bytes([]byte("defghij"))
	return srv.writeReply(1, 1, FcReadLob, []fakeReplyPart{
		{kind: pkReadLobReply, numArg: 1, payload: payload.Bytes()},
	})
}
