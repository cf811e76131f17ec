package protocol

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/opensap/hdb-go/internal/protocol/auth"
	"github.com/opensap/hdb-go/internal/trace"
	"github.com/opensap/hdb-go/internal/unicode/cesu8"
)

// SessionState tracks where a Session sits in its connect/authenticate/
// execute lifecycle.
type SessionState int

const (
	StateInit SessionState = iota
	StateAuthed
	StateReady
	StateInStatement
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthed:
		return "authed"
	case StateReady:
		return "ready"
	case StateInStatement:
		return "inStatement"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectOptions configures a Session beyond the bare username/password.
type ConnectOptions struct {
	// ClientID identifies this client process to the server, e.g.
	// "pid@hostname". Defaults to a generic string if empty.
	ClientID string
	// FetchSize is the default number of rows requested per FETCH_NEXT
	// round trip for result sets that don't override it explicitly.
	FetchSize int32
	// Autocommit controls whether EXECUTE/EXECUTE_DIRECT requests carry
	// the commit flag, so the server auto-commits a statement that
	// isn't otherwise part of an explicit transaction. Nil defaults to
	// on, matching the server's own default.
	Autocommit *bool
	// Trace forces packet tracing on for this Session even if the
	// process-wide HDB_TRACE toggle is off.
	Trace bool
	// TraceSink overrides where traced packets are logged when Trace is
	// true or HDB_TRACE is set; nil falls back to the process-wide sink.
	TraceSink *log.Logger
}

const defaultFetchSize = 32

// Session is one authenticated SCNP connection: exactly one request may be
// in flight at a time, enforced by mu.
type Session struct {
	engine *Engine
	conn   io.Closer

	mu    sync.Mutex
	state SessionState

	fetchSize  int32
	autocommit bool
	tx         txState

	openStatements map[uint64]*PreparedStatement
	openResultsets map[uint64]*ResultSet
}

// txState mirrors the server's TRANSACTION_FLAGS, refreshed from every
// reply regardless of whether that reply also carried an error.
type txState struct {
	committed      bool
	rolledBack     bool
	writeTxOpen    bool
	sessionClosing bool
}

// Connect performs SCRAM-SHA256 authentication followed by CONNECT over an
// already-dialed transport, and returns a ready-to-use Session.
func Connect(conn io.ReadWriteCloser, username, password string, opts ConnectOptions) (*Session, error) {
	eng := NewEngine(conn, cesu8.Utf8ToCesu8Transformer(), cesu8.Cesu8ToUtf8Transformer())
	eng.SetTraceSink(trace.Sink(opts.Trace, opts.TraceSink))
	s := &Session{
		engine:         eng,
		conn:           conn,
		state:          StateInit,
		fetchSize:      defaultFetchSize,
		autocommit:     true,
		openStatements: make(map[uint64]*PreparedStatement),
		openResultsets: make(map[uint64]*ResultSet),
	}
	if opts.FetchSize > 0 {
		s.fetchSize = opts.FetchSize
	}
	if opts.Autocommit != nil {
		s.autocommit = *opts.Autocommit
	}

	if err := s.authenticate(username, password); err != nil {
		conn.Close()
		return nil, err
	}
	s.state = StateAuthed

	if err := s.connect(username, opts); err != nil {
		conn.Close()
		return nil, err
	}
	s.state = StateReady
	return s, nil
}

func (s *Session) authenticate(username, password string) error {
	clientChallenge, err := auth.ClientChallenge()
	if err != nil {
		return &AuthError{Msg: err.Error()}
	}

	initReq := &authInitRequest{username: []byte(username), clientChallenge: clientChallenge}
	if err := s.engine.WriteMessage(MtAuthenticate, false, initReq); err != nil {
		return err
	}
	reply, err := s.engine.ReadReply(map[PartKind]readablePart{pkAuthentication: &authReply{}})
	if err != nil {
		return err
	}
	if reply.Err != nil {
		return reply.Err
	}
	ar, ok := reply.Parts[pkAuthentication].(*authReply)
	if !ok {
		return &ProtocolError{Msg: "authentication reply missing AUTHENTICATION part"}
	}

	proof := auth.ClientProof(ar.salt, ar.serverChallenge, clientChallenge, []byte(password))
	finalReq := &authFinalRequest{username: []byte(username), clientProof: proof}
	if err := s.engine.WriteMessage(MtAuthenticate, false, finalReq); err != nil {
		return err
	}
	finalReply, err := s.engine.ReadReply(map[PartKind]readablePart{pkAuthentication: &authFinalReply{}})
	if err != nil {
		return err
	}
	if finalReply.Err != nil {
		return &AuthError{Msg: finalReply.Err.Error()}
	}
	if _, ok := finalReply.Parts[pkAuthentication].(*authFinalReply); !ok {
		return &ProtocolError{Msg: "authentication final reply missing AUTHENTICATION part"}
	}
	return nil
}

func (s *Session) connect(username string, opts ConnectOptions) error {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "hdb-go"
	}
	connOpts := connectOptionsPart{}

	if err := s.engine.WriteMessage(MtConnect, false,
		clientIDPart([]byte(clientID)),
		connOpts,
	); err != nil {
		return err
	}
	reply, err := s.engine.ReadReply(map[PartKind]readablePart{})
	if err != nil {
		return err
	}
	if reply.Err != nil {
		return reply.Err
	}
	return nil
}

// Close sends DISCONNECT and releases the underlying transport. After that,
// every operation that needs a server round trip (on the Session, or on a
// PreparedStatement/ResultSet/Lob still referring to it) returns a
// ClosedError; calling Close again returns nil. Rows a ResultSet has already
// buffered and bytes a Lob already holds are still served.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	_ = s.engine.WriteMessage(MtDisconnect, false)
	_, _ = s.engine.ReadReply(nil)
	return s.conn.Close()
}

// Stats is a point-in-time snapshot of a Session's traffic and resource
// usage, surfaced through the metrics package's prometheus.Collector.
type Stats struct {
	OpenStatements int
	OpenResultsets int
	BytesRead      int64
	BytesWritten   int64
	RequestsSent   int64
}

// Stats returns a snapshot of s's current resource usage.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	openStmts := len(s.openStatements)
	openRS := len(s.openResultsets)
	s.mu.Unlock()
	es := s.engine.Stats()
	return Stats{
		OpenStatements: openStmts,
		OpenResultsets: openRS,
		BytesRead:      es.BytesRead,
		BytesWritten:   es.BytesWritten,
		RequestsSent:   es.RequestsSent,
	}
}

// checkReady returns a ClosedError or UsageError if the session isn't in a
// state that permits starting a new operation, else transitions it to
// in-statement and returns nil. Callers must call done() when the
// operation completes.
func (s *Session) checkReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return &ClosedError{What: "session"}
	case StateReady:
		s.state = StateInStatement
		return nil
	case StateInStatement:
		return &UsageError{Msg: "another statement is already in flight on this session"}
	default:
		return &UsageError{Msg: fmt.Sprintf("session not ready (state %s)", s.state)}
	}
}

// done transitions a session out of StateInStatement once an operation
// completes. Per spec.md §4.9, an ERROR reply only closes the session if
// the server set a session-closing transaction flag on it; any other
// ERROR, and any successful reply, return the session to StateReady.
func (s *Session) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInStatement {
		return
	}
	if s.tx.sessionClosing {
		s.state = StateClosed
		return
	}
	s.state = StateReady
}

// applyTransactionFlags is called after every reply, successful or not, to
// keep the session's transaction bookkeeping current.
func (s *Session) applyTransactionFlags(tf *transactionFlagsPart) {
	if tf == nil {
		return
	}
	for k, v := range *tf {
		b, _ := v.Bool()
		switch int8(k) {
		case tfCommitted:
			s.tx.committed = b
		case tfRolledBack:
			s.tx.rolledBack = b
		case tfWriteTxOpen:
			s.tx.writeTxOpen = b
		case tfSessionClosingTransactionError, tfSessionClosingTransactionErrror:
			s.tx.sessionClosing = s.tx.sessionClosing || b
		}
	}
}

// roundTrip sends one request and reads its reply, always applying
// TRANSACTION_FLAGS regardless of whether the reply also carried an error.
func (s *Session) roundTrip(mt MessageType, commit bool, stateful map[PartKind]readablePart, parts ...writablePart) (*Reply, error) {
	if err := s.engine.WriteMessage(mt, commit, parts...); err != nil {
		return nil, err
	}
	reply, err := s.engine.ReadReply(stateful)
	if err != nil {
		return nil, err
	}
	s.applyTransactionFlags(reply.TransactionFlags)
	if reply.Err != nil {
		return reply, reply.Err
	}
	return reply, nil
}

// Commit commits the session's open write transaction.
func (s *Session) Commit() error {
	if err := s.checkReady(); err != nil {
		return err
	}
	defer s.done()
	_, err := s.roundTrip(MtCommit, true, nil)
	return err
}

// Rollback rolls back the session's open write transaction.
func (s *Session) Rollback() error {
	if err := s.checkReady(); err != nil {
		return err
	}
	defer s.done()
	_, err := s.roundTrip(MtRollback, true, nil)
	return err
}
