package protocol

import "fmt"

// TransportError wraps a failure reading or writing the underlying TCP
// connection: the session is no longer usable and must be closed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("hdb: transport error during %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError signals that a reply violated the wire protocol's framing or
// field encoding rules: a decoding bug, a version mismatch, or a corrupted
// stream. Distinct from DatabaseError, which reports a well-formed SQL error
// reply.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("hdb: protocol error: %s", e.Msg) }

// AuthError signals that SCRAM-SHA256 authentication failed, either because
// the server rejected the client's proof or the client rejected the
// server's.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return fmt.Sprintf("hdb: authentication failed: %s", e.Msg) }

// DatabaseError wraps a well-formed ERROR part returned by the server in
// reply to a request: the SQL statement or session operation was rejected
// by HANA itself.
type DatabaseError struct {
	Errors *hdbErrors
}

func (e *DatabaseError) Error() string { return e.Errors.Error() }

// Records exposes the individual SQL error entries the server attached to
// this reply (HANA can return more than one per statement, e.g. for
// multi-statement batches).
func (e *DatabaseError) Records() []hdbErrorRecord { return e.Errors.records }

// Code returns the first error record's numeric SQL error code.
func (e *DatabaseError) Code() int32 {
	if len(e.Errors.records) == 0 {
		return 0
	}
	return e.Errors.records[0].code
}

// SQLState returns the first error record's five-character SQLSTATE.
func (e *DatabaseError) SQLState() string {
	if len(e.Errors.records) == 0 {
		return ""
	}
	return string(e.Errors.records[0].sqlState[:])
}

// UsageError signals that the caller misused the client API itself: binding
// the wrong number of parameters, reading a closed ResultSet, running two
// statements concurrently on one Session, or writing a LOB over the
// negotiated size ceiling.
type UsageError struct {
	Msg    string
	Reason string
}

func (e *UsageError) Error() string { return fmt.Sprintf("hdb: %s", e.Msg) }

// ReasonLobTooLarge tags a UsageError raised because a single-statement LOB
// write exceeded the client's write ceiling (§9, "large LOB writes").
const ReasonLobTooLarge = "lob_too_large"

// IsLobTooLarge reports whether err is a UsageError raised by WriteLob
// rejecting an oversized payload.
func IsLobTooLarge(err error) bool {
	ue, ok := err.(*UsageError)
	return ok && ue.Reason == ReasonLobTooLarge
}

// ClosedError is returned by any operation that needs a server round trip
// once the owning Session has been closed, and by ResultSet.Next once that
// ResultSet has been closed. Rows and LOB bytes already buffered on the
// client are still served after the Session closes.
type ClosedError struct {
	What string
}

func (e *ClosedError) Error() string { return fmt.Sprintf("hdb: %s is closed", e.What) }
