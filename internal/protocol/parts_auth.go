package protocol

import (
	"fmt"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

const authMethodName = "SCRAMSHA256"

// encodeAuthField writes a length-prefixed byte field in the compact format the
// authentication part uses (1-byte length, no 246/247 escape — auth fields
// never exceed 250 bytes).
func encodeAuthField(enc *encoding.Encoder, f []byte) {
	enc.Byte(byte(len(f)))
	enc.Bytes(f)
}

func decodeAuthField(dec *encoding.Decoder) []byte {
	size := dec.Byte()
	b := make([]byte, size)
	dec.Bytes(b)
	return b
}

// authInitRequest is the client's first AUTHENTICATION part: username plus
// the SCRAM-SHA256 client challenge (a fresh 64-byte random nonce).
type authInitRequest struct {
	username        []byte
	clientChallenge []byte
}

func (*authInitRequest) kind() PartKind { return pkAuthentication }
func (*authInitRequest) numArg() int    { return 1 }
func (r *authInitRequest) size() int {
	return 2 + 1 + len(r.username) + 1 + len(authMethodName) + 1 + len(r.clientChallenge)
}
func (r *authInitRequest) encode(enc *encoding.Encoder) error {
	enc.Int16(3)
	encodeAuthField(enc, r.username)
	encodeAuthField(enc, []byte(authMethodName))
	encodeAuthField(enc, r.clientChallenge)
	return nil
}

// authFinalRequest is the client's second AUTHENTICATION part: the computed
// client proof.
type authFinalRequest struct {
	username    []byte
	clientProof []byte
}

func (*authFinalRequest) kind() PartKind { return pkAuthentication }
func (*authFinalRequest) numArg() int    { return 1 }
func (r *authFinalRequest) size() int {
	return 2 + 1 + len(r.username) + 1 + len(authMethodName) + 1 + len(r.clientProof)
}
func (r *authFinalRequest) encode(enc *encoding.Encoder) error {
	enc.Int16(3)
	encodeAuthField(enc, r.username)
	encodeAuthField(enc, []byte(authMethodName))
	encodeAuthField(enc, r.clientProof)
	return nil
}

// authReply decodes the server's initial AUTHENTICATION reply, which carries
// salt+serverChallenge. The final reply is decoded by authFinalReply;
// authReply leaves serverProof unset.
type authReply struct {
	salt            []byte
	serverChallenge []byte
	serverProof     []byte
}

func (*authReply) kind() PartKind { return pkAuthentication }

func (r *authReply) decode(dec *encoding.Decoder, ph *PartHeader) error {
	cnt := dec.Int16()
	switch cnt {
	case 2:
		// initial reply: method name, then a nested (salt, serverChallenge) pair
		decodeAuthField(dec) // method name
		nested := dec.Int16()
		if nested != 2 {
			return fmt.Errorf("protocol: unexpected auth challenge field count %d", nested)
		}
		r.salt = decodeAuthField(dec)
		r.serverChallenge = decodeAuthField(dec)
		return dec.Error()
	default:
		return fmt.Errorf("protocol: unexpected auth reply field count %d", cnt)
	}
}

// authFinalReply decodes the server's final AUTHENTICATION reply, carrying
// the server proof that authenticates the server back to the client.
type authFinalReply struct {
	serverProof []byte
}

func (*authFinalReply) kind() PartKind { return pkAuthentication }

func (r *authFinalReply) decode(dec *encoding.Decoder, ph *PartHeader) error {
	cnt := dec.Int16()
	if cnt != 2 {
		return fmt.Errorf("protocol: unexpected auth final reply field count %d", cnt)
	}
	decodeAuthField(dec) // method name
	r.serverProof = decodeAuthField(dec)
	return dec.Error()
}
