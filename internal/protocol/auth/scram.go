// Package auth implements the SCRAM-SHA256 key derivation HANA uses to
// authenticate a session without ever sending the password itself on the
// wire.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
)

// ClientChallengeSize is the length of the random nonce the client attaches
// to its initial AUTHENTICATE request.
const ClientChallengeSize = 64

// ClientProofSize is the length of the SHA-256 HMAC digest carried in the
// client's final AUTHENTICATE request.
const ClientProofSize = 32

// ClientChallenge returns a fresh random nonce for the initial authentication
// round trip.
func ClientChallenge() ([]byte, error) {
	b := make([]byte, ClientChallengeSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func sha256Sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

func hmacSum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// ClientProof computes the SCRAM-SHA256 proof the server verifies against
// the password it holds, per RFC 5802 adapted to HANA's simplified
// single-round salted-password scheme (no iteration count, no
// normalization):
//
//	key     := SHA256(HMAC-SHA256(password, salt))
//	keyHash := SHA256(key)
//	sig     := HMAC-SHA256(keyHash, salt || serverChallenge || clientChallenge)
//	proof   := sig XOR key
//
// The wire format supports multiple salts (one round trip per redirected
// HANA host in a scale-out landscape); this client only ever authenticates
// against the single host it dialed, so the salt count is always 1. The
// resulting header is [0, 1, len(proof)] followed by the raw proof bytes.
func ClientProof(salt, serverChallenge, clientChallenge, password []byte) []byte {
	key := sha256Sum(hmacSum(password, salt))
	keyHash := sha256Sum(key)
	sig := hmacSum(keyHash, concat(salt, serverChallenge, clientChallenge))
	proof := xor(sig, key)
	out := make([]byte, 0, 3+len(proof))
	out = append(out, 0, 1, byte(len(proof)))
	out = append(out, proof...)
	return out
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
