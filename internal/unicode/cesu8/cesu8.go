// Package cesu8 implements the CESU-8 compatibility encoding (Unicode
// Technical Report #26) that HANA uses on the wire for NVARCHAR, NCLOB and
// TEXT field payloads: runes outside the Basic Multilingual Plane are
// encoded as a surrogate pair of two 3-byte sequences rather than UTF-8's
// single 4-byte sequence.
package cesu8

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// CESUMax is the maximum number of bytes required to encode a single rune.
const CESUMax = 6

const (
	surr1 = 0xd800
	surr2 = 0xdc00
	surr3 = 0xe000
)

// RuneLen returns the number of bytes required to encode r in CESU-8.
func RuneLen(r rune) int {
	switch {
	case r < 0:
		return -1
	case r <= 0x7f:
		return 1
	case r <= 0x7ff:
		return 2
	case surr1 <= r && r < surr3: // lone surrogate - not representable
		return -1
	case r <= 0xffff:
		return 3
	case r <= utf8.MaxRune:
		return 6 // surrogate pair, 3 bytes each
	default:
		return -1
	}
}

// EncodeRune writes the CESU-8 encoding of r into p and returns the number
// of bytes written. p must be at least CESUMax bytes long.
func EncodeRune(p []byte, r rune) int {
	if r <= 0xffff {
		return utf8.EncodeRune(p, r)
	}
	r1, r2 := utf16.EncodeRune(r)
	n := utf8.EncodeRune(p, r1)
	return n + utf8.EncodeRune(p[n:], r2)
}

// DecodeRune unpacks the first CESU-8 encoding in p and returns the rune and
// its width in bytes.
func DecodeRune(p []byte) (rune, int) {
	r1, n1 := utf8.DecodeRune(p)
	if !utf16.IsSurrogate(r1) {
		return r1, n1
	}
	if n1 >= len(p) {
		return utf8.RuneError, n1
	}
	r2, n2 := utf8.DecodeRune(p[n1:])
	if dec := utf16.DecodeRune(r1, r2); dec != utf8.RuneError {
		return dec, n1 + n2
	}
	return r1, n1
}

// StringSize returns the length in bytes of the CESU-8 encoding of s.
func StringSize(s string) int {
	n := 0
	for _, r := range s {
		n += RuneLen(r)
	}
	return n
}

// AppendRune appends the CESU-8 encoding of r to p.
func AppendRune(p []byte, r rune) []byte {
	var buf [CESUMax]byte
	n := EncodeRune(buf[:], r)
	return append(p, buf[:n]...)
}

// Encode converts a UTF-8 byte slice into its CESU-8 representation.
func Encode(p []byte) []byte {
	out := make([]byte, 0, len(p)+len(p)/4)
	for i := 0; i < len(p); {
		r, n := utf8.DecodeRune(p[i:])
		out = AppendRune(out, r)
		i += n
	}
	return out
}

// Decode converts a CESU-8 byte slice into its UTF-8 representation.
func Decode(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); {
		r, n := DecodeRune(p[i:])
		out = utf8.AppendRune(out, r)
		i += n
	}
	return out
}

// utf8ToCesu8 is a transform.Transformer converting UTF-8 src into CESU-8 dst.
type utf8ToCesu8 struct{}

func (utf8ToCesu8) Reset() {}

func (utf8ToCesu8) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	var buf [CESUMax]byte
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				err = transform.ErrShortSrc
				return
			}
		}
		n := EncodeRune(buf[:], r)
		if nDst+n > len(dst) {
			err = transform.ErrShortDst
			return
		}
		copy(dst[nDst:], buf[:n])
		nDst += n
		nSrc += size
	}
	return
}

// cesu8ToUtf8 is a transform.Transformer converting CESU-8 src into UTF-8 dst.
type cesu8ToUtf8 struct{}

func (cesu8ToUtf8) Reset() {}

func (cesu8ToUtf8) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size < 3 && !atEOF && size >= len(src[nSrc:]) {
			err = transform.ErrShortSrc
			return
		}
		n := utf8.RuneLen(r)
		if n < 0 {
			n = len(string(utf8.RuneError))
			r = utf8.RuneError
		}
		if nDst+n > len(dst) {
			err = transform.ErrShortDst
			return
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += size
	}
	return
}

// Utf8ToCesu8Transformer returns a fresh transform.Transformer that converts
// UTF-8 input into CESU-8 output.
func Utf8ToCesu8Transformer() transform.Transformer { return utf8ToCesu8{} }

// Cesu8ToUtf8Transformer returns a fresh transform.Transformer that converts
// CESU-8 input into UTF-8 output.
func Cesu8ToUtf8Transformer() transform.Transformer { return cesu8ToUtf8{} }
