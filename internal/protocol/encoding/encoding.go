// Package encoding implements the little-endian scratch-buffer based byte
// codec the protocol engine layers every wire type on top of.
package encoding

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"math/big"

	"golang.org/x/text/transform"
)

var errUnsupportedDecimalFormat = errors.New("decimal: infinity/NaN format not supported")

const scratchSize = 4096

// Encoder writes SCNP primitive wire types to an io.Writer.
type Encoder struct {
	wr io.Writer
	b  [scratchSize]byte
	tr transform.Transformer
}

// NewEncoder returns an Encoder writing to wr. tr, if non-nil, is used by
// CESU8Bytes/CESU8String to transcode UTF-8 input before it hits the wire.
func NewEncoder(wr io.Writer, tr transform.Transformer) *Encoder {
	return &Encoder{wr: wr, tr: tr}
}

func (e *Encoder) Zeroes(n int) {
	if n <= 0 {
		return
	}
	z := e.b[:]
	for i := range z {
		z[i] = 0
	}
	for n > 0 {
		k := n
		if k > len(z) {
			k = len(z)
		}
		e.wr.Write(z[:k])
		n -= k
	}
}

func (e *Encoder) Bytes(p []byte)   { e.wr.Write(p) }
func (e *Encoder) Byte(b byte)      { e.b[0] = b; e.wr.Write(e.b[:1]) }
func (e *Encoder) Bool(v bool) {
	if v {
		e.Byte(1)
	} else {
		e.Byte(0)
	}
}
func (e *Encoder) Int8(i int8)   { e.Byte(byte(i)) }
func (e *Encoder) Int16(i int16) { e.Uint16(uint16(i)) }
func (e *Encoder) Uint16(i uint16) {
	binary.LittleEndian.PutUint16(e.b[:2], i)
	e.wr.Write(e.b[:2])
}
func (e *Encoder) Uint16ByteOrder(i uint16, order binary.ByteOrder) {
	order.PutUint16(e.b[:2], i)
	e.wr.Write(e.b[:2])
}
func (e *Encoder) Int32(i int32) { e.Uint32(uint32(i)) }
func (e *Encoder) Uint32(i uint32) {
	binary.LittleEndian.PutUint32(e.b[:4], i)
	e.wr.Write(e.b[:4])
}
func (e *Encoder) Uint32ByteOrder(i uint32, order binary.ByteOrder) {
	order.PutUint32(e.b[:4], i)
	e.wr.Write(e.b[:4])
}
func (e *Encoder) Int64(i int64) { e.Uint64(uint64(i)) }
func (e *Encoder) Uint64(i uint64) {
	binary.LittleEndian.PutUint64(e.b[:8], i)
	e.wr.Write(e.b[:8])
}
func (e *Encoder) Float32(f float32) { e.Uint32(math.Float32bits(f)) }
func (e *Encoder) Float64(f float64) { e.Uint64(math.Float64bits(f)) }
func (e *Encoder) String(s string)   { e.Bytes([]byte(s)) }

// CESU8Bytes transcodes UTF-8 p into CESU-8 and writes it, returning the
// number of CESU-8 bytes written.
func (e *Encoder) CESU8Bytes(p []byte) int {
	if e.tr == nil {
		e.Bytes(p)
		return len(p)
	}
	e.tr.Reset()
	var buf [scratchSize]byte
	cnt := 0
	for i := 0; i < len(p); {
		m, n, err := e.tr.Transform(buf[:], p[i:], true)
		if err != nil && err != transform.ErrShortDst {
			break
		}
		if m == 0 {
			break
		}
		o, _ := e.wr.Write(buf[:m])
		cnt += o
		i += n
	}
	return cnt
}

func (e *Encoder) CESU8String(s string) int { return e.CESU8Bytes([]byte(s)) }

// Fixed writes a two's-complement little-endian integer of the given byte
// width, as used for FIXED8/FIXED12/FIXED16 decimal mantissas.
func (e *Encoder) Fixed(m *big.Int, size int) {
	buf := make([]byte, size)
	neg := m.Sign() < 0

	abs := new(big.Int).Abs(m)
	bs := abs.Bytes() // big-endian
	for i, b := range bs {
		j := len(bs) - 1 - i
		if j < size {
			buf[j] = b
		}
	}
	if neg {
		for i := range buf {
			buf[i] = ^buf[i]
		}
		// add one (two's complement)
		carry := byte(1)
		for i := 0; i < len(buf) && carry != 0; i++ {
			sum := uint16(buf[i]) + uint16(carry)
			buf[i] = byte(sum)
			carry = byte(sum >> 8)
		}
		buf[size-1] |= 0x80
	}
	e.Bytes(buf)
}

// Decoder reads SCNP primitive wire types from an io.Reader.
type Decoder struct {
	rd  io.Reader
	err error
	b   [scratchSize]byte
	tr  transform.Transformer
	cnt int
}

// NewDecoder returns a Decoder reading from rd. tr, if non-nil, is used by
// CESU8Bytes to transcode CESU-8 payloads to UTF-8.
func NewDecoder(rd io.Reader, tr transform.Transformer) *Decoder {
	return &Decoder{rd: rd, tr: tr}
}

func (d *Decoder) ResetCnt()    { d.cnt = 0 }
func (d *Decoder) Cnt() int     { return d.cnt }
func (d *Decoder) Error() error { return d.err }
func (d *Decoder) ResetError() error {
	err := d.err
	d.err = nil
	return err
}

func (d *Decoder) readFull(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := io.ReadFull(d.rd, p)
	d.cnt += n
	d.err = err
	return n, err
}

func (d *Decoder) Skip(n int) {
	for n > 0 {
		k := n
		if k > len(d.b) {
			k = len(d.b)
		}
		m, err := d.readFull(d.b[:k])
		n -= m
		if err != nil {
			return
		}
	}
}

func (d *Decoder) Byte() byte {
	if _, err := d.readFull(d.b[:1]); err != nil {
		return 0
	}
	return d.b[0]
}
func (d *Decoder) Bytes(p []byte) { d.readFull(p) }
func (d *Decoder) Bool() bool     { return d.Byte() != 0 }
func (d *Decoder) Int8() int8     { return int8(d.Byte()) }
func (d *Decoder) Int16() int16   { return int16(d.Uint16()) }
func (d *Decoder) Uint16() uint16 {
	if _, err := d.readFull(d.b[:2]); err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(d.b[:2])
}
func (d *Decoder) Uint16ByteOrder(order binary.ByteOrder) uint16 {
	if _, err := d.readFull(d.b[:2]); err != nil {
		return 0
	}
	return order.Uint16(d.b[:2])
}
func (d *Decoder) Int32() int32 { return int32(d.Uint32()) }
func (d *Decoder) Uint32() uint32 {
	if _, err := d.readFull(d.b[:4]); err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(d.b[:4])
}
func (d *Decoder) Uint32ByteOrder(order binary.ByteOrder) uint32 {
	if _, err := d.readFull(d.b[:4]); err != nil {
		return 0
	}
	return order.Uint32(d.b[:4])
}
func (d *Decoder) Int64() int64 { return int64(d.Uint64()) }
func (d *Decoder) Uint64() uint64 {
	if _, err := d.readFull(d.b[:8]); err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(d.b[:8])
}
func (d *Decoder) Float32() float32 {
	if _, err := d.readFull(d.b[:4]); err != nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(d.b[:4]))
}
func (d *Decoder) Float64() float64 {
	if _, err := d.readFull(d.b[:8]); err != nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(d.b[:8]))
}

// CESU8Bytes reads a size-byte CESU-8 payload and returns its UTF-8 form.
func (d *Decoder) CESU8Bytes(size int) ([]byte, error) {
	var p []byte
	if size > len(d.b) {
		p = make([]byte, size)
	} else {
		p = d.b[:size]
	}
	if _, err := d.readFull(p); err != nil {
		return nil, nil
	}
	if d.tr == nil {
		out := make([]byte, len(p))
		copy(out, p)
		return out, nil
	}
	out, _, err := transform.Bytes(d.tr, p)
	return out, err
}

var natOne = big.NewInt(1)

// Fixed reads a two's-complement little-endian integer of the given byte
// width and returns it as a signed magnitude big.Int.
func (d *Decoder) Fixed(size int) *big.Int {
	bs := d.b[:size]
	if _, err := d.readFull(bs); err != nil {
		return nil
	}
	neg := bs[size-1]&0x80 != 0

	msb := size - 1
	for msb > 0 && bs[msb] == 0 {
		msb--
	}
	be := make([]byte, msb+1)
	for i := 0; i <= msb; i++ {
		b := bs[i]
		if neg {
			b = ^b
		}
		be[msb-i] = b
	}
	m := new(big.Int).SetBytes(be)
	if neg {
		m.Add(m, natOne)
		m.Neg(m)
	}
	return m
}

// decimal128 word size in bytes and exponent bias, see
// http://en.wikipedia.org/wiki/Decimal128_floating-point_format.
const (
	decWordSize  = 8
	dec128Bias   = 6176
	decSize      = 16
	decNullBits  = 0x70 // bits 4,5,6 set signals NULL
	decInfBits   = 0x60
	decSignBit   = 0x80
)

// Decimal reads a 16-byte packed DECIMAL field and returns its mantissa and
// base-10 exponent. A nil mantissa with no error signals NULL.
func (d *Decoder) Decimal() (*big.Int, int, error) {
	bs := d.b[:decSize]
	if _, err := d.readFull(bs); err != nil {
		return nil, 0, nil
	}
	if bs[15]&decNullBits == decNullBits {
		return nil, 0, nil
	}
	if bs[15]&decInfBits == decInfBits {
		return nil, 0, errUnsupportedDecimalFormat
	}

	neg := bs[15]&decSignBit != 0
	exp := int((((uint16(bs[15])<<8)|uint16(bs[14]))<<1)>>2) - dec128Bias

	bs[14] &= 0x01 // keep mantissa bit, clear sign+exponent

	msb := 14
	for msb > 0 && bs[msb] == 0 {
		msb--
	}
	be := make([]byte, msb+1)
	for i := 0; i <= msb; i++ {
		be[msb-i] = bs[i]
	}
	m := new(big.Int).SetBytes(be)
	if neg {
		m.Neg(m)
	}
	return m, exp, nil
}

// EncodeDecimal writes m*10^exp as a 16-byte packed DECIMAL field.
func (e *Encoder) EncodeDecimal(m *big.Int, exp int) {
	var buf [decSize]byte

	neg := m.Sign() < 0
	abs := new(big.Int).Abs(m)
	be := abs.Bytes()
	for i, b := range be {
		j := len(be) - 1 - i
		if j <= 14 {
			buf[j] = b
		}
	}

	biased := uint16(exp + dec128Bias)
	buf[14] |= byte(biased << 1) // low 7 exponent bits -> bits 113-119, above mantissa bit 112
	buf[15] = byte(biased >> 7)  // high 7 exponent bits -> bits 120-126
	if neg {
		buf[15] |= decSignBit
	}
	e.Bytes(buf[:])
}

// EncodeDecimalNull writes the NULL sentinel for a 16-byte DECIMAL field.
func (e *Encoder) EncodeDecimalNull() {
	var buf [decSize]byte
	buf[15] = decNullBits
	e.Bytes(buf[:])
}
