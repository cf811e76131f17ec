package protocol

import (
	"fmt"
	"math/big"
	"time"
)

// DataType classifies the Go-level shape a wire TypeCode decodes into.
type DataType byte

const (
	DtUnknown DataType = iota
	DtBool
	DtInt64
	DtFloat64
	DtDecimal
	DtString
	DtBytes
	DtTime
	DtLob
)

func (dt DataType) String() string {
	switch dt {
	case DtBool:
		return "bool"
	case DtInt64:
		return "int64"
	case DtFloat64:
		return "float64"
	case DtDecimal:
		return "decimal"
	case DtString:
		return "string"
	case DtBytes:
		return "bytes"
	case DtTime:
		return "time"
	case DtLob:
		return "lob"
	default:
		return "unknown"
	}
}

// valueKind tags the variant held by a Value.
type valueKind byte

const (
	VkNull valueKind = iota
	VkBool
	VkI64
	VkF64
	VkDecimal
	VkStr
	VkBytes
	VkDate
	VkTime
	VkTimestamp
	VkLob
)

// Value is the tagged union callers use to bind statement parameters and
// that the codec produces when decoding result and OUT-parameter fields.
// Exactly one of its typed accessors is meaningful, selected by Kind.
type Value struct {
	kind  valueKind
	b     bool
	i64   int64
	f64   float64
	str   string
	bytes []byte
	t     time.Time
	lob   *LobDescriptor
}

// Kind reports which variant v holds.
func (v Value) Kind() valueKind { return v.kind }

func NullValue() Value                { return Value{kind: VkNull} }
func BoolValue(b bool) Value          { return Value{kind: VkBool, b: b} }
func I64Value(i int64) Value          { return Value{kind: VkI64, i64: i} }
func F64Value(f float64) Value        { return Value{kind: VkF64, f64: f} }
func StrValue(s string) Value         { return Value{kind: VkStr, str: s} }
func BytesValue(b []byte) Value       { return Value{kind: VkBytes, bytes: b} }
func DateValue(t time.Time) Value     { return Value{kind: VkDate, t: t} }
func TimeValue(t time.Time) Value     { return Value{kind: VkTime, t: t} }
func TimestampValue(t time.Time) Value { return Value{kind: VkTimestamp, t: t} }
func LobValue(l *LobDescriptor) Value { return Value{kind: VkLob, lob: l} }

// DecimalValue constructs a decimal Value from a signed mantissa and a
// base-10 exponent, such that the represented number is mantissa*10^exponent.
func DecimalValue(mantissa *big.Int, exponent int) Value {
	return Value{kind: VkDecimal, i64: int64(exponent), bytes: mantissa.Bytes(), b: mantissa.Sign() < 0}
}

// IsNull reports whether v is the NULL variant.
func (v Value) IsNull() bool { return v.kind == VkNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == VkBool }
func (v Value) I64() (int64, bool)       { return v.i64, v.kind == VkI64 }
func (v Value) F64() (float64, bool)     { return v.f64, v.kind == VkF64 }
func (v Value) Str() (string, bool)      { return v.str, v.kind == VkStr }
func (v Value) Bytes() ([]byte, bool)    { return v.bytes, v.kind == VkBytes }
func (v Value) Time() (time.Time, bool)  { return v.t, v.kind == VkDate || v.kind == VkTime || v.kind == VkTimestamp }
func (v Value) Lob() (*LobDescriptor, bool) { return v.lob, v.kind == VkLob }

// Decimal returns the mantissa and base-10 exponent of a decimal Value.
func (v Value) Decimal() (mantissa *big.Int, exponent int, ok bool) {
	if v.kind != VkDecimal {
		return nil, 0, false
	}
	m := new(big.Int).SetBytes(v.bytes)
	if v.b {
		m.Neg(m)
	}
	return m, int(v.i64), true
}

func (v Value) String() string {
	switch v.kind {
	case VkNull:
		return "<null>"
	case VkBool:
		return fmt.Sprintf("%t", v.b)
	case VkI64:
		return fmt.Sprintf("%d", v.i64)
	case VkF64:
		return fmt.Sprintf("%v", v.f64)
	case VkDecimal:
		m, e, _ := v.Decimal()
		return fmt.Sprintf("%se%d", m.String(), e)
	case VkStr:
		return v.str
	case VkBytes:
		return fmt.Sprintf("% x", v.bytes)
	case VkDate, VkTime, VkTimestamp:
		return v.t.String()
	case VkLob:
		return "<lob>"
	default:
		return "<invalid>"
	}
}

// LobDescriptor identifies a server-side LOB, either an inline payload
// returned with the first chunk of a result field or a locator used to
// stream the remaining content via READ_LOB_REQUEST round trips.
type LobDescriptor struct {
	IsCharBased bool
	Null        bool
	LastData    bool
	LocatorID   uint64
	NumChar     int64
	NumByte     int64
	Data        []byte // first chunk, already CESU-8 decoded for char-based LOBs
}
