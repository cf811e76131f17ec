package protocol

import (
	"fmt"
	"math"
	"time"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
	"github.com/opensap/hdb-go/internal/unicode/cesu8"
)

// variable-length prefix indicators, see field codec §4.3.
const (
	lenIndNull   = 255
	lenIndMedium = 246
	lenIndBig    = 247
	lenIndMax    = 245
)

// dayOne is the epoch HANA's LONGDATE/SECONDDATE/DAYDATE integer encodings
// count from: 0001-01-01, proleptic Gregorian, UTC.
var dayOne = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	longdateNull   = 3155380704000000001
	seconddateNull = 315538070400
	daydateNull    = 3652062
	secondtimeNull = 86401
)

// EncodeValue writes v to enc using the wire layout tc prescribes, including
// the leading type code byte (with the NULL high bit or sentinel applied).
func EncodeValue(enc *encoding.Encoder, tc TypeCode, v Value) error {
	if v.IsNull() {
		if sentinel, ok := tc.nullSentinel(); ok {
			enc.Byte(byte(sentinel))
			return nil
		}
		enc.Byte(byte(tc) | 0x80)
		return nil
	}
	enc.Byte(byte(tc))
	switch tc {
	case tcTinyint, tcSmallint, tcInteger, tcBigint, tcBoolean:
		i, ok := v.I64()
		if !ok {
			return typeMismatch(tc, v)
		}
		switch tc {
		case tcTinyint, tcBoolean:
			enc.Byte(byte(i))
		case tcSmallint:
			enc.Int16(int16(i))
		case tcInteger:
			enc.Int32(int32(i))
		case tcBigint:
			enc.Int64(i)
		}
		return nil
	case tcReal:
		f, ok := v.F64()
		if !ok {
			return typeMismatch(tc, v)
		}
		enc.Float32(float32(f))
		return nil
	case tcDouble:
		f, ok := v.F64()
		if !ok {
			return typeMismatch(tc, v)
		}
		enc.Float64(f)
		return nil
	case tcDecimal:
		m, exp, ok := v.Decimal()
		if !ok {
			return typeMismatch(tc, v)
		}
		enc.EncodeDecimal(m, exp)
		return nil
	case tcDate:
		t, _ := v.Time()
		encodeDate(enc, t)
		return nil
	case tcTime:
		t, _ := v.Time()
		encodeTime(enc, t)
		return nil
	case tcTimestamp:
		t, _ := v.Time()
		encodeDate(enc, t)
		encodeTime(enc, t)
		return nil
	case tcLongdate:
		t, _ := v.Time()
		enc.Int64(longdateFromTime(t))
		return nil
	case tcSeconddate:
		t, _ := v.Time()
		enc.Int64(seconddateFromTime(t))
		return nil
	case tcDaydate:
		t, _ := v.Time()
		enc.Int32(int32(daydateFromTime(t)))
		return nil
	case tcSecondtime:
		t, _ := v.Time()
		enc.Int32(int32(secondtimeFromTime(t)))
		return nil
	case tcChar, tcVarchar, tcString, tcAlphanum, tcBinary, tcVarbinary:
		b, ok := v.Bytes()
		if !ok {
			s, ok := v.Str()
			if !ok {
				return typeMismatch(tc, v)
			}
			b = []byte(s)
		}
		return encodeVarBytes(enc, b)
	case tcNchar, tcNvarchar, tcNstring, tcShorttext, tcText:
		s, ok := v.Str()
		if !ok {
			b, ok := v.Bytes()
			if !ok {
				return typeMismatch(tc, v)
			}
			s = string(b)
		}
		return encodeVarCESU8(enc, s)
	default:
		return fmt.Errorf("protocol: encoding of type code %s not supported", tc)
	}
}

func typeMismatch(tc TypeCode, v Value) error {
	return fmt.Errorf("protocol: value kind %d cannot be encoded as %s", v.Kind(), tc)
}

func encodeVarBytes(enc *encoding.Encoder, b []byte) error {
	switch {
	case len(b) <= lenIndMax:
		enc.Byte(byte(len(b)))
	case len(b) <= math.MaxUint16:
		enc.Byte(lenIndMedium)
		enc.Uint16(uint16(len(b)))
	case len(b) <= math.MaxInt32:
		enc.Byte(lenIndBig)
		enc.Int32(int32(len(b)))
	default:
		return fmt.Errorf("protocol: field length %d exceeds wire maximum", len(b))
	}
	enc.Bytes(b)
	return nil
}

func encodeVarCESU8(enc *encoding.Encoder, s string) error {
	size := cesu8.StringSize(s)
	switch {
	case size <= lenIndMax:
		enc.Byte(byte(size))
	case size <= math.MaxUint16:
		enc.Byte(lenIndMedium)
		enc.Uint16(uint16(size))
	case size <= math.MaxInt32:
		enc.Byte(lenIndBig)
		enc.Int32(int32(size))
	default:
		return fmt.Errorf("protocol: field length %d exceeds wire maximum", size)
	}
	enc.CESU8String(s)
	return nil
}

func encodeDate(enc *encoding.Encoder, t time.Time) {
	year, month, day := t.Date()
	enc.Uint16(uint16(year) | 0x8000)
	enc.Int8(int8(month) - 1)
	enc.Int8(int8(day))
}

func encodeTime(enc *encoding.Encoder, t time.Time) {
	enc.Byte(byte(t.Hour()) | 0x80)
	enc.Int8(int8(t.Minute()))
	millis := t.Second()*1000 + t.Nanosecond()/1e6
	enc.Uint16(uint16(millis))
}

func longdateFromTime(t time.Time) int64 {
	return (t.Unix()-dayOne.Unix())*10000000 + int64(t.Nanosecond())/100 + 1
}

func seconddateFromTime(t time.Time) int64 {
	return t.Unix() - dayOne.Unix() + 1
}

func daydateFromTime(t time.Time) int64 {
	return (t.Unix()-dayOne.Unix())/86400 + 1
}

func secondtimeFromTime(t time.Time) int64 {
	return int64(t.Hour()*3600+t.Minute()*60+t.Second()) + 1
}

// DecodeValue reads a field of wire type tc from dec, including its leading
// type code byte handling (the caller has already consumed the type code and
// passes it in as tc; DecodeValue only decodes the payload and honors any
// NULL sentinel/high-bit signaled in prefix bytes it reads itself).
func DecodeValue(dec *encoding.Decoder, tc TypeCode, isNull bool) (Value, error) {
	if isNull {
		return NullValue(), nil
	}
	switch tc {
	case tcTinyint:
		return I64Value(int64(dec.Byte())), nil
	case tcSmallint:
		return I64Value(int64(dec.Int16())), nil
	case tcInteger:
		return I64Value(int64(dec.Int32())), nil
	case tcBigint:
		return I64Value(dec.Int64()), nil
	case tcBoolean:
		return BoolValue(dec.Byte() != 0), nil
	case tcReal:
		return F64Value(float64(dec.Float32())), nil
	case tcDouble:
		return F64Value(dec.Float64()), nil
	case tcDecimal:
		m, exp, err := dec.Decimal()
		if err != nil {
			return Value{}, err
		}
		if m == nil {
			return NullValue(), nil
		}
		return DecimalValue(m, exp), nil
	case tcDate:
		y, mo, d, null := decodeDate(dec)
		if null {
			return NullValue(), nil
		}
		return DateValue(time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)), nil
	case tcTime:
		h, mi, ns, null := decodeTime(dec)
		if null {
			return NullValue(), nil
		}
		return TimeValue(time.Date(1, 1, 1, h, mi, 0, ns, time.UTC)), nil
	case tcTimestamp:
		y, mo, d, dateNull := decodeDate(dec)
		h, mi, ns, timeNull := decodeTime(dec)
		if dateNull || timeNull {
			return NullValue(), nil
		}
		return TimestampValue(time.Date(y, mo, d, h, mi, 0, ns, time.UTC)), nil
	case tcLongdate:
		v := dec.Int64()
		if v == longdateNull {
			return NullValue(), nil
		}
		return TimestampValue(time.Unix(dayOne.Unix()+(v-1)/10000000, (v-1)%10000000*100).UTC()), nil
	case tcSeconddate:
		v := dec.Int64()
		if v == seconddateNull {
			return NullValue(), nil
		}
		return TimestampValue(time.Unix(dayOne.Unix()+v-1, 0).UTC()), nil
	case tcDaydate:
		v := int64(dec.Int32())
		if v == daydateNull {
			return NullValue(), nil
		}
		return DateValue(time.Unix(dayOne.Unix()+(v-1)*86400, 0).UTC()), nil
	case tcSecondtime:
		v := int64(dec.Int32())
		if v == secondtimeNull {
			return NullValue(), nil
		}
		secs := int(v - 1)
		return TimeValue(time.Date(1, 1, 1, secs/3600, (secs/60)%60, secs%60, 0, time.UTC)), nil
	case tcChar, tcVarchar, tcString, tcAlphanum, tcBinary, tcVarbinary:
		size, null := decodeVarLen(dec)
		if null {
			return NullValue(), nil
		}
		b := make([]byte, size)
		dec.Bytes(b)
		return BytesValue(b), nil
	case tcNchar, tcNvarchar, tcNstring, tcShorttext, tcText:
		size, null := decodeVarLen(dec)
		if null {
			return NullValue(), nil
		}
		b, err := dec.CESU8Bytes(size)
		if err != nil {
			return Value{}, err
		}
		return StrValue(string(b)), nil
	default:
		return Value{}, fmt.Errorf("protocol: decoding of type code %s not supported", tc)
	}
}

func decodeDate(dec *encoding.Decoder) (int, time.Month, int, bool) {
	year := dec.Uint16()
	null := year&0x8000 == 0
	year &= 0x3fff
	month := dec.Int8() + 1
	day := dec.Int8()
	return int(year), time.Month(month), int(day), null
}

func decodeTime(dec *encoding.Decoder) (int, int, int, bool) {
	hour := dec.Byte()
	null := hour&0x80 == 0
	hour &= 0x7f
	minute := dec.Int8()
	millis := dec.Uint16()
	return int(hour), int(minute), int(millis) * 1e6, null
}

func decodeVarLen(dec *encoding.Decoder) (int, bool) {
	ind := dec.Byte()
	switch {
	case ind == lenIndNull:
		return 0, true
	case ind <= lenIndMax:
		return int(ind), false
	case ind == lenIndMedium:
		return int(dec.Uint16()), false
	case ind == lenIndBig:
		return int(dec.Int32()), false
	default:
		return 0, false
	}
}
