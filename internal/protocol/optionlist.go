package protocol

import (
	"bytes"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
	"github.com/opensap/hdb-go/internal/unicode/cesu8"
)

// optionList is the generic key/typed-value list wire format shared by
// CONNECT_OPTIONS, CLIENT_CONTEXT, STATEMENT_CONTEXT and TRANSACTION_FLAGS:
// one byte key, one byte type code, then the value encoded per that type
// code (restricted in practice to bool/int32/int64/bigint/string).
type optionList map[int8]Value

func (o optionList) encode(enc *encoding.Encoder) error {
	for k, v := range o {
		enc.Int8(k)
		tc := optionValueTypeCode(v)
		if err := EncodeValue(enc, tc, v); err != nil {
			return err
		}
	}
	return nil
}

func (o *optionList) decode(dec *encoding.Decoder, numArg int) error {
	m := make(optionList, numArg)
	for i := 0; i < numArg; i++ {
		k := dec.Int8()
		tc := TypeCode(dec.Byte())
		v, err := DecodeValue(dec, tc, false)
		if err != nil {
			return err
		}
		m[k] = v
	}
	*o = m
	return dec.Error()
}

func optionValueTypeCode(v Value) TypeCode {
	switch v.Kind() {
	case VkBool:
		return tcBoolean
	case VkI64:
		return tcBigint
	case VkF64:
		return tcDouble
	case VkStr:
		return tcString
	case VkBytes:
		return tcVarbinary
	default:
		return tcBigint
	}
}

func (o optionList) size() int {
	// exact encoded length: key + type code + value, per entry
	var buf bytes.Buffer
	if err := o.encode(encoding.NewEncoder(&buf, cesu8.Utf8ToCesu8Transformer())); err != nil {
		return 0
	}
	return buf.Len()
}

// multiLineOptionList decodes a list of optionLists, each one row of
// TOPOLOGY_INFORMATION.
type multiLineOptionList []optionList

func (o *multiLineOptionList) decode(dec *encoding.Decoder, numArg int) error {
	lines := make(multiLineOptionList, 0, numArg)
	for i := 0; i < numArg; i++ {
		cnt := int(dec.Int16())
		var line optionList
		if err := line.decode(dec, cnt); err != nil {
			return err
		}
		lines = append(lines, line)
	}
	*o = lines
	return dec.Error()
}
