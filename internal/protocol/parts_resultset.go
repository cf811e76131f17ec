package protocol

import (
	"bytes"
	"fmt"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
	"github.com/opensap/hdb-go/internal/unicode/cesu8"
)

// ParameterMode classifies a PreparedStatement parameter's direction.
type ParameterMode byte

const (
	PmIn ParameterMode = iota
	PmOut
	PmInOut
)

// ParameterDescriptor describes one positional parameter of a prepared
// statement.
type ParameterDescriptor struct {
	Mode     ParameterMode
	TypeCode TypeCode
	Length   int16
	Fraction int16
	Name     string
}

type parameterMetadataPart []ParameterDescriptor

func (*parameterMetadataPart) kind() PartKind { return pkParameterMetadata }

func (p *parameterMetadataPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	numArg := ph.numArg()
	descrs := make([]ParameterDescriptor, numArg)
	for i := range descrs {
		mode := dec.Int8()
		tc := TypeCode(dec.Byte())
		dec.Skip(2) // reserved
		length := dec.Int16()
		fraction := dec.Int16()
		dec.Skip(2) // reserved
		nameLen := dec.Byte()
		name := ""
		if nameLen > 0 {
			b, err := dec.CESU8Bytes(int(nameLen))
			if err != nil {
				return err
			}
			name = string(b)
		}
		descrs[i] = ParameterDescriptor{
			Mode:     parameterMode(mode),
			TypeCode: tc,
			Length:   length,
			Fraction: fraction,
			Name:     name,
		}
	}
	*p = descrs
	return dec.Error()
}

func parameterMode(b int8) ParameterMode {
	switch {
	case b&0x01 != 0 && b&0x02 != 0:
		return PmInOut
	case b&0x02 != 0:
		return PmOut
	default:
		return PmIn
	}
}

// ColumnDescriptor describes one column of a result set.
type ColumnDescriptor struct {
	TypeCode    TypeCode
	Length      int16
	Fraction    int16
	Nullable    bool
	TableName   string
	SchemaName  string
	ColumnName  string
	DisplayName string
}

type resultMetadataPart []ColumnDescriptor

func (*resultMetadataPart) kind() PartKind { return pkResultMetadata }

func (p *resultMetadataPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	numArg := ph.numArg()
	cols := make([]ColumnDescriptor, numArg)
	for i := range cols {
		flags := dec.Int8()
		tc := TypeCode(dec.Byte())
		length := dec.Int16()
		fraction := dec.Int16()
		dec.Skip(2) // reserved
		tableName, err := decodeMetaName(dec)
		if err != nil {
			return err
		}
		schemaName, err := decodeMetaName(dec)
		if err != nil {
			return err
		}
		columnName, err := decodeMetaName(dec)
		if err != nil {
			return err
		}
		displayName, err := decodeMetaName(dec)
		if err != nil {
			return err
		}
		cols[i] = ColumnDescriptor{
			TypeCode: tc, Length: length, Fraction: fraction,
			Nullable:  flags&0x01 != 0,
			TableName: tableName, SchemaName: schemaName,
			ColumnName: columnName, DisplayName: displayName,
		}
	}
	*p = cols
	return dec.Error()
}

func decodeMetaName(dec *encoding.Decoder) (string, error) {
	n := dec.Byte()
	if n == 0 {
		return "", nil
	}
	b, err := dec.CESU8Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// inputParametersPart encodes one row of positional parameter values against
// a prepared statement's ParameterDescriptor list (IN/INOUT only).
type inputParametersPart struct {
	descrs []ParameterDescriptor
	values []Value
}

func (*inputParametersPart) kind() PartKind { return pkParameters }
func (p *inputParametersPart) numArg() int  { return 1 }
func (p *inputParametersPart) size() int {
	// exact encoded length, so the part header's bufferLength matches the payload
	var buf bytes.Buffer
	if err := p.encode(encoding.NewEncoder(&buf, cesu8.Utf8ToCesu8Transformer())); err != nil {
		return 0
	}
	return buf.Len()
}
func (p *inputParametersPart) encode(enc *encoding.Encoder) error {
	if len(p.values) != len(p.descrs) {
		return fmt.Errorf("protocol: %d parameter values for %d parameters", len(p.values), len(p.descrs))
	}
	for i, v := range p.values {
		if err := EncodeValue(enc, p.descrs[i].TypeCode, v); err != nil {
			return err
		}
	}
	return nil
}

// outputParametersPart decodes OUT/INOUT parameter values returned by a
// stored procedure CALL, positioned against the same ParameterDescriptor
// list used to prepare the call.
type outputParametersPart struct {
	descrs []ParameterDescriptor
	Values []Value
}

func (*outputParametersPart) kind() PartKind { return pkOutputParameters }

func (p *outputParametersPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	numArg := ph.numArg()
	values := make([]Value, numArg)
	for i := 0; i < numArg; i++ {
		tc := p.descrs[i].TypeCode
		isNull, rawTC := peekNull(dec, tc)
		v, err := DecodeValue(dec, rawTC, isNull)
		if err != nil {
			return err
		}
		values[i] = v
	}
	p.Values = values
	return dec.Error()
}

// peekNull consumes the leading type-code byte every field is prefixed with
// and reports whether the high bit (or the type's dedicated sentinel)
// signals NULL.
func peekNull(dec *encoding.Decoder, expected TypeCode) (bool, TypeCode) {
	b := dec.Byte()
	if sentinel, ok := expected.nullSentinel(); ok && TypeCode(b) == sentinel {
		return true, expected
	}
	if b&0x80 != 0 {
		return true, TypeCode(b &^ 0x80)
	}
	return false, TypeCode(b)
}

// resultsetPart decodes one batch of result rows, positional against the
// owning ResultSet's column metadata. LOB columns decode to a LobDescriptor
// carrying the first chunk plus a locator for streaming the remainder.
type resultsetPart struct {
	cols []ColumnDescriptor
	Rows [][]Value
	// Closed reports whether the server signaled, via this part's attribute
	// bits, that it has already closed the cursor server-side (the last
	// batch exactly exhausted the result set). A client that sees this set
	// must not issue a further FETCH_NEXT.
	Closed bool
}

func (*resultsetPart) kind() PartKind { return pkResultset }

func (p *resultsetPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	p.Closed = ph.attributes.resultsetClosed()
	numArg := ph.numArg()
	rows := make([][]Value, numArg)
	for i := 0; i < numArg; i++ {
		row := make([]Value, len(p.cols))
		for c, col := range p.cols {
			if col.TypeCode.isLob() {
				descr, err := decodeLobColumn(dec, col.TypeCode.isCharBased())
				if err != nil {
					return err
				}
				if descr == nil {
					row[c] = NullValue()
				} else {
					row[c] = LobValue(descr)
				}
				continue
			}
			isNull, rawTC := peekNull(dec, col.TypeCode)
			v, err := DecodeValue(dec, rawTC, isNull)
			if err != nil {
				return err
			}
			row[c] = v
		}
		rows[i] = row
	}
	p.Rows = rows
	return dec.Error()
}

func decodeLobColumn(dec *encoding.Decoder, isCharBased bool) (*LobDescriptor, error) {
	dec.Skip(1) // lob type code byte (BLOB/CLOB/NCLOB), redundant with column metadata
	opt := dec.Int8()
	const (
		loNull     = 0x01
		loData     = 0x02
		loLastData = 0x04
	)
	if opt&loNull != 0 {
		return nil, nil
	}
	dec.Skip(2) // reserved
	numChar := dec.Int64()
	numByte := dec.Int64()
	id := dec.Uint64()
	size := int(dec.Int32())
	var data []byte
	if isCharBased {
		b, err := dec.CESU8Bytes(size)
		if err != nil {
			return nil, err
		}
		data = b
	} else {
		data = make([]byte, size)
		dec.Bytes(data)
	}
	return &LobDescriptor{
		IsCharBased: isCharBased,
		LastData:    opt&loLastData != 0,
		LocatorID:   id,
		NumChar:     numChar,
		NumByte:     numByte,
		Data:        data,
	}, nil
}
