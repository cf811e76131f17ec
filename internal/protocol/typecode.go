package protocol

import "strings"

// TypeCode identifies the wire type of a field transferred to or from the
// database. The high bit of the encoded byte doubles as a NULL indicator for
// most (but not all — see secondtime) type codes.
type TypeCode byte

const (
	tcNull      TypeCode = 0
	tcTinyint   TypeCode = 1
	tcSmallint  TypeCode = 2
	tcInteger   TypeCode = 3
	tcBigint    TypeCode = 4
	tcDecimal   TypeCode = 5
	tcReal      TypeCode = 6
	tcDouble    TypeCode = 7
	tcChar      TypeCode = 8
	tcVarchar   TypeCode = 9
	tcNchar     TypeCode = 10
	tcNvarchar  TypeCode = 11
	tcBinary    TypeCode = 12
	tcVarbinary TypeCode = 13
	tcDate      TypeCode = 14
	tcTime      TypeCode = 15
	tcTimestamp TypeCode = 16
	tcClob      TypeCode = 25
	tcNclob     TypeCode = 26
	tcBlob      TypeCode = 27
	tcBoolean   TypeCode = 28
	tcString    TypeCode = 29
	tcNstring   TypeCode = 30
	tcBlocator  TypeCode = 31
	tcNlocator  TypeCode = 32
	tcText      TypeCode = 51
	tcShorttext TypeCode = 52
	tcAlphanum  TypeCode = 55
	// tcSecondtimeNull is the NULL sentinel HANA uses for SECONDTIME columns
	// in place of the usual high-bit-set convention: a server quirk, not a
	// documented wire rule.
	tcSecondtimeNull TypeCode = 0xb0
	tcLongdate       TypeCode = 61
	tcSeconddate     TypeCode = 62
	tcDaydate        TypeCode = 63
	tcSecondtime     TypeCode = 64
)

var typeCodeText = map[TypeCode]string{
	tcNull: "NULL", tcTinyint: "TINYINT", tcSmallint: "SMALLINT", tcInteger: "INTEGER",
	tcBigint: "BIGINT", tcDecimal: "DECIMAL", tcReal: "REAL", tcDouble: "DOUBLE",
	tcChar: "CHAR", tcVarchar: "VARCHAR", tcNchar: "NCHAR", tcNvarchar: "NVARCHAR",
	tcBinary: "BINARY", tcVarbinary: "VARBINARY", tcDate: "DATE", tcTime: "TIME",
	tcTimestamp: "TIMESTAMP", tcClob: "CLOB", tcNclob: "NCLOB", tcBlob: "BLOB",
	tcBoolean: "BOOLEAN", tcString: "STRING", tcNstring: "NSTRING",
	tcBlocator: "BLOCATOR", tcNlocator: "NLOCATOR", tcText: "TEXT",
	tcShorttext: "SHORTTEXT", tcAlphanum: "ALPHANUM", tcLongdate: "LONGDATE",
	tcSeconddate: "SECONDDATE", tcDaydate: "DAYDATE", tcSecondtime: "SECONDTIME",
}

func (tc TypeCode) String() string {
	if s, ok := typeCodeText[tc]; ok {
		return s
	}
	return "UNKNOWN"
}

// TypeName returns the database type name, as surfaced through column
// metadata.
func (tc TypeCode) TypeName() string { return strings.ToUpper(tc.String()) }

func (tc TypeCode) isLob() bool {
	return tc == tcClob || tc == tcNclob || tc == tcBlob
}

func (tc TypeCode) isCharBased() bool {
	return tc == tcNchar || tc == tcNvarchar || tc == tcNstring || tc == tcNclob || tc == tcText || tc == tcShorttext
}

func (tc TypeCode) isVariableLength() bool {
	switch tc {
	case tcChar, tcNchar, tcVarchar, tcNvarchar, tcBinary, tcVarbinary, tcString, tcNstring, tcShorttext, tcAlphanum:
		return true
	default:
		return false
	}
}

func (tc TypeCode) isDecimalType() bool { return tc == tcDecimal }

// nullSentinel reports whether this type code uses a dedicated NULL sentinel
// byte rather than the usual high-bit convention, and its value.
func (tc TypeCode) nullSentinel() (TypeCode, bool) {
	if tc == tcSecondtime {
		return tcSecondtimeNull, true
	}
	return 0, false
}

// DataType maps a wire type code onto the Value variant carried in and out
// of the codec.
func (tc TypeCode) DataType() DataType {
	switch tc {
	case tcTinyint, tcSmallint, tcInteger, tcBigint:
		return DtInt64
	case tcBoolean:
		return DtBool
	case tcReal, tcDouble:
		return DtFloat64
	case tcDecimal:
		return DtDecimal
	case tcDate, tcTime, tcTimestamp, tcLongdate, tcSeconddate, tcDaydate, tcSecondtime:
		return DtTime
	case tcChar, tcVarchar, tcNchar, tcNvarchar, tcString, tcNstring, tcShorttext, tcAlphanum, tcText:
		return DtString
	case tcBinary, tcVarbinary:
		return DtBytes
	case tcClob, tcNclob, tcBlob:
		return DtLob
	default:
		return DtUnknown
	}
}
