package protocol

import (
	"github.com/opensap/hdb-go/internal/protocol/encoding"
	"github.com/opensap/hdb-go/internal/unicode/cesu8"
)

// commandPart carries SQL command text, CESU-8 encoded.
type commandPart string

func (commandPart) kind() PartKind { return pkCommand }
func (p commandPart) numArg() int  { return 1 }
func (p commandPart) size() int    { return cesu8.StringSize(string(p)) }
func (p commandPart) encode(enc *encoding.Encoder) error {
	enc.CESU8String(string(p))
	return nil
}

const statementIDSize = 8

// statementIDPart identifies a prepared statement handle, assigned by the
// server on PREPARE and echoed by the client on every subsequent EXECUTE.
type statementIDPart uint64

func (statementIDPart) kind() PartKind { return pkStatementID }
func (statementIDPart) numArg() int    { return 1 }
func (statementIDPart) size() int      { return statementIDSize }
func (p statementIDPart) encode(enc *encoding.Encoder) error {
	enc.Uint64(uint64(p))
	return nil
}
func (p *statementIDPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	*p = statementIDPart(dec.Uint64())
	return dec.Error()
}

const resultsetIDSize = 8

// resultsetIDPart identifies a server-side cursor, assigned on execution of
// a query and echoed by the client on every subsequent FETCH_NEXT.
type resultsetIDPart uint64

func (resultsetIDPart) kind() PartKind { return pkResultsetID }
func (resultsetIDPart) numArg() int    { return 1 }
func (resultsetIDPart) size() int      { return resultsetIDSize }
func (p resultsetIDPart) encode(enc *encoding.Encoder) error {
	enc.Uint64(uint64(p))
	return nil
}
func (p *resultsetIDPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	*p = resultsetIDPart(dec.Uint64())
	return dec.Error()
}

// rowsAffectedPart carries one affected-row count per executed statement in
// a batch (always length 1 for a single non-batched EXECUTE/EXECUTE_DIRECT).
type rowsAffectedPart []int32

const rowsAffectedUnknown int32 = -1

func (*rowsAffectedPart) kind() PartKind { return pkRowsAffected }
func (p *rowsAffectedPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	numArg := ph.numArg()
	rows := make([]int32, numArg)
	for i := range rows {
		rows[i] = dec.Int32()
	}
	*p = rows
	return dec.Error()
}

const fetchsizeSize = 4

// fetchsizePart requests the number of rows the server should return per
// FETCH_NEXT round trip.
type fetchsizePart int32

func (fetchsizePart) kind() PartKind { return pkFetchSize }
func (fetchsizePart) numArg() int    { return 1 }
func (fetchsizePart) size() int      { return fetchsizeSize }
func (p fetchsizePart) encode(enc *encoding.Encoder) error {
	enc.Int32(int32(p))
	return nil
}
