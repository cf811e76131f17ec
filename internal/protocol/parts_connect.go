package protocol

import (
	"fmt"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// clientIDPart carries the client's process identity string to the server
// during CONNECT, e.g. "pid@hostname".
type clientIDPart []byte

func (clientIDPart) kind() PartKind { return pkClientID }
func (p clientIDPart) numArg() int  { return 1 }
func (p clientIDPart) size() int    { return len(p) }
func (p clientIDPart) encode(enc *encoding.Encoder) error {
	enc.Bytes(p)
	return nil
}
func (p *clientIDPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	b := make([]byte, ph.bufferLength)
	dec.Bytes(b)
	*p = clientIDPart(b)
	return dec.Error()
}

// connectOptionsPart is the negotiated CONNECT_OPTIONS key/value set
// exchanged during session setup (locale, client distribution mode,
// data format version, and similar capability flags).
type connectOptionsPart optionList

func (connectOptionsPart) kind() PartKind { return pkConnectOptions }
func (p connectOptionsPart) numArg() int  { return len(p) }
func (p connectOptionsPart) size() int    { return optionList(p).size() }
func (p connectOptionsPart) encode(enc *encoding.Encoder) error {
	return optionList(p).encode(enc)
}
func (p *connectOptionsPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	return (*optionList)(p).decode(dec, ph.numArg())
}

// topologyInformationPart carries the server's routing/topology hints for
// the connected database, one optionList row per topology node.
type topologyInformationPart multiLineOptionList

func (*topologyInformationPart) kind() PartKind { return pkTopologyInformation }
func (p *topologyInformationPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	return (*multiLineOptionList)(p).decode(dec, ph.numArg())
}

// transactionFlagsPart is applied by the message engine from every reply,
// regardless of whether the reply also carries an error, to keep the
// session's view of transaction state current.
type transactionFlagsPart optionList

const (
	tfRolledBack                      int8 = 0
	tfCommitted                       int8 = 1
	tfWriteTxOpen                     int8 = 4
	tfSessionClosingTransactionError  int8 = 6
	tfSessionClosingTransactionErrror int8 = 7 // server wire typo, reproduced as-is
)

func (transactionFlagsPart) kind() PartKind { return pkTransactionFlags }
func (p *transactionFlagsPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	return (*optionList)(p).decode(dec, ph.numArg())
}

// statementContextPart carries server-assigned metadata about a just
// executed statement (e.g. server processing time); the client only needs
// to consume and discard it to stay in sync with the reply's part stream.
type statementContextPart optionList

func (statementContextPart) kind() PartKind { return pkStatementContext }
func (p *statementContextPart) decode(dec *encoding.Decoder, ph *PartHeader) error {
	return (*optionList)(p).decode(dec, ph.numArg())
}

// hdbErrors decodes the ERROR part: one or more SQL error records.
type hdbErrors struct {
	records []hdbErrorRecord
}

type hdbErrorRecord struct {
	code     int32
	position int32
	level    int8
	sqlState [5]byte
	text     string
}

func (*hdbErrors) kind() PartKind { return pkError }

func (e *hdbErrors) decode(dec *encoding.Decoder, ph *PartHeader) error {
	numArg := ph.numArg()
	e.records = make([]hdbErrorRecord, numArg)
	for i := 0; i < numArg; i++ {
		var r hdbErrorRecord
		r.code = dec.Int32()
		r.position = dec.Int32()
		textLength := dec.Int32()
		r.level = dec.Int8()
		dec.Bytes(r.sqlState[:])
		b, err := dec.CESU8Bytes(int(textLength))
		if err != nil {
			return err
		}
		r.text = string(b)
		dec.Skip(1) // trailing filler byte
		e.records[i] = r
	}
	return dec.Error()
}

func (e *hdbErrors) Error() string {
	if len(e.records) == 0 {
		return "protocol: empty error part"
	}
	return fmt.Sprintf("SQL error %d: %s", e.records[0].code, e.records[0].text)
}
