package protocol

import (
	"fmt"

	"github.com/opensap/hdb-go/internal/protocol/encoding"
)

// writablePart is implemented by every part the client sends to the server.
type writablePart interface {
	kind() PartKind
	numArg() int
	size() int
	encode(*encoding.Encoder) error
}

// readablePart is implemented by every part the client decodes from a
// server reply.
type readablePart interface {
	kind() PartKind
	decode(*encoding.Decoder, *PartHeader) error
}

func newReadablePart(pk PartKind) (readablePart, error) {
	switch pk {
	case pkError:
		return &hdbErrors{}, nil
	case pkClientID:
		return new(clientIDPart), nil
	case pkConnectOptions:
		return new(connectOptionsPart), nil
	case pkTopologyInformation:
		return new(topologyInformationPart), nil
	case pkRowsAffected:
		return new(rowsAffectedPart), nil
	case pkTransactionFlags:
		return new(transactionFlagsPart), nil
	case pkStatementContext:
		return new(statementContextPart), nil
	case pkStatementID:
		return new(statementIDPart), nil
	case pkParameterMetadata:
		return new(parameterMetadataPart), nil
	case pkResultMetadata:
		return new(resultMetadataPart), nil
	case pkResultsetID:
		return new(resultsetIDPart), nil
	case pkReadLobReply:
		return new(readLobReplyPart), nil
	case pkWriteLobReply:
		return new(writeLobReplyPart), nil
	default:
		return nil, fmt.Errorf("protocol: no reader registered for part kind %s", pk)
	}
}
