package protocol

// PartKind identifies the payload format of a Part.
type PartKind int8

const (
	pkNil                 PartKind = 0
	pkCommand             PartKind = 3
	pkResultset           PartKind = 5
	pkError               PartKind = 6
	pkStatementID         PartKind = 10
	pkTransactionFlags    PartKind = 11
	pkRowsAffected        PartKind = 12
	pkResultsetID         PartKind = 13
	pkParameterMetadata   PartKind = 15
	pkReadLobRequest      PartKind = 17
	pkResultMetadata      PartKind = 18
	pkParameters          PartKind = 19
	pkAuthentication      PartKind = 20
	pkSessionContext      PartKind = 21
	pkClientID            PartKind = 29
	pkFetchSize           PartKind = 33
	pkOutputParameters    PartKind = 34
	pkConnectOptions      PartKind = 35
	pkStatementContext    PartKind = 39
	pkWriteLobRequest     PartKind = 45
	pkClientContext       PartKind = 46
	pkWriteLobReply       PartKind = 47
	pkTableLocation       PartKind = 51
	pkReadLobReply        PartKind = 58
	pkTopologyInformation PartKind = 59
)

var partKindText = map[PartKind]string{
	pkNil:                 "nil",
	pkCommand:             "command",
	pkResultset:           "resultset",
	pkError:               "error",
	pkStatementID:         "statementId",
	pkTransactionFlags:    "transactionFlags",
	pkRowsAffected:        "rowsAffected",
	pkResultsetID:         "resultsetId",
	pkParameterMetadata:   "parameterMetadata",
	pkReadLobRequest:      "readLobRequest",
	pkResultMetadata:      "resultMetadata",
	pkParameters:          "parameters",
	pkAuthentication:      "authentication",
	pkSessionContext:      "sessionContext",
	pkClientID:            "clientId",
	pkFetchSize:           "fetchSize",
	pkOutputParameters:    "outputParameters",
	pkConnectOptions:      "connectOptions",
	pkStatementContext:    "statementContext",
	pkWriteLobRequest:     "writeLobRequest",
	pkClientContext:       "clientContext",
	pkWriteLobReply:       "writeLobReply",
	pkTableLocation:       "tableLocation",
	pkReadLobReply:        "readLobReply",
	pkTopologyInformation: "topologyInformation",
}

func (k PartKind) String() string {
	if s, ok := partKindText[k]; ok {
		return s
	}
	return "unknown"
}
