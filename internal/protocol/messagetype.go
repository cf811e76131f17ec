package protocol

// MessageType identifies the kind of request carried by a REQUEST segment.
type MessageType int8

const (
	mtNil             MessageType = 0
	MtExecuteDirect   MessageType = 2
	MtPrepare         MessageType = 3
	MtExecute         MessageType = 13
	MtWriteLob        MessageType = 16
	MtReadLob         MessageType = 17
	MtAuthenticate    MessageType = 65
	MtConnect         MessageType = 66
	MtCommit          MessageType = 67
	MtRollback        MessageType = 68
	MtCloseResultset  MessageType = 69
	MtDropStatementID MessageType = 70
	MtFetchNext       MessageType = 71
	MtDisconnect      MessageType = 77
)

func (mt MessageType) String() string {
	switch mt {
	case MtExecuteDirect:
		return "executeDirect"
	case MtPrepare:
		return "prepare"
	case MtExecute:
		return "execute"
	case MtWriteLob:
		return "writeLob"
	case MtReadLob:
		return "readLob"
	case MtAuthenticate:
		return "authenticate"
	case MtConnect:
		return "connect"
	case MtCommit:
		return "commit"
	case MtRollback:
		return "rollback"
	case MtCloseResultset:
		return "closeResultset"
	case MtDropStatementID:
		return "dropStatementId"
	case MtFetchNext:
		return "fetchNext"
	case MtDisconnect:
		return "disconnect"
	default:
		return "nil"
	}
}

// FunctionCode identifies the kind of operation a REPLY segment answers, as
// set by the server.
type FunctionCode int16

const (
	FcNil             FunctionCode = 0
	FcDDL             FunctionCode = 1
	FcInsert          FunctionCode = 2
	FcUpdate          FunctionCode = 3
	FcDelete          FunctionCode = 4
	FcSelect          FunctionCode = 5
	FcSelectForUpdate FunctionCode = 6
	FcCall            FunctionCode = 7
	FcExplain         FunctionCode = 9
	FcFetch           FunctionCode = 11
	FcCommit          FunctionCode = 13
	FcRollback        FunctionCode = 14
	FcConnect         FunctionCode = 16
	FcWriteLob        FunctionCode = 17
	FcReadLob         FunctionCode = 18
	FcDisconnect      FunctionCode = 22
	FcCloseCursor     FunctionCode = 23
	FcFindLob         FunctionCode = 24
	FcAuthenticate    FunctionCode = 25
)

func (fc FunctionCode) String() string {
	switch fc {
	case FcDDL:
		return "ddl"
	case FcInsert:
		return "insert"
	case FcUpdate:
		return "update"
	case FcDelete:
		return "delete"
	case FcSelect:
		return "select"
	case FcSelectForUpdate:
		return "selectForUpdate"
	case FcCall:
		return "call"
	case FcExplain:
		return "explain"
	case FcFetch:
		return "fetch"
	case FcCommit:
		return "commit"
	case FcRollback:
		return "rollback"
	case FcConnect:
		return "connect"
	case FcWriteLob:
		return "writeLob"
	case FcReadLob:
		return "readLob"
	case FcDisconnect:
		return "disconnect"
	case FcCloseCursor:
		return "closeCursor"
	case FcFindLob:
		return "findLob"
	case FcAuthenticate:
		return "authenticate"
	default:
		return "nil"
	}
}

// IsQuery reports whether fc's reply carries a result set.
func (fc FunctionCode) IsQuery() bool {
	return fc == FcSelect || fc == FcSelectForUpdate || fc == FcExplain
}

// IsProcedureCall reports whether fc's reply is that of a stored procedure
// CALL, which may carry OUT parameters and/or table result sets.
func (fc FunctionCode) IsProcedureCall() bool { return fc == FcCall }
