package protocol

// PreparedStatement is a server-side compiled statement handle, created by
// PREPARE and addressed by statement id on every subsequent EXECUTE. Its
// reference back to the owning Session is conceptually weak: Go's garbage
// collector handles the resulting cycle fine, so no runtime/weak wrapper is
// needed, but callers still must not use a PreparedStatement after closing
// its Session.
type PreparedStatement struct {
	id           uint64
	params       []ParameterDescriptor
	cols         []ColumnDescriptor
	functionCode FunctionCode
	session      *Session
	closed       bool
}

// ID returns the server-assigned statement handle.
func (ps *PreparedStatement) ID() uint64 { return ps.id }

// Parameters returns the ordered parameter descriptors PREPARE reported.
func (ps *PreparedStatement) Parameters() []ParameterDescriptor { return ps.params }

// Columns returns the ordered result-set column descriptors PREPARE
// reported, or nil for a statement that doesn't produce a result set.
func (ps *PreparedStatement) Columns() []ColumnDescriptor { return ps.cols }

// IsQuery reports whether executing ps produces a ResultSet.
func (ps *PreparedStatement) IsQuery() bool { return ps.functionCode.IsQuery() }

// Prepare compiles sql on the server and returns a handle describing its
// parameters and, for queries, its result columns.
func (s *Session) Prepare(sql string) (*PreparedStatement, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	defer s.done()

	stateful := map[PartKind]readablePart{
		pkParameterMetadata: new(parameterMetadataPart),
		pkResultMetadata:    new(resultMetadataPart),
	}
	reply, err := s.roundTrip(MtPrepare, false, stateful, commandPart(sql))
	if err != nil {
		return nil, err
	}

	ps := &PreparedStatement{session: s, functionCode: reply.FunctionCode}
	if sid, ok := reply.Parts[pkStatementID].(*statementIDPart); ok {
		ps.id = uint64(*sid)
	}
	if pm, ok := reply.Parts[pkParameterMetadata].(*parameterMetadataPart); ok {
		ps.params = []ParameterDescriptor(*pm)
	}
	if rm, ok := reply.Parts[pkResultMetadata].(*resultMetadataPart); ok {
		ps.cols = []ColumnDescriptor(*rm)
	}

	s.mu.Lock()
	s.openStatements[ps.id] = ps
	s.mu.Unlock()
	return ps, nil
}

// Close drops the statement handle on the server. It is safe to call more
// than once.
func (ps *PreparedStatement) Close() error {
	if ps.closed {
		return nil
	}
	ps.closed = true
	s := ps.session
	if err := s.checkReady(); err != nil {
		return err
	}
	defer s.done()
	_, err := s.roundTrip(MtDropStatementID, false, nil, statementIDPart(ps.id))
	s.mu.Lock()
	delete(s.openStatements, ps.id)
	s.mu.Unlock()
	return err
}

// bindParams validates and packages positional/named argument values
// against ps's IN/INOUT parameter descriptors.
func (ps *PreparedStatement) bindParams(args map[string]Value, positional []Value) ([]Value, error) {
	inParams := make([]ParameterDescriptor, 0, len(ps.params))
	for _, p := range ps.params {
		if p.Mode != PmOut {
			inParams = append(inParams, p)
		}
	}
	if args != nil {
		values := make([]Value, len(inParams))
		for i, p := range inParams {
			v, ok := args[p.Name]
			if !ok {
				return nil, &UsageError{Msg: "missing value for parameter " + p.Name}
			}
			values[i] = v
		}
		return values, nil
	}
	if len(positional) != len(inParams) {
		return nil, &UsageError{Msg: "parameter count mismatch"}
	}
	return positional, nil
}

// ExecuteDirect runs sql without preparing it first. Use for DDL and
// one-shot statements with no parameters.
func (s *Session) ExecuteDirect(sql string) (*ExecuteResult, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	defer s.done()

	stateful := map[PartKind]readablePart{
		pkResultMetadata: new(resultMetadataPart),
	}
	reply, err := s.roundTrip(MtExecuteDirect, s.autocommit, stateful, commandPart(sql))
	if err != nil {
		return nil, err
	}
	return s.buildExecuteResult(reply, nil)
}

// ExecuteResult is the outcome of executing a statement: either a row
// count or a ResultSet, depending on what kind of statement ran. A CALL's
// OUT/INOUT parameters come back the same way a SELECT's columns do: as a
// single-row ResultSet, per the collaborator contract in spec.md §6.
type ExecuteResult struct {
	RowsAffected []int32
	ResultSet    *ResultSet
	FunctionCode FunctionCode
}

func (s *Session) buildExecuteResult(reply *Reply, ps *PreparedStatement) (*ExecuteResult, error) {
	res := &ExecuteResult{FunctionCode: reply.FunctionCode}
	if ra, ok := reply.Parts[pkRowsAffected].(*rowsAffectedPart); ok {
		res.RowsAffected = []int32(*ra)
	}
	if out, ok := reply.Parts[pkOutputParameters].(*outputParametersPart); ok {
		cols := make([]ColumnDescriptor, len(out.descrs))
		for i, d := range out.descrs {
			cols[i] = ColumnDescriptor{
				TypeCode:    d.TypeCode,
				Length:      d.Length,
				Fraction:    d.Fraction,
				ColumnName:  d.Name,
				DisplayName: d.Name,
			}
		}
		res.ResultSet = &ResultSet{
			session:  s,
			cols:     cols,
			buffer:   []Row{out.Values},
			atEnd:    true,
			noCursor: true,
		}
	}
	if rid, ok := reply.Parts[pkResultsetID].(*resultsetIDPart); ok {
		cols, _ := reply.Parts[pkResultMetadata].(*resultMetadataPart)
		var colList []ColumnDescriptor
		if cols != nil {
			colList = []ColumnDescriptor(*cols)
		} else if ps != nil {
			colList = ps.cols
		}
		rs := &ResultSet{
			session:   s,
			id:        uint64(*rid),
			cols:      colList,
			fetchSize: s.fetchSize,
		}
		if rp, ok := reply.Parts[pkResultset].(*resultsetPart); ok {
			rs.buffer = rp.Rows
			rs.atEnd = rp.Closed
		}
		s.mu.Lock()
		s.openResultsets[rs.id] = rs
		s.mu.Unlock()
		res.ResultSet = rs
	}
	return res, nil
}

// Execute runs ps once against a single row of positional parameter values.
func (ps *PreparedStatement) Execute(values []Value) (*ExecuteResult, error) {
	return ps.execute(nil, values)
}

// ExecuteNamed runs ps once against a map of parameter values keyed by
// ParameterDescriptor.Name.
func (ps *PreparedStatement) ExecuteNamed(args map[string]Value) (*ExecuteResult, error) {
	return ps.execute(args, nil)
}

func (ps *PreparedStatement) execute(args map[string]Value, positional []Value) (*ExecuteResult, error) {
	s := ps.session
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	defer s.done()

	bound, err := ps.bindParams(args, positional)
	if err != nil {
		return nil, err
	}

	inDescrs := make([]ParameterDescriptor, 0, len(ps.params))
	outDescrs := make([]ParameterDescriptor, 0, len(ps.params))
	for _, p := range ps.params {
		if p.Mode != PmOut {
			inDescrs = append(inDescrs, p)
		}
		if p.Mode != PmIn {
			outDescrs = append(outDescrs, p)
		}
	}

	stateful := map[PartKind]readablePart{
		pkRowsAffected:     new(rowsAffectedPart),
		pkOutputParameters: &outputParametersPart{descrs: outDescrs},
	}
	if ps.IsQuery() {
		stateful[pkResultset] = &resultsetPart{cols: ps.cols}
	}

	parts := []writablePart{statementIDPart(ps.id)}
	if len(bound) > 0 {
		parts = append(parts, &inputParametersPart{descrs: inDescrs, values: bound})
	}

	reply, err := s.roundTrip(MtExecute, s.autocommit, stateful, parts...)
	if err != nil {
		return nil, err
	}
	return s.buildExecuteResult(reply, ps)
}
