package sqlspan

import (
	"strings"
	"sync/atomic"
)

// genericOperation is the span operation name for statements whose kind
// cannot be classified.
const genericOperation = "statement"

var statementIDs uint64

// Statement is a stable handle for one SQL statement: its literal text plus
// an identity that SetTraced can key on. Two statements built from the same
// text are distinct handles.
type Statement struct {
	id        uint64
	sql       string
	operation string
}

// NewStatement builds a statement handle around a literal SQL text,
// classifying its operation name from the leading keywords.
func NewStatement(sql string) *Statement {
	return &Statement{
		id:        atomic.AddUint64(&statementIDs, 1),
		sql:       sql,
		operation: classifyOperation(sql),
	}
}

// SQL returns the literal statement text.
func (s *Statement) SQL() string { return s.sql }

// OperationName returns the coarse statement kind used as the span
// operation name.
func (s *Statement) OperationName() string { return s.operation }

// classifyOperation maps a statement's leading keywords to a coarse
// operation name. Deliberately not a SQL parser: anything beyond the first
// two keywords falls back to the generic name.
func classifyOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return genericOperation
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT":
		return "select"
	case "INSERT":
		return "insert"
	case "UPDATE":
		return "update"
	case "DELETE":
		return "delete"
	case "CREATE", "DROP":
		if len(fields) > 1 && strings.EqualFold(fields[1], "TABLE") {
			return strings.ToLower(fields[0]) + "_table"
		}
	}
	return genericOperation
}
