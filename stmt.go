package sqlspan

import (
	"context"
	"database/sql/driver"
	"fmt"

	ot "github.com/opentracing/opentracing-go"
)

// stmt wraps a prepared statement. One Statement handle is created at
// prepare time and shared by every execution, so repeated executions of the
// same prepared statement carry one identity. A span supplied with the
// prepare context is remembered as the fallback parent for executions whose
// own context carries none.
type stmt struct {
	conn    *conn
	wrapped driver.Stmt
	handle  *Statement
	parent  ot.Span
}

func wrapStmt(c *conn, wrapped driver.Stmt, sql string, parent ot.Span) driver.Stmt {
	if wrapped == nil {
		return nil
	}
	return stmt{c, wrapped, NewStatement(sql), parent}
}

func (s stmt) callParent(ctx context.Context) ot.Span {
	if parent := contextSpan(ctx); parent != nil {
		return parent
	}
	return s.parent
}

// Stmt interface

func (s stmt) Close() error {
	return s.wrapped.Close()
}

func (s stmt) NumInput() int {
	return s.wrapped.NumInput()
}

func (s stmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.syncRegistration()
	exec := s.conn.tc.beforeExecute(s.conn, s.handle, valueArgs(args), s.parent)

	result, err := s.wrapped.Exec(args)
	if err != nil {
		s.conn.tc.OnError(exec, err)
		return nil, err
	}
	s.conn.tc.AfterExecute(exec)
	return result, nil
}

func (s stmt) Query(args []driver.Value) (driver.Rows, error) {
	s.conn.syncRegistration()
	exec := s.conn.tc.beforeExecute(s.conn, s.handle, valueArgs(args), s.parent)

	rows, err := s.wrapped.Query(args)
	if err != nil {
		s.conn.tc.OnError(exec, err)
		return nil, err
	}
	s.conn.tc.AfterExecute(exec)
	return rows, nil
}

// StmtExecContext interface

func (s stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.conn.syncRegistration()
	s.conn.applyContext(ctx)
	exec := s.conn.tc.beforeExecute(s.conn, s.handle, namedArgs(args), s.callParent(ctx))

	var result driver.Result
	var err error

	if sec, ok := s.wrapped.(driver.StmtExecContext); ok {
		result, err = sec.ExecContext(ctx, args)
	} else {
		var positionalArgs []driver.Value
		positionalArgs, err = namedToPositionalArgs(args, "Stmt.ExecContext")

		if err == nil {
			select {
			case <-ctx.Done():
				result, err = nil, ctx.Err()
			default:
				result, err = s.wrapped.Exec(positionalArgs)
			}
		}
	}

	if err != nil {
		s.conn.tc.OnError(exec, err)
		return nil, err
	}
	s.conn.tc.AfterExecute(exec)
	return result, nil
}

// StmtQueryContext interface

func (s stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.conn.syncRegistration()
	s.conn.applyContext(ctx)
	exec := s.conn.tc.beforeExecute(s.conn, s.handle, namedArgs(args), s.callParent(ctx))

	var rows driver.Rows
	var err error

	if sqc, ok := s.wrapped.(driver.StmtQueryContext); ok {
		rows, err = sqc.QueryContext(ctx, args)
	} else {
		var positionalArgs []driver.Value
		positionalArgs, err = namedToPositionalArgs(args, "Stmt.QueryContext")

		if err == nil {
			select {
			case <-ctx.Done():
				rows, err = nil, ctx.Err()
			default:
				rows, err = s.wrapped.Query(positionalArgs)
			}
		}
	}

	if err != nil {
		s.conn.tc.OnError(exec, err)
		return nil, err
	}
	s.conn.tc.AfterExecute(exec)
	return rows, nil
}

// Helpers

func namedToPositionalArgs(args []driver.NamedValue, opName string) ([]driver.Value, error) {
	positionalArgs := make([]driver.Value, len(args))
	for i, arg := range args {
		if len(arg.Name) > 0 {
			return nil, fmt.Errorf("wrapped sql driver does not support named parameters in %v", opName)
		}
		positionalArgs[i] = arg.Value
	}
	return positionalArgs, nil
}
