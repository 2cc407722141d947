package sqlspan

import (
	"context"
	"database/sql/driver"
	"fmt"

	ot "github.com/opentracing/opentracing-go"
)

type conn struct {
	tc      *TracingContext
	drv     *tracingDriver
	wrapped driver.Conn

	// Note that the way database/sql calls are implemented in terms of
	// database/sql/driver interfaces is a bit unusual.
	//
	// When methods are called on a database/sql.TX object, it does not
	// result in parallel method calls on the driver.TX object. Instead,
	// these calls (Prepare, Exec, Query, etc.) go straight to a driver.Conn
	// object.
	//
	// This works because it is assumed that when a transaction starts, it
	// takes exclusive ownership of a connection. All further calls on that
	// connection before a rollback or commit are implicitly part of the
	// transaction.
	//
	// So the connection itself is the Connectable whose transaction-scoped
	// state (parent span, traced marker) lives in the tracing context's
	// registry: while a transaction owns the connection, nothing else
	// executes on it.
}

type pingerConn struct {
	conn
}

type ctxKey int

const tracedKey ctxKey = iota

// ContextWithTraced returns a context that marks the executing connection
// as explicitly traced when passed to a statement execution or BeginTx. The
// mark follows the usual scoping: it lasts until the connection's current
// transaction ends, or until the next transaction boundary when no
// transaction is open.
func ContextWithTraced(ctx context.Context) context.Context {
	return context.WithValue(ctx, tracedKey, true)
}

func tracedFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(tracedKey).(bool)
	return v
}

// A connection is opted in exactly while the driver that opened it is:
// registering the driver opts in its connections, unregistering it drops
// them (and their state) on the next call.
func (c *conn) syncRegistration() {
	if c.tc.IsRegistered(c.drv) {
		c.tc.Register(c)
	} else {
		c.tc.Unregister(c)
	}
}

// applyContext turns the traced marker carried in a call context into
// per-connection state. A span in the context is deliberately not persisted
// here: outside BeginTx its scope is the single call it arrived with, and
// the execution hooks receive it per call via contextSpan.
func (c *conn) applyContext(ctx context.Context) {
	if tracedFromContext(ctx) {
		c.tc.SetTraced(c)
	}
}

func contextSpan(ctx context.Context) ot.Span {
	if ctx == nil {
		return nil
	}
	return ot.SpanFromContext(ctx)
}

// Conn interface

func (c *conn) Prepare(sql string) (driver.Stmt, error) {
	c.syncRegistration()

	wrappedStmt, err := c.wrapped.Prepare(sql)
	return wrapStmt(c, wrappedStmt, sql, nil), err
}

func (c *conn) Close() error {
	c.tc.Unregister(c)
	return c.wrapped.Close()
}

func (c *conn) Begin() (driver.Tx, error) {
	c.syncRegistration()

	wrappedTx, err := c.wrapped.Begin()
	if err != nil {
		return nil, err
	}
	c.tc.BeginTransaction(c)
	return wrapTx(wrappedTx, c), nil
}

// ConnBeginTx interface

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.syncRegistration()

	var wrappedTx driver.Tx
	var err error

	if wrapped, ok := c.wrapped.(driver.ConnBeginTx); ok {
		wrappedTx, err = wrapped.BeginTx(ctx, opts)
	} else {
		if opts.Isolation != 0 || opts.ReadOnly {
			return nil, fmt.Errorf("wrapped driver can't handle non-default transaction options")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			wrappedTx, err = c.wrapped.Begin()
		}
	}
	if err != nil {
		return nil, err
	}

	c.tc.BeginTransaction(c)

	// It's safe to store the span in the registry state because the
	// transaction gets exclusive use of the connection until
	// commit/rollback, which clears it again.
	if parent := contextSpan(ctx); parent != nil {
		c.tc.SetParentSpan(c, parent)
	}
	c.applyContext(ctx)
	return wrapTx(wrappedTx, c), nil
}

// ConnPrepareContext interface

func (c *conn) PrepareContext(ctx context.Context, sql string) (driver.Stmt, error) {
	c.syncRegistration()
	c.applyContext(ctx)

	var wrappedStmt driver.Stmt
	var err error

	if wrapped, ok := c.wrapped.(driver.ConnPrepareContext); ok {
		wrappedStmt, err = wrapped.PrepareContext(ctx, sql)
	} else {
		select {
		case <-ctx.Done():
			wrappedStmt, err = nil, ctx.Err()
		default:
			wrappedStmt, err = c.wrapped.Prepare(sql)
		}
	}

	// A span in the prepare context rides on the statement, not on the
	// connection: later executions of this statement fall back to it when
	// their own call context carries no span.
	return wrapStmt(c, wrappedStmt, sql, contextSpan(ctx)), err
}

// Execer interface

func (c *conn) Exec(sql string, args []driver.Value) (driver.Result, error) {
	execer, ok := c.wrapped.(driver.Execer)
	if !ok {
		// If we return driver.ErrSkip, database/sql will prepare,
		// exec, and close a stmt. The stmt hooks fire then, if needed.
		return nil, driver.ErrSkip
	}

	c.syncRegistration()
	exec := c.tc.BeforeExecute(c, NewStatement(sql), valueArgs(args))

	result, err := execer.Exec(sql, args)
	if err != nil {
		c.tc.OnError(exec, err)
		return nil, err
	}
	c.tc.AfterExecute(exec)
	return result, nil
}

// ExecerContext interface

func (c *conn) ExecContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.wrapped.(driver.ExecerContext)
	if !ok {
		// If we return driver.ErrSkip, database/sql will prepare,
		// exec, and close a stmt, all with provided ctx. When that
		// happens, the stmt hooks fire, if needed.
		return nil, driver.ErrSkip
	}

	c.syncRegistration()
	c.applyContext(ctx)
	exec := c.tc.beforeExecute(c, NewStatement(sql), namedArgs(args), contextSpan(ctx))

	result, err := execer.ExecContext(ctx, sql, args)
	if err != nil {
		c.tc.OnError(exec, err)
		return nil, err
	}
	c.tc.AfterExecute(exec)
	return result, nil
}

// Pinger interface

func (c *pingerConn) Ping(ctx context.Context) error {
	// We only use a pingerConn if the wrapped conn implements driver.Pinger.
	// Pings are not statement executions, so no hooks fire.
	return c.conn.wrapped.(driver.Pinger).Ping(ctx)
}

// Queryer interface

func (c *conn) Query(query string, args []driver.Value) (driver.Rows, error) {
	queryer, ok := c.wrapped.(driver.Queryer)
	if !ok {
		// If we return driver.ErrSkip, database/sql will prepare,
		// query, and close a stmt. The stmt hooks fire then, if needed.
		return nil, driver.ErrSkip
	}

	c.syncRegistration()
	exec := c.tc.BeforeExecute(c, NewStatement(query), valueArgs(args))

	rows, err := queryer.Query(query, args)
	if err != nil {
		c.tc.OnError(exec, err)
		return nil, err
	}
	c.tc.AfterExecute(exec)
	return rows, nil
}

// QueryerContext interface

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.wrapped.(driver.QueryerContext)
	if !ok {
		// If we return driver.ErrSkip, database/sql will prepare,
		// query, and close a stmt, all with provided ctx. When that
		// happens, the stmt hooks fire, if needed.
		return nil, driver.ErrSkip
	}

	c.syncRegistration()
	c.applyContext(ctx)
	exec := c.tc.beforeExecute(c, NewStatement(query), namedArgs(args), contextSpan(ctx))

	rows, err := qc.QueryContext(ctx, query, args)
	if err != nil {
		c.tc.OnError(exec, err)
		return nil, err
	}
	c.tc.AfterExecute(exec)
	return rows, nil
}

// Helpers

func valueArgs(args []driver.Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		out[i] = arg
	}
	return out
}

func namedArgs(args []driver.NamedValue) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		out[i] = arg.Value
	}
	return out
}
