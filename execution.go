package sqlspan

import (
	ot "github.com/opentracing/opentracing-go"
)

type executionState int

const (
	stateNotStarted executionState = iota
	stateSkipped
	stateActive
	stateFinished
)

// StatementExecution correlates one statement execution with the span
// created for it, if any. It lives for exactly one before/after or
// before/error hook pair and must not be reused.
type StatementExecution struct {
	stmt  *Statement
	args  []interface{}
	state executionState
	span  ot.Span
}

// Span returns the in-flight span, or nil if this execution is untraced.
func (e *StatementExecution) Span() ot.Span {
	if e == nil || e.state != stateActive {
		return nil
	}
	return e.span
}

// Statement returns the statement this execution runs.
func (e *StatementExecution) Statement() *Statement {
	if e == nil {
		return nil
	}
	return e.stmt
}

// Arguments returns the statement parameters captured at execution time.
func (e *StatementExecution) Arguments() []interface{} {
	if e == nil {
		return nil
	}
	return e.args
}

// BeforeExecute is invoked by the execution layer immediately before a
// statement runs on a connectable. It decides whether this execution gets a
// span, resolves the parent, and starts the span. The returned record must
// be handed to exactly one of AfterExecute or OnError once the statement
// completes.
//
// Executions on unregistered connectables, executions with no tracer set,
// and executions the policy does not select all yield a skipped record; the
// matching after/error hook is then a no-op.
func (t *TracingContext) BeforeExecute(c Connectable, stmt *Statement, args []interface{}) *StatementExecution {
	return t.beforeExecute(c, stmt, args, nil)
}

// beforeExecute additionally takes a parent span supplied alongside this
// one call (a span riding the call's context, or a prepared statement's
// remembered span). It opts the execution in and parents it, but is never
// written into the connection's registry state: its scope is this call
// only. A registry-level parent set for the connection's transaction takes
// precedence.
func (t *TracingContext) beforeExecute(c Connectable, stmt *Statement, args []interface{}, callParent ot.Span) *StatementExecution {
	exec := &StatementExecution{stmt: stmt, args: args, state: stateSkipped}
	if stmt == nil {
		return exec
	}

	t.mu.RLock()
	tracer := t.tracer
	trace := t.traceAll || callParent != nil
	var parent ot.Span
	state, registered := t.registered[c]
	if registered {
		parent = state.parentSpan
		trace = trace || state.traced
	}
	if !trace {
		_, trace = t.tracedStmts[stmt.id]
	}
	t.mu.RUnlock()

	if !registered || tracer == nil || !trace {
		return exec
	}

	if parent == nil {
		parent = callParent
	}
	exec.span = startStatementSpan(tracer, stmt, parent)
	exec.state = stateActive
	return exec
}

// AfterExecute is the success-path hook: it finishes the execution's span
// unchanged. Skipped and already-finished executions are no-ops.
func (t *TracingContext) AfterExecute(exec *StatementExecution) {
	if exec == nil || exec.state != stateActive {
		return
	}
	exec.span.Finish()
	exec.state = stateFinished
}

// OnError is the failure-path hook: it tags the execution's span with
// error="true", records the error, and finishes the span. The error itself
// is never swallowed here; the execution layer re-raises it untouched.
// Skipped and already-finished executions are no-ops.
func (t *TracingContext) OnError(exec *StatementExecution, err error) {
	if exec == nil || exec.state != stateActive {
		return
	}
	markSpanError(exec.span, err)
	exec.span.Finish()
	exec.state = stateFinished
}
