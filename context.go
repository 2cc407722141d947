package sqlspan

import (
	"sync"

	ot "github.com/opentracing/opentracing-go"
)

// Connectable identifies a connection or connection-factory object that can
// be opted into tracing. Values are compared by identity, so a pointer (or
// any other comparable handle that stays stable for the lifetime of the
// connection) should be used.
type Connectable interface{}

// tracingState is the per-connectable state kept by the registry. The
// parent span and the traced flag are scoped to the connectable's current
// transaction; both are dropped at every transaction boundary.
type tracingState struct {
	parentSpan ot.Span
	traced     bool
}

// TracingContext holds the active tracer, the trace-all flag, the registry
// of connectables opted into tracing, and the set of explicitly traced
// statements. One shared instance serves the whole process; see the
// package-level functions. All methods are safe for concurrent use.
type TracingContext struct {
	mu          sync.RWMutex
	tracer      ot.Tracer
	traceAll    bool
	registered  map[Connectable]*tracingState
	tracedStmts map[uint64]struct{}
}

// NewTracingContext returns an empty tracing context with no tracer set.
func NewTracingContext() *TracingContext {
	return &TracingContext{
		registered:  make(map[Connectable]*tracingState),
		tracedStmts: make(map[uint64]struct{}),
	}
}

// InitTracing sets the active tracer and the opt-in mode. Calling it again
// replaces the previous tracer; executions already in flight hold their own
// span reference and still get finished by the hook pair that created them.
func (t *TracingContext) InitTracing(tracer ot.Tracer, traceAll bool) {
	t.mu.Lock()
	t.tracer = tracer
	t.traceAll = traceAll
	t.mu.Unlock()
}

// Register begins tracking a connectable. Registering an already-registered
// connectable keeps its existing state.
func (t *TracingContext) Register(c Connectable) {
	t.mu.Lock()
	if _, ok := t.registered[c]; !ok {
		t.registered[c] = &tracingState{}
	}
	t.mu.Unlock()
}

// Unregister stops tracking a connectable and discards all of its state.
// Hooks fired for it afterwards are silently ignored.
func (t *TracingContext) Unregister(c Connectable) {
	t.mu.Lock()
	delete(t.registered, c)
	t.mu.Unlock()
}

// IsRegistered reports whether a connectable is currently tracked.
func (t *TracingContext) IsRegistered(c Connectable) bool {
	t.mu.RLock()
	_, ok := t.registered[c]
	t.mu.RUnlock()
	return ok
}

// SetTraced marks its target as explicitly traced.
//
// A *Statement target is traced on every execution for as long as the
// statement handle lives; marking is keyed on the handle's identity, not on
// its text. Any other target is treated as a connectable: every statement
// executed on it is traced until its current transaction ends (or, with no
// transaction open, until the next transaction boundary). Unregistered
// connectables are ignored.
func (t *TracingContext) SetTraced(target interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stmt, ok := target.(*Statement); ok {
		t.tracedStmts[stmt.id] = struct{}{}
		return
	}
	if state, ok := t.registered[target]; ok {
		state.traced = true
	}
}

// SetParentSpan associates an explicit parent span with a connectable,
// scoped to its current transaction. The connectable is also marked traced
// for that scope, so statements executed under the parent produce spans
// without a separate SetTraced call. Unregistered connectables are ignored.
func (t *TracingContext) SetParentSpan(c Connectable, span ot.Span) {
	t.mu.Lock()
	if state, ok := t.registered[c]; ok {
		state.parentSpan = span
		state.traced = true
	}
	t.mu.Unlock()
}

// BeginTransaction marks the start of a transaction on a connectable. Any
// parent span or traced marker set before the transaction does not carry
// into it.
func (t *TracingContext) BeginTransaction(c Connectable) {
	t.clearTxState(c)
}

// EndTransaction marks the end of a connectable's current transaction,
// commit and rollback alike. The transaction-scoped parent span and traced
// marker are dropped whether or not they were ever consumed.
func (t *TracingContext) EndTransaction(c Connectable) {
	t.clearTxState(c)
}

func (t *TracingContext) clearTxState(c Connectable) {
	t.mu.Lock()
	if state, ok := t.registered[c]; ok {
		state.parentSpan = nil
		state.traced = false
	}
	t.mu.Unlock()
}
