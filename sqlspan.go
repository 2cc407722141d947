// sqlspan decides which SQL statement executions become OpenTracing spans.
// It sits between a statement-execution layer and an opaque tracer: the
// execution layer notifies it before and after every statement, and sqlspan
// decides whether a span is created, which span it is a child of, and when
// it is finished.
//
// Tracing is opt-in. A connection or connection factory (a "connectable")
// is opted in with RegisterConnectable; individual statements or whole
// connections can then be marked with SetTraced, or everything can be
// traced at once by passing traceAll to InitTracing. Connection-level
// markers and parent spans are scoped to the connection's current
// transaction and never leak across transaction boundaries.
//
// The package also ships a database/sql/driver wrapper (see New) that
// routes every execution of a wrapped driver through these hooks.
package sqlspan

import (
	"database/sql/driver"

	ot "github.com/opentracing/opentracing-go"
)

// std is the process-wide tracing context backing the package-level API
// and drivers created with New.
var std = NewTracingContext()

// DefaultContext returns the process-wide tracing context used by the
// package-level functions and by drivers created with New.
func DefaultContext() *TracingContext { return std }

// InitTracing sets the process-wide active tracer and opt-in mode. It must
// be called before any tracing is expected; until then all hooks degrade
// to no-ops.
func InitTracing(tracer ot.Tracer, traceAll bool) { std.InitTracing(tracer, traceAll) }

// RegisterConnectable opts a connectable into tracing.
func RegisterConnectable(c Connectable) { std.Register(c) }

// UnregisterConnectable stops tracing a connectable and discards its state.
func UnregisterConnectable(c Connectable) { std.Unregister(c) }

// IsRegistered reports whether a connectable is currently opted in.
func IsRegistered(c Connectable) bool { return std.IsRegistered(c) }

// SetTraced marks a *Statement or a connectable as explicitly traced.
func SetTraced(target interface{}) { std.SetTraced(target) }

// SetParentSpan makes span the parent of every span produced for
// statements on c during its current transaction.
func SetParentSpan(c Connectable, span ot.Span) { std.SetParentSpan(c, span) }

// OpenFunc is a function that opens a database connection, given a data
// source name.
type OpenFunc func(dsn string) (driver.Conn, error)

// New returns a driver that wraps connections returned by the given
// OpenFunc and routes every statement execution through the process-wide
// tracing context. The returned driver is itself a Connectable:
// registering it opts in every connection it opens.
func New(open OpenFunc) driver.Driver {
	return NewWithContext(std, open)
}

// NewWithContext is like New but binds the driver to an explicit tracing
// context instead of the process-wide one.
func NewWithContext(tc *TracingContext, open OpenFunc) driver.Driver {
	return &tracingDriver{
		tc:          tc,
		openWrapped: open,
	}
}
