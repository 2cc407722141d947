package sqlspan

import (
	ot "github.com/opentracing/opentracing-go"
	otext "github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"
)

// componentName is the value of the "component" tag on every span this
// library creates.
const componentName = "sqlspan"

func startStatementSpan(tracer ot.Tracer, stmt *Statement, parent ot.Span) ot.Span {
	var opts []ot.StartSpanOption
	if parent != nil {
		opts = append(opts, ot.ChildOf(parent.Context()))
	}
	span := tracer.StartSpan(stmt.OperationName(), opts...)
	otext.Component.Set(span, componentName)
	otext.DBType.Set(span, "sql")
	otext.DBStatement.Set(span, stmt.SQL())
	return span
}

// markSpanError records a failed execution on its span. The error tag is
// the string "true", matching the OpenTracing database conventions for
// string-valued tags.
func markSpanError(span ot.Span, err error) {
	span.SetTag(string(otext.Error), "true")
	if err != nil {
		span.LogFields(otlog.Error(err))
	}
}
