package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dataforge/dataset-pipeline/pkg/requestid"
)

// StructuredLogger traces named operations of a component. Every operation
// carries its own set of fields which are repeated on each emitted entry.
//
//	tracer := log.NewDebugLogger("job_service").
//		WithContext(ctx).
//		Operation("submit_job").
//		WithString("data_source_id", id).
//		Build()
//	tracer.Step("validated").Log()
//	tracer.Success().WithInt64("job_id", job.ID).Log()
type StructuredLogger struct {
	logger *zap.Logger
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{logger: zap.L().Named(name)}
}

// WithContext attaches the request id found in ctx, if any.
func (s *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	if id := requestid.FromContext(ctx); id != "" {
		return &StructuredLogger{logger: s.logger.With(zap.String("request_id", id))}
	}
	return s
}

func (s *StructuredLogger) Operation(name string) *OperationBuilder {
	return &OperationBuilder{
		logger: s.logger,
		fields: []zap.Field{zap.String("operation", name)},
	}
}

type OperationBuilder struct {
	logger *zap.Logger
	fields []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithInt64(key string, value int64) *OperationBuilder {
	b.fields = append(b.fields, zap.Int64(key, value))
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, zap.Bool(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithUUIDPtr(key string, value *uuid.UUID) *OperationBuilder {
	if value == nil {
		b.fields = append(b.fields, zap.String(key, ""))
		return b
	}
	return b.WithUUID(key, *value)
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger: b.logger.With(b.fields...),
		start:  time.Now(),
	}
}

type OperationTracer struct {
	logger *zap.Logger
	start  time.Time
}

func (t *OperationTracer) Step(name string) *Entry {
	return &Entry{logger: t.logger, level: zap.DebugLevel, msg: "step", fields: []zap.Field{zap.String("step", name)}}
}

func (t *OperationTracer) Success() *Entry {
	return &Entry{logger: t.logger, level: zap.DebugLevel, msg: "operation succeeded", fields: []zap.Field{zap.Duration("duration", time.Since(t.start))}}
}

func (t *OperationTracer) Error(err error) *Entry {
	return &Entry{logger: t.logger, level: zap.ErrorLevel, msg: "operation failed", fields: []zap.Field{zap.Error(err), zap.Duration("duration", time.Since(t.start))}}
}

// Entry is a single log line in the making.
type Entry struct {
	logger *zap.Logger
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *Entry) WithString(key, value string) *Entry {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *Entry) WithInt(key string, value int) *Entry {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *Entry) WithInt64(key string, value int64) *Entry {
	e.fields = append(e.fields, zap.Int64(key, value))
	return e
}

func (e *Entry) WithBool(key string, value bool) *Entry {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *Entry) WithUUID(key string, value uuid.UUID) *Entry {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *Entry) WithParam(key string, value any) *Entry {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *Entry) Log() {
	if ce := e.logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
