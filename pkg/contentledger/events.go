package contentledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Event types, usable as CloudEvents "type" attributes.
const (
	EventTypeContentCreated = "contentledger.content.created"
	EventTypeContentForked  = "contentledger.content.forked"
	EventTypeContentMerged  = "contentledger.content.merged"
)

// ContentCreatedEvent is emitted after a successful Create.
type ContentCreatedEvent struct {
	Key    Key       `json:"key"`
	Caller AccountID `json:"caller"`
}

// ContentForkedEvent is emitted after a successful Fork.
type ContentForkedEvent struct {
	SourceKey Key       `json:"source_key"`
	Key       Key       `json:"key"`
	Caller    AccountID `json:"caller"`
}

// ContentMergedEvent is emitted after a successful Merge.
type ContentMergedEvent struct {
	Key     Key       `json:"key"`
	Caller  AccountID `json:"caller"`
	Version uint32    `json:"version"`
}

// EventSink receives domain events. Delivery is fire-and-forget: errors are
// logged by the service and never fail the operation that produced them.
type EventSink interface {
	// ContentCreated is fired when content is created
	ContentCreated(ctx context.Context, event ContentCreatedEvent) error

	// ContentForked is fired when content is forked
	ContentForked(ctx context.Context, event ContentForkedEvent) error

	// ContentMerged is fired when a merge is accepted
	ContentMerged(ctx context.Context, event ContentMergedEvent) error
}

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ContentCreated(ctx context.Context, event ContentCreatedEvent) error {
	return nil
}

func (n *NoopEventSink) ContentForked(ctx context.Context, event ContentForkedEvent) error {
	return nil
}

func (n *NoopEventSink) ContentMerged(ctx context.Context, event ContentMergedEvent) error {
	return nil
}

// Logger interface for logging events
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LoggingEventSink is an event sink that logs events but takes no other action.
// Useful for development and debugging.
type LoggingEventSink struct {
	logger Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger Logger) EventSink {
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) ContentCreated(ctx context.Context, event ContentCreatedEvent) error {
	l.logger.Infof("Content created: Key=%s, Caller=%s", event.Key, event.Caller)
	return nil
}

func (l *LoggingEventSink) ContentForked(ctx context.Context, event ContentForkedEvent) error {
	l.logger.Infof("Content forked: Source=%s, Key=%s, Caller=%s", event.SourceKey, event.Key, event.Caller)
	return nil
}

func (l *LoggingEventSink) ContentMerged(ctx context.Context, event ContentMergedEvent) error {
	l.logger.Infof("Content merged: Key=%s, Caller=%s, Version=%d", event.Key, event.Caller, event.Version)
	return nil
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to the Logger interface.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogLogger{logger: logger}
}

func (s *slogLogger) Infof(format string, args ...interface{}) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Errorf(format string, args ...interface{}) {
	s.logger.Error(fmt.Sprintf(format, args...))
}

// MultiEventSink fans every event out to several sinks. All sinks are called
// even if one fails; the failures are joined.
type MultiEventSink []EventSink

func (m MultiEventSink) ContentCreated(ctx context.Context, event ContentCreatedEvent) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ContentCreated(ctx, event))
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) ContentForked(ctx context.Context, event ContentForkedEvent) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ContentForked(ctx, event))
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) ContentMerged(ctx context.Context, event ContentMergedEvent) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.ContentMerged(ctx, event))
	}
	return errors.Join(errs...)
}
