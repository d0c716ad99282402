// Package cloudevents publishes ledger events as CloudEvents over HTTP.
package cloudevents

import (
	"context"
	"errors"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

// DefaultSource is the CloudEvents source attribute used when none is set.
const DefaultSource = "/contentledger"

// Sink implements contentledger.EventSink by sending structured CloudEvents.
type Sink struct {
	client cloudevents.Client
	target string
	source string
}

// Option configures a Sink.
type Option func(*Sink)

// WithSource overrides the CloudEvents source attribute.
func WithSource(source string) Option {
	return func(s *Sink) {
		if source != "" {
			s.source = source
		}
	}
}

// WithClient replaces the default HTTP client.
func WithClient(client cloudevents.Client) Option {
	return func(s *Sink) {
		s.client = client
	}
}

// New creates a sink that posts events to target.
func New(target string, options ...Option) (*Sink, error) {
	if target == "" {
		return nil, errors.New("event target url is required")
	}
	s := &Sink{target: target, source: DefaultSource}
	for _, option := range options {
		option(s)
	}
	if s.client == nil {
		client, err := cloudevents.NewClientHTTP()
		if err != nil {
			return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
		}
		s.client = client
	}
	return s, nil
}

func (s *Sink) ContentCreated(ctx context.Context, event contentledger.ContentCreatedEvent) error {
	return s.send(ctx, contentledger.EventTypeContentCreated, event.Key, event)
}

func (s *Sink) ContentForked(ctx context.Context, event contentledger.ContentForkedEvent) error {
	return s.send(ctx, contentledger.EventTypeContentForked, event.Key, event)
}

func (s *Sink) ContentMerged(ctx context.Context, event contentledger.ContentMergedEvent) error {
	return s.send(ctx, contentledger.EventTypeContentMerged, event.Key, event)
}

func (s *Sink) send(ctx context.Context, eventType string, subject contentledger.Key, data interface{}) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(s.source)
	event.SetType(eventType)
	event.SetSubject(subject.String())
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	ctx = cloudevents.ContextWithTarget(ctx, s.target)
	if result := s.client.Send(ctx, event); !cloudevents.IsACK(result) {
		return fmt.Errorf("failed to deliver %s event: %w", eventType, result)
	}
	return nil
}

var _ contentledger.EventSink = (*Sink)(nil)
