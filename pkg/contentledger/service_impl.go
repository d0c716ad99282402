package contentledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tendant/content-ledger/pkg/contentledger"

// service implements the Service interface
type service struct {
	store     Store
	ledger    *Ledger
	hasher    ContentHasher
	eventSink EventSink
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *Metrics
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the store backing the ledger
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithHasher replaces the default BLAKE2b-256 hasher
func WithHasher(hasher ContentHasher) Option {
	return func(s *service) {
		s.hasher = hasher
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithTracerProvider sets the provider spans are created from
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *service) {
		s.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMetrics enables operation counters
func WithMetrics(metrics *Metrics) Option {
	return func(s *service) {
		s.metrics = metrics
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		hasher:    NewBlake2bHasher(),
		eventSink: NewNoopEventSink(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(instrumentationName),
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if s.hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	s.ledger = NewLedger(s.store)

	return s, nil
}

// Content operations

func (s *service) Create(ctx context.Context, caller AccountID, req CreateContentRequest) (key Key, err error) {
	ctx, span := s.startSpan(ctx, "create", caller)
	defer func() { s.finish(span, "create", key, err) }()

	if caller == "" {
		return Key{}, &ContentError{Op: "create", Err: ErrUnauthorized}
	}

	record := ContentRecord{
		Title:       req.Title,
		Description: req.Description,
		MetadataURI: req.MetadataURI,
		Version:     1,
	}
	shares := []ContributionShare{{Holder: caller, Percentage: 100}}

	key, err = s.insert(ctx, "create", record, shares)
	if err != nil {
		return Key{}, err
	}

	s.emit(ctx, "create", func() error {
		return s.eventSink.ContentCreated(ctx, ContentCreatedEvent{Key: key, Caller: caller})
	})
	s.logger.InfoContext(ctx, "Content created", "content_key", key.String(), "caller", string(caller))

	return key, nil
}

func (s *service) Fork(ctx context.Context, caller AccountID, req ForkContentRequest) (key Key, err error) {
	ctx, span := s.startSpan(ctx, "fork", caller)
	defer func() { s.finish(span, "fork", key, err) }()

	if caller == "" {
		return Key{}, &ContentError{Key: req.SourceKey, Op: "fork", Err: ErrUnauthorized}
	}

	// Verify source content exists
	exists, err := s.ledger.Exists(ctx, req.SourceKey)
	if err != nil {
		return Key{}, &ContentError{Key: req.SourceKey, Op: "fork", Err: err}
	}
	if !exists {
		return Key{}, &ContentError{Key: req.SourceKey, Op: "fork", Err: ErrNoContentPresent}
	}

	source := req.SourceKey
	record := ContentRecord{
		Title:       req.Title,
		Description: req.Description,
		MetadataURI: req.MetadataURI,
		Version:     1,
		ForkedFrom:  &source,
	}
	// A fork starts wholly owned by the caller; lineage lives in ForkedFrom.
	shares := []ContributionShare{{Holder: caller, Percentage: 100}}

	key, err = s.insert(ctx, "fork", record, shares)
	if err != nil {
		return Key{}, err
	}

	s.emit(ctx, "fork", func() error {
		return s.eventSink.ContentForked(ctx, ContentForkedEvent{SourceKey: source, Key: key, Caller: caller})
	})
	s.logger.InfoContext(ctx, "Content forked",
		"source_key", source.String(), "content_key", key.String(), "caller", string(caller))

	return key, nil
}

func (s *service) Merge(ctx context.Context, caller AccountID, req MergeContentRequest) (err error) {
	ctx, span := s.startSpan(ctx, "merge", caller)
	defer func() { s.finish(span, "merge", req.Key, err) }()

	var version uint32
	err = s.ledger.Modify(ctx, req.Key, func(current Entry) (Entry, error) {
		if caller == "" || !current.HasContributor(caller) {
			return Entry{}, ErrUnauthorized
		}
		if err := ValidateShares(req.Shares); err != nil {
			return Entry{}, err
		}
		if err := validateShareHolders(req.Shares); err != nil {
			return Entry{}, err
		}
		if current.Record.Version == math.MaxUint32 {
			return Entry{}, ErrOverflow
		}

		current.Record.Title = req.Title
		current.Record.Description = req.Description
		current.Record.MetadataURI = req.MetadataURI
		current.Record.Version++
		current.Shares = cloneShares(req.Shares)
		version = current.Record.Version
		return current, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrNoContentPresent
		}
		return &ContentError{Key: req.Key, Op: "merge", Err: err}
	}

	s.emit(ctx, "merge", func() error {
		return s.eventSink.ContentMerged(ctx, ContentMergedEvent{Key: req.Key, Caller: caller, Version: version})
	})
	s.logger.InfoContext(ctx, "Content merged",
		"content_key", req.Key.String(), "caller", string(caller), "version", version)

	return nil
}

// Read-only operations

func (s *service) Get(ctx context.Context, key Key) (*Entry, error) {
	entry, err := s.ledger.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrNoContentPresent
		}
		return nil, &ContentError{Key: key, Op: "get", Err: err}
	}
	return entry, nil
}

func (s *service) ListForks(ctx context.Context, key Key) ([]Key, error) {
	if _, err := s.Get(ctx, key); err != nil {
		return nil, err
	}

	var forks []Key
	err := s.ledger.Scan(ctx, func(entry Entry) error {
		if entry.Record.ForkedFrom != nil && *entry.Record.ForkedFrom == key {
			forks = append(forks, entry.Key)
		}
		return nil
	})
	if err != nil {
		return nil, &ContentError{Key: key, Op: "list_forks", Err: err}
	}
	return forks, nil
}

func (s *service) Lineage(ctx context.Context, key Key) ([]Key, error) {
	var chain []Key
	seen := make(map[Key]struct{})
	current := key
	for {
		if _, loop := seen[current]; loop {
			return nil, &ContentError{Key: key, Op: "lineage", Err: fmt.Errorf("fork cycle at %s", current)}
		}
		seen[current] = struct{}{}

		entry, err := s.ledger.Get(ctx, current)
		if errors.Is(err, ErrNotFound) && current != key {
			// The host removed an ancestor; the chain ends here.
			return chain, nil
		}
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				err = ErrNoContentPresent
			}
			return nil, &ContentError{Key: key, Op: "lineage", Err: err}
		}

		chain = append(chain, current)
		if entry.Record.ForkedFrom == nil {
			return chain, nil
		}
		current = *entry.Record.ForkedFrom
	}
}

func (s *service) Close() error {
	if closer, ok := s.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// insert derives the key for record and stores it, mapping key collisions to
// ErrContentAlreadyExists.
func (s *service) insert(ctx context.Context, op string, record ContentRecord, shares []ContributionShare) (Key, error) {
	key, err := s.hasher.DeriveKey(record)
	if err != nil {
		return Key{}, &ContentError{Op: op, Err: err}
	}

	if err := s.ledger.Insert(ctx, key, record, shares); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			err = ErrContentAlreadyExists
		}
		return Key{}, &ContentError{Key: key, Op: op, Err: err}
	}
	return key, nil
}

// emit delivers an event. Sink failures are logged and never returned.
func (s *service) emit(ctx context.Context, op string, send func() error) {
	if err := send(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to emit event", "op", op, "error", err)
	}
}

func (s *service) startSpan(ctx context.Context, op string, caller AccountID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "contentledger."+op,
		trace.WithAttributes(attribute.String("contentledger.caller", string(caller))))
}

func (s *service) finish(span trace.Span, op string, key Key, err error) {
	s.metrics.observe(op, err)
	if !key.IsZero() {
		span.SetAttributes(attribute.String("contentledger.key", key.String()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
