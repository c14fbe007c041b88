package viewsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

const defaultReconnectDelay = 5 * time.Second

// Option is a Syncer option function
type Option func(*Syncer)

// ReconnectDelay is an option for setting the fixed delay before a dropped
// stream connection is reactivated.
func ReconnectDelay(d time.Duration) Option {
	return func(s *Syncer) {
		s.reconnectDelay = d
	}
}

// StreamSchema is an option for setting the schema stream predicates are
// scoped to. Defaults to "public".
func StreamSchema(schema string) Option {
	return func(s *Syncer) {
		s.schema = schema
	}
}

// Logger is an option for setting the logger.
func Logger(logger *log.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// LogLevel is an option for setting the logging level.
func LogLevel(level string) Option {
	return func(s *Syncer) {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			s.logger.WithError(err).
				Warnf("'%s' is not a valid log level, defaulting to 'info'", level)
			lvl = logrus.InfoLevel
		}
		s.logger.Level = lvl
	}
}

// Syncer keeps client-side record sets consistent with server-side views.
// It owns one Subscription per distinct request identity.
type Syncer struct {
	store          SnapshotStore
	provider       ChannelProvider
	schema         string
	reconnectDelay time.Duration
	logger         *log.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewSyncer initializes and returns a new Syncer.
func NewSyncer(store SnapshotStore, provider ChannelProvider, opts ...Option) *Syncer {
	s := &Syncer{
		store:          store,
		provider:       provider,
		schema:         "public",
		reconnectDelay: defaultReconnectDelay,
		logger:         log.New(),
		subs:           make(map[string]*Subscription),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Subscribe returns the live subscription for a request, activating a new one
// when no subscription with the same identity exists. On a snapshot failure
// the handle is still returned so the caller can inspect the error and retry
// with Activate.
func (s *Syncer) Subscribe(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	key := req.Key()

	s.mu.Lock()
	if sub, ok := s.subs[key]; ok {
		s.mu.Unlock()
		return sub, nil
	}
	sub := s.newSubscription(req)
	s.subs[key] = sub
	s.mu.Unlock()

	err := sub.Activate(ctx)
	return sub, err
}

// Unsubscribe tears down the subscription for a request, if one exists.
func (s *Syncer) Unsubscribe(req SubscriptionRequest) {
	key := req.Key()

	s.mu.Lock()
	sub, ok := s.subs[key]
	delete(s.subs, key)
	s.mu.Unlock()

	if ok {
		sub.Deactivate()
	}
}

// Close tears down every live subscription.
func (s *Syncer) Close() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Deactivate()
	}
}

func (s *Syncer) newSubscription(req SubscriptionRequest) *Subscription {
	source := SourceTable(req.View)
	return &Subscription{
		req:            req,
		source:         source,
		topic:          fmt.Sprintf("viewsync:%s:%s", req.View, uuid.NewString()),
		store:          s.store,
		provider:       s.provider,
		schema:         s.schema,
		reconnectDelay: s.reconnectDelay,
		logger: s.logger.WithFields(log.Fields{
			"component": "subscription",
			"view":      req.View,
			"table":     source,
		}),
		loading: true,
		updates: make(chan struct{}, 1),
	}
}

// Subscription is one live (view, filter, ordering, limit) subscription. It
// owns its record set, connection state, and reconnect timer; nothing is
// shared across subscriptions, so one subscription's failure never affects
// another.
type Subscription struct {
	req            SubscriptionRequest
	source         string
	topic          string
	store          SnapshotStore
	provider       ChannelProvider
	schema         string
	reconnectDelay time.Duration
	logger         *log.Entry

	mu         sync.Mutex
	records    []Record
	loading    bool
	state      ConnState
	err        error
	active     bool
	gen        uint64
	channel    Channel
	retryTimer *time.Timer
	updates    chan struct{}
}

// Activate seeds the record set from a snapshot read and opens the stream
// connection. A failed snapshot is surfaced through Err with loading cleared,
// and no stream connection is opened until Activate is called again.
//
// Activate also serves as the explicit recovery path out of StateTimedOut.
func (sub *Subscription) Activate(ctx context.Context) error {
	sub.mu.Lock()
	sub.active = true
	sub.loading = true
	sub.err = nil
	sub.state = StateConnecting
	sub.gen++
	gen := sub.gen
	req := sub.req
	sub.mu.Unlock()
	sub.signalUpdate()

	records, err := sub.store.Query(ctx, req.View, QueryOptions{
		Filters: req.Filter,
		OrderBy: req.OrderBy,
		Limit:   req.Limit,
	})

	sub.mu.Lock()
	if !sub.active || gen != sub.gen {
		// Deactivated (or reactivated) while the snapshot was in flight.
		sub.mu.Unlock()
		return nil
	}
	if err != nil {
		sub.loading = false
		sub.err = err
		sub.mu.Unlock()
		sub.signalUpdate()
		return fmt.Errorf("snapshot query for view %q: %w", req.View, err)
	}
	if records == nil {
		records = []Record{}
	}
	sub.records = records
	sub.loading = false
	sub.mu.Unlock()
	sub.signalUpdate()

	sub.connect()
	return nil
}

// Deactivate unregisters the stream connection and cancels any pending
// reconnect. It is idempotent and safe to call on a subscription whose
// connection never opened. Async results still in flight are discarded.
func (sub *Subscription) Deactivate() {
	sub.mu.Lock()
	if !sub.active {
		sub.mu.Unlock()
		return
	}
	sub.active = false
	sub.gen++
	ch := sub.channel
	sub.channel = nil
	if sub.retryTimer != nil {
		sub.retryTimer.Stop()
		sub.retryTimer = nil
	}
	sub.state = StateDisconnected
	sub.mu.Unlock()
	sub.signalUpdate()

	if ch != nil {
		if err := sub.provider.CloseChannel(ch); err != nil {
			sub.logger.WithError(err).Warn("failed to close stream channel")
		}
	}
}

// connect tears down any existing stream connection and opens a new one.
// Teardown completes before the new channel is opened so two connections
// never deliver events for the same subscription at once.
func (sub *Subscription) connect() {
	sub.mu.Lock()
	if !sub.active {
		sub.mu.Unlock()
		return
	}
	sub.gen++
	gen := sub.gen
	old := sub.channel
	sub.channel = nil
	sub.state = StateConnecting
	if sub.retryTimer != nil {
		sub.retryTimer.Stop()
		sub.retryTimer = nil
	}
	sub.mu.Unlock()
	sub.signalUpdate()

	if old != nil {
		if err := sub.provider.CloseChannel(old); err != nil {
			sub.logger.WithError(err).Warn("failed to close previous stream channel")
		}
	}

	ch := sub.provider.OpenChannel(sub.topic)

	pred := EventPredicate{Schema: sub.schema, Table: sub.source}
	if len(sub.req.Filter) > 0 {
		// Only the first filter pair narrows the stream server-side; the
		// rest were applied to the snapshot query alone.
		first := sub.req.Filter[0]
		pred.Filter = &first
	}
	ch.On(pred, func(c *Change) {
		sub.handleChange(gen, c)
	})

	sub.mu.Lock()
	if !sub.active || gen != sub.gen {
		sub.mu.Unlock()
		_ = sub.provider.CloseChannel(ch)
		return
	}
	sub.channel = ch
	sub.mu.Unlock()

	if err := ch.Subscribe(func(status ChannelStatus) {
		sub.handleStatus(gen, status)
	}); err != nil {
		sub.logger.WithError(err).Error("stream subscribe failed")
		sub.handleStatus(gen, ChannelStatusChannelError)
	}
}

func (sub *Subscription) handleChange(gen uint64, c *Change) {
	sub.mu.Lock()
	if !sub.active || gen != sub.gen {
		sub.mu.Unlock()
		return
	}

	transformed := &Change{
		Kind:      c.Kind,
		Schema:    c.Schema,
		Table:     c.Table,
		Timestamp: c.Timestamp,
		NewRecord: TransformRecord(sub.source, c.NewRecord),
		OldRecord: TransformRecord(sub.source, c.OldRecord),
	}
	sub.records = mergeChange(sub.records, transformed, sub.req.OrderBy, sub.req.Limit)
	sub.mu.Unlock()
	sub.signalUpdate()

	sub.logger.WithField("kind", c.Kind).Debug("applied stream change")
}

func (sub *Subscription) handleStatus(gen uint64, status ChannelStatus) {
	sub.mu.Lock()
	if !sub.active || gen != sub.gen {
		sub.mu.Unlock()
		return
	}

	switch status {
	case ChannelStatusSubscribed:
		sub.state = StateSubscribed
		if sub.retryTimer != nil {
			sub.retryTimer.Stop()
			sub.retryTimer = nil
		}
		sub.mu.Unlock()
		sub.signalUpdate()
		sub.logger.Info("stream subscribed")
	case ChannelStatusClosed, ChannelStatusChannelError:
		sub.state = StateDisconnected
		if sub.retryTimer == nil {
			sub.retryTimer = time.AfterFunc(sub.reconnectDelay, sub.reconnect)
			sub.mu.Unlock()
			sub.signalUpdate()
			sub.logger.WithField("status", status).
				Warnf("stream disconnected, reconnecting in %s", sub.reconnectDelay)
		} else {
			// A retry is already pending; never stack a second timer.
			sub.mu.Unlock()
		}
	case ChannelStatusTimedOut:
		sub.state = StateTimedOut
		if sub.retryTimer != nil {
			sub.retryTimer.Stop()
			sub.retryTimer = nil
		}
		sub.mu.Unlock()
		sub.signalUpdate()
		sub.logger.Error("stream subscribe timed out, waiting for explicit reactivation")
	default:
		sub.mu.Unlock()
	}
}

// reconnect reopens the stream connection after the backoff delay. The record
// set is left as-is: stale data stays visible rather than flashing empty.
func (sub *Subscription) reconnect() {
	sub.mu.Lock()
	sub.retryTimer = nil
	if !sub.active {
		sub.mu.Unlock()
		return
	}
	sub.mu.Unlock()

	sub.logger.Info("reconnecting stream")
	sub.connect()
}

// Records returns a copy of the current record set.
func (sub *Subscription) Records() []Record {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	out := make([]Record, len(sub.records))
	copy(out, sub.records)
	return out
}

// Loading reports whether the initial snapshot is still in flight.
func (sub *Subscription) Loading() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.loading
}

// Connected reports whether the stream connection is live.
func (sub *Subscription) Connected() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state == StateSubscribed
}

// State returns the connection state.
func (sub *Subscription) State() ConnState {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state
}

// Err returns the last snapshot error, or nil.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Request returns the request this subscription was created for.
func (sub *Subscription) Request() SubscriptionRequest {
	return sub.req
}

// Updates returns a channel that receives a signal after every state
// transition. Signals coalesce: a slow consumer sees at least one signal for
// any burst of changes.
func (sub *Subscription) Updates() <-chan struct{} {
	return sub.updates
}

func (sub *Subscription) signalUpdate() {
	select {
	case sub.updates <- struct{}{}:
	default:
	}
}
