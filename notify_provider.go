package viewsync

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/jackc/pgx"
	log "github.com/sirupsen/logrus"
)

const defaultNotifyChannel = "viewsync_changes"

// NotifyOption is a NotifyProvider option function
type NotifyOption func(*NotifyProvider)

// NotifyChannelName is an option for setting the Postgres notification
// channel change payloads arrive on.
func NotifyChannelName(name string) NotifyOption {
	return func(p *NotifyProvider) {
		p.channelName = name
	}
}

// NotifyLogger is an option for setting the logger
func NotifyLogger(logger *log.Logger) NotifyOption {
	return func(p *NotifyProvider) {
		p.logger = logger.WithFields(log.Fields{"component": "notify_provider"})
	}
}

// notifyPayload is the JSON shape the row-change triggers put on the
// notification channel.
type notifyPayload struct {
	Action    string                 `json:"action"`
	Schema    string                 `json:"schema"`
	Table     string                 `json:"table"`
	Timestamp string                 `json:"timestamp"`
	NewValues map[string]interface{} `json:"new_values"`
	OldValues map[string]interface{} `json:"old_values"`
}

// NotifyProvider is a ChannelProvider that uses Postgres' LISTEN/NOTIFY
// pattern to deliver row changes published by per-table triggers. All open
// channels share one database connection; each channel filters the shared
// firehose with its own predicates.
type NotifyProvider struct {
	connConfig  *pgx.ConnConfig
	channelName string
	logger      *log.Entry

	mu       sync.Mutex
	conn     *pgx.Conn
	running  bool
	cancel   context.CancelFunc
	channels map[*streamChannel]struct{}
}

// NewNotifyProvider returns a new NotifyProvider.
func NewNotifyProvider(opts ...NotifyOption) *NotifyProvider {
	p := &NotifyProvider{
		channelName: defaultNotifyChannel,
		logger:      log.WithFields(log.Fields{"component": "notify_provider"}),
		channels:    make(map[*streamChannel]struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Dial stores the connection settings and connects to the database.
func (p *NotifyProvider) Dial(connConfig *pgx.ConnConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connConfig = connConfig
	conn, err := pgx.Connect(*connConfig)
	if err != nil {
		p.logger.WithError(err).Error("failed to connect to database")
		return err
	}
	p.conn = conn
	return nil
}

// OpenChannel returns a new stream channel scoped to a topic.
func (p *NotifyProvider) OpenChannel(topic string) Channel {
	ch := &streamChannel{provider: p, topic: topic}

	p.mu.Lock()
	p.channels[ch] = struct{}{}
	p.mu.Unlock()

	return ch
}

// CloseChannel unregisters a channel. Idempotent.
func (p *NotifyProvider) CloseChannel(ch Channel) error {
	sc, ok := ch.(*streamChannel)
	if !ok {
		return errors.New("channel was not opened by this provider")
	}

	p.mu.Lock()
	delete(p.channels, sc)
	p.mu.Unlock()

	sc.close()
	return nil
}

// Close shuts down the listening loop and closes the database connection.
func (p *NotifyProvider) Close() error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.running = false
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		p.logger.WithError(err).Error("error when closing database connection")
		return err
	}
	return nil
}

// ensureRunning makes sure the shared LISTEN loop is up, redialing a dead
// connection first. Called on every channel subscribe so a reconnect after a
// transport failure gets a fresh connection.
func (p *NotifyProvider) ensureRunning() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	if p.conn == nil || !p.conn.IsAlive() {
		if p.connConfig == nil {
			return errors.New("notify provider has not been dialed")
		}
		conn, err := pgx.Connect(*p.connConfig)
		if err != nil {
			return err
		}
		p.conn = conn
	}

	if err := p.conn.Listen(p.channelName); err != nil {
		p.logger.WithError(err).Error("failed to listen on notify channel")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	go p.run(ctx, p.conn)

	p.logger.Infof("listening for notifications on `%s`", p.channelName)
	return nil
}

func (p *NotifyProvider) run(ctx context.Context, conn *pgx.Conn) {
	for {
		msg, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("shutting down notification loop")
				return
			}

			p.mu.Lock()
			p.running = false
			p.mu.Unlock()

			var netErr net.Error
			if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
				p.logger.WithError(err).Error("notification wait timed out")
				p.broadcastStatus(ChannelStatusTimedOut)
			} else {
				p.logger.WithError(err).Error("notification connection lost")
				p.broadcastStatus(ChannelStatusClosed)
			}
			return
		}

		p.processMessage(msg)
	}
}

func (p *NotifyProvider) processMessage(msg *pgx.Notification) {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
		p.logger.WithError(err).Error("failed to decode notification payload")
		return
	}

	change := &Change{
		Kind:      ParseChangeKind(payload.Action),
		Schema:    payload.Schema,
		Table:     payload.Table,
		NewRecord: payload.NewValues,
		OldRecord: payload.OldValues,
	}
	if payload.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			change.Timestamp = ts
		}
	}
	if change.Kind == "" {
		p.logger.WithField("action", payload.Action).Warn("dropping notification with unknown action")
		return
	}

	for _, ch := range p.snapshotChannels() {
		ch.dispatch(change)
	}
}

func (p *NotifyProvider) snapshotChannels() []*streamChannel {
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := make([]*streamChannel, 0, len(p.channels))
	for ch := range p.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (p *NotifyProvider) broadcastStatus(status ChannelStatus) {
	for _, ch := range p.snapshotChannels() {
		ch.notifyStatus(status)
	}
}

type streamBinding struct {
	pred EventPredicate
	fn   func(*Change)
}

// streamChannel is a single subscription scope over the provider's shared
// notification loop.
type streamChannel struct {
	provider *NotifyProvider
	topic    string

	mu       sync.Mutex
	bindings []streamBinding
	statusFn func(ChannelStatus)
	closed   bool
}

// On registers a handler for changes matching the predicate.
func (c *streamChannel) On(pred EventPredicate, fn func(*Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, streamBinding{pred: pred, fn: fn})
}

// Subscribe starts delivery and reports lifecycle transitions to the status
// callback.
func (c *streamChannel) Subscribe(status func(ChannelStatus)) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("channel is closed")
	}
	c.statusFn = status
	c.mu.Unlock()

	if err := c.provider.ensureRunning(); err != nil {
		return err
	}

	c.notifyStatus(ChannelStatusSubscribed)
	return nil
}

func (c *streamChannel) dispatch(change *Change) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	bindings := make([]streamBinding, len(c.bindings))
	copy(bindings, c.bindings)
	c.mu.Unlock()

	for _, b := range bindings {
		if b.pred.Matches(change) {
			b.fn(change)
		}
	}
}

func (c *streamChannel) notifyStatus(status ChannelStatus) {
	c.mu.Lock()
	fn := c.statusFn
	closed := c.closed
	c.mu.Unlock()

	if fn != nil && !closed {
		fn(status)
	}
}

func (c *streamChannel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.statusFn = nil
	c.bindings = nil
}
