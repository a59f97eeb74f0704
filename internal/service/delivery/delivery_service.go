package delivery

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"farm2go/internal/config"
	"farm2go/internal/model"
	"farm2go/internal/repository"
	"farm2go/internal/service/notify"
	"farm2go/pkg/log"
	"farm2go/pkg/push"
)

// Delivery sources, carried on every event so clients and tests can see
// which transport won.
const (
	SourceRedis = "redis"
	SourcePush  = "push"
	SourcePoll  = "poll"
)

// Event is one notification delivered to a subscriber.
type Event struct {
	Notification *model.Notification
	Source       string
}

// DeliveryService fans persisted notifications out to live subscribers
// over three transports: Redis pub/sub as the primary channel, the
// in-process push broker as the secondary, and database polling as the
// fallback. A notification may arrive on more than one transport; the
// per-subscription dedup ring keeps each ID from surfacing twice.
type DeliveryService struct {
	cfg         config.DeliveryConfig
	topicPrefix string
	redisClient *redis.Client
	broker      *push.Broker
	repo        repository.NotificationRepository
}

// NewDeliveryService creates the hybrid delivery service
func NewDeliveryService(
	cfg config.DeliveryConfig,
	topicPrefix string,
	redisClient *redis.Client,
	broker *push.Broker,
	repo repository.NotificationRepository,
) *DeliveryService {
	return &DeliveryService{
		cfg:         cfg,
		topicPrefix: topicPrefix,
		redisClient: redisClient,
		broker:      broker,
		repo:        repo,
	}
}

// Subscription is one recipient's live notification stream. Close stops
// every transport goroutine and closes the event channel.
type Subscription struct {
	events    chan *Event
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	dedup *dedupRing

	// Unix nano of the last sign of life on the primary transport.
	// Polling stands down while this is fresh.
	primarySeen atomic.Int64

	mu    sync.Mutex
	since time.Time
}

// Events returns the subscriber's event channel.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Close tears the subscription down and waits for its goroutines.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		close(s.events)
	})
}

// Subscribe opens a live stream for recipientID. The stream lives until
// ctx is cancelled or Close is called.
func (d *DeliveryService) Subscribe(ctx context.Context, recipientID uint64) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		events: make(chan *Event, d.cfg.PushBuffer),
		cancel: cancel,
		dedup:  newDedupRing(d.cfg.DedupCapacity),
		since:  time.Now(),
	}

	topic := notify.Topic(d.topicPrefix, recipientID)

	brokerCh, brokerCancel, err := d.broker.Subscribe(topic)
	if err != nil {
		cancel()
		return nil, err
	}

	sub.wg.Add(3)
	go d.runPrimary(subCtx, sub, topic)
	go d.runSecondary(subCtx, sub, brokerCh, brokerCancel)
	go d.runPolling(subCtx, sub, recipientID)

	log.WithFields(map[string]interface{}{
		"recipient_id": recipientID,
		"topic":        topic,
	}).Debug("Notification subscription opened")

	return sub, nil
}

// runPrimary consumes Redis pub/sub, the cross-process realtime channel.
// A periodic ping doubles as the health check; ping failure drops the
// connection and resubscribes, and zeroes the freshness mark so polling
// takes over in the meantime.
func (d *DeliveryService) runPrimary(ctx context.Context, sub *Subscription, topic string) {
	defer sub.wg.Done()

	for {
		pubsub := d.redisClient.Subscribe(ctx, topic)
		alive := d.consumePrimary(ctx, sub, pubsub)
		pubsub.Close()

		if ctx.Err() != nil {
			return
		}
		if !alive {
			sub.primarySeen.Store(0)
			log.Warnf("Primary notification channel lost on %s, reconnecting", topic)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

// consumePrimary reads one pub/sub connection until it dies or ctx ends.
// Returns false when the connection should be considered unhealthy.
func (d *DeliveryService) consumePrimary(ctx context.Context, sub *Subscription, pubsub *redis.PubSub) bool {
	ch := pubsub.Channel()
	ticker := time.NewTicker(d.cfg.HealthCheckInterval)
	defer ticker.Stop()

	sub.primarySeen.Store(time.Now().UnixNano())

	for {
		select {
		case <-ctx.Done():
			return true
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			sub.primarySeen.Store(time.Now().UnixNano())
			d.emitPayload(ctx, sub, []byte(msg.Payload), SourceRedis)
		case <-ticker.C:
			if err := pubsub.Ping(ctx); err != nil {
				return false
			}
			sub.primarySeen.Store(time.Now().UnixNano())
		}
	}
}

// runSecondary consumes the in-process broker.
func (d *DeliveryService) runSecondary(ctx context.Context, sub *Subscription, ch <-chan []byte, cancel func()) {
	defer sub.wg.Done()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-ch:
			if !ok {
				return
			}
			d.emitPayload(ctx, sub, payload, SourcePush)
		}
	}
}

// runPolling is the fallback transport. Each tick it reads rows newer
// than the watermark, but only when the primary channel has been silent
// for longer than the debounce window.
func (d *DeliveryService) runPolling(ctx context.Context, sub *Subscription, recipientID uint64) {
	defer sub.wg.Done()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if d.primaryFresh(sub) {
			continue
		}

		pollCtx, cancel := context.WithTimeout(ctx, d.cfg.PollTimeout)
		rows, err := d.repo.ListSince(pollCtx, recipientID, sub.watermark(), d.cfg.PushBuffer)
		cancel()
		if err != nil {
			log.Warnf("Notification poll for recipient %d failed: %v", recipientID, err)
			continue
		}

		for _, n := range rows {
			d.emit(ctx, sub, n, SourcePoll)
		}
	}
}

func (d *DeliveryService) primaryFresh(sub *Subscription) bool {
	seen := sub.primarySeen.Load()
	if seen == 0 {
		return false
	}
	return time.Since(time.Unix(0, seen)) < d.cfg.DebounceWindow
}

func (d *DeliveryService) emitPayload(ctx context.Context, sub *Subscription, payload []byte, source string) {
	var n model.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		log.Warnf("Dropping malformed notification payload from %s: %v", source, err)
		return
	}
	d.emit(ctx, sub, &n, source)
}

func (d *DeliveryService) emit(ctx context.Context, sub *Subscription, n *model.Notification, source string) {
	if !sub.dedup.observe(n.ID) {
		return
	}

	sub.advanceWatermark(n.CreatedAt)

	select {
	case sub.events <- &Event{Notification: n, Source: source}:
	case <-ctx.Done():
	}
}

func (s *Subscription) watermark() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since
}

func (s *Subscription) advanceWatermark(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.since) {
		s.since = t
	}
}
