package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultQueue     = "taskflow:events"
	DefaultDeadQueue = "taskflow:events:dead"
)

type queuedEvent struct {
	Event    Event `json:"event"`
	Attempts int   `json:"attempts"`
	MaxTries int   `json:"max_tries"`
}

// RedisNotifier pushes events onto a redis list so a separate process
// (taskflow watch) can consume them.
type RedisNotifier struct {
	client *redis.Client
	queue  string
	log    logrus.FieldLogger
}

func NewRedisNotifier(client *redis.Client, queue string, log logrus.FieldLogger) *RedisNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisNotifier{client: client, queue: queue, log: log}
}

func (n *RedisNotifier) Notify(ctx context.Context, event Event) {
	if err := n.Enqueue(ctx, event); err != nil {
		n.log.WithError(err).WithField("event", string(event.Kind)).Warn("failed to enqueue notification")
	}
}

func (n *RedisNotifier) Enqueue(ctx context.Context, event Event) error {
	data, err := json.Marshal(queuedEvent{Event: event, MaxTries: 3})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return n.client.RPush(ctx, n.queue, data).Err()
}

func (n *RedisNotifier) QueueSize(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return n.client.LLen(ctx, n.queue).Result()
}

type Handler func(ctx context.Context, event Event) error

type ConsumerConfig struct {
	RedisClient *redis.Client
	Queue       string
	DeadQueue   string
	PollTimeout time.Duration
	Logger      logrus.FieldLogger
}

// Consumer pops events off the queue and dispatches them to the handler
// registered for their kind, falling back to the catch-all handler. Events
// whose handler keeps failing end up on the dead queue.
type Consumer struct {
	client      *redis.Client
	queue       string
	deadQueue   string
	pollTimeout time.Duration
	log         logrus.FieldLogger

	mu       sync.RWMutex
	handlers map[Kind]Handler
	fallback Handler
}

func NewConsumer(config ConsumerConfig) *Consumer {
	if config.Queue == "" {
		config.Queue = DefaultQueue
	}
	if config.DeadQueue == "" {
		config.DeadQueue = DefaultDeadQueue
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	return &Consumer{
		client:      config.RedisClient,
		queue:       config.Queue,
		deadQueue:   config.DeadQueue,
		pollTimeout: config.PollTimeout,
		log:         config.Logger,
		handlers:    make(map[Kind]Handler),
	}
}

func (c *Consumer) Handle(kind Kind, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = handler
}

func (c *Consumer) HandleAll(handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = handler
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.WithField("queue", c.queue).Info("starting notification consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("notification consumer stopped")
			return nil
		default:
		}

		if err := c.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.WithError(err).Warn("error processing notification")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext handles at most one event. It returns nil when the poll
// times out with an empty queue.
func (c *Consumer) ProcessNext(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, c.pollTimeout, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to pop event: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid pop result")
	}

	var qe queuedEvent
	if err := json.Unmarshal([]byte(result[1]), &qe); err != nil {
		return c.moveToDeadQueue(ctx, result[1], fmt.Errorf("failed to unmarshal event: %w", err))
	}

	return c.dispatch(ctx, &qe)
}

func (c *Consumer) dispatch(ctx context.Context, qe *queuedEvent) error {
	c.mu.RLock()
	handler, ok := c.handlers[qe.Event.Kind]
	if !ok {
		handler = c.fallback
	}
	c.mu.RUnlock()

	if handler == nil {
		c.log.WithField("event", string(qe.Event.Kind)).Debug("no handler for notification")
		return nil
	}

	hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := handler(hctx, qe.Event)
	if err == nil {
		return nil
	}

	qe.Attempts++
	if qe.Attempts < qe.MaxTries {
		c.log.WithError(err).Warnf("notification %s failed (attempt %d/%d), retrying",
			qe.Event.Kind, qe.Attempts, qe.MaxTries)
		data, merr := json.Marshal(qe)
		if merr != nil {
			return fmt.Errorf("failed to marshal event: %w", merr)
		}
		return c.client.RPush(ctx, c.queue, data).Err()
	}

	data, _ := json.Marshal(qe)
	return c.moveToDeadQueue(ctx, string(data), err)
}

func (c *Consumer) moveToDeadQueue(ctx context.Context, raw string, cause error) error {
	dead := map[string]interface{}{
		"original":  raw,
		"error":     cause.Error(),
		"failed_at": time.Now(),
	}

	data, err := json.Marshal(dead)
	if err != nil {
		return fmt.Errorf("failed to marshal dead event: %w", err)
	}

	return c.client.RPush(ctx, c.deadQueue, data).Err()
}
