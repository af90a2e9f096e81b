package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/notify"
	"github.com/vinylkeeper/vinylkeeper-back/internal/infra/metrics"
	"go.uber.org/zap"
)

const payloadField = "payload"

// NotifyOutbox appends messages to a Redis stream. Delivery happens in
// NotifyConsumer, outside of the request that produced the message.
type NotifyOutbox struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewNotifyOutbox(client *redis.Client, stream string) *NotifyOutbox {
	return &NotifyOutbox{client: client, stream: stream, maxLen: 10_000}
}

func (o *NotifyOutbox) Enqueue(ctx context.Context, msg notify.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return customErrors.WrapInternal(err, "encode notification")
	}
	err = o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: o.maxLen,
		Approx: true,
		Values: map[string]any{payloadField: string(b)},
	}).Err()
	if err != nil {
		return customErrors.WrapInternal(err, "enqueue notification")
	}
	return nil
}

type ConsumerOptions struct {
	Stream   string
	Group    string
	Consumer string
	Timeout  time.Duration
	// Block is passed to XREADGROUP; a negative value means do not block.
	Block   time.Duration
	Batch   int64
	MinIdle time.Duration
	// MaxDeliveries bounds the attempts per message; past it the message is
	// moved to DeadLetter and acked.
	MaxDeliveries int64
	DeadLetter    string
}

type NotifyConsumer struct {
	client   *redis.Client
	notifier notify.Notifier
	logger   *zap.Logger
	opts     ConsumerOptions
}

func NewNotifyConsumer(client *redis.Client, notifier notify.Notifier, logger *zap.Logger, opts ConsumerOptions) *NotifyConsumer {
	if opts.Batch <= 0 {
		opts.Batch = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MinIdle <= 0 {
		opts.MinIdle = time.Minute
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	if opts.DeadLetter == "" {
		opts.DeadLetter = opts.Stream + ":dead"
	}
	return &NotifyConsumer{client: client, notifier: notifier, logger: logger, opts: opts}
}

func (c *NotifyConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Run reads and delivers until ctx is cancelled. Messages whose delivery
// failed stay pending and are picked up again by Reclaim.
func (c *NotifyConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(c.opts.MinIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Reclaim(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("notify reclaim failed", zap.Error(err))
			}
		default:
		}

		if _, err := c.ProcessOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("notify stream read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *NotifyConsumer) ProcessOnce(ctx context.Context) (int, error) {
	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.opts.Stream, ">"},
		Count:    c.opts.Batch,
		Block:    c.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, stream := range res {
		for _, msg := range stream.Messages {
			if c.handle(ctx, msg) {
				delivered++
			}
		}
	}
	return delivered, nil
}

// Reclaim walks the whole pending list page by page, retries entries idle
// for at least MinIdle and dead-letters those that ran out of deliveries.
func (c *NotifyConsumer) Reclaim(ctx context.Context) (int, error) {
	delivered := 0
	start := "-"
	for {
		pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: c.opts.Stream,
			Group:  c.opts.Group,
			Start:  start,
			End:    "+",
			Count:  c.opts.Batch,
		}).Result()
		if err != nil {
			return delivered, err
		}
		if len(pending) == 0 {
			return delivered, nil
		}

		var retry, dead []string
		for _, p := range pending {
			switch {
			case p.Idle < c.opts.MinIdle:
			case p.RetryCount >= c.opts.MaxDeliveries:
				dead = append(dead, p.ID)
			default:
				retry = append(retry, p.ID)
			}
		}

		if err := c.deadLetter(ctx, dead); err != nil {
			return delivered, err
		}
		n, err := c.retry(ctx, retry)
		delivered += n
		if err != nil {
			return delivered, err
		}

		if int64(len(pending)) < c.opts.Batch {
			return delivered, nil
		}
		if start, err = nextID(pending[len(pending)-1].ID); err != nil {
			return delivered, err
		}
	}
}

func (c *NotifyConsumer) retry(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	msgs, err := c.claim(ctx, ids)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, msg := range msgs {
		if c.handle(ctx, msg) {
			delivered++
		}
	}
	return delivered, nil
}

func (c *NotifyConsumer) deadLetter(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	msgs, err := c.claim(ctx, ids)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		err := c.client.XAdd(ctx, &redis.XAddArgs{
			Stream: c.opts.DeadLetter,
			Values: map[string]any{payloadField: msg.Values[payloadField], "origin": msg.ID},
		}).Err()
		if err != nil {
			return err
		}
		c.logger.Error("notification dead-lettered",
			zap.String("id", msg.ID),
			zap.Int64("max_deliveries", c.opts.MaxDeliveries),
		)
		metrics.NotificationsDelivered.WithLabelValues("dead").Inc()
		c.ack(ctx, msg.ID)
	}
	return nil
}

func (c *NotifyConsumer) claim(ctx context.Context, ids []string) ([]redis.XMessage, error) {
	return c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.opts.Stream,
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		MinIdle:  c.opts.MinIdle,
		Messages: ids,
	}).Result()
}

// nextID returns the smallest stream id greater than id.
func nextID(id string) (string, error) {
	ms, seq, ok := strings.Cut(id, "-")
	if !ok {
		return "", fmt.Errorf("stream id %q", id)
	}
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return "", fmt.Errorf("stream id %q: %w", id, err)
	}
	return ms + "-" + strconv.FormatUint(n+1, 10), nil
}

// handle acks delivered and undecodable messages. Anything else is left
// pending for a later attempt.
func (c *NotifyConsumer) handle(ctx context.Context, xm redis.XMessage) bool {
	raw, _ := xm.Values[payloadField].(string)
	var msg notify.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil || msg.To == "" {
		c.logger.Error("dropping undecodable notification", zap.String("id", xm.ID), zap.Error(err))
		metrics.NotificationsDelivered.WithLabelValues("dropped").Inc()
		c.ack(ctx, xm.ID)
		return false
	}

	if err := notify.SendWithTimeout(ctx, c.notifier, msg, c.opts.Timeout); err != nil {
		c.logger.Warn("notification delivery failed",
			zap.String("id", xm.ID),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		metrics.NotificationsDelivered.WithLabelValues("error").Inc()
		return false
	}

	metrics.NotificationsDelivered.WithLabelValues("ok").Inc()
	c.ack(ctx, xm.ID)
	return true
}

func (c *NotifyConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, id).Err(); err != nil {
		c.logger.Error("notify ack failed", zap.String("id", id), zap.Error(err))
	}
}
