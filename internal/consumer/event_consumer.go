package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/redis"
)

// EventConsumer 床位事件消费者（Redis Streams 消费者组）
type EventConsumer struct {
	redisClient  *redis.Client
	sink         BedEventSink
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration
	now          func() time.Time
}

// NewEventConsumer 创建事件消费者
func NewEventConsumer(
	redisClient *redis.Client,
	sink BedEventSink,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
) *EventConsumer {
	return &EventConsumer{
		redisClient:  redisClient,
		sink:         sink,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        2 * time.Second,
		now:          time.Now,
	}
}

// Start 启动事件消费者，阻塞直到 ctx 结束
func (c *EventConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Bed event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	// 指数退避
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if _, err := c.consumeEvents(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume bed events",
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// consumeEvents reads one batch and returns how many events were applied.
func (c *EventConsumer) consumeEvents(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient, c.stream, c.groupName, c.consumerName, c.batchSize, c.block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	applied := 0
	for _, msg := range messages {
		ev, err := c.parseEvent(msg)
		if err != nil {
			// 无法解析的消息直接确认，避免反复投递
			c.logger.Warn("Dropping invalid bed event", zap.String("message_id", msg.ID), zap.Error(err))
		} else if apply(c.sink, ev, c.now()) {
			applied++
		}
		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return applied, nil
}

// parseEvent data 字段为 JSON，否则从扁平字段读取
func (c *EventConsumer) parseEvent(msg rediscommon.StreamMessage) (BedEvent, error) {
	if data, ok := msg.Values["data"].(string); ok {
		return decodeBedEvent([]byte(data))
	}
	str := func(k string) string {
		v, _ := msg.Values[k].(string)
		return v
	}
	ev := BedEvent{
		Kind:        str("kind"),
		BedID:       str("bed_id"),
		Status:      str("status"),
		Text:        str("text"),
		Description: str("description"),
		Actor:       str("actor"),
		Timestamp:   str("timestamp"),
	}
	return ev, validate(ev)
}
