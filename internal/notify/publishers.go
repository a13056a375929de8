package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/redis"
)

// MQTTClient the publish side of internal/common/mqtt.Client
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher 通过 MQTT 发布告警（QoS 1，不保留）
type MQTTPublisher struct {
	client MQTTClient
	topic  string
	qos    byte
}

func NewMQTTPublisher(client MQTTClient, topic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos}
}

func (p *MQTTPublisher) Publish(_ context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := p.client.Publish(p.topic, p.qos, false, payload); err != nil {
		return fmt.Errorf("mqtt alert: %w", err)
	}
	return nil
}

// StreamPublisher 写入 Redis Stream（data + timestamp）
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, alert Alert) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, alert); err != nil {
		return fmt.Errorf("stream alert: %w", err)
	}
	return nil
}

// LogPublisher writes alerts to the service log.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, alert Alert) error {
	p.logger.Info("New critical conditions",
		zap.Strings("keys", alert.Keys),
		zap.Bool("sound", alert.Sound),
		zap.Time("raised_at", alert.RaisedAt),
	)
	return nil
}
