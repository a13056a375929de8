package consumer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	mqttcommon "github.com/ruokas/lovos-dashboard-sub000/internal/common/mqtt"
)

// MQTTSubscriber the subscribe side of internal/common/mqtt.Client
type MQTTSubscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
}

// MQTTBedEvents 通过 MQTT 主题接收床位事件（与 Redis Stream 相同的 JSON 格式）
type MQTTBedEvents struct {
	sink   BedEventSink
	logger *zap.Logger
	now    func() time.Time
}

func NewMQTTBedEvents(sink BedEventSink, logger *zap.Logger) *MQTTBedEvents {
	return &MQTTBedEvents{sink: sink, logger: logger, now: time.Now}
}

func (m *MQTTBedEvents) Subscribe(client MQTTSubscriber, topic string, qos byte) error {
	if err := client.Subscribe(topic, qos, m.Handle); err != nil {
		return err
	}
	m.logger.Info("Subscribed to bed events", zap.String("topic", topic))
	return nil
}

// Handle decodes one payload and applies it.
func (m *MQTTBedEvents) Handle(topic string, payload []byte) error {
	ev, err := decodeBedEvent(payload)
	if err != nil {
		return fmt.Errorf("topic %s: %w", topic, err)
	}
	apply(m.sink, ev, m.now())
	return nil
}
