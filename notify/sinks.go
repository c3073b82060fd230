package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rfid_tool_kiosk/lending"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "kiosk:events"

// RedisSink publishes events on a pub/sub channel so other kiosk instances
// can relay them to their own screens.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisSink(rdb *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{rdb: rdb, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, b).Err()
}

// NATSSink publishes to <prefix>.<event type>.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSSink(conn *nats.Conn, prefix string) *NATSSink {
	return &NATSSink{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Subject(eventType string) string {
	if s.prefix == "" {
		return eventType
	}
	return s.prefix + "." + eventType
}

func (s *NATSSink) Publish(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.conn.Publish(s.Subject(ev.Type), b)
}

// MQTT topics the kiosk publishes on. Hardware scans arrive on a separate
// topic, so identified scans go out on rfid/identified.
const (
	TopicTransactionUpdate = "transaction/update"
	TopicToolStatus        = "tool/status"
	TopicRFIDIdentified    = "rfid/identified"
	topicFallbackPrefix    = "kiosk/"
)

type MQTTSink struct {
	client      mqtt.Client
	qosCritical byte
	qosNormal   byte
}

func NewMQTTSink(client mqtt.Client, qosCritical, qosNormal byte) *MQTTSink {
	return &MQTTSink{client: client, qosCritical: qosCritical, qosNormal: qosNormal}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Route returns the topic and QoS for an event type.
func (s *MQTTSink) Route(eventType string) (string, byte) {
	switch eventType {
	case lending.EventTransactionUpdate:
		return TopicTransactionUpdate, s.qosCritical
	case lending.EventToolStatus:
		return TopicToolStatus, s.qosCritical
	case lending.EventRFIDScan:
		return TopicRFIDIdentified, s.qosNormal
	default:
		return topicFallbackPrefix + eventType, s.qosNormal
	}
}

func (s *MQTTSink) Publish(ctx context.Context, ev Event) error {
	if !s.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt: not connected")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic, qos := s.Route(ev.Type)
	tok := s.client.Publish(topic, qos, false, b)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
