package rfid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rfid_tool_kiosk/lending"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Ingest feeds hardware events published over MQTT into the reader and the
// notifier.
type Ingest struct {
	reader   Reader
	notifier lending.Notifier
	log      zerolog.Logger
	timeout  time.Duration
}

func NewIngest(reader Reader, notifier lending.Notifier, log zerolog.Logger) *Ingest {
	return &Ingest{
		reader:   reader,
		notifier: notifier,
		log:      log.With().Str("component", "rfid-ingest").Logger(),
		timeout:  2 * time.Second,
	}
}

// Subscribe registers the scan and sensor handlers on a connected client.
func (in *Ingest) Subscribe(client mqtt.Client, scanTopic, sensorTopic string, qos byte) error {
	subs := map[string]mqtt.MessageHandler{}
	if scanTopic != "" {
		subs[scanTopic] = in.HandleScan
	}
	if sensorTopic != "" {
		subs[sensorTopic] = in.HandleSensor
	}
	for topic, h := range subs {
		tok := client.Subscribe(topic, qos, h)
		if !tok.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("mqtt subscribe %s: timed out", topic)
		}
		if err := tok.Error(); err != nil {
			return err
		}
		in.log.Info().Str("topic", topic).Msg("subscribed")
	}
	return nil
}

func (in *Ingest) HandleScan(_ mqtt.Client, msg mqtt.Message) {
	uid := ParseScanPayload(msg.Payload())
	if uid == "" {
		in.log.Debug().Str("topic", msg.Topic()).Msg("scan without uid ignored")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
	defer cancel()
	if err := in.reader.Present(ctx, uid); err != nil {
		in.log.Warn().Err(err).Msg("record scan")
	}
}

func (in *Ingest) HandleSensor(_ mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	sensor := topic[strings.LastIndex(topic, "/")+1:]

	var value any
	if err := json.Unmarshal(msg.Payload(), &value); err != nil {
		value = strings.TrimSpace(string(msg.Payload()))
	}
	if in.notifier != nil {
		in.notifier.Notify(lending.EventSensorData, map[string]any{
			"sensor": sensor,
			"value":  value,
		})
	}
}

// ParseScanPayload accepts {"rfid_uid": ".."}, {"uid": ".."}, a JSON string
// or the bare UID.
func ParseScanPayload(b []byte) string {
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return ""
	}
	switch raw[0] {
	case '{':
		var p struct {
			RFIDUID string `json:"rfid_uid"`
			UID     string `json:"uid"`
		}
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return ""
		}
		if p.RFIDUID != "" {
			return strings.TrimSpace(p.RFIDUID)
		}
		return strings.TrimSpace(p.UID)
	case '"':
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return raw
}
