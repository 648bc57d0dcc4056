package progress

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/seantiz/frontier/internal/model"
)

const mqttTimeout = 5 * time.Second

// mqttPublisher is the part of mqtt.Client the sink uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes each snapshot as retained JSON on {prefix}/{sweep_id},
// so a late MQTT subscriber immediately sees the current state of a sweep.
type MQTTSink struct {
	client mqttPublisher
	conn   mqtt.Client
	prefix string
}

// NewMQTTSink connects to broker (e.g. tcp://localhost:1883).
func NewMQTTSink(broker, prefix, clientID string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(mqttTimeout)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}
	return &MQTTSink{client: c, conn: c, prefix: prefix}, nil
}

// Publish implements Sink.
func (s *MQTTSink) Publish(snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	token := s.client.Publish(s.prefix+"/"+snap.SweepID, 0, true, data)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("mqtt publish %s: timed out", snap.SweepID)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	if s.conn != nil {
		s.conn.Disconnect(250)
	}
}
