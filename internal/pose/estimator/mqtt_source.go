package estimator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/monitoring"
)

// TopicSubscriber is the subset of mqtt.Client used by MQTTSource.
type TopicSubscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// MQTTSource receives poses messages published by an edge estimator.
// Each MQTT message carries one msgpack Message body without a length
// prefix; skeleton messages are ignored.
type MQTTSource struct {
	client  TopicSubscriber
	topic   string
	qos     byte
	timeout time.Duration

	received atomic.Uint64
	invalid  atomic.Uint64
}

// NewMQTTSource creates a source for topic.
func NewMQTTSource(client TopicSubscriber, topic string, qos byte) *MQTTSource {
	return &MQTTSource{client: client, topic: topic, qos: qos, timeout: 5 * time.Second}
}

// Run subscribes and delivers batches until ctx is cancelled.
func (s *MQTTSource) Run(ctx context.Context, onPoses DetectionFunc) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		m, err := DecodeMessage(msg.Payload())
		if err != nil {
			if n := s.invalid.Add(1); n == 1 || n%100 == 0 {
				monitoring.Opsf("[Estimator] dropping invalid MQTT pose message on %s (%d total): %v", msg.Topic(), n, err)
			}
			return
		}
		if m.Type != TypePoses {
			return
		}
		s.received.Add(1)
		onPoses(PosesFromWire(m.Poses))
	}

	if err := waitToken(ctx, s.client.Subscribe(s.topic, s.qos, handler), s.timeout); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}
	monitoring.Opsf("[Estimator] subscribed to MQTT poses on %s", s.topic)

	<-ctx.Done()
	if err := waitToken(context.Background(), s.client.Unsubscribe(s.topic), s.timeout); err != nil {
		monitoring.Diagf("[Estimator] unsubscribe from %s failed: %v", s.topic, err)
	}
	return ctx.Err()
}

// Received returns the number of batches delivered and rejected.
func (s *MQTTSource) Received() (delivered, invalid uint64) {
	return s.received.Load(), s.invalid.Load()
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
