package l4feedback

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
)

// TokenPublisher is the part of mqtt.Client the sink uses.
type TokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSinkConfig configures an MQTTSink.
type MQTTSinkConfig struct {
	TopicPrefix    string // regions publish to TopicPrefix + "/" + region id
	QoS            byte
	PublishTimeout time.Duration
}

// MQTTSink mirrors regions onto retained MQTT topics, so a subscriber
// always sees the latest content of every region. A result whose verdict,
// text and colour match the last one sent for its region is not re-sent,
// even if the measured offset moved. Publish never waits on the broker;
// delivery failures are counted and logged.
type MQTTSink struct {
	client TokenPublisher
	cfg    MQTTSinkConfig

	mu   sync.Mutex
	last map[l3alignment.Region]shownContent

	published atomic.Uint64
	skipped   atomic.Uint64
	errors    atomic.Uint64
}

// shownContent is what a subscriber renders for a region.
type shownContent struct {
	aligned        bool
	message        string
	recommendation string
	color          string
	threshold      float64
}

func contentOf(v View) shownContent {
	return shownContent{
		aligned:        v.Aligned,
		message:        v.Message,
		recommendation: v.Recommendation,
		color:          v.Color,
		threshold:      v.Threshold,
	}
}

// MQTTSinkStats counts sink activity.
type MQTTSinkStats struct {
	Published uint64 `json:"published"`
	Skipped   uint64 `json:"skipped"`
	Errors    uint64 `json:"errors"`
}

// NewMQTTSink creates a sink publishing through client.
func NewMQTTSink(client TokenPublisher, cfg MQTTSinkConfig) *MQTTSink {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "posture/feedback"
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &MQTTSink{
		client: client,
		cfg:    cfg,
		last:   make(map[l3alignment.Region]shownContent),
	}
}

// Topic returns the topic for region.
func (s *MQTTSink) Topic(region l3alignment.Region) string {
	return fmt.Sprintf("%s/%s", s.cfg.TopicPrefix, region)
}

// Publish implements Sink.
func (s *MQTTSink) Publish(r l3alignment.Result) error {
	if !r.Region.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, r.Region)
	}
	view := ResultView(r)
	shown := contentOf(view)

	s.mu.Lock()
	if prev, ok := s.last[r.Region]; ok && prev == shown {
		s.mu.Unlock()
		s.skipped.Add(1)
		return nil
	}
	s.mu.Unlock()

	payload, err := json.Marshal(view)
	if err != nil {
		s.errors.Add(1)
		return fmt.Errorf("failed to marshal feedback for %s: %w", r.Region, err)
	}
	s.mu.Lock()
	s.last[r.Region] = shown
	s.mu.Unlock()

	topic := s.Topic(r.Region)
	token := s.client.Publish(topic, s.cfg.QoS, true, payload)
	s.published.Add(1)
	go s.await(topic, r.Region, token)
	return nil
}

func (s *MQTTSink) await(topic string, region l3alignment.Region, token mqtt.Token) {
	if !token.WaitTimeout(s.cfg.PublishTimeout) {
		s.fail(region)
		monitoring.Opsf("[MQTTSink] publish to %s timed out after %s", topic, s.cfg.PublishTimeout)
		return
	}
	if err := token.Error(); err != nil {
		s.fail(region)
		monitoring.Opsf("[MQTTSink] publish to %s failed: %v", topic, err)
	}
}

// fail forgets the cached payload so the next publish retries.
func (s *MQTTSink) fail(region l3alignment.Region) {
	s.mu.Lock()
	delete(s.last, region)
	s.mu.Unlock()
	s.errors.Add(1)
}

// Stats returns sink counters.
func (s *MQTTSink) Stats() MQTTSinkStats {
	return MQTTSinkStats{
		Published: s.published.Load(),
		Skipped:   s.skipped.Load(),
		Errors:    s.errors.Load(),
	}
}
