package l4feedback

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

func shoulderResult(aligned bool) l3alignment.Result {
	c := l3alignment.DefaultChecks()[0]
	v := c.Aligned
	if !aligned {
		v = c.Misaligned
	}
	return l3alignment.Result{Region: l3alignment.RegionShoulder, Aligned: aligned, Verdict: v, Metric: 12, Threshold: 50}
}

func TestBoard(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	b := NewBoard(clock)

	t.Run("starts unset", func(t *testing.T) {
		snap := b.Snapshot()
		require.Len(t, snap, 6)
		for i, e := range snap {
			assert.Equal(t, l3alignment.Regions[i], e.Region)
			assert.False(t, e.Set)
			assert.Empty(t, e.HTML())
		}
	})

	t.Run("publish overwrites wholesale", func(t *testing.T) {
		require.NoError(t, b.Publish(shoulderResult(false)))
		clock.Advance(time.Second)
		require.NoError(t, b.Publish(shoulderResult(true)))

		e, ok := b.Get(l3alignment.RegionShoulder)
		require.True(t, ok)
		assert.True(t, e.Set)
		assert.True(t, e.Aligned)
		assert.Equal(t, "Good Shoulder Alignment!", e.Message)
		assert.Equal(t, uint64(2), e.Revision)
		assert.Equal(t, start.Add(time.Second), e.UpdatedAt)
		assert.Equal(t, uint64(2), b.Revision())

		other, _ := b.Get(l3alignment.RegionHip)
		assert.False(t, other.Set)
	})

	t.Run("unknown region", func(t *testing.T) {
		err := b.Publish(l3alignment.Result{Region: "spine-feedback"})
		assert.ErrorIs(t, err, ErrUnknownRegion)
	})
}

func TestEntryHTML(t *testing.T) {
	t.Parallel()
	e := Entry{Result: shoulderResult(false), Set: true}
	assert.Equal(t,
		`<p style="color:#ffff00;">Shoulder Misalignment Detected!</p><p>Recommendation: Level your shoulders.</p>`,
		e.HTML())

	e.Message = "<b>"
	assert.Contains(t, e.HTML(), "&lt;b&gt;")
}

func TestNewView(t *testing.T) {
	t.Parallel()
	b := NewBoard(timeutil.NewMockClock(time.Unix(0, 0)))
	require.NoError(t, b.Publish(shoulderResult(true)))

	views := make([]View, 0, 6)
	for _, e := range b.Snapshot() {
		views = append(views, NewView(e))
	}
	assert.True(t, views[0].Set)
	assert.Equal(t, "#00ff00", views[0].Color)
	assert.NotNil(t, views[0].UpdatedAt)
	assert.Equal(t, View{Region: "hip-feedback"}, views[1])
}

func TestMultiSink(t *testing.T) {
	t.Parallel()
	var got []l3alignment.Region
	ok := SinkFunc(func(r l3alignment.Result) error {
		got = append(got, r.Region)
		return nil
	})
	boom := errors.New("boom")
	failing := SinkFunc(func(l3alignment.Result) error { return boom })

	err := MultiSink{failing, nil, ok}.Publish(shoulderResult(true))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []l3alignment.Region{l3alignment.RegionShoulder}, got, "later sinks still receive the result")
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{topic, qos, retained, payload.([]byte)})
	return newFakeToken(p.err)
}

func (p *fakePublisher) Calls() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.calls...)
}

func TestMQTTSink(t *testing.T) {
	t.Parallel()

	t.Run("publishes retained JSON and skips unchanged content", func(t *testing.T) {
		pub := &fakePublisher{}
		sink := NewMQTTSink(pub, MQTTSinkConfig{TopicPrefix: "studio/a", QoS: 1})

		require.NoError(t, sink.Publish(shoulderResult(false)))
		require.NoError(t, sink.Publish(shoulderResult(false)))
		require.NoError(t, sink.Publish(shoulderResult(true)))

		calls := pub.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "studio/a/shoulder-feedback", calls[0].topic)
		assert.Equal(t, byte(1), calls[0].qos)
		assert.True(t, calls[0].retained)

		var v View
		require.NoError(t, json.Unmarshal(calls[0].payload, &v))
		assert.False(t, v.Aligned)
		assert.Equal(t, "Shoulder Misalignment Detected!", v.Message)
		assert.Equal(t, "#ffff00", v.Color)

		stats := sink.Stats()
		assert.Equal(t, uint64(2), stats.Published)
		assert.Equal(t, uint64(1), stats.Skipped)
	})

	t.Run("metric drift alone is not re-sent", func(t *testing.T) {
		pub := &fakePublisher{}
		sink := NewMQTTSink(pub, MQTTSinkConfig{})

		for _, metric := range []float64{12, 13.5, 31, 49.9} {
			r := shoulderResult(true)
			r.Metric = metric
			require.NoError(t, sink.Publish(r))
		}
		require.Len(t, pub.Calls(), 1)
		assert.Equal(t, uint64(3), sink.Stats().Skipped)

		tilted := shoulderResult(false)
		tilted.Metric = 62
		require.NoError(t, sink.Publish(tilted))
		calls := pub.Calls()
		require.Len(t, calls, 2)
		var v View
		require.NoError(t, json.Unmarshal(calls[1].payload, &v))
		assert.Equal(t, 62.0, v.Metric)
	})

	t.Run("failed delivery is counted and retried", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("not connected")}
		sink := NewMQTTSink(pub, MQTTSinkConfig{})

		require.NoError(t, sink.Publish(shoulderResult(true)))
		assert.Eventually(t, func() bool { return sink.Stats().Errors == 1 }, time.Second, 5*time.Millisecond)

		require.NoError(t, sink.Publish(shoulderResult(true)))
		assert.Len(t, pub.Calls(), 2)
		assert.Equal(t, "posture/feedback/shoulder-feedback", pub.Calls()[0].topic)
	})

	t.Run("unknown region", func(t *testing.T) {
		sink := NewMQTTSink(&fakePublisher{}, MQTTSinkConfig{})
		assert.ErrorIs(t, sink.Publish(l3alignment.Result{Region: "x"}), ErrUnknownRegion)
	})
}
