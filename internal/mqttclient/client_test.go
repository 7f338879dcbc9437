package mqttclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientOptions(t *testing.T) {
	opts := ClientOptions(Options{Broker: "broker.local:1883", ClientID: "posture-test"})

	assert.Equal(t, "posture-test", opts.ClientID)
	assert.True(t, opts.AutoReconnect)
	assert.Equal(t, 30*time.Second, opts.MaxReconnectInterval)
	if assert.Len(t, opts.Servers, 1) {
		assert.Equal(t, "tcp://broker.local:1883", opts.Servers[0].String())
	}
}

func TestConnectRequiresBroker(t *testing.T) {
	_, err := Connect(context.Background(), Options{})
	assert.Error(t, err)
}
