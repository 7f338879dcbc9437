// Package mqttclient connects to the MQTT broker shared by the feedback
// sink and the pose subscriber.
package mqttclient

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/monitoring"
)

// Options configures a broker connection.
type Options struct {
	Broker         string // host:port
	ClientID       string
	ConnectTimeout time.Duration
}

// ClientOptions translates Options into paho options with automatic
// reconnection.
func ClientOptions(o Options) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", o.Broker))
	opts.SetClientID(o.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		monitoring.Diagf("[MQTT] connected broker=%s client_id=%s", o.Broker, o.ClientID)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		monitoring.Opsf("[MQTT] connection lost, reconnecting: %v", err)
	})
	return opts
}

// Connect dials the broker and waits for the connection or ctx.
func Connect(ctx context.Context, o Options) (mqtt.Client, error) {
	if o.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := mqtt.NewClient(ClientOptions(o))
	token := client.Connect()
	select {
	case <-token.Done():
	case <-time.After(timeout):
		return nil, fmt.Errorf("mqtt connection to %s timed out after %s", o.Broker, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}
