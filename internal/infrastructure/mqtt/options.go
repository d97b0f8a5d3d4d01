package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultMaxReconnectInterval caps paho's reconnect back-off.
	defaultMaxReconnectInterval = 30 * time.Second

	// defaultQoS is used for status messages.
	defaultQoS = 1

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Options configures the status publisher's broker connection.
type Options struct {
	Host     string
	Port     int
	ClientID string

	// App names the status topic (tsa/<App>/status).
	App string

	// QoS for status messages. Zero means the default (1).
	QoS byte

	// TLS selects ssl:// instead of tcp://.
	TLS bool

	// ConnectTimeout bounds the initial connection. Zero uses the default.
	ConnectTimeout time.Duration
}

// OptionsFor derives publisher options from the application's alert broker.
func OptionsFor(alert *config.MQTTAlert, app, hostID string) Options {
	return Options{
		Host:     alert.Host,
		Port:     alert.Port,
		ClientID: fmt.Sprintf("tsa-supervisor-%s", hostID),
		App:      app,
	}
}

func (o Options) qos() byte {
	if o.QoS == 0 {
		return defaultQoS
	}
	return o.QoS
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return o.ConnectTimeout
}

// buildClientOptions creates paho MQTT options.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Auto-reconnect after the first successful connect
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if o.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port))
	opts.SetClientID(o.ClientID)

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// The publisher is best-effort: fail the first connect quickly, but
	// reconnect in the background once it has worked.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(defaultMaxReconnectInterval)

	opts.SetConnectTimeout(o.connectTimeout())
	opts.SetKeepAlive(defaultKeepAlive)

	if o.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes it if the supervisor disappears without a graceful
// Close (crash, OOM kill, hard exit after a config change).
//
// Topic: tsa/<app>/status
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, o Options) {
	payload := statusPayload(o.App, StateOffline, "unexpected_disconnect", time.Now())
	opts.SetWill(StatusTopic(o.App), string(payload), o.qos(), true)
}
