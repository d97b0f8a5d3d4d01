// Package mqtt publishes the supervisor's lifecycle to an MQTT broker.
//
// When the application config names an alert broker (alerts.mqtt), the
// supervisor connects to it and publishes retained status messages on
// tsa/<app>/status as it moves through startup:
//
//	starting -> ready -> tasks_enabled -> stopping -> offline
//
// A Last Will and Testament on the same topic reports "offline" with reason
// "unexpected_disconnect" if the supervisor dies without closing the
// connection, which is what happens on the hard exit after a config change.
//
// # Usage
//
//	client, err := mqtt.Connect(mqtt.OptionsFor(app.MQTT(), env.AppName, env.Host))
//	if err != nil {
//	    logger.Warn("status publisher unavailable", "error", err)
//	}
//	defer client.Close()
//	_ = client.PublishStatus(mqtt.StateReady)
//
// # Thread Safety
//
// All Client methods are safe for concurrent use. Close and IsConnected
// accept a nil Client, so callers can skip nil checks when the broker was
// unreachable.
package mqtt
