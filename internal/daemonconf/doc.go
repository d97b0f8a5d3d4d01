// Package daemonconf renders the analytics daemon's TOML configuration.
//
// A template shipped with the image carries MQTT broker placeholders
// (MQTT_BROKER_HOST, MQTT_BROKER_PORT, MQTT_BROKER_NAME). Rendering fills
// them from the application config's alerts.mqtt section and registers
// each task's user-defined functions under [udf.functions.<name>], then
// writes the result where the daemon's -config flag points.
package daemonconf
