// Package alerts forwards daemon alerts to an OPC-UA server.
//
// The daemon's alert handler POSTs {"message": "..."} to /opcua_alerts.
// Forwarder hands the message to a Sink and always answers 200 once the
// body parsed; OPCUASink writes it as the value of the node configured in
// alerts.opcua (ns=<namespace>;i=<node_id>).
//
// The sink connects in the background with up to ten attempts spaced ten
// seconds apart. In secure mode it uses Basic256Sha256 with SignAndEncrypt,
// the daemon's staged server certificate and the "admin" user.
package alerts
