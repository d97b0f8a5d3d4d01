package alerts

import "errors"

// Sentinel errors for alert forwarding.
var (
	// ErrNotConnected is returned by Send before the sink has connected.
	ErrNotConnected = errors.New("alerts: opc-ua sink not connected")

	// ErrConnectFailed is returned when every connection attempt failed.
	ErrConnectFailed = errors.New("alerts: opc-ua connection failed")

	// ErrWriteRejected is returned when the server refuses the node write.
	ErrWriteRejected = errors.New("alerts: opc-ua write rejected")

	// ErrInvalidNode is returned for an unparsable node reference.
	ErrInvalidNode = errors.New("alerts: invalid opc-ua node id")
)
