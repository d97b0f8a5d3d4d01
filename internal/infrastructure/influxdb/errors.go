package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrInvalidPoint) {
//	    // Reject the request
//	}
var (
	// ErrConnectionFailed indicates the server could not be reached.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrUnhealthy indicates the server answered but reported itself unhealthy.
	ErrUnhealthy = errors.New("influxdb: server not healthy")

	// ErrInvalidPoint indicates a data point cannot be encoded.
	ErrInvalidPoint = errors.New("influxdb: invalid point")
)
