package influxdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	lp "github.com/influxdata/line-protocol"
)

// Point is a single measurement as accepted on the ingestion endpoint.
//
// Example:
//
//	{
//	    "measurement": "sensor_data",
//	    "tags": {"location": "factory1", "device": "sensorA"},
//	    "fields": {"temperature": 23.5, "humidity": 60},
//	    "timestamp": 1718000000000000000
//	}
type Point struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags"`
	Fields      map[string]any    `json:"fields"`

	// Timestamp is epoch nanoseconds. Nil means "now".
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// Validate checks that the point can be encoded.
func (p Point) Validate() error {
	if p.Measurement == "" {
		return fmt.Errorf("%w: measurement is required", ErrInvalidPoint)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidPoint)
	}
	return nil
}

// LineProtocol encodes p as one line of InfluxDB line protocol with
// nanosecond precision. now supplies the timestamp when p has none.
//
// Encoding goes through the line-protocol encoder the client's write
// service uses: write.PointToLineProtocol emits a comma after the
// measurement even when there are no tags.
func (p Point) LineProtocol(now func() time.Time) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	ts := now()
	if p.Timestamp != nil {
		ts = time.Unix(0, *p.Timestamp)
	}

	point := write.NewPoint(p.Measurement, p.Tags, p.Fields, ts)

	var sb strings.Builder
	enc := lp.NewEncoder(&sb)
	enc.SetFieldTypeSupport(lp.UintSupport)
	enc.FailOnFieldErr(true)
	enc.SetPrecision(time.Nanosecond)
	if _, err := enc.Encode(point); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPoint, err)
	}

	line := strings.TrimSuffix(sb.String(), "\n")
	if line == "" {
		return "", fmt.Errorf("%w: no encodable fields", ErrInvalidPoint)
	}
	return line, nil
}
