package mqtt

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// TopicPrefix is the base for all supervisor topics.
const TopicPrefix = "tsa"

// State is a supervisor lifecycle state published on the status topic.
type State string

// Lifecycle states, in the order a healthy start publishes them.
const (
	StateStarting     State = "starting"
	StateReady        State = "ready"
	StateTasksEnabled State = "tasks_enabled"
	StateStopping     State = "stopping"
	StateOffline      State = "offline"
)

// StatusTopic returns the retained status topic for an app.
//
// Example: tsa/Kapacitor/status
func StatusTopic(app string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, app)
}

// StatusMessage is the JSON body published on the status topic.
type StatusMessage struct {
	App       string `json:"app"`
	State     State  `json:"state"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(app string, state State, reason string, at time.Time) []byte {
	// Marshalling a flat struct of strings cannot fail.
	data, _ := json.Marshal(StatusMessage{
		App:       app,
		State:     state,
		Reason:    reason,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
	return data
}

// PublishStatus publishes state as a retained status message.
func (c *Client) PublishStatus(state State) error {
	return c.PublishStatusReason(state, "")
}

// PublishStatusReason publishes state with a reason, e.g. the error that
// made the supervisor stop.
func (c *Client) PublishStatusReason(state State, reason string) error {
	payload := statusPayload(c.opts.App, state, reason, time.Now())
	return c.Publish(StatusTopic(c.opts.App), payload, c.opts.qos(), true)
}
