// Package notify forwards batch run events to a message queue so that
// other processes can follow a run.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valpere/glossator/internal/orchestrator"
)

const (
	DefaultQueue   = "glossator.batch"
	publishTimeout = 5 * time.Second
)

const (
	EventStateUpdate = "stateUpdate"
	EventDone        = "done"
)

type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Source is the part of an orchestrator a Forwarder listens to.
type Source interface {
	OnStateUpdate(fn func(orchestrator.State)) (off func())
	OnDone(fn func(orchestrator.State)) (off func())
}

// Event is the JSON message published for every forwarded event.
type Event struct {
	Type      string             `json:"type"`
	ProjectID string             `json:"projectId"`
	State     orchestrator.State `json:"state"`
	Time      time.Time          `json:"time"`
}

type Forwarder struct {
	pub       Publisher
	queue     string
	projectID string
	log       func(string)
	now       func() time.Time
}

// NewForwarder publishes to queue, or DefaultQueue when queue is empty.
// Publishing errors go to log and never reach the run.
func NewForwarder(pub Publisher, queue, projectID string, log func(string)) *Forwarder {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = func(string) {}
	}
	return &Forwarder{pub: pub, queue: queue, projectID: projectID, log: log, now: time.Now}
}

// Attach forwards every state update and the final state of src.
func (f *Forwarder) Attach(src Source) (detach func()) {
	offState := src.OnStateUpdate(func(s orchestrator.State) { f.forward(EventStateUpdate, s) })
	offDone := src.OnDone(func(s orchestrator.State) { f.forward(EventDone, s) })
	return func() {
		offState()
		offDone()
	}
}

func (f *Forwarder) forward(typ string, s orchestrator.State) {
	body, err := json.Marshal(Event{Type: typ, ProjectID: f.projectID, State: s, Time: f.now().UTC()})
	if err != nil {
		f.log("[Notify] failed to encode event: " + err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.pub.Publish(ctx, f.queue, body); err != nil {
		f.log("[Notify] " + err.Error())
	}
}
