package notify

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "semsync"

// Publisher publishes raw messages. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Subscriber subscribes to subjects. *nats.Conn satisfies it.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Forwarder mirrors bus traffic onto NATS subjects:
//
//	<prefix>.notifications.<kind>   Notification
//	<prefix>.endpoints.status       StatusEvent
//
// and turns messages on <prefix>.endpoints.check into check requests.
type Forwarder struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewForwarder creates a forwarder publishing through pub.
func NewForwarder(pub Publisher, prefix string, logger *slog.Logger) *Forwarder {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{pub: pub, prefix: prefix, logger: logger}
}

// NotificationSubject returns the subject for notifications of kind.
func (f *Forwarder) NotificationSubject(kind Kind) string {
	return f.prefix + ".notifications." + string(kind)
}

// StatusSubject returns the subject for endpoint status events.
func (f *Forwarder) StatusSubject() string {
	return f.prefix + ".endpoints.status"
}

// CheckSubject returns the subject listened on for check requests.
func (f *Forwarder) CheckSubject() string {
	return f.prefix + ".endpoints.check"
}

// Attach starts forwarding bus traffic. The returned function detaches it.
func (f *Forwarder) Attach(bus *Bus) (cancel func()) {
	stopNotes := bus.Notifications.Subscribe(func(n Notification) {
		f.publish(f.NotificationSubject(n.Kind), n)
	})
	stopStatus := bus.EndpointStatus.Subscribe(func(ev StatusEvent) {
		f.publish(f.StatusSubject(), ev)
	})
	return func() {
		stopNotes()
		stopStatus()
	}
}

// ListenChecks subscribes to the check subject and publishes a check request
// on bus for every message received.
func (f *Forwarder) ListenChecks(sub Subscriber, bus *Bus) (*nats.Subscription, error) {
	return sub.Subscribe(f.CheckSubject(), f.checkHandler(bus))
}

func (f *Forwarder) checkHandler(bus *Bus) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var req CheckRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				req.Reason = string(msg.Data)
			}
		}
		if req.Reason == "" {
			req.Reason = "nats " + msg.Subject
		}
		bus.CheckRequested.Publish(req)
	}
}

func (f *Forwarder) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		f.logger.Warn("Failed to encode event", "subject", subject, "error", err)
		return
	}
	if err := f.pub.Publish(subject, data); err != nil {
		f.logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
