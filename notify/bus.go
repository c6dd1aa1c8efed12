package notify

import (
	"time"
)

// Kind is the severity of a notification.
type Kind string

// Notification kinds.
const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
)

// Notification is a user-facing message produced by the core.
type Notification struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
	Time    time.Time         `json:"time"`
}

// StatusEvent records an endpoint status transition.
type StatusEvent struct {
	URL   string    `json:"url"`
	Type  string    `json:"type"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// CheckRequest asks the health monitor to probe endpoints now.
type CheckRequest struct {
	// Reason is free text for logs.
	Reason string `json:"reason,omitempty"`
}

// Bus groups the topics shared by the core components. A nil *Bus discards
// everything published through its helper methods.
type Bus struct {
	Notifications  Topic[Notification]
	EndpointStatus Topic[StatusEvent]
	CheckRequested Topic[CheckRequest]

	now func() time.Time
}

// NewBus creates a bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Notify publishes a notification.
func (b *Bus) Notify(kind Kind, message string, context map[string]string) {
	if b == nil {
		return
	}
	b.Notifications.Publish(Notification{
		Kind:    kind,
		Message: message,
		Context: context,
		Time:    b.clock(),
	})
}

// Error publishes an error notification with err in its context.
func (b *Bus) Error(message string, err error, context map[string]string) {
	if b == nil {
		return
	}
	ctx := make(map[string]string, len(context)+1)
	for k, v := range context {
		ctx[k] = v
	}
	if err != nil {
		ctx["error"] = err.Error()
	}
	b.Notify(KindError, message, ctx)
}

// Status publishes an endpoint status transition.
func (b *Bus) Status(ev StatusEvent) {
	if b == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = b.clock()
	}
	b.EndpointStatus.Publish(ev)
}

// RequestCheck asks for an immediate health check.
func (b *Bus) RequestCheck(reason string) {
	if b == nil {
		return
	}
	b.CheckRequested.Publish(CheckRequest{Reason: reason})
}

func (b *Bus) clock() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}
