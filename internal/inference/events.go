package inference

// Event is an orchestrator lifecycle event: a name, the model and optional fields.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

const (
	EventStart    = "inference_start"
	EventFallback = "inference_fallback"
	EventSuccess  = "inference_success"
	EventFailure  = "inference_failure"
)

// EventPublisher receives orchestrator events. Publish must not block or panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
