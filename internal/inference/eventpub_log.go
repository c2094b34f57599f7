package inference

import "github.com/rs/zerolog"

// LogPublisher writes each event as a debug log line.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Debug().Str("event", e.Name).Str("model", e.Model)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("inference event")
}
