package schedule

import "time"

// TransitionEvent is emitted whenever a schedule's stage changes.
type TransitionEvent struct {
	JobID        string
	ScheduleID   string
	CategoryName string
	From         Stage
	To           Stage
	Actor        string
	At           time.Time
}

// Reporter fans stage transitions out to an observer, typically the server
// log. Emit never blocks the engine: when the buffer is full the event is
// dropped rather than slowing a transition behind a stalled consumer.
type Reporter struct {
	ch chan TransitionEvent
}

// NewReporter creates a Reporter buffering up to 64 events.
func NewReporter() *Reporter {
	return &Reporter{
		ch: make(chan TransitionEvent, 64),
	}
}

// Emit delivers an event if buffer space allows, else drops it.
func (r *Reporter) Emit(event TransitionEvent) {
	select {
	case r.ch <- event:
	default:
	}
}

// Subscribe returns the read side of the event feed.
func (r *Reporter) Subscribe() <-chan TransitionEvent {
	return r.ch
}

// Close ends the feed; subscribers' range loops terminate.
func (r *Reporter) Close() {
	close(r.ch)
}
