package console

import "time"

// Command is one unit of remote input together with its origin and receipt
// time. Immutable once enqueued: it is owned exclusively by the queue until
// dequeued, then by the dispatcher for the duration of processing, then
// returned to the pool. History keeps value copies, never pooled pointers.
type Command struct {
	// Text is the trimmed command line as the client sent it
	Text string

	// ClientID identifies the originating connection (remote endpoint)
	ClientID string

	// ReceivedAt is when the reader accepted the command
	ReceivedAt time.Time
}

// reset clears a pooled Command before reuse.
func (c *Command) reset() {
	c.Text = ""
	c.ClientID = ""
	c.ReceivedAt = time.Time{}
}
