package progress

import "context"

// Sink consumes batches of events emitted by the hub. Implementations must
// tolerate duplicate Close calls.
type Sink interface {
	Consume(ctx context.Context, events []Event) error
	Close(ctx context.Context) error
}
