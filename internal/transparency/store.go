package transparency

import "context"

// Store is the append-only persistence boundary for the transparency log.
// Implementations must preserve insertion order and never expose update or
// delete operations; the log service only ever appends and reads.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// List returns entries matching the filter in append order.
	List(ctx context.Context, filter Filter) ([]Entry, error)
}
