package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDispatcher records notifications in memory. It backs tests and
// single-process deployments without a broker.
type MemoryDispatcher struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

func (d *MemoryDispatcher) Trigger(ctx context.Context, msg Message) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	msg.ID = uuid.New()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return msg.ID, nil
}

// Messages returns a snapshot of everything triggered so far.
func (d *MemoryDispatcher) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// ByTemplate returns the triggered messages carrying the given template key.
func (d *MemoryDispatcher) ByTemplate(key string) []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Message
	for _, m := range d.messages {
		if m.TemplateKey == key {
			out = append(out, m)
		}
	}
	return out
}
