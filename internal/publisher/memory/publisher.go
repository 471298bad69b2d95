// Package memory keeps a bounded log of recent scrape events and can forward
// each one to another publisher.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

// Publisher records published payloads for inspection.
type Publisher struct {
	limit int
	next  archive.Publisher

	mu       sync.RWMutex
	seq      int
	messages []PublishedMessage
}

var _ archive.Publisher = (*Publisher)(nil)

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// New returns a Publisher that keeps the last limit messages (all of them when
// limit <= 0). When next is set every message is forwarded to it after being
// recorded.
func New(limit int, next archive.Publisher) *Publisher {
	return &Publisher{limit: limit, next: next}
}

// Publish records the message. Without a downstream publisher it returns a
// pseudo ID; otherwise it returns the downstream ID and error.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish canceled: %w", err)
	}
	p.mu.Lock()
	p.seq++
	msg := PublishedMessage{ID: fmt.Sprintf("memory-%d", p.seq), Topic: topic, Payload: payload}
	p.messages = append(p.messages, msg)
	if p.limit > 0 && len(p.messages) > p.limit {
		p.messages = append([]PublishedMessage(nil), p.messages[len(p.messages)-p.limit:]...)
	}
	p.mu.Unlock()

	if p.next == nil {
		return msg.ID, nil
	}
	return p.next.Publish(ctx, topic, payload)
}

// Messages returns the retained publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Events returns the retained scrape events, newest first.
func (p *Publisher) Events() []archive.ScrapeEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	events := make([]archive.ScrapeEvent, 0, len(p.messages))
	for i := len(p.messages) - 1; i >= 0; i-- {
		if event, ok := p.messages[i].Payload.(archive.ScrapeEvent); ok {
			events = append(events, event)
		}
	}
	return events
}
