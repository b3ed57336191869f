// Package notifytest provides an in-memory notify.Publisher for tests.
package notifytest

import (
	"context"
	"sync"
)

// Message is one payload captured by a Publisher.
type Message struct {
	Topic   string
	Payload any
}

// Publisher keeps every payload in memory.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Publish records the payload, or returns Err when set.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload})
	return nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}
