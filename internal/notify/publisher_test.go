package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	channel string
	message any
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisherEncodesJSON(t *testing.T) {
	fake := &fakeRedis{}
	p := &RedisPublisher{client: fake, prefix: "tm"}

	err := p.Publish(context.Background(), TopicUnread, UnreadNotice{ActorKey: "k", Creator: "Steve", TicketIDs: []int{1, 4}})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if fake.channel != "tm.unread" {
		t.Errorf("expected channel tm.unread, got %q", fake.channel)
	}
	want := `{"actor_key":"k","creator":"Steve","ticket_ids":[1,4]}`
	if got := string(fake.message.([]byte)); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRedisPublisherReturnsClientError(t *testing.T) {
	p := &RedisPublisher{client: &fakeRedis{err: errors.New("no route")}}
	if err := p.Publish(context.Background(), TopicEvents, map[string]int{"a": 1}); err == nil {
		t.Error("expected error from client")
	}
	if got := p.Channel(TopicEvents); got != "events" {
		t.Errorf("expected bare topic without prefix, got %q", got)
	}
}
