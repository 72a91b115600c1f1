package pubsub

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes messages over Redis pub/sub so fan-out crosses process
// boundaries. Publish is best-effort: failures are logged, never surfaced.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(topic string, msg Message) {
	msg.Topic = topic
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("pubsub: marshal message for %s: %v", topic, err)
		return
	}
	if err := b.client.Publish(context.Background(), topic, data).Err(); err != nil {
		log.Printf("pubsub: publish to %s: %v", topic, err)
	}
}

// Subscribe bridges Redis channels onto a local Message channel. Payloads
// arrive as json.RawMessage since the concrete type is lost on the wire.
func (b *RedisBus) Subscribe(topics ...string) (<-chan Message, func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	sub := b.client.Subscribe(ctx, topics...)

	ch := make(chan Message, 16)
	go func() {
		defer close(ch)
		for redisMsg := range sub.Channel() {
			var envelope struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := json.Unmarshal([]byte(redisMsg.Payload), &envelope); err != nil {
				log.Printf("pubsub: decode message on %s: %v", redisMsg.Channel, err)
				continue
			}
			msg := Message{Topic: redisMsg.Channel, Type: envelope.Type, Payload: envelope.Payload}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		cancelCtx()
		_ = sub.Close()
	}
	return ch, cancel
}
