package pubsub

import "sync"

// Broker is an in-process topic fan-out. Subscribers get a buffered channel;
// when a subscriber is slow the oldest pending message is dropped rather than
// blocking the publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Message]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Message]struct{})}
}

func (b *Broker) Publish(topic string, msg Message) {
	msg.Topic = topic

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

func (b *Broker) Subscribe(topics ...string) (<-chan Message, func()) {
	ch := make(chan Message, 16)

	b.mu.Lock()
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[chan Message]struct{})
		}
		b.subs[topic][ch] = struct{}{}
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			for _, topic := range topics {
				delete(b.subs[topic], ch)
				if len(b.subs[topic]) == 0 {
					delete(b.subs, topic)
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
