package broker

import (
	"context"
	"log"
	"sync"

	"flowroute/pkg/envelope"

	"github.com/redis/go-redis/v9"
)

type HandlerFunc func(envelope.Envelope)

// Broker moves envelopes between processes over Redis pub/sub. The hub
// uses it to mirror broadcasts across instances and to let external
// producers push room events.
type Broker struct {
	rdb     *redis.Client
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	handler HandlerFunc
}

func New(redisURL string) *Broker {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("[BROKER] invalid redis url:", err)
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithCancel(context.Background())

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("[BROKER] redis ping failed:", err)
	}

	return &Broker{rdb: rdb, ctx: ctx, cancel: cancel}
}

func (b *Broker) Publish(channel string, env envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(b.ctx, channel, data).Err()
}

// Subscribe starts a reader on the given channels. Each decodable
// envelope is handed to the registered handler on its own goroutine.
func (b *Broker) Subscribe(channels ...string) {
	sub := b.rdb.Subscribe(b.ctx, channels...)
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := envelope.Unmarshal([]byte(msg.Payload))
				if err != nil {
					continue
				}

				b.mu.RLock()
				fn := b.handler
				b.mu.RUnlock()
				if fn != nil {
					go fn(env)
				}
			}
		}
	}()
}

func (b *Broker) OnMessage(fn HandlerFunc) {
	b.mu.Lock()
	b.handler = fn
	b.mu.Unlock()
}

func (b *Broker) Close() {
	b.cancel()
	b.rdb.Close()
}
