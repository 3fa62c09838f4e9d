package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const notifyChannel = "notify:events"

// envelope wraps a notification with its addressee. An empty Username
// means the event is for every connected user except Except's
// connections.
type envelope struct {
	Username string          `json:"username,omitempty"`
	Except   string          `json:"except,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// RedisNotifier fans notifications out across nodes over a pub/sub
// channel. Every node subscribes; each delivers to the connections the
// addressee holds locally.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) NotifyUser(ctx context.Context, username string, event any) error {
	return n.publish(ctx, username, "", event)
}

func (n *RedisNotifier) NotifyOthers(ctx context.Context, exceptUsername string, event any) error {
	return n.publish(ctx, "", exceptUsername, event)
}

func (n *RedisNotifier) publish(ctx context.Context, username, except string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{Username: username, Except: except, Payload: payload})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, notifyChannel, raw).Err()
}

// Subscribe consumes published envelopes until ctx is done. Malformed
// envelopes are dropped; the subscription survives them.
func (n *RedisNotifier) Subscribe(
	ctx context.Context,
	handler func(ctx context.Context, username, except string, payload []byte),
) error {
	sub := n.rdb.Subscribe(ctx, notifyChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			handler(ctx, env.Username, env.Except, env.Payload)
		}
	}
}
