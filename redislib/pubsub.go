package redislib

import (
	"context"
	"sync"

	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// subscription delivers the payloads of one channel until its context ends.
type subscription struct {
	ctx context.Context
	ch  chan []byte
}

var subscribeMutex = new(sync.Mutex)
var subscriptions = make(map[string][]*subscription)

// Publish broadcasts a change notification payload. Without redis it does nothing.
func Publish(ctx rcontext.RequestContext, channel string, payload []byte) error {
	makeConnection()
	if ring == nil {
		return nil
	}

	if ring.PoolStats().TotalConns == 0 {
		ctx.Log.Warn("Not broadcasting change to Redis - no connections available")
		return nil
	}

	r := ring.Publish(ctx.Context, channel, payload)
	if r.Err() != nil {
		if r.Err() == redis.Nil {
			ctx.Log.Warn("Not broadcasting change to Redis - no connections available")
			return nil
		}
		return r.Err()
	}
	metrics.PubSubMessages.With(prometheus.Labels{"channel": channel, "direction": "out"}).Inc()
	return nil
}

// Subscribe returns the payloads published on channel until ctx is done. The
// subscription survives a Reconnect. Returns nil when redis is not configured.
func Subscribe(ctx context.Context, channel string) <-chan []byte {
	makeConnection()
	if ring == nil {
		return nil
	}

	sub := &subscription{ctx: ctx, ch: make(chan []byte)}
	subscribeMutex.Lock()
	subscriptions[channel] = append(subscriptions[channel], sub)
	subscribeMutex.Unlock()
	sub.forward(channel, ring.Subscribe(ctx, channel))
	return sub.ch
}

// forward copies messages from ps until the subscription ends or ps closes,
// which happens when the ring it came from is closed.
func (s *subscription) forward(channel string, ps *redis.PubSub) {
	go func() {
		defer ps.Close()
		recvCh := ps.Channel()
		for {
			select {
			case <-s.ctx.Done():
				return
			case msg, ok := <-recvCh:
				if !ok {
					return
				}
				select {
				case s.ch <- []byte(msg.Payload):
					metrics.PubSubMessages.With(prometheus.Labels{"channel": channel, "direction": "in"}).Inc()
				case <-s.ctx.Done():
					return
				}
			}
		}
	}()
}

func resubscribeAll() {
	subscribeMutex.Lock()
	defer subscribeMutex.Unlock()
	if ring == nil {
		subscriptions = make(map[string][]*subscription)
		return
	}
	for channel, subs := range subscriptions {
		live := make([]*subscription, 0, len(subs))
		for _, sub := range subs {
			if sub.ctx.Err() != nil {
				continue
			}
			live = append(live, sub)
			sub.forward(channel, ring.Subscribe(sub.ctx, channel))
		}
		subscriptions[channel] = live
	}
}
