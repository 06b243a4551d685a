package redislib

import (
	"context"
	"strings"
	"time"

	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const sequencerPrefix = "seq:"
const sequencerExpirationTime = 24 * time.Hour

// CompareSequencers orders two S3 sequencers for the same key. The shorter
// value is right-padded with zeros before a lexical comparison.
func CompareSequencers(a string, b string) int {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	for len(a) < len(b) {
		a += "0"
	}
	for len(b) < len(a) {
		b += "0"
	}
	return strings.Compare(a, b)
}

// IsStaleEvent reports whether a newer event for key has already been
// recorded, and records sequencer otherwise. Without redis nothing is stale.
func IsStaleEvent(ctx rcontext.RequestContext, key string, sequencer string) (bool, error) {
	makeConnection()
	if ring == nil || sequencer == "" {
		return false, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx.Context, 20*time.Second)
	defer cancel()

	last, err := ring.Get(timeoutCtx, sequencerPrefix+key).Result()
	if err != nil && err != redis.Nil {
		return false, err
	}
	if err == redis.Nil {
		metrics.CacheMisses.With(prometheus.Labels{"cache": "sequencer"}).Inc()
	} else {
		metrics.CacheHits.With(prometheus.Labels{"cache": "sequencer"}).Inc()
		if CompareSequencers(sequencer, last) <= 0 {
			ctx.Log.Debugf("Event sequencer %s is not newer than %s", sequencer, last)
			return true, nil
		}
	}

	if err = ring.ForEachShard(timeoutCtx, func(ctx2 context.Context, client *redis.Client) error {
		return client.Set(ctx2, sequencerPrefix+key, sequencer, sequencerExpirationTime).Err()
	}); err != nil {
		return false, err
	}
	return false, nil
}
