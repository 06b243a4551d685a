package redislib

import (
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/mindvessel/bluebucket/common/rcontext"
)

func GetMutex(key string, expiration time.Duration) *redsync.Mutex {
	makeConnection()
	if rs == nil {
		return nil
	}

	// Prefixed so lock names cannot collide with cached sequencers.
	return rs.NewMutex("mutex-"+key, redsync.WithExpiry(expiration))
}

// MutexLocker hands out redsync mutexes. Without redis every lock succeeds
// immediately and guards nothing.
type MutexLocker struct {
	Expiry time.Duration
}

func (l *MutexLocker) Lock(ctx rcontext.RequestContext, key string) (func(), error) {
	mutex := GetMutex(key, l.Expiry)
	if mutex == nil {
		return func() {}, nil
	}
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	ctx.Log.Debug("Acquired lock on ", key)
	return func() {
		if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
			ctx.Log.Warn("Lock on ", key, " expired before release: ", err)
		}
	}, nil
}
