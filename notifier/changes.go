package notifier

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/events"
	"github.com/mindvessel/bluebucket/redislib"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/sirupsen/logrus"
)

const (
	eventSaved   = "ObjectCreated:Put"
	eventRemoved = "ObjectRemoved:Delete"
)

// ArtifactNotifier announces saved and removed artifacts on a redis channel.
// Artifacts live outside any fixed prefix, so bucket notifications cannot be
// scoped to them.
type ArtifactNotifier struct {
	channel string
	Now     func() time.Time
}

func NewArtifactNotifier(channel string) *ArtifactNotifier {
	return &ArtifactNotifier{channel: channel, Now: time.Now}
}

// ChangeMessage builds a notification message in the storage record format
// for one saved or removed object.
func ChangeMessage(bucket string, key string, removed bool, now time.Time) ([]byte, error) {
	name := eventSaved
	if removed {
		name = eventRemoved
	}
	ev := notification.Event{
		EventVersion: "2.1",
		EventSource:  events.SourceArtifact,
		EventTime:    now.UTC().Format(time.RFC3339Nano),
		EventName:    name,
	}
	ev.S3.Bucket.Name = bucket
	ev.S3.Object.Key = strings.ReplaceAll(url.QueryEscape(key), "%2F", "/")
	ev.S3.Object.Sequencer = strings.ToUpper(strconv.FormatInt(now.UnixNano(), 16))
	return json.Marshal(map[string]interface{}{"Records": []notification.Event{ev}})
}

func (n *ArtifactNotifier) ArtifactChanged(ctx rcontext.RequestContext, r *archive.Resource) error {
	msg, err := ChangeMessage(r.Bucket, r.Key, r.Deleted, n.Now())
	if err != nil {
		return err
	}
	ctx.Log.WithFields(logrus.Fields{"artifact": r.Key, "deleted": r.Deleted, "channel": n.channel}).Debug("Announcing artifact change")
	return redislib.Publish(ctx, n.channel, msg)
}

// SubscribeToChanges returns the messages published on channel until ctx is
// done, or nil when redis is not configured.
func SubscribeToChanges(ctx context.Context, channel string) <-chan []byte {
	return forwardValid(ctx, redislib.Subscribe(ctx, channel))
}

func forwardValid(ctx context.Context, ch <-chan []byte) <-chan []byte {
	if ch == nil {
		return nil
	}

	retCh := make(chan []byte)
	go func() {
		defer close(retCh)
		for {
			var val []byte
			var ok bool
			select {
			case <-ctx.Done():
				return
			case val, ok = <-ch:
				if !ok {
					return
				}
			}
			if !json.Valid(val) {
				logrus.Error("Internal error handling change subscription: invalid payload")
				sentry.CaptureMessage("invalid change notification payload")
				continue
			}
			select {
			case retCh <- val:
			case <-ctx.Done():
				return
			}
		}
	}()
	return retCh
}
