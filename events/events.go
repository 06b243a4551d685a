package events

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	SourceSns = "aws:sns"
	SourceSqs = "aws:sqs"

	// SourceArtifact marks change notifications published by this service.
	SourceArtifact = "bluebucket:artifact"

	createdPrefix = "ObjectCreated:"
	removedPrefix = "ObjectRemoved:"
)

// Event is one storage change notification.
type Event struct {
	Source    string
	Bucket    string
	Key       string
	Name      string
	Sequencer string
	ETag      string
	Size      int64
	Time      time.Time
}

func (e Event) action() string {
	// minio prefixes event names with "s3:"
	return strings.TrimPrefix(e.Name, "s3:")
}

func (e Event) IsSave() bool {
	return strings.HasPrefix(e.action(), createdPrefix)
}

func (e Event) IsDelete() bool {
	return strings.HasPrefix(e.action(), removedPrefix)
}

type message struct {
	Records []record `json:"Records"`

	// SNS HTTP deliveries
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

type record struct {
	notification.Event
	Sns *struct {
		Message string `json:"Message"`
	} `json:"Sns,omitempty"`
	Body *string `json:"body,omitempty"`
}

// ParseMessage decodes a notification message into events. Records wrapped in
// SNS or SQS envelopes are unwrapped. Records from sources not listed in the
// config are logged and skipped, as are malformed records. The message only
// fails as a whole when it is not a notification at all or none of its
// records could be read.
func ParseMessage(ctx rcontext.RequestContext, body []byte) ([]Event, error) {
	sources := ctx.Config.Events.Sources
	return parse(ctx, body, sources, 0)
}

const maxEnvelopeDepth = 3

func parse(ctx rcontext.RequestContext, body []byte, sources []string, depth int) ([]Event, error) {
	if depth > maxEnvelopeDepth {
		return nil, &common.EventParseError{Reason: "envelopes nested too deeply"}
	}

	msg := message{}
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, &common.EventParseError{Reason: "invalid json", Err: err}
	}

	if msg.Records == nil {
		if msg.Type == "Notification" && msg.Message != "" {
			return parse(ctx, []byte(msg.Message), sources, depth+1)
		}
		return nil, &common.EventParseError{Reason: "no Records in message"}
	}

	evs := make([]Event, 0, len(msg.Records))
	malformed := 0
	for _, rec := range msg.Records {
		source := rec.EventSource
		var inner []Event
		var err error
		switch {
		case source == SourceSns && rec.Sns != nil:
			inner, err = parse(ctx, []byte(rec.Sns.Message), sources, depth+1)
		case source == SourceSqs && rec.Body != nil:
			inner, err = parse(ctx, []byte(*rec.Body), sources, depth+1)
		case isKnownSource(source, sources):
			var ev Event
			if ev, err = fromRecord(rec.Event); err == nil {
				inner = []Event{ev}
				metrics.EventsReceived.With(prometheus.Labels{"source": source, "disposition": "accepted"}).Inc()
			}
		default:
			ctx.Log.WithFields(logrus.Fields{"source": source, "eventName": rec.EventName}).Warn("Skipping unrecognized event record")
			metrics.EventsReceived.With(prometheus.Labels{"source": source, "disposition": "skipped"}).Inc()
			continue
		}
		if err != nil {
			malformed++
			ctx.Log.WithFields(logrus.Fields{"source": source, "eventName": rec.EventName}).Warn("Skipping malformed event record: ", err)
			metrics.EventsReceived.With(prometheus.Labels{"source": source, "disposition": "malformed"}).Inc()
			sentry.CaptureException(err)
			continue
		}
		evs = append(evs, inner...)
	}

	// Nothing usable at all means the message itself is bad
	if malformed > 0 && malformed == len(msg.Records) {
		return nil, &common.EventParseError{Reason: "every record is malformed"}
	}
	return evs, nil
}

func isKnownSource(source string, sources []string) bool {
	if source == SourceArtifact {
		return true
	}
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}

func fromRecord(r notification.Event) (Event, error) {
	// Keys arrive form-encoded
	key, err := url.QueryUnescape(r.S3.Object.Key)
	if err != nil {
		return Event{}, &common.EventParseError{Reason: "bad object key " + r.S3.Object.Key, Err: err}
	}
	if key == "" {
		return Event{}, &common.EventParseError{Reason: "record has no object key"}
	}

	ev := Event{
		Source:    r.EventSource,
		Bucket:    r.S3.Bucket.Name,
		Key:       key,
		Name:      r.EventName,
		Sequencer: r.S3.Object.Sequencer,
		ETag:      r.S3.Object.ETag,
		Size:      r.S3.Object.Size,
	}
	if r.EventTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, r.EventTime); err == nil {
			ev.Time = t
		}
	}
	return ev, nil
}

// FromNotification converts records received by a minio bucket listener.
func FromNotification(ctx rcontext.RequestContext, info notification.Info) []Event {
	evs := make([]Event, 0, len(info.Records))
	for _, rec := range info.Records {
		ev, err := fromRecord(rec)
		if err != nil {
			ctx.Log.Warn("Skipping bad notification record: ", err)
			continue
		}
		evs = append(evs, ev)
	}
	return evs
}
