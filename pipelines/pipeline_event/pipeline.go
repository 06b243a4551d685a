package pipeline_event

import (
	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/events"
	"github.com/mindvessel/bluebucket/indexer"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/mindvessel/bluebucket/redislib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const cascadeSource = "bluebucket:cascade"

// Outcome summarizes one invocation.
type Outcome struct {
	Events    int
	Ignored   int
	Failed    int
	Resources []*archive.Resource
}

type queued struct {
	ev    events.Event
	depth int
}

// Execute handles one notification message to completion.
func Execute(ctx rcontext.RequestContext, services *runtime.Services, origin string, body []byte) (*Outcome, error) {
	// Step 1: Parse the message, unwrapping envelopes
	evs, err := events.ParseMessage(ctx, body)
	if err != nil {
		return nil, err
	}

	return ExecuteEvents(ctx, services, origin, evs)
}

// ExecuteEvents handles already parsed events to completion. A failing event is
// logged and the rest still run.
func ExecuteEvents(ctx rcontext.RequestContext, services *runtime.Services, origin string, evs []events.Event) (*Outcome, error) {
	metrics.Invocations.With(prometheus.Labels{"origin": origin}).Inc()
	ctx.Log.Infof("Handling %d events from %s", len(evs), origin)

	engine := services.NewEngine()
	outcome := &Outcome{Resources: make([]*archive.Resource, 0)}

	queue := make([]queued, 0, len(evs))
	for _, ev := range evs {
		queue = append(queue, queued{ev: ev})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		outcome.Events++

		ectx := ctx.LogWithFields(logrus.Fields{"eventKey": item.ev.Key, "eventName": item.ev.Name})

		// Step 2: Drop events older than one already handled for the same key
		if ctx.Config.Events.DropStale && item.ev.Sequencer != "" {
			stale, err := redislib.IsStaleEvent(ectx, item.ev.Key, item.ev.Sequencer)
			if err != nil {
				ectx.Log.Warn("Could not check event order: ", err)
			} else if stale {
				ectx.Log.Info("Dropping out of order event")
				outcome.Ignored++
				continue
			}
		}

		resources, err := handleOne(ectx, services, engine, item.ev)
		if err != nil {
			ectx.Log.Error("Error handling event: ", err)
			sentry.CaptureException(err)
			outcome.Failed++
			continue
		}
		outcome.Resources = append(outcome.Resources, resources...)

		// Step 5: Feed derived resources back in when the store will not announce them
		if ctx.Config.Events.Cascade && item.depth < ctx.Config.Events.MaxCascade {
			for _, r := range resources {
				queue = append(queue, queued{ev: derivedEvent(item.ev, r), depth: item.depth + 1})
			}
		}
	}

	// Step 6: Write back every index touched by this invocation
	if err := engine.Flush(ctx); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func handleOne(ctx rcontext.RequestContext, services *runtime.Services, engine *indexer.Engine, ev events.Event) ([]*archive.Resource, error) {
	if ev.Key == services.Paths.SiteConfigKey() {
		ctx.Log.Info("Site config changed")
		services.Archivist.ForgetSiteConfig()
	}

	// Step 3: Run the scribes and persist what they produce
	resources, err := services.Dispatcher.HandleEvent(ctx, ev)
	if err != nil {
		return nil, err
	}

	// Step 4: Keep the indexes in step with archetype changes
	if services.Paths.IsArchetypePath(ev.Key) {
		if err = indexEvent(ctx, services, engine, ev); err != nil {
			return resources, err
		}
	}
	return resources, nil
}

func indexEvent(ctx rcontext.RequestContext, services *runtime.Services, engine *indexer.Engine, ev events.Event) error {
	if ev.IsDelete() {
		return engine.OnDelete(ctx, ev.Key)
	}
	if !ev.IsSave() {
		return nil
	}
	r, err := services.Archivist.Get(ctx, ev.Key)
	if err != nil {
		if archive.IsNotFound(err) {
			ctx.Log.Info("Archetype removed before it could be indexed")
			return nil
		}
		return err
	}
	return engine.OnSave(ctx, r)
}

func derivedEvent(parent events.Event, r *archive.Resource) events.Event {
	name := "ObjectCreated:Put"
	if r.Deleted {
		name = "ObjectRemoved:Delete"
	}
	return events.Event{
		Source: cascadeSource,
		Bucket: parent.Bucket,
		Key:    r.Key,
		Name:   name,
		Time:   parent.Time,
	}
}
