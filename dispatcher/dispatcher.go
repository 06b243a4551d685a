package dispatcher

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/events"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/mindvessel/bluebucket/scribes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Archive is the part of the archivist the dispatcher needs.
type Archive interface {
	Get(ctx rcontext.RequestContext, key string) (*archive.Resource, error)
	Persist(ctx rcontext.RequestContext, resources []*archive.Resource) error
}

// Result is the outcome of one scribe call. Resources is nil when Err is set.
type Result struct {
	Scribe    string
	Resources []*archive.Resource
	Err       error
}

type Dispatcher struct {
	registry *scribes.Registry
	archive  Archive
}

func New(registry *scribes.Registry, archive Archive) *Dispatcher {
	return &Dispatcher{registry: registry, archive: archive}
}

// Dispatch runs every matching scribe for ev and returns their results in
// registration order. Nothing is persisted.
func (d *Dispatcher) Dispatch(ctx rcontext.RequestContext, ev events.Event) ([]Result, error) {
	ctx = ctx.LogWithFields(logrus.Fields{"eventKey": ev.Key, "eventName": ev.Name})

	if !ev.IsSave() && !ev.IsDelete() {
		ctx.Log.Info("Skipping unhandled event type")
		return nil, nil
	}

	matched := d.registry.Matching(ev.Key)
	if len(matched) == 0 {
		ctx.Log.Debug("No scribes for key - ignoring")
		return nil, nil
	}

	results := make([]Result, 0, len(matched))
	if ev.IsDelete() {
		for _, s := range matched {
			results = append(results, d.call(ctx, s, "delete", ev.Key, func(sctx rcontext.RequestContext) ([]*archive.Resource, error) {
				return s.OnDelete(sctx, ev.Key)
			}))
		}
		return results, nil
	}

	r, err := d.archive.Get(ctx, ev.Key)
	if err != nil {
		return nil, err
	}
	for _, s := range matched {
		results = append(results, d.call(ctx, s, "save", ev.Key, func(sctx rcontext.RequestContext) ([]*archive.Resource, error) {
			return s.OnSave(sctx, r)
		}))
	}
	return results, nil
}

func (d *Dispatcher) call(ctx rcontext.RequestContext, s scribes.Scribe, operation string, key string, fn func(rcontext.RequestContext) ([]*archive.Resource, error)) (res Result) {
	sctx := ctx.LogWithFields(logrus.Fields{"scribe": s.Name()})
	res.Scribe = s.Name()

	defer func() {
		if p := recover(); p != nil {
			res.Resources = nil
			res.Err = &common.TransformError{Scribe: s.Name(), Key: key, Err: fmt.Errorf("panic: %v", p)}
		}
		outcome := "ok"
		if res.Err != nil {
			outcome = "error"
			sctx.Log.Error("Suppressed scribe failure: ", res.Err)
			sentry.CaptureException(res.Err)
		}
		metrics.ScribeResults.With(prometheus.Labels{"scribe": s.Name(), "operation": operation, "outcome": outcome}).Inc()
	}()

	resources, err := fn(sctx)
	if err != nil {
		res.Err = &common.TransformError{Scribe: s.Name(), Key: key, Err: err}
		return res
	}
	res.Resources = resources
	return res
}

// Flatten joins the resources of every successful result, in order.
func Flatten(results []Result) []*archive.Resource {
	out := make([]*archive.Resource, 0)
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Resources...)
		}
	}
	return out
}

// HandleEvent dispatches ev, persists everything the scribes produced and
// returns it. Scribe failures are logged and left out.
func (d *Dispatcher) HandleEvent(ctx rcontext.RequestContext, ev events.Event) ([]*archive.Resource, error) {
	results, err := d.Dispatch(ctx, ev)
	if err != nil {
		return nil, err
	}
	resources := Flatten(results)
	if len(resources) == 0 {
		return resources, nil
	}
	if err = d.archive.Persist(ctx, resources); err != nil {
		return nil, err
	}
	ctx.Log.WithFields(logrus.Fields{"eventKey": ev.Key, "resources": len(resources)}).Info("Persisted scribe output")
	return resources, nil
}

// HandleMessage parses a notification message and handles each event in turn.
// A failing event is logged and does not stop the rest of the batch.
func (d *Dispatcher) HandleMessage(ctx rcontext.RequestContext, body []byte) []*archive.Resource {
	evs, err := events.ParseMessage(ctx, body)
	if err != nil {
		ctx.Log.Warn("Ignoring message: ", err)
		sentry.CaptureException(err)
		return []*archive.Resource{}
	}

	all := make([]*archive.Resource, 0)
	for _, ev := range evs {
		resources, err := d.HandleEvent(ctx, ev)
		if err != nil {
			ctx.Log.WithFields(logrus.Fields{"eventKey": ev.Key}).Error("Error handling event: ", err)
			sentry.CaptureException(err)
			continue
		}
		all = append(all, resources...)
	}
	return all
}
