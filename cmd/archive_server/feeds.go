package main

import (
	"context"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/datastores"
	"github.com/mindvessel/bluebucket/events"
	"github.com/mindvessel/bluebucket/notifier"
	"github.com/mindvessel/bluebucket/pipelines/pipeline_event"
	"github.com/mindvessel/bluebucket/pool"
	"github.com/sirupsen/logrus"
)

type eventFeeds struct {
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func (f *eventFeeds) Stop() {
	f.cancel()
	f.wg.Wait()
}

// startEventFeeds starts the push based event sources: artifact changes
// announced over redis, and minio bucket notifications.
func startEventFeeds(services *runtime.Services) *eventFeeds {
	ctx, cancel := context.WithCancel(context.Background())
	feeds := &eventFeeds{cancel: cancel, wg: &sync.WaitGroup{}}
	cfg := config.Get()

	// Artifact changes only need feeding back when the pipeline does not cascade in-process
	if !cfg.Events.Cascade {
		if changes := notifier.SubscribeToChanges(ctx, cfg.Redis.ChangesChannel); changes != nil {
			logrus.Info("Listening for artifact changes on ", cfg.Redis.ChangesChannel)
			feeds.wg.Add(1)
			go func() {
				defer feeds.wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case body, ok := <-changes:
						if !ok {
							return
						}
						schedule(func(rctx rcontext.RequestContext) {
							if _, err := pipeline_event.Execute(rctx, services, "redis", body); err != nil {
								rctx.Log.Error("Error handling artifact change: ", err)
								sentry.CaptureException(err)
							}
						})
					}
				}
			}()
		}
	}

	if cfg.Events.ListenMinio {
		listener, ok := services.Store.(datastores.Listener)
		if !ok {
			logrus.Warnf("Datastore %s does not support bucket notifications", cfg.DataStore.Type)
		} else {
			logrus.Info("Listening for bucket notifications on ", services.Store.Bucket())
			feeds.wg.Add(1)
			go func() {
				defer feeds.wg.Done()
				for info := range listener.Listen(ctx) {
					if info.Err != nil {
						logrus.Error("Error from bucket notifications: ", info.Err)
						sentry.CaptureException(info.Err)
						continue
					}
					schedule(func(rctx rcontext.RequestContext) {
						evs := events.FromNotification(rctx, info)
						if len(evs) == 0 {
							return
						}
						if _, err := pipeline_event.ExecuteEvents(rctx, services, "minio", evs); err != nil {
							rctx.Log.Error("Error handling bucket notification: ", err)
							sentry.CaptureException(err)
						}
					})
				}
			}()
		}
	}

	return feeds
}

func schedule(fn func(rctx rcontext.RequestContext)) {
	err := pool.InvocationQueue.Schedule(func() {
		fn(rcontext.Initial())
	})
	if err != nil {
		logrus.Error("Error scheduling invocation: ", err)
		sentry.CaptureException(err)
	}
}
