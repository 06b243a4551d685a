package pool

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/common/logging"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Queue struct {
	name string
	pool *ants.Pool
}

func NewQueue(workers int, name string) (*Queue, error) {
	if workers <= 0 {
		workers = 1
	}
	p, err := ants.NewPool(workers, ants.WithOptions(ants.Options{
		ExpiryDuration:   1 * time.Minute, // worker lifespan when unused
		PreAlloc:         false,
		MaxBlockingTasks: 0, // no limit on tasks we can submit
		Nonblocking:      false,
		PanicHandler: func(err interface{}) {
			logrus.Errorf("Panic from internal queue %s", name)
			logrus.Error(err)
			//goland:noinspection GoTypeAssertionOnErrors
			if e, ok := err.(error); ok {
				sentry.CaptureException(e)
			}
		},
		Logger:       &logging.SendToDebugLogger{},
		DisablePurge: false,
	}))
	if err != nil {
		return nil, err
	}
	q := &Queue{name: name, pool: p}
	metrics.OnScrape("queue:"+name, q.reportMetrics)
	return q, nil
}

func (p *Queue) reportMetrics() {
	metrics.QueueWorkers.With(prometheus.Labels{"queue": p.name, "state": "running"}).Set(float64(p.pool.Running()))
	metrics.QueueWorkers.With(prometheus.Labels{"queue": p.name, "state": "capacity"}).Set(float64(p.pool.Cap()))
	metrics.QueueWorkers.With(prometheus.Labels{"queue": p.name, "state": "waiting"}).Set(float64(p.pool.Waiting()))
}

func (p *Queue) Schedule(task func()) error {
	return p.pool.Submit(task)
}

// Run schedules task and waits for it to finish.
func (p *Queue) Run(task func()) error {
	done := make(chan struct{})
	if err := p.pool.Submit(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	<-done
	return nil
}
