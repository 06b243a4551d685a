package pool

import (
	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/sirupsen/logrus"
)

var InvocationQueue *Queue

func Init() {
	var err error
	if InvocationQueue, err = NewQueue(config.Get().Workers.NumWorkers, "invocations"); err != nil {
		sentry.CaptureException(err)
		logrus.Error("Error setting up invocations queue")
		logrus.Fatal(err)
	}
}

func AdjustSize() {
	InvocationQueue.pool.Tune(config.Get().Workers.NumWorkers)
}

func Drain() {
	InvocationQueue.pool.Release()
}

// RunInvocation runs task on the invocation queue and waits for it. Without
// an initialized queue the task runs inline.
func RunInvocation(task func()) error {
	if InvocationQueue == nil {
		task()
		return nil
	}
	return InvocationQueue.Run(task)
}
