package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/pipelines/pipeline_event"
	"github.com/mindvessel/bluebucket/pool"
)

const MaxEventBodyBytes = 10 * 1024 * 1024

type EventsResponse struct {
	Events    int      `json:"events"`
	Ignored   int      `json:"ignored"`
	Failed    int      `json:"failed"`
	Resources []string `json:"resources"`
}

// PostEvents accepts a notification message (S3, SNS, SQS or an artifact
// change) and handles it to completion before replying.
func PostEvents(services *runtime.Services) GeneratorFn {
	return func(r *http.Request, rctx rcontext.RequestContext) interface{} {
		body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxEventBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				rctx.Log.Warnf("Event message larger than %s", humanize.Bytes(MaxEventBodyBytes))
				return RequestTooLarge()
			}
			rctx.Log.Error("Error reading event message: ", err)
			return BadRequest("could not read request body")
		}

		var outcome *pipeline_event.Outcome
		runErr := pool.RunInvocation(func() {
			outcome, err = pipeline_event.Execute(rctx, services, "http", body)
		})
		if runErr != nil {
			err = runErr
		}
		if err != nil {
			if errors.Is(err, common.ErrEventParse) {
				return BadRequest(err.Error())
			}
			rctx.Log.Error("Error handling event message: ", err)
			return InternalServerError("error handling events")
		}

		keys := make([]string, 0, len(outcome.Resources))
		for _, res := range outcome.Resources {
			keys = append(keys, res.Key)
		}
		return &DoNotCacheResponse{
			Payload: &EventsResponse{
				Events:    outcome.Events,
				Ignored:   outcome.Ignored,
				Failed:    outcome.Failed,
				Resources: keys,
			},
		}
	}
}
