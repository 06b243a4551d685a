package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/pipelines/pipeline_reindex"
	"github.com/mindvessel/bluebucket/pool"
	"github.com/sirupsen/logrus"
)

type ReindexResponse struct {
	Index   string `json:"index"`
	Key     string `json:"key"`
	Entries int    `json:"entries"`
}

func Reindex(services *runtime.Services) GeneratorFn {
	return func(r *http.Request, rctx rcontext.RequestContext) interface{} {
		name := mux.Vars(r)["name"]
		rctx = rctx.LogWithFields(logrus.Fields{"index": name})

		var count int
		var err error
		runErr := pool.RunInvocation(func() {
			count, err = pipeline_reindex.Execute(rctx, services, name)
		})
		if runErr != nil {
			err = runErr
		}
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return NotFoundError()
			}
			rctx.Log.Error("Error rebuilding index: ", err)
			return InternalServerError("error rebuilding index")
		}

		return &DoNotCacheResponse{
			Payload: &ReindexResponse{
				Index:   name,
				Key:     services.Paths.IndexKey(name),
				Entries: count,
			},
		}
	}
}
