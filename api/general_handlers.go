package api

import (
	"net/http"

	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/version"
)

type HealthzResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

func NotFoundHandler(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return NotFoundError()
}

func MethodNotAllowedHandler(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return MethodNotAllowed()
}

func EmptyResponseHandler(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return &EmptyResponse{}
}

func GetHealthz(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return &DoNotCacheResponse{
		Payload: &HealthzResponse{
			OK:      true,
			Version: version.String(),
		},
	}
}
