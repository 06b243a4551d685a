package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mindvessel/bluebucket/common/rcontext"
)

type GeneratorFn = func(r *http.Request, rctx rcontext.RequestContext) interface{}

func GetAccessTokenFromRequest(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if !strings.HasPrefix(token, "Bearer ") { // including space
		return ""
	}
	return token[len("Bearer "):]
}

// AdminRoute only calls generator when the request carries the configured
// admin token. With no token configured every request is refused.
func AdminRoute(generator GeneratorFn) GeneratorFn {
	return func(r *http.Request, rctx rcontext.RequestContext) interface{} {
		expected := rctx.Config.General.AdminToken
		if expected == "" {
			rctx.Log.Warn("Admin request refused: no admin token is configured")
			return AuthFailed()
		}
		provided := GetAccessTokenFromRequest(r)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			return AuthFailed()
		}
		return generator(r, rctx)
	}
}
