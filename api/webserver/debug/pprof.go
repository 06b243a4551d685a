package debug

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
)

func BindPprofEndpoints(rtr *mux.Router, prefix string, secret string) {
	for _, name := range []string{"", "allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		rtr.HandleFunc(prefix+"/debug/pprof/"+name, pprofServe(prefix, pprof.Index, secret))
	}
	rtr.HandleFunc(prefix+"/debug/pprof/cmdline", pprofServe(prefix, pprof.Cmdline, secret))
	rtr.HandleFunc(prefix+"/debug/pprof/profile", pprofServe(prefix, pprof.Profile, secret))
	rtr.HandleFunc(prefix+"/debug/pprof/trace", pprofServe(prefix, pprof.Trace, secret))
}

func pprofServe(prefix string, fn func(http.ResponseWriter, *http.Request), secret string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != ("Bearer " + secret) {
			// Order is important: Set headers before sending responses
			w.Header().Set("Content-Type", "application/json; charset=UTF-8")
			w.WriteHeader(http.StatusUnauthorized)

			encoder := json.NewEncoder(w)
			_ = encoder.Encode(&map[string]bool{"success": false})
			return
		}

		// pprof.Index expects paths rooted at /debug/pprof/
		r.URL.Path = r.URL.Path[len(prefix):]
		fn(w, r)
	}
}
