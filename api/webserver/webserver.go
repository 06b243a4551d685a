package webserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/mindvessel/bluebucket/api"
	"github.com/mindvessel/bluebucket/api/webserver/debug"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/sirupsen/logrus"
)

const PrefixApi = "/_bluebucket/v1"

var srv *http.Server
var srvLock = &sync.Mutex{}
var waitGroup = &sync.WaitGroup{}
var services *runtime.Services

func BuildRoutes(svc *runtime.Services) http.Handler {
	rtr := mux.NewRouter()
	counter := &requestCounter{}

	optionsHandler := handler{api.EmptyResponseHandler, "options_request", counter}
	eventsHandler := handler{api.PostEvents(svc), "events", counter}
	reindexHandler := handler{api.AdminRoute(api.Reindex(svc)), "reindex", counter}
	healthzHandler := handler{api.GetHealthz, "healthz", counter}

	routes := map[string]route{
		PrefixApi + "/events":                                 {"POST", eventsHandler},
		PrefixApi + "/admin/reindex/{name:[a-zA-Z0-9._\\-]+}": {"POST", reindexHandler},
	}
	for routePath, rt := range routes {
		logrus.Info("Registering route: " + rt.method + " " + routePath)
		rtr.Handle(routePath, rt.handler).Methods(rt.method)
		rtr.Handle(routePath, optionsHandler).Methods("OPTIONS")
	}

	rtr.Handle("/healthz", healthzHandler).Methods("GET", "HEAD")

	if pprofSecret := os.Getenv("BLUEBUCKET_PPROF_SECRET_KEY"); pprofSecret != "" {
		logrus.Warn("Enabling pprof/debug http endpoints")
		debug.BindPprofEndpoints(rtr, PrefixApi, pprofSecret)
	}

	rtr.NotFoundHandler = handler{api.NotFoundHandler, "not_found", counter}
	rtr.MethodNotAllowedHandler = handler{api.MethodNotAllowedHandler, "method_not_allowed", counter}
	return rtr
}

type route struct {
	method  string
	handler handler
}

func Init(svc *runtime.Services) *sync.WaitGroup {
	services = svc
	waitGroup.Add(1)
	srvLock.Lock()
	srv = newServer()
	srvLock.Unlock()
	serve(srv)
	return waitGroup
}

func newServer() *http.Server {
	address := net.JoinHostPort(config.Get().General.BindAddress, strconv.Itoa(config.Get().General.Port))

	// Note: we bind Sentry here to ensure we capture *everything*
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: false})
	return &http.Server{Addr: address, Handler: sentryHandler.Handle(BuildRoutes(services))}
}

func serve(s *http.Server) {
	go func() {
		//goland:noinspection HttpUrlsUsage
		logrus.WithField("address", s.Addr).Info("Started up. Listening at http://" + s.Addr)
		if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			logrus.Fatal(err)
		}

		// Only notify the main thread that we're done if we weren't replaced by a reload
		srvLock.Lock()
		current := srv == s
		srvLock.Unlock()
		if current {
			waitGroup.Done()
		}
	}()
}

func Reload() {
	srvLock.Lock()
	old := srv
	srv = newServer()
	next := srv
	srvLock.Unlock()

	shutdown(old)
	serve(next)
}

func Stop() {
	srvLock.Lock()
	s := srv
	srvLock.Unlock()
	shutdown(s)
}

func shutdown(s *http.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logrus.Error("Error stopping web server: ", err)
	}
}
