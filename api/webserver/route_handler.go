package webserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mindvessel/bluebucket/api"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type requestCounter struct {
	lastId uint64
}

func (c *requestCounter) NextId() string {
	return "REQ-" + strconv.FormatUint(atomic.AddUint64(&c.lastId, 1), 10)
}

type handler struct {
	h          api.GeneratorFn
	action     string
	reqCounter *requestCounter
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rctx := rcontext.WithConfig(r.Context(), config.Get())
	rctx = rctx.LogWithFields(logrus.Fields{
		"method":        r.Method,
		"resource":      r.URL.Path,
		"contentType":   r.Header.Get("Content-Type"),
		"contentLength": r.ContentLength,
		"requestId":     h.reqCounter.NextId(),
		"remoteAddr":    r.RemoteAddr,
		"action":        h.action,
	})
	rctx.Log.Info("Received request")
	r = r.WithContext(rctx)

	w.Header().Set("Server", "bluebucket")

	metrics.HttpRequests.With(prometheus.Labels{
		"action": h.action,
		"method": r.Method,
	}).Inc()

	res := h.h(r, rctx)
	if res == nil {
		res = &api.EmptyResponse{}
	}

	if result, ok := res.(*api.DoNotCacheResponse); ok {
		w.Header().Set("Cache-Control", "no-store")
		res = result.Payload
	}

	rctx.Log.Infof("Replying with result: %T %+v", res, res)

	statusCode := http.StatusOK
	if result, ok := res.(*api.ErrorResponse); ok {
		statusCode = statusFor(result.Code)
	}

	metrics.HttpResponses.With(prometheus.Labels{
		"action":     h.action,
		"method":     r.Method,
		"statusCode": strconv.Itoa(statusCode),
	}).Inc()
	metrics.HttpResponseTime.With(prometheus.Labels{
		"action": h.action,
		"method": r.Method,
	}).Observe(time.Since(start).Seconds())

	// Order is important: Set headers before sending responses
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(res); err != nil {
		rctx.Log.Warn("Error writing response: ", err)
	}
}

func statusFor(code string) int {
	switch code {
	case api.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrCodeNotFound:
		return http.StatusNotFound
	case api.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case api.ErrCodeBadRequest:
		return http.StatusBadRequest
	case api.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default: // Treat as unknown (a generic server error)
		return http.StatusInternalServerError
	}
}
