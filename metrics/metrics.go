package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HttpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_http_requests_total",
}, []string{"action", "method"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_http_responses_total",
}, []string{"action", "method", "statusCode"})
var HttpResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "bluebucket_http_response_time_seconds",
}, []string{"action", "method"})
var Invocations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_invocations_total",
}, []string{"origin"})
var EventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_events_total",
}, []string{"source", "disposition"})
var ScribeResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_scribe_results_total",
}, []string{"scribe", "operation", "outcome"})
var ResourcesPersisted = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_resources_persisted_total",
}, []string{"resourcetype", "operation"})
var StoreOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_store_operations_total",
}, []string{"store", "operation"})
var IndexOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_index_operations_total",
}, []string{"index", "operation"})
var IndexEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "bluebucket_index_entries",
}, []string{"index"})
var QueueWorkers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "bluebucket_queue_workers",
}, []string{"queue", "state"})
var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_cache_hits_total",
}, []string{"cache"})
var CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_cache_misses_total",
}, []string{"cache"})
var PubSubMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bluebucket_pubsub_messages_total",
}, []string{"channel", "direction"})

func init() {
	prometheus.MustRegister(HttpRequests)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(HttpResponseTime)
	prometheus.MustRegister(Invocations)
	prometheus.MustRegister(EventsReceived)
	prometheus.MustRegister(ScribeResults)
	prometheus.MustRegister(ResourcesPersisted)
	prometheus.MustRegister(StoreOperations)
	prometheus.MustRegister(IndexOperations)
	prometheus.MustRegister(IndexEntries)
	prometheus.MustRegister(QueueWorkers)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(PubSubMessages)
}
