package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	relay "github.com/coregx/brokerrelay"
)

// NewRouter registers every API route on a new router. metrics, when not
// nil, is served at /metrics.
func NewRouter(h *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(h.logger))

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)

	v1.HandleFunc("/topics", h.HandleListTopics).Methods(http.MethodGet)
	v1.HandleFunc("/topics", h.HandleCreateTopic).Methods(http.MethodPost)
	v1.HandleFunc("/topics/{id:[0-9]+}", h.HandleGetTopic).Methods(http.MethodGet)
	v1.HandleFunc("/topics/{id:[0-9]+}", h.HandleUpdateTopic).Methods(http.MethodPut, http.MethodPatch)
	v1.HandleFunc("/topics/{id:[0-9]+}", h.HandleDeleteTopic).Methods(http.MethodDelete)
	v1.HandleFunc("/topics/{id:[0-9]+}/subscribers", h.HandleListSubscribers).Methods(http.MethodGet)
	v1.HandleFunc("/topics/{id:[0-9]+}/subscribers", h.HandleBulkSubscribe).Methods(http.MethodPost)

	v1.HandleFunc("/subscriptions", h.HandleListSubscriptions).Methods(http.MethodGet)
	v1.HandleFunc("/subscriptions", h.HandleSubscribe).Methods(http.MethodPost)
	v1.HandleFunc("/subscriptions/{id:[0-9]+}", h.HandleGetSubscription).Methods(http.MethodGet)
	v1.HandleFunc("/subscriptions/{id:[0-9]+}", h.HandleUnsubscribe).Methods(http.MethodDelete)

	v1.HandleFunc("/messages", h.HandleListMessages).Methods(http.MethodGet)
	v1.HandleFunc("/messages", h.HandleCreateMessage).Methods(http.MethodPost)
	v1.HandleFunc("/messages/{id:[0-9]+}", h.HandleGetMessage).Methods(http.MethodGet)
	v1.HandleFunc("/messages/{id:[0-9]+}", h.HandleUpdateMessage).Methods(http.MethodPut, http.MethodPatch)
	v1.HandleFunc("/messages/{id:[0-9]+}", h.HandleDeleteMessage).Methods(http.MethodDelete)

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(logger relay.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger.Infof("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
		})
	}
}
