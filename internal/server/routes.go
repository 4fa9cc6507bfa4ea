package server

import (
	"net/http"
	"time"

	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/events"
	"github.com/hanpama/usergraph/internal/reqid"
)

// Routes lists the endpoints served next to /graphql. Nil handlers are not
// mounted.
type Routes struct {
	GraphQL http.Handler
	SDL     string
	Metrics http.Handler
}

// NewMux mounts /graphql, /schema.graphql, /metrics and /healthz.
func NewMux(r Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", r.GraphQL)
	if r.SDL != "" {
		mux.Handle("GET /schema.graphql", instrument("/schema.graphql", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/graphql; charset=utf-8")
			_, _ = w.Write([]byte(r.SDL))
		})))
	}
	if r.Metrics != nil {
		mux.Handle("GET /metrics", r.Metrics)
	}
	mux.Handle("GET /healthz", instrument("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})))
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument publishes HTTP events for the plain endpoints.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, rid := reqid.NewContext(r.Context(), r.Header.Get(reqid.Header))
		w.Header().Set(reqid.Header, rid)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		eventbus.Publish(ctx, events.HTTPStart{Request: r})
		next.ServeHTTP(rec, r.WithContext(ctx))
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Route: route, Status: rec.status, Duration: time.Since(start)})
	})
}
