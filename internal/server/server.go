package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/events"
	"github.com/hanpama/usergraph/internal/executor"
	"github.com/hanpama/usergraph/internal/pipeline"
	"github.com/hanpama/usergraph/internal/reqid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Executor runs one GraphQL request.
type Executor interface {
	Execute(ctx context.Context, params pipeline.Params) *pipeline.Result
}

// Handler is an http.Handler that serves a GraphQL endpoint.
// Requests are decoded from GET query strings or JSON bodies, single or batched.
type Handler struct {
	exec Executor
	opt  Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// MaxBatch limits the number of operations in a batched request. 0 means
	// unlimited.
	MaxBatch int

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	Logger *slog.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithMaxBatch(n int) Option          { return func(o *Options) { o.MaxBatch = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler running requests through exec.
func New(exec Executor, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, Logger: slog.Default()}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: exec, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	logger := h.opt.Logger.With("request_id", rid)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Route: "/graphql", Status: status, Duration: d})
		logger.InfoContext(ctx, "http request", "method", r.Method, "status", status, "duration", d)
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, status, requestError("method not allowed"), h.opt.Pretty)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = berr.status
		writeJSON(w, status, requestError(berr.message), h.opt.Pretty)
		return
	}
	if h.opt.MaxBatch > 0 && len(batch) > h.opt.MaxBatch {
		status = http.StatusBadRequest
		writeJSON(w, status, requestError("batch too large"), h.opt.Pretty)
		return
	}

	if batch != nil {
		out := make([]*pipeline.Result, len(batch))
		for i := range batch {
			out[i] = h.exec.Execute(ctx, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	res := h.exec.Execute(ctx, req)
	if res.Kind() == pipeline.KindExecution {
		logger.DebugContext(ctx, "graphql field errors", "errors", len(res.Errors))
	}
	writeJSON(w, status, res, h.opt.Pretty)
}

// ------------------ Request parsing ------------------

type httpError struct {
	status  int
	message string
}

func badRequest(msg string) *httpError { return &httpError{status: http.StatusBadRequest, message: msg} }

func parseRequest(r *http.Request, maxBody int64) (pipeline.Params, []pipeline.Params, *httpError) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return pipeline.Params{}, nil, badRequest("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return pipeline.Params{}, nil, badRequest("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return pipeline.Params{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return pipeline.Params{}, nil, &httpError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return pipeline.Params{}, nil, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return pipeline.Params{}, nil, &httpError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}

	if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
		var arr []pipeline.Params
		if err := json.Unmarshal(body, &arr); err != nil {
			return pipeline.Params{}, nil, badRequest("invalid JSON")
		}
		if len(arr) == 0 {
			return pipeline.Params{}, nil, badRequest("empty batch")
		}
		for _, p := range arr {
			if p.Query == "" {
				return pipeline.Params{}, nil, badRequest("missing 'query'")
			}
		}
		return pipeline.Params{}, arr, nil
	}

	var req pipeline.Params
	if err := json.Unmarshal(body, &req); err != nil {
		return pipeline.Params{}, nil, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return pipeline.Params{}, nil, badRequest("missing 'query'")
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

type errorsResponse struct {
	Errors []executor.GraphQLError `json:"errors"`
}

func requestError(msg string) errorsResponse {
	return errorsResponse{Errors: []executor.GraphQLError{{Message: msg}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	wildcard := false
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		if o == "*" || o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
