package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/usergraph/internal/graph"
	"github.com/hanpama/usergraph/internal/pipeline"
	"github.com/hanpama/usergraph/internal/reqid"
	"github.com/hanpama/usergraph/internal/store"
	"github.com/hanpama/usergraph/internal/store/memstore"
)

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	s := memstore.New(memstore.WithMemberTypes(store.DefaultMemberTypes()...))
	p, err := pipeline.New(s)
	require.NoError(t, err)
	return New(p, opts...)
}

func post(t *testing.T, h http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostQuery(t *testing.T) {
	h := newTestHandler(t)
	w := post(t, h, `{"query":"{ memberTypes { id } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"memberTypes":[{"id":"BASIC"},{"id":"BUSINESS"}]}}`, w.Body.String())
}

func TestGetQueryWithVariables(t *testing.T) {
	h := newTestHandler(t)
	q := url.Values{}
	q.Set("query", `query($id: MemberTypeId!) { memberType(id: $id) { postsLimitPerMonth } }`)
	q.Set("variables", `{"id":"BASIC"}`)
	req := httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"memberType":{"postsLimitPerMonth":20}}}`, w.Body.String())
}

func TestValidationErrorOmitsData(t *testing.T) {
	h := newTestHandler(t)
	w := post(t, h, `{"query":"{ nope }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), `"data"`)
	require.Contains(t, w.Body.String(), pipeline.CodeValidationFailed)
}

func TestBatchRequest(t *testing.T) {
	h := newTestHandler(t)
	w := post(t, h, `[{"query":"{ memberTypes { id } }"},{"query":"{ users { id } }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[
		{"data":{"memberTypes":[{"id":"BASIC"},{"id":"BUSINESS"}]}},
		{"data":{"users":[]}}
	]`, w.Body.String())

	limited := newTestHandler(t, WithMaxBatch(1))
	w = post(t, limited, `[{"query":"{ users { id } }"},{"query":"{ users { id } }"}]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name   string
		method string
		ctype  string
		body   string
		status int
	}{
		{"invalid json", http.MethodPost, "application/json", `{`, http.StatusBadRequest},
		{"missing query", http.MethodPost, "application/json", `{}`, http.StatusBadRequest},
		{"empty batch", http.MethodPost, "application/json", `[]`, http.StatusBadRequest},
		{"content type", http.MethodPost, "text/plain", `{}`, http.StatusUnsupportedMediaType},
		{"method", http.MethodPut, "application/json", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/graphql", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.ctype)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)
			require.Contains(t, w.Body.String(), `"errors"`)
		})
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	w := post(t, h, `{"query":"{ users { id } }"}`, "Origin", "http://example.com")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))

	specific := newTestHandler(t, WithCORS("http://allowed.example"))
	w = post(t, specific, `{"query":"{ users { id } }"}`, "Origin", "http://other.example")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	w = post(t, specific, `{"query":"{ users { id } }"}`, "Origin", "http://allowed.example")
	require.Equal(t, "http://allowed.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))
	w := post(t, h, `{"query":"1234567890"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

type ctxCapture struct {
	ctx context.Context
}

func (c *ctxCapture) Execute(ctx context.Context, params pipeline.Params) *pipeline.Result {
	c.ctx = ctx
	return &pipeline.Result{}
}

func TestRequestID(t *testing.T) {
	capture := &ctxCapture{}
	h := New(capture)

	w := post(t, h, `{"query":"{ users { id } }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	id, ok := reqid.FromContext(capture.ctx)
	require.True(t, ok)
	require.NotEmpty(t, id)
	require.Equal(t, id, w.Header().Get(reqid.Header))

	w = post(t, h, `{"query":"{ users { id } }"}`, reqid.Header, "from-client")
	require.Equal(t, "from-client", w.Header().Get(reqid.Header))
	id, _ = reqid.FromContext(capture.ctx)
	require.Equal(t, "from-client", id)

	_, hasDeadline := capture.ctx.Deadline()
	require.True(t, hasDeadline)
}

func TestMuxRoutes(t *testing.T) {
	mux := NewMux(Routes{
		GraphQL: newTestHandler(t),
		SDL:     graph.SDL(),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "metrics") }),
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}

	code, body := get("/schema.graphql")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "type User")

	code, body = get("/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "metrics", body)

	code, _ = get("/healthz")
	require.Equal(t, http.StatusOK, code)

	code, body = get("/graphql?query=" + url.QueryEscape("{ users { id } }"))
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"data":{"users":[]}}`, body)
}
