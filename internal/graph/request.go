package graph

import (
	"context"
	"log/slog"

	"github.com/hanpama/usergraph/internal/dataloader"
	"github.com/hanpama/usergraph/internal/store"
)

// Request is the state shared by every resolver of one execution: the store
// handle and a fresh loader registry.
type Request struct {
	Store   store.Store
	Loaders *Loaders
	Logger  *slog.Logger
}

type RequestOption func(*requestConfig)

type requestConfig struct {
	logger  *slog.Logger
	loaders LoaderOptions
}

func WithLogger(l *slog.Logger) RequestOption {
	return func(c *requestConfig) { c.logger = l }
}

// WithMaxBatchSize bounds the keys passed to a single batch fetch.
func WithMaxBatchSize(n int) RequestOption {
	return func(c *requestConfig) { c.loaders.MaxBatchSize = n }
}

// WithBatchObserver is called after every loader batch.
func WithBatchObserver(fn func(ctx context.Context, info dataloader.BatchInfo)) RequestOption {
	return func(c *requestConfig) { c.loaders.OnBatch = fn }
}

func NewRequest(s store.Store, opts ...RequestOption) *Request {
	cfg := requestConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Request{
		Store:   s,
		Loaders: NewLoaders(s, cfg.loaders),
		Logger:  cfg.logger,
	}
}
