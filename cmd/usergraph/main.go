package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goversion "github.com/caarlos0/go-version"

	"github.com/hanpama/usergraph/internal/config"
	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/graph"
	"github.com/hanpama/usergraph/internal/metrics"
	"github.com/hanpama/usergraph/internal/otel"
	"github.com/hanpama/usergraph/internal/pipeline"
	"github.com/hanpama/usergraph/internal/server"
	"github.com/hanpama/usergraph/internal/store"
	"github.com/hanpama/usergraph/internal/store/memstore"
	"github.com/hanpama/usergraph/internal/store/sqlstore"
)

// Set by the linker.
var (
	version = ""
	commit  = ""
	date    = ""
)

const rootUsage = `usergraph - GraphQL gateway over a user/post/profile database

USAGE:
  usergraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server
  print-schema     Print the GraphQL schema
  version          Print build information
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>                  YAML configuration file; flags override it
  -server.addr <addr>             HTTP listen address (default: :8080)
  -server.pretty                  Pretty-print JSON responses
  -server.timeout <duration>      Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body-bytes N        Request body limit in bytes (default: 1048576)
  -server.max-batch N             Operations per batched request (default: 10)
  -server.cors <origins>          Comma-separated allowed origins, "*" for any
  -graphql.max-depth N            Maximum operation depth (default: 5)
  -graphql.max-batch-size N       Keys per loader batch, 0 for unlimited
  -store.driver <name>            memory, postgres or sqlite (default: memory)
  -store.dsn <dsn>                Database connection string
  -store.migrate <bool>           Create tables on startup (default: true)
  -store.seed <bool>              Insert the default member types (default: true)
  -log.level <level>              debug, info, warn or error (default: info)
  -log.format <format>            text or json (default: text)
  -otel.endpoint <addr>           OTLP collector endpoint
  -otel.service <name>            OpenTelemetry service name (default: usergraph)
`

const printSchemaUsage = `print-schema FLAGS:
  -out <file>   Write the schema to file (default: stdout)
`

const versionUsage = `version
  Print version, commit and build date.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("usergraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer))
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "print-schema":
		return cmdPrintSchema(cmdArgs)
	case "version":
		fmt.Println(buildVersion().String())
		return nil
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "print-schema":
		fmt.Print(printSchemaUsage)
	case "version":
		fmt.Print(versionUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func buildVersion() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("usergraph", "GraphQL gateway over a user/post/profile database", "https://github.com/hanpama/usergraph"),
		func(i *goversion.Info) {
			if version != "" {
				i.GitVersion = version
			}
			if commit != "" {
				i.GitCommit = commit
			}
			if date != "" {
				i.BuildDate = date
			}
		},
	)
}

// originsFlag replaces its value on every Set so that a flag given after a
// config file wins over the file.
type originsFlag struct{ dst *[]string }

func (o originsFlag) String() string {
	if o.dst == nil {
		return ""
	}
	return strings.Join(*o.dst, ",")
}

func (o originsFlag) Set(v string) error {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*o.dst = out
	return nil
}

// serveConfig resolves the serve settings: defaults, then -config, then the
// remaining flags.
func serveConfig(args []string) (config.Config, error) {
	cfg := config.Default()
	configPath := ""

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "YAML configuration file")
	fs.StringVar(&cfg.Server.Addr, "server.addr", cfg.Server.Addr, "HTTP listen address")
	fs.BoolVar(&cfg.Server.Pretty, "server.pretty", cfg.Server.Pretty, "Pretty-print JSON responses")
	fs.DurationVar(&cfg.Server.Timeout, "server.timeout", cfg.Server.Timeout, "Per-request timeout")
	fs.Int64Var(&cfg.Server.MaxBodyBytes, "server.max-body-bytes", cfg.Server.MaxBodyBytes, "Request body limit")
	fs.IntVar(&cfg.Server.MaxBatch, "server.max-batch", cfg.Server.MaxBatch, "Operations per batched request")
	fs.Var(originsFlag{&cfg.Server.CORSOrigins}, "server.cors", "Allowed CORS origins")
	fs.IntVar(&cfg.GraphQL.MaxDepth, "graphql.max-depth", cfg.GraphQL.MaxDepth, "Maximum operation depth")
	fs.IntVar(&cfg.GraphQL.MaxBatchSize, "graphql.max-batch-size", cfg.GraphQL.MaxBatchSize, "Keys per loader batch")
	fs.StringVar(&cfg.Store.Driver, "store.driver", cfg.Store.Driver, "Store driver")
	fs.StringVar(&cfg.Store.DSN, "store.dsn", cfg.Store.DSN, "Database connection string")
	fs.BoolVar(&cfg.Store.Migrate, "store.migrate", cfg.Store.Migrate, "Create tables on startup")
	fs.BoolVar(&cfg.Store.Seed, "store.seed", cfg.Store.Seed, "Insert default member types")
	fs.StringVar(&cfg.Log.Level, "log.level", cfg.Log.Level, "Log level")
	fs.StringVar(&cfg.Log.Format, "log.format", cfg.Log.Format, "Log format")
	fs.StringVar(&cfg.Otel.Endpoint, "otel.endpoint", cfg.Otel.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.Otel.Service, "otel.service", cfg.Otel.Service, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		// The flag variables point into cfg, so parsing again applies the
		// explicit flags on top of the file.
		cfg = loaded
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	lvl, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		var opts []memstore.Option
		if cfg.Seed {
			opts = append(opts, memstore.WithMemberTypes(store.DefaultMemberTypes()...))
		}
		return memstore.New(opts...), nil
	default:
		s, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:  cfg.Driver,
			DSN:     cfg.DSN,
			Migrate: cfg.Migrate,
			Seed:    cfg.Seed,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// newHandler assembles the HTTP surface for st.
func newHandler(cfg config.Config, st store.Store, logger *slog.Logger, m *metrics.Metrics) (http.Handler, error) {
	p, err := pipeline.New(st,
		pipeline.WithMaxDepth(cfg.GraphQL.MaxDepth),
		pipeline.WithMaxBatchSize(cfg.GraphQL.MaxBatchSize),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("pipeline init: %w", err)
	}

	sopts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithMaxBatch(cfg.Server.MaxBatch),
		server.WithLogger(logger),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}

	routes := server.Routes{GraphQL: server.New(p, sopts...), SDL: graph.SDL()}
	if m != nil {
		routes.Metrics = m.Handler()
	}
	return server.NewMux(routes), nil
}

func cmdServe(args []string) error {
	cfg, err := serveConfig(args)
	if err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eventbus.Use(eventbus.New())
	m := metrics.New()
	defer m.Register()()

	shutdown, err := otel.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := newHandler(cfg, st, logger, m)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("GraphQL server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func cmdPrintSchema(args []string) error {
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write the schema to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return err
	}
	if _, _, err := graph.Schema(); err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sdl := graph.SDL()
	if outFile == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}
