package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-judicatura/infrastructure/metrics"
	"github.com/ahrav/go-judicatura/internal/application"
	"github.com/ahrav/go-judicatura/internal/ports"
)

// cli holds state shared by every subcommand for one invocation.
type cli struct {
	configPath  string
	logLevel    string
	metricsAddr string
	outputDir   string

	cfg     application.Config
	logger  *zap.Logger
	metrics ports.MetricsCollector
	server  *http.Server
	addr    net.Addr
}

func newCLI() *cli {
	return &cli{logger: zap.NewNop()}
}

// run executes root and then releases the logger and metrics server,
// including when the command fails.
func (c *cli) run(ctx context.Context, root *cobra.Command) error {
	defer func() { _ = c.teardown(ctx) }()
	return root.ExecuteContext(ctx)
}

// command builds the root command bound to c.
func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "judicatura",
		Short: "Normalize, locate, score and match judicial candidates",
		Long: `judicatura processes the published judicial candidate feeds.

Stages read what the previous stage wrote to the output directory:
  normalize  feeds -> canonical candidates (JSON, CSV)
  associate  candidates -> judicial districts
  lookup     per-district candidate table and GeoJSON
  score      LLM rubric evaluation with checkpoint/resume
  join       scores enriched with feed and profile fields
  match      rank scored candidates against a voter questionnaire`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVarP(&c.outputDir, "output-dir", "o", "", "override output.dir")

	root.AddCommand(
		c.createNormalizeCmd(),
		c.createAssociateCmd(),
		c.createLookupCmd(),
		c.createScoreCmd(),
		c.createJoinCmd(),
		c.createMatchCmd(),
		c.createConfigCmd(),
	)
	return root
}

// setup loads configuration and builds the logger and metrics endpoint.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	level, err := zapcore.ParseLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", c.logLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger.Named("judicatura")

	cfg, err := application.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.applyOverrides(&cfg)
	c.cfg = cfg

	if cfg.Metrics.Addr != "" {
		return c.serveMetrics(cmd.Context(), cfg.Metrics.Addr)
	}
	return nil
}

// applyOverrides lets command-line flags win over the config file.
func (c *cli) applyOverrides(cfg *application.Config) {
	if c.outputDir != "" {
		cfg.Output.Dir = c.outputDir
	}
	if c.metricsAddr != "" {
		cfg.Metrics.Addr = c.metricsAddr
	}
}

// serveMetrics registers the collector on a private registry and serves
// it on addr until teardown.
func (c *cli) serveMetrics(ctx context.Context, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.metrics = metrics.NewPrometheusMetrics(reg)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	c.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	c.addr = ln.Addr()

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	c.logger.Info("serving metrics", zap.String("addr", c.addr.String()))
	return nil
}

func (c *cli) teardown(ctx context.Context) error {
	if c.server != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(sctx); err != nil {
			c.logger.Warn("metrics server shutdown", zap.Error(err))
		}
		c.server = nil
	}
	_ = c.logger.Sync()
	return nil
}

func (c *cli) pipeline(opts ...application.PipelineOption) *application.Pipeline {
	base := []application.PipelineOption{
		application.WithLogger(c.logger),
		application.WithMetrics(c.metrics),
	}
	return application.NewPipeline(c.cfg, append(base, opts...)...)
}

// printYAML writes v to the command's stdout as one YAML document.
func printYAML(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	if _, err := io.WriteString(out, "---\n"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// printJSON writes v to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
