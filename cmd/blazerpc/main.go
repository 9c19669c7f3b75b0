// Command blazerpc is the thin host process: it parses flags, loads
// configuration, and runs whatever models the imported entry point
// registered via blazerpc.App.Register. Go has no dynamic import, so the
// entry point is a build-time import rather than a path string; this
// binary is meant to be copied into a small main package per deployment
// that blank-imports its model package for registration side effects.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	_ "go.uber.org/automaxprocs"

	"github.com/Ifihan/blazerpc/internal/config"
	"github.com/Ifihan/blazerpc/internal/logging"
	"github.com/Ifihan/blazerpc/pkg/blazerpc"
)

var (
	app = kingpin.New("blazerpc", "Serve registered models over gRPC.")

	host        = app.Flag("host", "Bind host.").Default("0.0.0.0").String()
	port        = app.Flag("port", "Bind port.").Default("50051").Int()
	configFile  = app.Flag("config", "Path to a YAML config file.").String()
	gracePeriod = app.Flag("grace-period", "Shutdown drain window.").Default("10s").Duration()
	noBatching  = app.Flag("no-batching", "Disable per-model batching globally.").Bool()
	workerPool  = app.Flag("worker-pool-size", "Max concurrent synchronous callables (0 = unbounded).").Default("0").Int()
	logLevel    = app.Flag("log-level", "Logging level.").Default("info").String()
	logFile     = app.Flag("log-file", "Log file path; empty logs to stderr.").String()
	metricsAddr = app.Flag("metrics-addr", "Bind address for the /metrics endpoint; empty disables it.").Default(":9090").String()
)

// Run is the host's entry point. It takes the already-populated App (the
// caller's main package registers its models before calling Run) so this
// file stays free of any reference to a specific model package.
func Run(application *blazerpc.App) {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger, err := logging.New(logging.Options{Level: *logLevel, File: *logFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var batchingEnabled *bool
	if *noBatching {
		disabled := false
		batchingEnabled = &disabled
	}
	opts, err := config.Load(*configFile, config.ServeOptions{
		Host:            *host,
		Port:            *port,
		WorkerPoolSize:  *workerPool,
		GracePeriod:     *gracePeriod,
		BatchingEnabled: batchingEnabled,
		LogLevel:        *logLevel,
		LogFile:         *logFile,
		MetricsAddr:     *metricsAddr,
	})
	if err != nil {
		logger.Fatal("loading configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Serve(ctx, opts, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func main() {
	// A real deployment blank-imports its model-registration package and
	// builds the App there; this package alone has no models to serve.
	Run(blazerpc.New())
}
