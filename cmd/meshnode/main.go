package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"

	"meshnode/internal/admin"
	"meshnode/internal/config"
	"meshnode/internal/logging"
	"meshnode/internal/loop"
	"meshnode/internal/message"
	"meshnode/internal/node"
	"meshnode/internal/service"
	"meshnode/internal/telemetry"
	"meshnode/internal/transport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	workload := flag.String("workload", "", "workload to serve, overrides the config file and environment")
	inspect := flag.String("inspect", "", "print the snapshot of the node whose admin server listens at this address and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if *inspect != "" {
		if err := printSnapshot(*inspect); err != nil {
			fmt.Fprintf(os.Stderr, "meshnode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshnode: %v\n", err)
		os.Exit(2)
	}
	if *workload != "" {
		cfg.Workload = *workload
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "meshnode: %v\n", err)
			os.Exit(2)
		}
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshnode: %v\n", err)
		os.Exit(2)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("node stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.New(cfg.Workload)
	metrics.SetBuildInfo(version)

	svc, err := service.New(cfg.Workload, service.Options{
		Logger:     logger,
		Observer:   metrics,
		IDStrategy: cfg.IDStrategy,
		PollWindow: cfg.PollWindow,
	})
	if err != nil {
		return err
	}
	mode, err := node.ParseMode(cfg.Gossip.Neighbors)
	if err != nil {
		return err
	}

	codec := message.NewCodec(svc.Registry())
	n := node.New(svc, transport.NewWriter(os.Stdout, codec),
		node.WithLogger(logger),
		node.WithMetrics(metrics),
		node.WithTicker(loop.NewTicker(cfg.Gossip.Interval)),
		node.WithNeighbors(mode, cfg.Gossip.Fanout),
	)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(serr))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = multierr.Append(err, srv.Shutdown(sctx))
		}()
	}

	if cfg.AdminAddr != "" {
		srv := admin.NewServer(admin.NewService(n, logger), logger)
		go func() {
			if serr := srv.ListenAndServe(cfg.AdminAddr); serr != nil {
				logger.Error("admin server failed", zap.Error(serr))
			}
		}()
		defer srv.Stop()
	}

	inbound := make(chan message.Envelope, 64)
	readDone := make(chan error, 1)
	reader := transport.NewReader(os.Stdin, codec, logger)
	go func() { readDone <- reader.Run(ctx, inbound) }()

	events := loop.NewMultiplexer(inbound, n.Ticks())
	go events.Run(ctx)

	logger.Info("starting",
		zap.String("workload", cfg.Workload),
		zap.String("version", version),
		zap.Strings("types", svc.Registry().Types()))
	runErr := n.Run(ctx, events.Events())

	// A clean return before shutdown means input closed, so the reader has
	// finished and its error, if any, is the decode failure that ended it.
	var readErr error
	if runErr == nil && ctx.Err() == nil {
		readErr = <-readDone
	}
	return multierr.Combine(runErr, readErr)
}

func printSnapshot(addr string) error {
	client, conn, err := admin.Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	snap, err := client.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", addr, err)
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(snap)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
