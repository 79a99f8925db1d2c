/*
 * xailyser - network capture & deep packet inspection
 * Copyright (c) 2020-2024 the xailyser authors
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/evilsocket/islazy/tui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xairaven/xailyser/internal/aggregator"
	"github.com/xairaven/xailyser/internal/broadcast"
	"github.com/xairaven/xailyser/internal/capture"
	"github.com/xairaven/xailyser/internal/config"
	"github.com/xairaven/xailyser/internal/logging"
	"github.com/xairaven/xailyser/internal/pipeline"
	"github.com/xairaven/xailyser/internal/registry"
)

var (
	flagConfigFile   string
	flagInterface    string
	flagPort         int
	flagPassword     string
	flagCompression  string
	flagPromiscuous  bool
	flagWorkers      int
	flagStatsMS      int
	flagDebug        bool
	flagListDecoders bool
)

func main() {
	root := &cobra.Command{
		Use:           "xailyser-server",
		Short:         "Capture, dissect and broadcast network traffic.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}

	root.Flags().StringVar(&flagConfigFile, "config", "", "path to a TOML config file")
	root.Flags().StringVar(&flagInterface, "interface", "", "network interface to capture on")
	root.Flags().IntVar(&flagPort, "port", 0, "broadcast server TCP port")
	root.Flags().StringVar(&flagPassword, "password", "", "shared subscriber password (hashed before use)")
	root.Flags().StringVar(&flagCompression, "compression", "", "broadcast compression: none or zlib")
	root.Flags().BoolVar(&flagPromiscuous, "promiscuous", false, "capture in promiscuous mode")
	root.Flags().IntVar(&flagWorkers, "workers", 0, "number of dissection worker goroutines")
	root.Flags().IntVar(&flagStatsMS, "stats-interval", 0, "aggregator snapshot interval, in milliseconds")
	root.Flags().BoolVar(&flagDebug, "debug", false, "verbose logging and partial-layer dumps")
	root.Flags().BoolVar(&flagListDecoders, "list-decoders", false, "print the registered dissector table and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.Red(err.Error()))
		os.Exit(pipeline.ExitUnrecoverable)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	if flagConfigFile != "" {
		v.SetConfigFile(flagConfigFile)
		v.SetConfigType("toml")

		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, tui.Red(fmt.Sprintf("read config: %v", err)))
			os.Exit(pipeline.ExitConfigError)
		}
	}

	if flagInterface != "" {
		v.Set("interface", flagInterface)
	}
	if flagPort != 0 {
		v.Set("port", flagPort)
	}
	if flagCompression != "" {
		v.Set("compression", flagCompression)
	}
	if flagPromiscuous {
		v.Set("promiscuous", true)
	}
	if flagWorkers != 0 {
		v.Set("workers", flagWorkers)
	}
	if flagStatsMS != 0 {
		v.Set("stats_interval_ms", flagStatsMS)
	}
	if flagDebug {
		v.Set("debug", true)
	}

	cfg, err := config.Load(v, flagPassword)
	if err != nil {
		fmt.Fprintln(os.Stderr, tui.Red(err.Error()))
		os.Exit(pipeline.ExitConfigError)
	}

	reg, err := registry.Bootstrap()
	if err != nil {
		return err
	}

	if flagListDecoders {
		printDecoderTable(reg)

		return nil
	}

	log := logging.New("server", cfg.Debug)
	defer log.Sync() //nolint:errcheck

	src, err := capture.Open(capture.Config{
		Interface:   cfg.Interface,
		ReplayFile:  cfg.ReplayFile,
		Promiscuous: cfg.Promiscuous,
		SnapLen:     cfg.SnapLen,
		BPFFilter:   cfg.BPFFilter,
	}, log.Named("capture"))
	if err != nil {
		log.Error("failed to open capture source", zap.Error(err))
		os.Exit(pipeline.ExitUnrecoverable)
	}

	var metrics *aggregator.Metrics
	if cfg.ExportMetrics {
		reg := prometheus.NewRegistry()
		metrics = aggregator.NewMetrics(reg)

		go serveMetrics(cfg.MetricsAddr, reg, log)
	}

	agg := aggregator.New(time.Duration(cfg.StatsIntervalMS)*time.Millisecond, metrics)

	bc, err := broadcast.Listen(fmt.Sprintf(":%d", cfg.Port), broadcast.Config{
		PasswordHash:         cfg.PasswordHash,
		Compression:          cfg.Compression,
		LinkType:             src.LinkType().String(),
		SubscriberQueueDepth: cfg.SubscriberQueueDepth,
		HeartbeatInterval:    time.Duration(cfg.HeartbeatIntervalMS) * time.Millisecond,
	}, log.Named("broadcast"))
	if err != nil {
		log.Error("failed to start broadcast server", zap.Error(err))
		os.Exit(pipeline.ExitUnrecoverable)
	}
	go bc.Serve()

	pl := pipeline.New(pipeline.Config{
		Workers:           cfg.Workers,
		ValidateChecksums: cfg.Debug,
		Debug:             cfg.Debug,
		StatsIntervalMS:   cfg.StatsIntervalMS,
	}, src, reg, agg, bc, log.Named("pipeline"))

	ctx, cancel := context.WithCancel(context.Background())

	exitCode := make(chan int, 1)
	go func() {
		exitCode <- pipeline.WaitForSignal(cancel)
	}()

	log.Info("server started",
		zap.String("interface", cfg.Interface),
		zap.Int("port", cfg.Port),
		zap.Int("workers", cfg.Workers),
	)

	pl.Run(ctx)

	os.Exit(<-exitCode)

	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}

func printDecoderTable(reg *registry.Registry) {
	rows := make([][]string, 0, len(reg.Entries()))
	for _, e := range reg.Entries() {
		rows = append(rows, []string{string(e.Parent), fmt.Sprintf("%d", e.Selector), e.Dissector.Name})
	}

	tui.Table(os.Stdout, []string{"Parent Layer", "Selector", "Dissector"}, rows)
}
