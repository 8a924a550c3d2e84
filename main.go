// Influx Metrics Visualiser - Prometheus exposition ingest and chart backend
// Copyright (C) 2026 zBuffer
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zBuffer/influx-metrics-visualiser/internal/api"
	"github.com/zBuffer/influx-metrics-visualiser/internal/config"
	"github.com/zBuffer/influx-metrics-visualiser/internal/dash"
	"github.com/zBuffer/influx-metrics-visualiser/internal/expose"
	"github.com/zBuffer/influx-metrics-visualiser/internal/fetch"
	"github.com/zBuffer/influx-metrics-visualiser/internal/history"
	"github.com/zBuffer/influx-metrics-visualiser/relay"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		listen     = flag.String("listen", "", "listen address (overrides config)")
		target     = flag.String("target", "", "exposition endpoint URL to poll (overrides config)")
		interval   = flag.Duration("interval", 0, "poll interval (overrides config)")
		file       = flag.String("file", "", "exposition file to load and watch instead of polling")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *target != "" {
		cfg.Target = *target
	}
	if *interval > 0 {
		cfg.Poll.Interval = config.Duration(*interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist := history.New(cfg.History.Capacity)
	store := dash.NewStore(cfg.Dash.StateDir)

	ingest := func(timestamp int64, text string) {
		scrape := expose.Parse(text)
		hist.Append(timestamp, scrape)
		log.Debug("snapshot appended", "metrics", len(scrape.Series), "snapshots", hist.Len())
	}

	var poller *fetch.Controller
	switch {
	case *file != "":
		src := fetch.NewFileSource(*file, log, ingest)
		if err := src.Watch(ctx); err != nil {
			log.Error("watching metrics file", "path", *file, "err", err)
			os.Exit(1)
		}
		log.Info("watching metrics file", "path", *file)

	case cfg.Target != "":
		poller = fetch.New(fetch.Options{
			URL:      cfg.Target,
			Interval: cfg.Poll.Interval.Std(),
			Attempts: cfg.Poll.Attempts,
			Logger:   log,
			OnText:   ingest,
		})
		go func() {
			if err := poller.Run(ctx); err != nil {
				log.Error("polling stopped", "err", err)
			}
		}()
		log.Info("polling exposition endpoint", "target", cfg.Target, "interval", cfg.Poll.Interval)

	default:
		log.Info("no target configured, waiting for manual ingest")
	}

	srv := api.New(hist, poller, store, cfg, log)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", srv.Routes())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", relay.New(log))

	log.Info("listening", "addr", cfg.Listen)

	httpSrv := &http.Server{Addr: cfg.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}
